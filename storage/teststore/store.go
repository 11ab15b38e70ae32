// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package teststore

import (
	"context"
	"sort"
	"sync"
	"time"

	"storj.io/videostore/storage"
)

// Client implements in-memory wide-row store.
type Client struct {
	mu     sync.Mutex
	tables map[storage.Table]map[string]*partition
	nowFn  func() time.Time

	CallCount struct {
		Apply int
		Get   int
		Scan  int
		Pages int
		Count int
		Close int
	}
}

type partition struct {
	items []item
}

type item struct {
	key     storage.Key
	value   storage.Value
	expires time.Time
}

func (item *item) live(now time.Time) bool {
	return item.expires.IsZero() || now.Before(item.expires)
}

// New creates a new in-memory wide-row store.
func New() *Client {
	return &Client{
		tables: map[storage.Table]map[string]*partition{},
		nowFn:  time.Now,
	}
}

// TestingSetNow allows tests to have the store act as if the current time is whatever they want.
func (store *Client) TestingSetNow(nowFn func() time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.nowFn = nowFn
}

// indexOf finds index of key or where it could be inserted.
func (p *partition) indexOf(key storage.Key) (int, bool) {
	i := sort.Search(len(p.items), func(k int) bool {
		return !p.items[k].key.Less(key)
	})

	if i >= len(p.items) {
		return i, false
	}
	return i, p.items[i].key.Equal(key)
}

func (store *Client) partition(table storage.Table, key storage.Key, create bool) *partition {
	partitions, ok := store.tables[table]
	if !ok {
		if !create {
			return nil
		}
		partitions = map[string]*partition{}
		store.tables[table] = partitions
	}

	p, ok := partitions[string(key)]
	if !ok && create {
		p = &partition{}
		partitions[string(key)] = p
	}
	return p
}

// Apply executes all mutations atomically.
func (store *Client) Apply(ctx context.Context, mutations ...storage.Mutation) error {
	for _, m := range mutations {
		if err := m.Verify(); err != nil {
			return err
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Apply++

	now := store.nowFn()
	for _, m := range mutations {
		if m.Delete && m.Clustering.IsZero() {
			delete(store.tables[m.Table], string(m.Partition))
			continue
		}

		p := store.partition(m.Table, m.Partition, !m.Delete)
		if p == nil {
			continue
		}

		index, found := p.indexOf(m.Clustering)
		if m.Delete {
			if found {
				copy(p.items[index:], p.items[index+1:])
				p.items = p.items[:len(p.items)-1]
			}
			continue
		}

		next := item{
			key:   storage.CloneKey(m.Clustering),
			value: storage.CloneValue(m.Value),
		}
		if m.TTL > 0 {
			next.expires = now.Add(m.TTL)
		}

		if found {
			p.items[index] = next
			continue
		}

		p.items = append(p.items, item{})
		copy(p.items[index+1:], p.items[index:])
		p.items[index] = next
	}

	return nil
}

// Get gets the value of a single row.
func (store *Client) Get(ctx context.Context, table storage.Table, partitionKey, clustering storage.Key) (storage.Value, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Get++

	if partitionKey.IsZero() {
		return nil, storage.ErrEmptyKey.New("table %q", table)
	}

	p := store.partition(table, partitionKey, false)
	if p == nil {
		return nil, storage.ErrKeyNotFound.New("%q", clustering)
	}

	index, found := p.indexOf(clustering)
	if !found || !p.items[index].live(store.nowFn()) {
		return nil, storage.ErrKeyNotFound.New("%q", clustering)
	}
	return storage.CloneValue(p.items[index].value), nil
}

// Scan returns a lazily paged cursor over the selected rows.
func (store *Client) Scan(ctx context.Context, opts storage.ScanOptions) storage.Cursor {
	store.mu.Lock()
	store.CallCount.Scan++
	store.mu.Unlock()

	if opts.Partition.IsZero() {
		return storage.ErrorCursor(storage.ErrEmptyKey.New("table %q", opts.Table))
	}

	return storage.NewPagedCursor(opts, func(ctx context.Context, lo, hi storage.Key, reverse bool, limit int) ([]storage.Row, error) {
		return store.fetch(opts.Table, opts.Partition, lo, hi, reverse, limit), nil
	})
}

func (store *Client) fetch(table storage.Table, partitionKey, lo, hi storage.Key, reverse bool, limit int) []storage.Row {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Pages++

	p := store.partition(table, partitionKey, false)
	if p == nil {
		return nil
	}

	now := store.nowFn()
	var rows []storage.Row
	add := func(it *item) {
		rows = append(rows, storage.Row{
			Clustering: storage.CloneKey(it.key),
			Value:      storage.CloneValue(it.value),
		})
	}

	if reverse {
		start := len(p.items)
		if hi != nil {
			start, _ = p.indexOf(hi)
		}
		for i := start - 1; i >= 0 && len(rows) < limit; i-- {
			it := &p.items[i]
			if it.key.Less(lo) {
				break
			}
			if it.live(now) {
				add(it)
			}
		}
		return rows
	}

	start, _ := p.indexOf(lo)
	for i := start; i < len(p.items) && len(rows) < limit; i++ {
		it := &p.items[i]
		if hi != nil && !it.key.Less(hi) {
			break
		}
		if it.live(now) {
			add(it)
		}
	}
	return rows
}

// Count returns the number of live rows selected by opts.
func (store *Client) Count(ctx context.Context, opts storage.ScanOptions) (int64, error) {
	store.mu.Lock()
	store.CallCount.Count++
	store.mu.Unlock()

	return storage.CountRows(ctx, store.Scan(ctx, opts))
}

// Close closes the store.
func (store *Client) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Close++
	return nil
}

// Len returns the number of live rows across all tables.
func (store *Client) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.nowFn()
	total := 0
	for _, partitions := range store.tables {
		for _, p := range partitions {
			for i := range p.items {
				if p.items[i].live(now) {
					total++
				}
			}
		}
	}
	return total
}
