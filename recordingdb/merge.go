// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"storj.io/videostore/storage"
)

// Order is the direction of an index stream.
type Order int

const (
	// Descending returns the newest recordings first.
	Descending Order = iota
	// Ascending returns the oldest recordings first.
	Ascending
)

// before returns whether a is emitted before b.
func (order Order) before(a, b uuid.UUID) bool {
	if order == Ascending {
		return compareIDs(a, b) < 0
	}
	return compareIDs(a, b) > 0
}

// EntryIterator iterates over index entries in a single order.
type EntryIterator interface {
	Next(ctx context.Context, entry *IndexEntry) bool
	Err() error
	Close() error
}

// indexIterator decodes the rows of an index scan.
type indexIterator struct {
	table  indexTable
	cursor storage.Cursor
	err    error
}

func newIndexIterator(table indexTable, cursor storage.Cursor) *indexIterator {
	return &indexIterator{table: table, cursor: cursor}
}

func (it *indexIterator) Next(ctx context.Context, entry *IndexEntry) bool {
	if it.err != nil {
		return false
	}
	var row storage.Row
	if !it.cursor.Next(ctx, &row) {
		return false
	}
	decoded, err := it.table.decode(row)
	if err != nil {
		it.err = err
		return false
	}
	*entry = decoded
	return true
}

func (it *indexIterator) Err() error {
	return errs.Combine(it.err, it.cursor.Err())
}

func (it *indexIterator) Close() error { return it.cursor.Close() }

// peeking buffers a single entry of an iterator.
type peeking struct {
	it     EntryIterator
	head   IndexEntry
	has    bool
	loaded bool
}

func (p *peeking) peek(ctx context.Context) (IndexEntry, bool) {
	if !p.loaded {
		p.has = p.it.Next(ctx, &p.head)
		p.loaded = true
	}
	return p.head, p.has
}

func (p *peeking) advance() { p.loaded = false }

// skipBefore drops every entry emitted before target.
func (p *peeking) skipBefore(ctx context.Context, order Order, target uuid.UUID) (IndexEntry, bool) {
	for {
		head, ok := p.peek(ctx)
		if !ok || !order.before(head.RecordingID, target) {
			return head, ok
		}
		p.advance()
	}
}

func wrapAll(sources []EntryIterator) []*peeking {
	wrapped := make([]*peeking, len(sources))
	for i, source := range sources {
		wrapped[i] = &peeking{it: source}
	}
	return wrapped
}

func firstErr(sources []*peeking) error {
	var group errs.Group
	for _, source := range sources {
		group.Add(source.it.Err())
	}
	return group.Err()
}

func closeAll(sources []*peeking) error {
	var group errs.Group
	for _, source := range sources {
		group.Add(source.it.Close())
	}
	return group.Err()
}

// unionIterator returns every distinct id of its sources once, preferring
// favorite entries.
type unionIterator struct {
	order   Order
	sources []*peeking
	last    uuid.UUID
	hasLast bool
	err     error
}

// Union merges sources sorted by order.
func Union(order Order, sources ...EntryIterator) EntryIterator {
	switch len(sources) {
	case 0:
		return emptyIterator{}
	case 1:
		return sources[0]
	}
	return &unionIterator{order: order, sources: wrapAll(sources)}
}

func (it *unionIterator) Next(ctx context.Context, entry *IndexEntry) bool {
	if it.err != nil {
		return false
	}

	var best *peeking
	var bestEntry IndexEntry
	for _, source := range it.sources {
		head, ok := source.peek(ctx)
		for ok && it.hasLast && head.RecordingID == it.last {
			source.advance()
			head, ok = source.peek(ctx)
		}
		if !ok {
			continue
		}

		switch {
		case best == nil || it.order.before(head.RecordingID, bestEntry.RecordingID):
			best, bestEntry = source, head
		case head.RecordingID == bestEntry.RecordingID && head.Favorite && !bestEntry.Favorite:
			best, bestEntry = source, head
		}
	}

	if it.err = firstErr(it.sources); it.err != nil {
		return false
	}
	if best == nil {
		return false
	}

	best.advance()
	it.last, it.hasLast = bestEntry.RecordingID, true
	*entry = bestEntry
	return true
}

func (it *unionIterator) Err() error   { return it.err }
func (it *unionIterator) Close() error { return closeAll(it.sources) }

// intersectionIterator returns the ids present in every source.
type intersectionIterator struct {
	order   Order
	sources []*peeking
	done    bool
	err     error
}

// Intersection returns the ids found in all sources sorted by order.
func Intersection(order Order, sources ...EntryIterator) EntryIterator {
	switch len(sources) {
	case 0:
		return emptyIterator{}
	case 1:
		return sources[0]
	}
	return &intersectionIterator{order: order, sources: wrapAll(sources)}
}

func (it *intersectionIterator) Next(ctx context.Context, entry *IndexEntry) bool {
	if it.done || it.err != nil || len(it.sources) == 0 {
		return false
	}

	lead := it.sources[0]
	for {
		target, ok := lead.peek(ctx)
		if !ok {
			return it.finish()
		}

		agreed := true
		for _, source := range it.sources[1:] {
			head, ok := source.skipBefore(ctx, it.order, target.RecordingID)
			if !ok {
				return it.finish()
			}
			if head.RecordingID != target.RecordingID {
				lead.skipBefore(ctx, it.order, head.RecordingID)
				agreed = false
				break
			}
			target.Favorite = target.Favorite || head.Favorite
			if head.Size > target.Size {
				target.Size = head.Size
			}
		}

		if agreed {
			for _, source := range it.sources {
				source.advance()
			}
			*entry = target
			return true
		}
		if it.err = firstErr(it.sources); it.err != nil {
			return false
		}
	}
}

func (it *intersectionIterator) finish() bool {
	it.done = true
	it.err = firstErr(it.sources)
	return false
}

func (it *intersectionIterator) Err() error   { return it.err }
func (it *intersectionIterator) Close() error { return closeAll(it.sources) }

// differenceIterator returns the ids of primary missing from subtract.
type differenceIterator struct {
	order    Order
	primary  *peeking
	subtract *peeking
	err      error
}

// Difference returns the entries of primary whose id is not in subtract.
func Difference(order Order, primary, subtract EntryIterator) EntryIterator {
	return &differenceIterator{
		order:    order,
		primary:  &peeking{it: primary},
		subtract: &peeking{it: subtract},
	}
}

func (it *differenceIterator) Next(ctx context.Context, entry *IndexEntry) bool {
	if it.err != nil {
		return false
	}
	sources := []*peeking{it.primary, it.subtract}

	for {
		head, ok := it.primary.peek(ctx)
		if !ok {
			it.err = firstErr(sources)
			return false
		}
		it.primary.advance()

		skip, ok := it.subtract.skipBefore(ctx, it.order, head.RecordingID)
		if it.err = firstErr(sources); it.err != nil {
			return false
		}
		if ok && skip.RecordingID == head.RecordingID {
			it.subtract.advance()
			continue
		}

		*entry = head
		return true
	}
}

func (it *differenceIterator) Err() error { return it.err }

func (it *differenceIterator) Close() error {
	return closeAll([]*peeking{it.primary, it.subtract})
}

// filterIterator drops the entries rejected by keep.
type filterIterator struct {
	EntryIterator
	keep func(IndexEntry) bool
}

func (it *filterIterator) Next(ctx context.Context, entry *IndexEntry) bool {
	for it.EntryIterator.Next(ctx, entry) {
		if it.keep(*entry) {
			return true
		}
	}
	return false
}

// emptyIterator never returns an entry.
type emptyIterator struct{}

func (emptyIterator) Next(context.Context, *IndexEntry) bool { return false }
func (emptyIterator) Err() error                             { return nil }
func (emptyIterator) Close() error                           { return nil }
