// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

var mon = monkit.Package()

// Error is the default boltdb errs class.
var Error = errs.Class("boltdb")

var (
	defaultTimeout = 1 * time.Second
)

const (
	// fileMode sets permissions so owner can read and write.
	fileMode = 0600

	expiresSize = 8
)

// Client is the storage.Store implementation backed by a Bolt database.
//
// Every table is a bucket. A row is stored under the length prefixed
// partition key followed by the clustering key, the value carries the
// expiration time in front of the payload.
type Client struct {
	log  *zap.Logger
	db   *bolt.DB
	Path string

	mu    sync.Mutex
	nowFn func() time.Time
}

// New instantiates a new BoltDB client.
func New(log *zap.Logger, path string) (*Client, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return &Client{
		log:   log,
		db:    db,
		Path:  path,
		nowFn: time.Now,
	}, nil
}

// TestingSetNow allows tests to have the store act as if the current time is whatever they want.
func (client *Client) TestingSetNow(nowFn func() time.Time) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.nowFn = nowFn
}

func (client *Client) now() time.Time {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.nowFn()
}

func partitionPrefix(partition storage.Key) []byte {
	prefix := make([]byte, 4, 4+len(partition))
	binary.BigEndian.PutUint32(prefix, uint32(len(partition)))
	return append(prefix, partition...)
}

func rowKey(partition, clustering storage.Key) []byte {
	return append(partitionPrefix(partition), clustering...)
}

func encodeValue(value storage.Value, expires time.Time) []byte {
	data := make([]byte, expiresSize, expiresSize+len(value))
	if !expires.IsZero() {
		binary.BigEndian.PutUint64(data, uint64(expires.UnixNano()))
	}
	return append(data, value...)
}

// decodeValue returns the payload of data and whether it is still visible at now.
func decodeValue(data []byte, now time.Time) (storage.Value, bool, error) {
	if len(data) < expiresSize {
		return nil, false, Error.New("corrupted value: %d bytes", len(data))
	}
	expires := int64(binary.BigEndian.Uint64(data))
	if expires != 0 && now.UnixNano() >= expires {
		return nil, false, nil
	}
	return storage.CloneValue(data[expiresSize:]), true, nil
}

// Apply executes all mutations in a single transaction.
func (client *Client) Apply(ctx context.Context, mutations ...storage.Mutation) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, m := range mutations {
		if err := m.Verify(); err != nil {
			return err
		}
	}
	if len(mutations) == 0 {
		return nil
	}

	now := client.now()
	return Error.Wrap(client.db.Update(func(tx *bolt.Tx) error {
		for _, m := range mutations {
			if m.Delete {
				bucket := tx.Bucket([]byte(m.Table))
				if bucket == nil {
					continue
				}
				if m.Clustering.IsZero() {
					if err := deletePrefix(bucket, partitionPrefix(m.Partition)); err != nil {
						return err
					}
					continue
				}
				if err := bucket.Delete(rowKey(m.Partition, m.Clustering)); err != nil {
					return err
				}
				continue
			}

			bucket, err := tx.CreateBucketIfNotExists([]byte(m.Table))
			if err != nil {
				return err
			}

			var expires time.Time
			if m.TTL > 0 {
				expires = now.Add(m.TTL)
			}
			if err := bucket.Put(rowKey(m.Partition, m.Clustering), encodeValue(m.Value, expires)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func deletePrefix(bucket *bolt.Bucket, prefix []byte) error {
	var keys [][]byte
	cursor := bucket.Cursor()
	for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
		keys = append(keys, append([]byte{}, k...))
	}
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value of a single row.
func (client *Client) Get(ctx context.Context, table storage.Table, partition, clustering storage.Key) (_ storage.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	if partition.IsZero() {
		return nil, storage.ErrEmptyKey.New("table %q", table)
	}

	now := client.now()
	var value storage.Value
	err = client.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return storage.ErrKeyNotFound.New("%q", clustering)
		}
		data := bucket.Get(rowKey(partition, clustering))
		if data == nil {
			return storage.ErrKeyNotFound.New("%q", clustering)
		}

		var live bool
		var err error
		value, live, err = decodeValue(data, now)
		if err != nil {
			return err
		}
		if !live {
			return storage.ErrKeyNotFound.New("%q", clustering)
		}
		return nil
	})
	return value, err
}

// Scan returns a cursor that reads a page per transaction.
func (client *Client) Scan(ctx context.Context, opts storage.ScanOptions) storage.Cursor {
	if opts.Partition.IsZero() {
		return storage.ErrorCursor(storage.ErrEmptyKey.New("table %q", opts.Table))
	}

	prefix := partitionPrefix(opts.Partition)
	return storage.NewPagedCursor(opts, func(ctx context.Context, lo, hi storage.Key, reverse bool, limit int) (_ []storage.Row, err error) {
		defer mon.Task()(&ctx)(&err)

		now := client.now()
		var rows []storage.Row
		err = client.db.View(func(tx *bolt.Tx) error {
			bucket := tx.Bucket([]byte(opts.Table))
			if bucket == nil {
				return nil
			}

			add := func(k, v []byte) (bool, error) {
				value, live, err := decodeValue(v, now)
				if err != nil || !live {
					return false, err
				}
				rows = append(rows, storage.Row{
					Clustering: storage.CloneKey(k[len(prefix):]),
					Value:      value,
				})
				return len(rows) >= limit, nil
			}

			cursor := bucket.Cursor()
			if reverse {
				var k, v []byte
				var upper []byte
				if hi != nil {
					upper = append(append([]byte{}, prefix...), hi...)
				} else {
					upper = storage.PrefixLimit(prefix)
				}
				if upper == nil {
					k, v = cursor.Last()
				} else if k, _ = cursor.Seek(upper); k == nil {
					k, v = cursor.Last()
				} else {
					k, v = cursor.Prev()
				}

				for ; k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Prev() {
					if storage.Key(k[len(prefix):]).Less(lo) {
						break
					}
					done, err := add(k, v)
					if err != nil || done {
						return err
					}
				}
				return nil
			}

			start := append(append([]byte{}, prefix...), lo...)
			for k, v := cursor.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
				if hi != nil && !storage.Key(k[len(prefix):]).Less(hi) {
					break
				}
				done, err := add(k, v)
				if err != nil || done {
					return err
				}
			}
			return nil
		})
		return rows, Error.Wrap(err)
	})
}

// Count returns the number of visible rows selected by opts.
func (client *Client) Count(ctx context.Context, opts storage.ScanOptions) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)
	return storage.CountRows(ctx, client.Scan(ctx, opts))
}

// Close closes a BoltDB client.
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}
