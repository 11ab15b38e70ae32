// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storelogger

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

var mon = monkit.Package()

var id int64

// Logger implements a zap.Logger for storage.Store.
type Logger struct {
	log   *zap.Logger
	store storage.Store
}

// New creates a new Logger with log and store.
func New(log *zap.Logger, store storage.Store) *Logger {
	loggerid := atomic.AddInt64(&id, 1)
	name := strconv.Itoa(int(loggerid))
	return &Logger{log.Named(name), store}
}

// Apply executes all mutations as a single batch.
func (store *Logger) Apply(ctx context.Context, mutations ...storage.Mutation) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Apply", zap.Int("mutations", len(mutations)))
	for _, m := range mutations {
		store.log.Debug("  ",
			zap.String("table", string(m.Table)),
			zap.Binary("partition", m.Partition),
			zap.Binary("clustering", m.Clustering),
			zap.Bool("delete", m.Delete),
			zap.Duration("ttl", m.TTL),
			zap.Int("value length", len(m.Value)),
			zap.Binary("truncated value", truncate(m.Value)),
		)
	}
	return store.store.Apply(ctx, mutations...)
}

// Get gets the value of a single row.
func (store *Logger) Get(ctx context.Context, table storage.Table, partition, clustering storage.Key) (_ storage.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Get",
		zap.String("table", string(table)),
		zap.Binary("partition", partition),
		zap.Binary("clustering", clustering))
	return store.store.Get(ctx, table, partition, clustering)
}

// Scan logs every row returned by the underlying cursor.
func (store *Logger) Scan(ctx context.Context, opts storage.ScanOptions) storage.Cursor {
	store.log.Debug("Scan",
		zap.String("table", string(opts.Table)),
		zap.Binary("partition", opts.Partition),
		zap.Binary("prefix", opts.Prefix),
		zap.Binary("first", opts.First),
		zap.Binary("last", opts.Last),
		zap.Bool("reverse", opts.Reverse),
		zap.Int("page size", opts.PageSize),
	)
	return &cursor{log: store.log, cursor: store.store.Scan(ctx, opts), start: time.Now()}
}

// Count returns the number of rows selected by opts.
func (store *Logger) Count(ctx context.Context, opts storage.ScanOptions) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)
	count, err := store.store.Count(ctx, opts)
	store.log.Debug("Count",
		zap.String("table", string(opts.Table)),
		zap.Binary("partition", opts.Partition),
		zap.Int64("count", count))
	return count, err
}

// Close closes the store.
func (store *Logger) Close() error {
	store.log.Debug("Close")
	return store.store.Close()
}

type cursor struct {
	log    *zap.Logger
	cursor storage.Cursor
	rows   int
	start  time.Time
}

func (c *cursor) Next(ctx context.Context, row *storage.Row) bool {
	ok := c.cursor.Next(ctx, row)
	if ok {
		c.rows++
		c.log.Debug("  ",
			zap.Binary("clustering", row.Clustering),
			zap.Int("value length", len(row.Value)),
			zap.Binary("truncated value", truncate(row.Value)),
		)
	}
	return ok
}

func (c *cursor) Err() error { return c.cursor.Err() }

func (c *cursor) Close() error {
	c.log.Debug("Scan done", zap.Int("rows", c.rows), zap.Duration("elapsed", time.Since(c.start)))
	return c.cursor.Close()
}

func truncate(v storage.Value) (t []byte) {
	if len(v)-1 < 10 {
		t = []byte(v)
	} else {
		t = v[:10]
	}
	return t
}
