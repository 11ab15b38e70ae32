// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// Config is a configuration struct for the recording database.
type Config struct {
	PurgePartitions      int           `help:"number of partitions of the purge queue" default:"16"`
	PurgeDelay           time.Duration `help:"how long after deletion a recording becomes purgeable" default:"4h" testDefault:"1h"`
	ExpirationRounding   time.Duration `help:"granularity expirations and purge times are rounded up to" default:"1h"`
	MaxBatchSize         int           `help:"maximum number of mutations in a single store batch" default:"1000"`
	FavoriteBatchSize    int           `help:"maximum number of mutations per batch when moving a recording between standard and favorite tables" default:"100"`
	PlacePurgeDays       int           `help:"number of daily buckets scanned for place purge directives" default:"7"`
	MaxIFrameQuietPeriod time.Duration `help:"time without new key frames after which an in progress recording is treated as finished" default:"30s"`
	DefaultQueryLimit    int           `help:"page size of queries without a limit" default:"100"`
}

func (config Config) withDefaults() Config {
	if config.PurgePartitions <= 0 {
		config.PurgePartitions = 16
	}
	if config.PurgeDelay <= 0 {
		config.PurgeDelay = 4 * time.Hour
	}
	if config.ExpirationRounding <= 0 {
		config.ExpirationRounding = DefaultExpirationRounding
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 1000
	}
	if config.FavoriteBatchSize <= 0 {
		config.FavoriteBatchSize = 100
	}
	if config.PlacePurgeDays <= 0 {
		config.PlacePurgeDays = 7
	}
	if config.MaxIFrameQuietPeriod <= 0 {
		config.MaxIFrameQuietPeriod = 30 * time.Second
	}
	if config.DefaultQueryLimit <= 0 {
		config.DefaultQueryLimit = 100
	}
	return config
}

// DB stores recordings in a wide-row store.
//
// architecture: Database
type DB struct {
	log    *zap.Logger
	store  storage.Store
	config Config

	nowFn func() time.Time
}

// New returns a recording database on top of store.
func New(log *zap.Logger, store storage.Store, config Config) *DB {
	return &DB{
		log:    log,
		store:  store,
		config: config.withDefaults(),
		nowFn:  time.Now,
	}
}

// Config returns the effective configuration.
func (db *DB) Config() Config { return db.config }

// Store returns the underlying store.
func (db *DB) Store() storage.Store { return db.store }

// TestingSetNow allows tests to have the database act as if the current time is whatever they want.
func (db *DB) TestingSetNow(nowFn func() time.Time) {
	db.nowFn = nowFn
}

func (db *DB) now() time.Time { return db.nowFn().UTC() }

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.store.Close()
}

// PartitionID returns the purge partition of id.
func (db *DB) PartitionID(id uuid.UUID) int {
	return PartitionID(id, db.config.PurgePartitions)
}

// PurgeTimestamp returns the purge time of a recording deleted now.
func (db *DB) PurgeTimestamp() time.Time {
	return PurgeTimestamp(db.now(), db.config.PurgeDelay, db.config.ExpirationRounding)
}

// ExpirationFromTTL returns the expiration of id when it lives for ttl.
func (db *DB) ExpirationFromTTL(id uuid.UUID, ttl time.Duration) time.Time {
	return ExpirationFromTTL(id, ttl, db.config.ExpirationRounding)
}

// batches splits mutations into chunks of at most size, keeping their order.
func batches(mutations []storage.Mutation, size int) [][]storage.Mutation {
	if size <= 0 || len(mutations) <= size {
		if len(mutations) == 0 {
			return nil
		}
		return [][]storage.Mutation{mutations}
	}

	chunks := make([][]storage.Mutation, 0, (len(mutations)+size-1)/size)
	for len(mutations) > size {
		chunks = append(chunks, mutations[:size:size])
		mutations = mutations[size:]
	}
	return append(chunks, mutations)
}

// apply executes mutations in sequential batches of at most size mutations.
func (db *DB) apply(ctx context.Context, size int, mutations []storage.Mutation) (err error) {
	defer mon.Task()(&ctx)(&err)

	mon.IntVal("batch_mutations").Observe(int64(len(mutations)))
	for _, batch := range batches(mutations, size) {
		if err := db.store.Apply(ctx, batch...); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// readAll returns every row selected by opts.
func (db *DB) readAll(ctx context.Context, opts storage.ScanOptions) (_ []storage.Row, err error) {
	cursor := db.store.Scan(ctx, opts)
	defer func() { err = errs.Combine(err, Error.Wrap(cursor.Close())) }()

	var rows []storage.Row
	var row storage.Row
	for cursor.Next(ctx, &row) {
		rows = append(rows, storage.CloneRow(row))
	}
	return rows, Error.Wrap(cursor.Err())
}
