// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package recordingdbtest contains helpers for testing the recording database.
package recordingdbtest

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingdb"
	"storj.io/videostore/storage"
	"storj.io/videostore/storage/boltdb"
	"storj.io/videostore/storage/cassandra"
	"storj.io/videostore/storage/redis"
	"storj.io/videostore/storage/redis/redisserver"
	"storj.io/videostore/storage/teststore"
)

// CassandraEnv names the environment variable holding the cassandra test url.
const CassandraEnv = "STORJ_TEST_CASSANDRA"

// Backend opens a store for a single test.
type Backend struct {
	Name string
	Open func(ctx *testcontext.Context, t *testing.T, log *zap.Logger) storage.Store
}

// Backends returns the stores available for testing.
func Backends() []Backend {
	backends := []Backend{
		{
			Name: "memory",
			Open: func(ctx *testcontext.Context, t *testing.T, log *zap.Logger) storage.Store {
				return teststore.New()
			},
		},
		{
			Name: "bolt",
			Open: func(ctx *testcontext.Context, t *testing.T, log *zap.Logger) storage.Store {
				store, err := boltdb.New(log, ctx.File("recordings.db"))
				if err != nil {
					t.Fatal(err)
				}
				return store
			},
		},
		{
			Name: "redis",
			Open: func(ctx *testcontext.Context, t *testing.T, log *zap.Logger) storage.Store {
				addr, cleanup, err := redisserver.Mini()
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(cleanup)

				store, err := redis.OpenClient(ctx, addr, "", 0)
				if err != nil {
					t.Fatal(err)
				}
				return store
			},
		},
	}

	if address := os.Getenv(CassandraEnv); address != "" {
		backends = append(backends, Backend{
			Name: "cassandra",
			Open: func(ctx *testcontext.Context, t *testing.T, log *zap.Logger) storage.Store {
				store, err := cassandra.Open(ctx, log, address)
				if err != nil {
					t.Fatal(err)
				}
				if err := store.TestingTruncate(ctx, recordingdb.AllTables()...); err != nil {
					t.Fatal(err)
				}
				return store
			},
		})
	}
	return backends
}

// RunWithConfig runs tests with a specific recording database configuration.
func RunWithConfig(t *testing.T, config recordingdb.Config, fn func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB)) {
	for _, backend := range Backends() {
		backend := backend
		t.Run(backend.Name, func(t *testing.T) {
			// cassandra tests share a keyspace
			if backend.Name != "cassandra" {
				t.Parallel()
			}

			ctx := testcontext.New(t)
			log := zaptest.NewLogger(t)

			db := recordingdb.New(log.Named("recordingdb"), backend.Open(ctx, t, log.Named("store")), config)
			defer ctx.Check(db.Close)

			fn(ctx, t, db)
		})
	}
}

// Run runs tests against all available stores.
func Run(t *testing.T, fn func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB)) {
	RunWithConfig(t, recordingdb.Config{
		PurgePartitions: 4,
		PurgeDelay:      time.Hour,
	}, fn)
}

type nowSetter interface {
	TestingSetNow(func() time.Time)
}

// SetNow makes db and, when supported, its store act as if the current
// time is now. It returns whether the store follows the clock.
func SetNow(db *recordingdb.DB, now time.Time) bool {
	nowFn := func() time.Time { return now }
	db.TestingSetNow(nowFn)
	if setter, ok := db.Store().(nowSetter); ok {
		setter.TestingSetNow(nowFn)
		return true
	}
	return false
}

// RequireStoreClock skips tests depending on row expiration when the store
// uses its own clock.
func RequireStoreClock(t testing.TB, db *recordingdb.DB) {
	if _, ok := db.Store().(nowSetter); !ok {
		t.Skip("store does not support a fake clock")
	}
}
