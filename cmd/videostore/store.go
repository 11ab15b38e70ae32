// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
	"storj.io/videostore/storage/boltdb"
	"storj.io/videostore/storage/cassandra"
	"storj.io/videostore/storage/redis"
	"storj.io/videostore/storage/storelogger"
	"storj.io/videostore/storage/teststore"
)

// schemaCreator is implemented by stores that need their tables created up front.
type schemaCreator interface {
	CreateSchema(ctx context.Context, tables ...storage.Table) error
}

// openStore opens the store described by storeURL.
func openStore(ctx context.Context, log *zap.Logger, storeURL string, debug bool) (_ storage.Store, err error) {
	scheme, rest, ok := strings.Cut(storeURL, "://")
	if !ok {
		return nil, errs.New("invalid store url %q, expected scheme://", storeURL)
	}

	var store storage.Store
	switch scheme {
	case "memory":
		store = teststore.New()
	case "bolt":
		if rest == "" {
			return nil, errs.New("bolt store url is missing a path")
		}
		client, err := boltdb.New(log.Named("bolt"), rest)
		if err != nil {
			return nil, err
		}
		store = client
	case "redis":
		client, err := redis.OpenClientFrom(ctx, storeURL)
		if err != nil {
			return nil, err
		}
		store = client
	case "cassandra":
		client, err := cassandra.Open(ctx, log.Named("cassandra"), storeURL)
		if err != nil {
			return nil, err
		}
		store = client
	default:
		return nil, errs.New("unsupported store %q", scheme)
	}

	if debug {
		store = storelogger.New(log.Named("store"), store)
	}
	return store, nil
}
