// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Complete stores the final duration and size of a recording.
func (db *DB) Complete(ctx context.Context, place, id uuid.UUID, duration time.Duration, size int64, ttl time.Duration) (err error) {
	defer mon.Task()(&ctx)(&err)

	if duration < 0 || size < 0 {
		return ErrInvalidRequest.New("invalid completion of recording %s, place %s: duration=%v size=%d", id, place, duration, size)
	}

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return err
	}

	expiration := rec.Expiration
	if rec.Class == Standard {
		expiration = db.ExpirationFromTTL(id, ttl)
	}

	db.log.Debug("completing recording",
		zap.Stringer("place", place),
		zap.Stringer("recording", id),
		zap.Duration("duration", duration),
		zap.Int64("size", size))

	mutations := completeMutations(Tables(rec.Class), rec, duration, size, expiration, ActualTTL(id, expiration))
	return db.apply(ctx, db.config.MaxBatchSize, mutations)
}

// CompleteAndDelete completes a recording and deletes it in a single batch.
func (db *DB) CompleteAndDelete(ctx context.Context, place, id uuid.UUID, duration time.Duration, size int64, purgeTime time.Time, partition int, ttl time.Duration) (err error) {
	defer mon.Task()(&ctx)(&err)

	if duration < 0 || size < 0 {
		return ErrInvalidRequest.New("invalid completion of recording %s, place %s: duration=%v size=%d", id, place, duration, size)
	}

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return err
	}

	rec.Duration, rec.Size, rec.Completed = duration, size, true
	if rec.Class == Favorited {
		return db.deleteFavorite(ctx, rec, purgeTime, partition)
	}

	expiration := db.ExpirationFromTTL(id, ttl)
	mutations := completeMutations(standardTables, rec, duration, size, expiration, ActualTTL(id, expiration))
	mutations = append(mutations, db.deleteMutations(rec, purgeTime, partition)...)
	return db.apply(ctx, db.config.MaxBatchSize, mutations)
}
