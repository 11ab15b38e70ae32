// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Delete marks a recording deleted and schedules it for purge at purgeTime.
// A favorite is moved back to the standard tables. isFavorite is only a
// hint, the recording is deleted from whichever table set owns it.
func (db *DB) Delete(ctx context.Context, place, id uuid.UUID, isFavorite bool, purgeTime time.Time, partition int) (err error) {
	defer mon.Task()(&ctx)(&err)

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return err
	}

	if isFavorite != rec.IsFavorite() {
		db.log.Debug("favorite flag of deleted recording is stale",
			zap.Stringer("place", place),
			zap.Stringer("recording", id),
			zap.Bool("requested favorite", isFavorite),
			zap.Stringer("class", rec.Class))
	}

	if rec.IsFavorite() {
		return db.deleteFavorite(ctx, rec, purgeTime, partition)
	}
	return db.apply(ctx, db.config.MaxBatchSize, db.deleteMutations(rec, purgeTime, partition))
}

// DeleteRecording deletes rec, computing its purge partition when unknown.
func (db *DB) DeleteRecording(ctx context.Context, rec *Recording, purgeTime time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	partition := rec.DeletionPartition
	if partition < 0 {
		partition = db.PartitionID(rec.ID)
	}
	return db.Delete(ctx, rec.PlaceID, rec.ID, rec.IsFavorite(), purgeTime, partition)
}

// deleteFavorite demotes a deleted favorite, keeping it listable as deleted
// until purgeTime.
func (db *DB) deleteFavorite(ctx context.Context, rec *Recording, purgeTime time.Time, partition int) error {
	if partition < 0 {
		partition = db.PartitionID(rec.ID)
	}
	rec.Deleted = true
	rec.DeletionTime = purgeTime
	rec.DeletionPartition = partition

	mutations, err := db.demoteMutations(ctx, rec, nil, purgeTime, true)
	if err != nil {
		return err
	}
	return db.apply(ctx, db.config.FavoriteBatchSize, mutations)
}
