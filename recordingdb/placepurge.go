// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// AddToPurgePinnedRecording schedules the demotion of every favorite of
// place on the day after deleteTime.
func (db *DB) AddToPurgePinnedRecording(ctx context.Context, place uuid.UUID, deleteTime time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(db.store.Apply(ctx, insertPlacePurge(StartOfNextDay(deleteTime), place, PurgePinned)))
}

// AddToPurgeAllRecording schedules the removal of every recording of place
// on the day after deleteTime.
func (db *DB) AddToPurgeAllRecording(ctx context.Context, place uuid.UUID, deleteTime time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(db.store.Apply(ctx, insertPlacePurge(StartOfNextDay(deleteTime), place, PurgeAll)))
}

// placePurgeDays returns the day buckets checked for t, newest first.
func (db *DB) placePurgeDays(t time.Time) []time.Time {
	days := make([]time.Time, 0, db.config.PlacePurgeDays)
	day := StartOfDay(t)
	for i := 0; i < db.config.PlacePurgeDays; i++ {
		days = append(days, day)
		day = day.Add(-24 * time.Hour)
	}
	return days
}

// GetPlacePurgeRecordingNoLaterThan returns the place purge directives due
// at or before the day of t.
func (db *DB) GetPlacePurgeRecordingNoLaterThan(ctx context.Context, t time.Time) (_ []PlacePurgeRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	var records []PlacePurgeRecord
	for _, day := range db.placePurgeDays(t) {
		rows, err := db.readAll(ctx, selectPlacePurge(day))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			record, err := decodePlacePurge(day, row)
			if err != nil {
				db.log.Warn("skipping invalid place purge", zap.Time("day", day), zap.Error(err))
				continue
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// DeletePurgePinnedRecordingNoLaterThan removes the place purge directives
// due at or before the day of t.
func (db *DB) DeletePurgePinnedRecordingNoLaterThan(ctx context.Context, t time.Time) (err error) {
	defer mon.Task()(&ctx)(&err)

	var mutations []storage.Mutation
	for _, day := range db.placePurgeDays(t) {
		mutations = append(mutations, deletePlacePurge(day))
	}
	return db.apply(ctx, db.config.MaxBatchSize, mutations)
}

// PurgePlace deletes every recording of place, purging them at purgeTime.
func (db *DB) PurgePlace(ctx context.Context, place uuid.UUID, purgeTime time.Time) (deleted int, err error) {
	defer mon.Task()(&ctx)(&err)

	err = db.StreamVideoMetadata(ctx, Query{
		PlaceID:        place,
		ListInProgress: true,
	}, func(ctx context.Context, it RecordingIterator) error {
		var recs []Recording
		var rec Recording
		for it.Next(ctx, &rec) {
			recs = append(recs, rec)
		}
		for i := range recs {
			if err := db.DeleteRecording(ctx, &recs[i], purgeTime); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// UnpinPlace demotes every favorite of place.
func (db *DB) UnpinPlace(ctx context.Context, place uuid.UUID) (demoted int, err error) {
	defer mon.Task()(&ctx)(&err)

	var ids []uuid.UUID
	err = db.StreamVideoMetadata(ctx, Query{
		PlaceID:        place,
		Tags:           []string{FavoriteTag},
		ListDeleted:    true,
		ListInProgress: true,
	}, func(ctx context.Context, it RecordingIterator) error {
		var rec Recording
		for it.Next(ctx, &rec) {
			if rec.IsFavorite() {
				ids = append(ids, rec.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := db.RemoveTags(ctx, place, id, []string{FavoriteTag}); err != nil {
			return demoted, err
		}
		demoted++
	}
	return demoted, nil
}
