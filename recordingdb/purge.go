// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListPurgeableRows returns the purge bucket times of a partition, oldest first.
func (db *DB) ListPurgeableRows(ctx context.Context, partition int) (_ []time.Time, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := db.readAll(ctx, selectPurgeTimes(partition))
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		at, err := decodePurgeTime(row)
		if err != nil {
			db.log.Warn("skipping invalid purge time", zap.Int("partition", partition), zap.Error(err))
			continue
		}
		times = append(times, at)
	}
	return times, nil
}

// ListPurgeableRecordings returns the recordings in the purge bucket (at, partition).
func (db *DB) ListPurgeableRecordings(ctx context.Context, at time.Time, partition int) (_ []PurgeRecord, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := db.readAll(ctx, selectPurgeRecordings(at, partition))
	if err != nil {
		return nil, err
	}

	records := make([]PurgeRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodePurgeRecord(at, partition, row)
		if err != nil {
			db.log.Warn("skipping invalid purge record", zap.Time("at", at), zap.Int("partition", partition), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// DeletePurgeableRow removes the purge bucket (at, partition).
func (db *DB) DeletePurgeableRow(ctx context.Context, at time.Time, partition int) (err error) {
	defer mon.Task()(&ctx)(&err)

	return db.apply(ctx, db.config.MaxBatchSize, deletePurgeRow(at, partition))
}

// DeletePurgeableRecording removes a single recording from its purge bucket.
func (db *DB) DeletePurgeableRecording(ctx context.Context, record PurgeRecord) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(db.store.Apply(ctx, deletePurgeEntry(record.Time, record.Partition, record.RecordingID)))
}

// Purge removes every row of a recording from both table sets.
func (db *DB) Purge(ctx context.Context, place, id uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, set := range []TableSet{favoriteTables, standardTables} {
		rec, _, err := db.loadRecording(ctx, set, id)
		if err != nil {
			return err
		}
		if rec == nil {
			// indexes can only be found through the metadata
			rec = &Recording{ID: id, PlaceID: place}
		}
		if rec.PlaceID != place {
			db.log.Warn("purging recording of another place",
				zap.Stringer("place", place),
				zap.Stringer("recording place", rec.PlaceID),
				zap.Stringer("recording", id))
		}
		if err := db.apply(ctx, db.config.MaxBatchSize, eraseMutations(set, rec)); err != nil {
			return err
		}
	}
	return nil
}
