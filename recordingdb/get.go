// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// loadRecording reads the metadata of id from set. It returns a nil
// recording when set has no rows for id.
func (db *DB) loadRecording(ctx context.Context, set TableSet, id uuid.UUID) (*Recording, []storage.Row, error) {
	metadata := set.metadata()
	rows, err := db.readAll(ctx, metadata.selectRecording(id))
	if err != nil {
		return nil, nil, err
	}
	return metadata.materialize(db.log, id, rows), rows, nil
}

// findOwner returns the recording from the table set currently owning it.
func (db *DB) findOwner(ctx context.Context, place, id uuid.UUID) (*Recording, []storage.Row, error) {
	for _, set := range []TableSet{favoriteTables, standardTables} {
		rec, rows, err := db.loadRecording(ctx, set, id)
		if err != nil {
			return nil, nil, err
		}
		if rec == nil {
			continue
		}
		if rec.PlaceID != place {
			return nil, nil, ErrNotFound.New("place %s, recording %s", place, id)
		}
		return rec, rows, nil
	}
	return nil, nil, ErrNotFound.New("place %s, recording %s", place, id)
}

// FindByPlaceAndID returns the metadata of a recording. In progress
// recordings are checked against their frames and repaired when the
// recording turns out to be finished.
func (db *DB) FindByPlaceAndID(ctx context.Context, place, id uuid.UUID) (_ *Recording, err error) {
	defer mon.Task()(&ctx)(&err)

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return nil, err
	}
	db.repairIfNeeded(ctx, rec)
	return rec, nil
}

// repairIfNeeded completes rec when its frames show it finished. Failures
// are logged only.
func (db *DB) repairIfNeeded(ctx context.Context, rec *Recording) {
	if !rec.InProgress() || rec.Class != Standard {
		return
	}

	log := db.log.With(zap.Stringer("place", rec.PlaceID), zap.Stringer("recording", rec.ID))

	rows, err := db.readAll(ctx, standardTables.recording().selectRecording(rec.ID))
	if err != nil {
		log.Warn("unable to read recording for repair", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		log.Warn("in progress recording has no recording rows")
		return
	}

	video, err := standardTables.recording().materialize(db.log, rec.ID, rows, db.now(), db.config.MaxIFrameQuietPeriod)
	if err != nil {
		log.Warn("unable to materialize recording for repair", zap.Error(err))
		return
	}
	if !video.Finished() {
		return
	}

	rec.Duration = video.Duration
	rec.Size = video.Size
	rec.Completed = true
	if rec.Stream {
		return
	}

	mon.Counter("recording_repaired").Inc(1)
	log.Info("repairing finished recording", zap.Duration("duration", video.Duration), zap.Int64("size", video.Size))

	ttl := ActualTTL(rec.ID, rec.Expiration)
	mutations := completeMutations(standardTables, rec, video.Duration, video.Size, rec.Expiration, ttl)
	if err := db.apply(ctx, db.config.MaxBatchSize, mutations); err != nil {
		log.Warn("unable to repair recording", zap.Error(err))
	}
}

// GetVideoRecording returns the playback view of a recording.
func (db *DB) GetVideoRecording(ctx context.Context, id uuid.UUID) (_ *VideoRecording, err error) {
	defer mon.Task()(&ctx)(&err)

	for _, set := range []TableSet{favoriteTables, standardTables} {
		table := set.recording()
		rows, err := db.readAll(ctx, table.selectRecording(id))
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		return table.materialize(db.log, id, rows, db.now(), db.config.MaxIFrameQuietPeriod)
	}
	return nil, ErrNotFound.New("recording %s", id)
}

// GetStorageLocation returns the storage location of a recording, or an
// empty string when it is no longer known.
func (db *DB) GetStorageLocation(ctx context.Context, id uuid.UUID) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	for _, set := range []TableSet{favoriteTables, standardTables} {
		rec, _, err := db.loadRecording(ctx, set, id)
		if err != nil {
			return "", err
		}
		if rec != nil && rec.Location != "" {
			return rec.Location, nil
		}
	}
	return "", nil
}
