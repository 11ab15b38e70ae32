// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package purgedeletion implements the chore removing deleted recordings
// from object storage and the recording database.
package purgedeletion

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/common/sync2"
	"storj.io/videostore/recordingdb"
	"storj.io/videostore/recordingevents"
	"storj.io/videostore/videostorage"
)

var (
	// Error defines the purgedeletion chore errors class.
	Error = errs.Class("purge deletion chore")
	mon   = monkit.Package()
)

// Config contains configurable values for purging deleted recordings.
type Config struct {
	Interval    time.Duration `help:"the time between each attempt to purge deleted recordings" releaseDefault:"1h" devDefault:"10s" testDefault:"1m"`
	Enabled     bool          `help:"set if purging of deleted recordings is enabled or not" default:"true"`
	MaxPurge    int           `help:"how many recordings to purge in a single run, zero means no limit" default:"0"`
	DryRun      bool          `help:"only log the recordings that would be purged" default:"false"`
	Concurrency int           `help:"how many recordings of a purge bucket are purged concurrently" default:"10"`
	SendDeleted bool          `help:"publish a deleted event for every purged recording" default:"true"`
}

// Chore removes recordings whose purge time has passed.
//
// architecture: Chore
type Chore struct {
	log      *zap.Logger
	config   Config
	db       *recordingdb.DB
	storage  videostorage.Deleter
	previews videostorage.Deleter
	events   recordingevents.Publisher

	nowFn func() time.Time
	Loop  *sync2.Cycle
}

// NewChore creates a new instance of the purgedeletion chore.
func NewChore(log *zap.Logger, config Config, db *recordingdb.DB, storage, previews videostorage.Deleter, events recordingevents.Publisher) *Chore {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Chore{
		log:      log,
		config:   config,
		db:       db,
		storage:  storage,
		previews: previews,
		events:   events,

		nowFn: time.Now,
		Loop:  sync2.NewCycle(config.Interval),
	}
}

// Run starts the purgedeletion loop service.
func (chore *Chore) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if !chore.config.Enabled {
		return nil
	}

	return chore.Loop.Run(ctx, chore.purgeDeleted)
}

// Close stops the purgedeletion chore.
func (chore *Chore) Close() error {
	chore.Loop.Close()
	return nil
}

// RunOnce purges every due recording a single time.
func (chore *Chore) RunOnce(ctx context.Context) error {
	return chore.purgeDeleted(ctx)
}

// TestingSetNow allows tests to have the server act as if the current time is whatever they want.
func (chore *Chore) TestingSetNow(nowFn func() time.Time) {
	chore.nowFn = nowFn
}

// run is the state of a single purge pass.
type run struct {
	now    time.Time
	purged atomic.Int64
}

func (chore *Chore) limitReached(state *run) bool {
	return chore.config.MaxPurge > 0 && state.purged.Load() >= int64(chore.config.MaxPurge)
}

func (chore *Chore) purgeDeleted(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	state := &run{now: chore.nowFn().UTC()}
	chore.log.Info("starting purge of recordings purgeable at or before", zap.Time("now", state.now))

	var buckets int64
	defer func() {
		mon.IntVal("purge_buckets").Observe(buckets)
		mon.IntVal("purged_recordings").Observe(state.purged.Load())
	}()

	// partitions are visited in random order, MaxPurge may stop the pass early
	for _, partition := range rand.Perm(chore.db.Config().PurgePartitions) {
		times, err := chore.db.ListPurgeableRows(ctx, partition)
		if err != nil {
			chore.log.Warn("failed to list purge buckets", zap.Int("partition", partition), zap.Error(err))
			continue
		}

		for _, at := range times {
			if chore.limitReached(state) {
				return nil
			}
			if at.After(state.now) {
				chore.log.Debug("done processing partition", zap.Int("partition", partition), zap.Time("next", at))
				break
			}

			buckets++
			if err := chore.purgeBucket(ctx, state, at, partition); err != nil {
				chore.log.Warn("did not purge every recording of bucket, will attempt again",
					zap.Time("time", at),
					zap.Int("partition", partition),
					zap.Error(err))
			}
		}
	}
	return nil
}

// purgeBucket purges every recording of the bucket (at, partition). The
// bucket is removed only when all of them were purged.
func (chore *Chore) purgeBucket(ctx context.Context, state *run, at time.Time, partition int) (err error) {
	defer mon.Task()(&ctx)(&err)

	records, err := chore.db.ListPurgeableRecordings(ctx, at, partition)
	if err != nil {
		return err
	}

	done := make([]bool, len(records))
	var group errgroup.Group
	group.SetLimit(chore.config.Concurrency)
	for i, record := range records {
		i, record := i, record
		group.Go(func() error {
			ok, err := chore.purgeRecording(ctx, state, record)
			done[i] = ok
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, ok := range done {
		if !ok {
			return Error.New("purge limit reached")
		}
	}

	if chore.config.DryRun {
		chore.log.Debug("purged recordings (dry run)", zap.Int("count", len(records)), zap.Time("time", at), zap.Int("partition", partition))
		return nil
	}
	chore.log.Debug("purged recordings", zap.Int("count", len(records)), zap.Time("time", at), zap.Int("partition", partition))
	return chore.db.DeletePurgeableRow(ctx, at, partition)
}

// purgeRecording removes a single recording. It returns false when the
// recording was skipped because of MaxPurge.
func (chore *Chore) purgeRecording(ctx context.Context, state *run, record recordingdb.PurgeRecord) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	log := chore.log.With(
		zap.Time("bucket time", record.Time),
		zap.Int("bucket partition", record.Partition),
		zap.Stringer("place", record.PlaceID),
		zap.Stringer("recording", record.RecordingID))

	defer func() {
		if err != nil {
			log.Warn("purge audit", zap.String("result", "failed to purge"), zap.Error(err))
		}
	}()

	location := record.StorageLocation
	if location == "" {
		mon.Counter("legacy_recording").Inc(1)
		location, err = chore.db.GetStorageLocation(ctx, record.RecordingID)
		if err != nil {
			return false, err
		}
		if location == "" {
			log.Warn("purge audit", zap.String("result", "no storage location, skipping object deletion"))
			if chore.config.DryRun {
				return true, nil
			}
			return true, chore.db.DeletePurgeableRecording(ctx, record)
		}
	}

	if purged := state.purged.Add(1); chore.config.MaxPurge > 0 && purged > int64(chore.config.MaxPurge) {
		return false, nil
	}

	if chore.config.DryRun {
		log.Debug("purging recording (dry run)", zap.String("storage", location))
		return true, nil
	}

	log.Debug("purging recording", zap.String("storage", location))

	// object first, metadata last
	if err := chore.storage.Delete(ctx, location); err != nil {
		return false, Error.Wrap(err)
	}
	if record.PurgePreview {
		if err := chore.previews.Delete(ctx, record.RecordingID.String()); err != nil {
			mon.Counter("preview_delete_failed").Inc(1)
			log.Error("failed to delete preview", zap.Error(err))
		}
	}
	if err := chore.db.Purge(ctx, record.PlaceID, record.RecordingID); err != nil {
		return false, err
	}
	if err := chore.sendDeleted(ctx, state, record); err != nil {
		return false, err
	}
	// a bucket kept for a later run must not purge this recording again
	if err := chore.db.DeletePurgeableRecording(ctx, record); err != nil {
		return false, err
	}

	mon.Counter("purged_recording").Inc(1)
	log.Info("purge audit", zap.String("result", "success"))
	return true, nil
}

func (chore *Chore) sendDeleted(ctx context.Context, state *run, record recordingdb.PurgeRecord) error {
	if !chore.config.SendDeleted {
		mon.Counter("deleted_message_skipped").Inc(1)
		return nil
	}

	err := chore.events.Publish(ctx, recordingevents.Event{
		Type:        recordingevents.EventDeleted,
		PlaceID:     record.PlaceID,
		RecordingID: record.RecordingID,
		Time:        state.now,
	})
	if err != nil {
		mon.Counter("deleted_message_fail").Inc(1)
		return Error.Wrap(err)
	}
	mon.Counter("deleted_message_success").Inc(1)
	return nil
}
