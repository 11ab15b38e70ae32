// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package placepurge implements the chore executing place wide purges.
package placepurge

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/common/sync2"
	"storj.io/videostore/recordingdb"
)

var (
	// Error defines the placepurge chore errors class.
	Error = errs.Class("place purge chore")
	mon   = monkit.Package()
)

// Config contains configurable values for place purges.
type Config struct {
	Interval time.Duration `help:"the time between each check for due place purges" releaseDefault:"6h" devDefault:"10s" testDefault:"1m"`
	Enabled  bool          `help:"set if place purges are executed or not" default:"true"`
}

// Chore executes the place purge directives that are due.
//
// architecture: Chore
type Chore struct {
	log    *zap.Logger
	config Config
	db     *recordingdb.DB

	nowFn func() time.Time
	Loop  *sync2.Cycle
}

// NewChore creates a new instance of the placepurge chore.
func NewChore(log *zap.Logger, config Config, db *recordingdb.DB) *Chore {
	return &Chore{
		log:    log,
		config: config,
		db:     db,

		nowFn: time.Now,
		Loop:  sync2.NewCycle(config.Interval),
	}
}

// Run starts the placepurge loop service.
func (chore *Chore) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if !chore.config.Enabled {
		return nil
	}

	return chore.Loop.Run(ctx, chore.purgePlaces)
}

// Close stops the placepurge chore.
func (chore *Chore) Close() error {
	chore.Loop.Close()
	return nil
}

// RunOnce executes every due place purge a single time.
func (chore *Chore) RunOnce(ctx context.Context) error {
	return chore.purgePlaces(ctx)
}

// TestingSetNow allows tests to have the server act as if the current time is whatever they want.
func (chore *Chore) TestingSetNow(nowFn func() time.Time) {
	chore.nowFn = nowFn
}

func (chore *Chore) purgePlaces(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	now := chore.nowFn()
	records, err := chore.db.GetPlacePurgeRecordingNoLaterThan(ctx, now)
	if err != nil {
		return Error.Wrap(err)
	}
	if len(records) == 0 {
		return nil
	}

	var group errs.Group
	for _, record := range records {
		group.Add(chore.purgePlace(ctx, record))
	}
	if err := group.Err(); err != nil {
		// directives are kept so the next run retries them
		chore.log.Warn("failed to execute every place purge", zap.Error(err))
		return nil
	}

	return Error.Wrap(chore.db.DeletePurgePinnedRecordingNoLaterThan(ctx, now))
}

func (chore *Chore) purgePlace(ctx context.Context, record recordingdb.PlacePurgeRecord) (err error) {
	defer mon.Task()(&ctx)(&err)

	log := chore.log.With(
		zap.Stringer("place", record.PlaceID),
		zap.Time("day", record.Day),
		zap.String("mode", string(record.Mode)))

	switch record.Mode {
	case recordingdb.PurgeAll:
		deleted, err := chore.db.PurgePlace(ctx, record.PlaceID, chore.db.PurgeTimestamp())
		if err != nil {
			return Error.New("purge place %s: %v", record.PlaceID, err)
		}
		mon.Counter("place_recordings_deleted").Inc(int64(deleted))
		log.Info("deleted every recording of place", zap.Int("recordings", deleted))

	case recordingdb.PurgePinned:
		demoted, err := chore.db.UnpinPlace(ctx, record.PlaceID)
		if err != nil {
			return Error.New("unpin place %s: %v", record.PlaceID, err)
		}
		mon.Counter("place_recordings_unpinned").Inc(int64(demoted))
		log.Info("removed every favorite of place", zap.Int("recordings", demoted))

	default:
		log.Warn("skipping unknown place purge mode")
	}
	return nil
}
