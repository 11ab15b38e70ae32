// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package purgedeletion

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingdb"
	"storj.io/videostore/recordingdb/recordingdbtest"
	"storj.io/videostore/recordingevents"
)

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (deleter *fakeDeleter) Delete(ctx context.Context, location string) error {
	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	if deleter.fail[location] {
		return errs.New("unavailable: %s", location)
	}
	deleter.deleted = append(deleter.deleted, location)
	return nil
}

func (deleter *fakeDeleter) locations() []string {
	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	locations := append([]string(nil), deleter.deleted...)
	sort.Strings(locations)
	return locations
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordingevents.Event
}

func (publisher *fakePublisher) Publish(ctx context.Context, event recordingevents.Event) error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
	return nil
}

func (publisher *fakePublisher) Close() error { return nil }

func (publisher *fakePublisher) recordings() []uuid.UUID {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	var ids []uuid.UUID
	for _, event := range publisher.events {
		ids = append(ids, event.RecordingID)
	}
	return ids
}

type env struct {
	db       *recordingdb.DB
	storage  *fakeDeleter
	previews *fakeDeleter
	events   *fakePublisher
	chore    *Chore
	place    uuid.UUID
	camera   uuid.UUID
	now      time.Time
}

func newEnv(t *testing.T, db *recordingdb.DB, config Config) *env {
	env := &env{
		db:       db,
		storage:  &fakeDeleter{fail: map[string]bool{}},
		previews: &fakeDeleter{fail: map[string]bool{}},
		events:   &fakePublisher{},
		place:    uuid.New(),
		camera:   uuid.New(),
		now:      time.Now(),
	}
	config.Enabled = true
	config.SendDeleted = true
	env.chore = NewChore(zaptest.NewLogger(t), config, db, env.storage, env.previews, env.events)
	env.chore.TestingSetNow(func() time.Time { return env.now.Add(3 * time.Hour) })
	return env
}

// deleted creates a completed recording and deletes it for purge within the next hours.
func (env *env) deleted(ctx *testcontext.Context, t *testing.T, stream bool) *recordingdb.Recording {
	var rec *recordingdb.Recording
	if stream {
		rec = recordingdbtest.CreateStream(ctx, t, env.db, env.place, env.camera, env.now)
	} else {
		rec = recordingdbtest.CreateCompletedRecording(ctx, t, env.db, env.place, env.camera, env.now)
	}
	purgeTime := env.db.PurgeTimestamp()
	require.NoError(t, env.db.DeleteRecording(ctx, rec, purgeTime))
	rec.DeletionTime = purgeTime
	rec.DeletionPartition = env.db.PartitionID(rec.ID)
	return rec
}

func TestPurgeDeleted(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		env := newEnv(t, db, Config{Concurrency: 2})

		first := env.deleted(ctx, t, false)
		second := env.deleted(ctx, t, false)
		stream := env.deleted(ctx, t, true)
		kept := recordingdbtest.CreateCompletedRecording(ctx, t, db, env.place, env.camera, env.now)

		require.NoError(t, env.chore.purgeDeleted(ctx))

		require.ElementsMatch(t, []string{first.Location, second.Location, stream.Location}, env.storage.locations())
		require.ElementsMatch(t, []string{first.ID.String(), second.ID.String()}, env.previews.locations())
		require.ElementsMatch(t, []uuid.UUID{first.ID, second.ID, stream.ID}, env.events.recordings())

		for _, rec := range []*recordingdb.Recording{first, second, stream} {
			recordingdbtest.VerifyClass{Place: env.place, ID: rec.ID}.Check(ctx, t, db)

			times, err := db.ListPurgeableRows(ctx, rec.DeletionPartition)
			require.NoError(t, err)
			require.NotContains(t, times, rec.DeletionTime)
		}

		recordingdbtest.VerifyClass{
			Place: env.place,
			ID:    kept.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)

		records, err := db.ListPurgeableRecordings(ctx, kept.DeletionTime, kept.DeletionPartition)
		require.NoError(t, err)
		require.Len(t, records, 1)

		// a second pass has nothing left to do
		require.NoError(t, env.chore.purgeDeleted(ctx))
		require.Len(t, env.storage.locations(), 3)
	})
}

func TestPurgeExpired(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		recordingdbtest.RequireStoreClock(t, db)

		env := newEnv(t, db, Config{Concurrency: 2})
		rec := recordingdbtest.CreateCompletedRecording(ctx, t, db, env.place, env.camera, env.now)
		stream := recordingdbtest.CreateStream(ctx, t, db, env.place, env.camera, env.now)
		require.Equal(t, rec.Expiration, rec.DeletionTime)

		expired := rec.Expiration.Add(time.Minute)
		recordingdbtest.SetNow(db, expired)
		env.chore.TestingSetNow(func() time.Time { return expired })

		// the metadata rows expired together with the recording
		location, err := db.GetStorageLocation(ctx, rec.ID)
		require.NoError(t, err)
		require.Empty(t, location)

		require.NoError(t, env.chore.RunOnce(ctx))

		require.ElementsMatch(t, []string{rec.Location, stream.Location}, env.storage.locations())
		require.Equal(t, []string{rec.ID.String()}, env.previews.locations())
		require.ElementsMatch(t, []uuid.UUID{rec.ID, stream.ID}, env.events.recordings())

		for _, expiredRec := range []*recordingdb.Recording{rec, stream} {
			records, err := db.ListPurgeableRecordings(ctx, expiredRec.DeletionTime, expiredRec.DeletionPartition)
			require.NoError(t, err)
			require.Empty(t, records)
		}
	})
}

func TestPurgeDryRun(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		env := newEnv(t, db, Config{Concurrency: 1, DryRun: true})

		rec := env.deleted(ctx, t, false)
		require.NoError(t, env.chore.purgeDeleted(ctx))

		require.Empty(t, env.storage.locations())
		require.Empty(t, env.previews.locations())
		require.Empty(t, env.events.recordings())

		recordingdbtest.VerifyClass{
			Place: env.place,
			ID:    rec.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)

		records, err := db.ListPurgeableRecordings(ctx, rec.DeletionTime, rec.DeletionPartition)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}

func TestPurgeMax(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		env := newEnv(t, db, Config{Concurrency: 1, MaxPurge: 2})

		var recs []*recordingdb.Recording
		for i := 0; i < 5; i++ {
			recs = append(recs, env.deleted(ctx, t, false))
		}

		require.NoError(t, env.chore.purgeDeleted(ctx))
		require.Len(t, env.storage.locations(), 2)

		require.NoError(t, env.chore.purgeDeleted(ctx))
		require.Len(t, env.storage.locations(), 4)

		require.NoError(t, env.chore.purgeDeleted(ctx))
		require.Len(t, env.storage.locations(), 5)

		for _, rec := range recs {
			recordingdbtest.VerifyClass{Place: env.place, ID: rec.ID}.Check(ctx, t, db)
		}
	})
}

func TestPurgePartialFailure(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		env := newEnv(t, db, Config{Concurrency: 4})

		failing := env.deleted(ctx, t, false)
		purged := env.deleted(ctx, t, false)
		env.storage.fail[failing.Location] = true
		env.previews.fail[purged.ID.String()] = true

		require.NoError(t, env.chore.purgeDeleted(ctx))

		require.Equal(t, []string{purged.Location}, env.storage.locations())
		require.Equal(t, []uuid.UUID{purged.ID}, env.events.recordings())

		// a failing preview does not keep the recording
		recordingdbtest.VerifyClass{Place: env.place, ID: purged.ID}.Check(ctx, t, db)

		// the bucket of a failed recording is kept for the next run
		recordingdbtest.VerifyClass{
			Place: env.place,
			ID:    failing.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)
		records, err := db.ListPurgeableRecordings(ctx, failing.DeletionTime, failing.DeletionPartition)
		require.NoError(t, err)
		require.NotEmpty(t, records)

		delete(env.storage.fail, failing.Location)
		require.NoError(t, env.chore.purgeDeleted(ctx))

		recordingdbtest.VerifyClass{Place: env.place, ID: failing.ID}.Check(ctx, t, db)
		records, err = db.ListPurgeableRecordings(ctx, failing.DeletionTime, failing.DeletionPartition)
		require.NoError(t, err)
		require.Empty(t, records)
	})
}

func TestDisabled(t *testing.T) {
	ctx := testcontext.New(t)

	chore := NewChore(zaptest.NewLogger(t), Config{Interval: time.Hour}, nil, nil, nil, nil)
	require.NoError(t, chore.Run(ctx))
}
