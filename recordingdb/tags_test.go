// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingdb"
	"storj.io/videostore/recordingdb/recordingdbtest"
)

func purgeIDs(t *testing.T, ctx *testcontext.Context, db *recordingdb.DB, at time.Time, partition int) []uuid.UUID {
	records, err := db.ListPurgeableRecordings(ctx, at, partition)
	require.NoError(t, err)

	ids := []uuid.UUID{}
	for _, record := range records {
		ids = append(ids, record.RecordingID)
	}
	return ids
}

func TestTags(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		rec := recordingdbtest.CreateCompletedRecording(ctx, t, db, place, camera, time.Now())

		recordingdbtest.AddTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{"person", "car", "person"},
			TTL:    24 * time.Hour,
			Result: []string{"car", "person"},
		}.Check(ctx, t, db)

		recordingdbtest.AddTags{
			Place:    uuid.New(),
			ID:       rec.ID,
			Tags:     []string{"car"},
			ErrClass: &recordingdb.ErrNotFound,
		}.Check(ctx, t, db)

		recordingdbtest.AddTags{
			Place:  place,
			ID:     rec.ID,
			Result: []string{"car", "person"},
		}.Check(ctx, t, db)

		count, err := db.CountByTag(ctx, place, "car")
		require.NoError(t, err)
		require.EqualValues(t, 1, count)

		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place, Tags: []string{"car"}},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)

		recordingdbtest.RemoveTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{"car"},
			Result: []string{"person"},
		}.Check(ctx, t, db)

		count, err = db.CountByTag(ctx, place, "car")
		require.NoError(t, err)
		require.Zero(t, count)

		recordingdbtest.Query{
			Query: recordingdb.Query{PlaceID: place, Tags: []string{"car"}},
		}.Check(ctx, t, db)
	})
}

func TestFavorite(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		rec := recordingdbtest.CreateCompletedRecording(ctx, t, db, place, camera, time.Now())

		recordingdbtest.AddTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{"a", "b"},
			TTL:    24 * time.Hour,
			Result: []string{"a", "b"},
		}.Check(ctx, t, db)

		recordingdbtest.AddTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{recordingdb.FavoriteTag},
			Result: []string{recordingdb.FavoriteTag, "a", "b"},
		}.Check(ctx, t, db)

		recordingdbtest.VerifyClass{
			Place: place,
			ID:    rec.ID,
			Class: recordingdbtest.Class(recordingdb.Favorited),
		}.Check(ctx, t, db)
		require.NotContains(t, purgeIDs(t, ctx, db, rec.DeletionTime, rec.DeletionPartition), rec.ID)

		video, err := db.GetVideoRecording(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, video.IFrames, 3)
		require.True(t, video.Finished())

		for _, tag := range []string{recordingdb.FavoriteTag, "a"} {
			count, err := db.CountByTag(ctx, place, tag)
			require.NoError(t, err)
			require.EqualValues(t, 1, count, tag)
		}

		found := recordingdbtest.FindByPlaceAndID{Place: place, ID: rec.ID}.Check(ctx, t, db)
		require.True(t, found.IsFavorite())
		require.Equal(t, recordingdb.Favorited, found.Class)
		require.True(t, found.Completed)

		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place, Cameras: []uuid.UUID{camera}},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place, Tags: []string{"a", "b"}, MatchAllTags: true},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)

		// tags of a favorite stay in the favorite tables
		recordingdbtest.AddTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{"c"},
			Result: []string{recordingdb.FavoriteTag, "a", "b", "c"},
		}.Check(ctx, t, db)
		recordingdbtest.VerifyClass{
			Place: place,
			ID:    rec.ID,
			Class: recordingdbtest.Class(recordingdb.Favorited),
		}.Check(ctx, t, db)

		recordingdbtest.RemoveTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{recordingdb.FavoriteTag, "b"},
			Result: []string{"a", "c"},
		}.Check(ctx, t, db)

		recordingdbtest.VerifyClass{
			Place: place,
			ID:    rec.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)
		require.Contains(t, purgeIDs(t, ctx, db, rec.DeletionTime, rec.DeletionPartition), rec.ID)

		found = recordingdbtest.FindByPlaceAndID{Place: place, ID: rec.ID}.Check(ctx, t, db)
		require.Equal(t, []string{"a", "c"}, found.Tags)
		require.Equal(t, recordingdb.Standard, found.Class)
		require.True(t, found.Completed)
		require.Equal(t, rec.Size, found.Size)

		video, err = db.GetVideoRecording(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, video.IFrames, 3)
		require.True(t, video.Finished())

		count, err := db.CountByTag(ctx, place, recordingdb.FavoriteTag)
		require.NoError(t, err)
		require.Zero(t, count)

		// demoting a recording that is not a favorite changes nothing
		recordingdbtest.RemoveTags{
			Place:  place,
			ID:     rec.ID,
			Tags:   []string{recordingdb.FavoriteTag},
			Result: []string{},
		}.Check(ctx, t, db)
		recordingdbtest.VerifyClass{
			Place: place,
			ID:    rec.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)
	})
}

func TestFavoriteDeleted(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		now := time.Now()

		t.Run("promote after deletion time", func(t *testing.T) {
			rec := recordingdbtest.CreateCompletedRecording(ctx, t, db, place, camera, now)

			recordingdbtest.Delete{
				Place:     place,
				ID:        rec.ID,
				PurgeTime: now.Add(-time.Minute).UTC().Truncate(time.Millisecond),
				Partition: rec.DeletionPartition,
			}.Check(ctx, t, db)

			recordingdbtest.AddTags{
				Place:  place,
				ID:     rec.ID,
				Tags:   []string{recordingdb.FavoriteTag},
				Result: []string{},
			}.Check(ctx, t, db)

			recordingdbtest.VerifyClass{
				Place: place,
				ID:    rec.ID,
				Class: recordingdbtest.Class(recordingdb.Standard),
			}.Check(ctx, t, db)
		})

		t.Run("demote after deletion time", func(t *testing.T) {
			rec := recordingdbtest.CreateCompletedRecording(ctx, t, db, place, camera, now)
			recordingdbtest.AddTags{
				Place:  place,
				ID:     rec.ID,
				Tags:   []string{recordingdb.FavoriteTag},
				Result: []string{recordingdb.FavoriteTag},
			}.Check(ctx, t, db)

			later := now.Add(48 * time.Hour)
			db.TestingSetNow(func() time.Time { return later })
			defer db.TestingSetNow(time.Now)

			recordingdbtest.RemoveTags{
				Place:  place,
				ID:     rec.ID,
				Tags:   []string{recordingdb.FavoriteTag},
				Result: []string{},
			}.Check(ctx, t, db)

			recordingdbtest.VerifyClass{
				Place: place,
				ID:    rec.ID,
			}.Check(ctx, t, db)
			require.Contains(t, purgeIDs(t, ctx, db, db.PurgeTimestamp(), rec.DeletionPartition), rec.ID)
		})
	})
}
