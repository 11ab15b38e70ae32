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

func TestInsert(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		now := time.Now()

		t.Run("missing ids", func(t *testing.T) {
			rec := recordingdbtest.RandRecording(t, place, camera, now, false)
			rec.PlaceID = uuid.Nil
			recordingdbtest.Insert{
				Recording: rec,
				ErrClass:  &recordingdb.ErrInvalidRequest,
			}.Check(ctx, t, db)

			rec = recordingdbtest.RandRecording(t, place, camera, now, false)
			rec.CameraID = uuid.Nil
			recordingdbtest.Insert{
				Recording: rec,
				ErrClass:  &recordingdb.ErrInvalidRequest,
			}.Check(ctx, t, db)
		})

		t.Run("favorite", func(t *testing.T) {
			rec := recordingdbtest.RandRecording(t, place, camera, now, false)
			rec.Tags = []string{recordingdb.FavoriteTag}
			recordingdbtest.Insert{
				Recording: rec,
				ErrClass:  &recordingdb.ErrInvalidRequest,
			}.Check(ctx, t, db)
		})

		t.Run("insert and find", func(t *testing.T) {
			rec := recordingdbtest.RandRecording(t, place, camera, now, false)
			rec.PersonID = uuid.New()
			recordingdbtest.Insert{Recording: rec}.Check(ctx, t, db)

			require.Equal(t, rec.Expiration, rec.DeletionTime)
			require.Equal(t, db.PartitionID(rec.ID), rec.DeletionPartition)
			require.Equal(t, recordingdb.DefaultVideoCodec, rec.VideoCodec)

			recordingdbtest.FindByPlaceAndID{
				Place:  place,
				ID:     rec.ID,
				Result: rec,
			}.Check(ctx, t, db)

			recordingdbtest.FindByPlaceAndID{
				Place:    uuid.New(),
				ID:       rec.ID,
				ErrClass: &recordingdb.ErrNotFound,
			}.Check(ctx, t, db)

			recordingdbtest.VerifyClass{
				Place: place,
				ID:    rec.ID,
				Class: recordingdbtest.Class(recordingdb.Standard),
			}.Check(ctx, t, db)

			raw, err := db.TestingGetRecording(ctx, place, rec.ID)
			require.NoError(t, err)
			require.Equal(t, []recordingdb.RawIndexEntry{
				{Class: recordingdb.Standard, Field: "camera", Value: camera.String(), Size: -1},
				{Class: recordingdb.Standard, Field: "type", Value: "recording", Size: -1},
			}, raw.Index)

			times, err := db.ListPurgeableRows(ctx, rec.DeletionPartition)
			require.NoError(t, err)
			require.Contains(t, times, rec.Expiration)

			records, err := db.ListPurgeableRecordings(ctx, rec.Expiration, rec.DeletionPartition)
			require.NoError(t, err)
			require.Contains(t, records, recordingdb.PurgeRecord{
				Time:            rec.Expiration,
				Partition:       rec.DeletionPartition,
				RecordingID:     rec.ID,
				PlaceID:         place,
				StorageLocation: rec.Location,
				PurgePreview:    true,
			})
		})

		t.Run("stream", func(t *testing.T) {
			rec := recordingdbtest.CreateStream(ctx, t, db, place, camera, now)

			found, err := db.FindByPlaceAndID(ctx, place, rec.ID)
			require.NoError(t, err)
			require.True(t, found.Stream)

			records, err := db.ListPurgeableRecordings(ctx, rec.Expiration, rec.DeletionPartition)
			require.NoError(t, err)
			for _, record := range records {
				if record.RecordingID == rec.ID {
					require.False(t, record.PurgePreview)
				}
			}
		})

		t.Run("frames", func(t *testing.T) {
			rec := recordingdbtest.CreateRecording(ctx, t, db, place, camera, now)

			require.NoError(t, db.InsertFrame(ctx, rec.ID, 0, 0, 1000, time.Hour))
			require.NoError(t, db.InsertFrame(ctx, rec.ID, 2*time.Second, 1000, 500, time.Hour))
			require.Error(t, db.InsertFrame(ctx, rec.ID, -time.Second, 0, 10, time.Hour))

			video, err := db.GetVideoRecording(ctx, rec.ID)
			require.NoError(t, err)
			require.Equal(t, rec.Location, video.Storage)
			require.Equal(t, place, video.PlaceID)
			require.Equal(t, camera, video.CameraID)
			require.Equal(t, rec.PersonID, video.PersonID)
			require.Equal(t, []recordingdb.IFrame{
				{Timestamp: 0, ByteOffset: 0, ByteLength: 1000},
				{Timestamp: 2 * time.Second, ByteOffset: 1000, ByteLength: 500},
			}, video.IFrames)
			require.False(t, video.Finished())

			_, err = db.GetVideoRecording(ctx, uuid.New())
			require.True(t, recordingdb.ErrNotFound.Has(err))
		})
	})
}

func TestUpdate(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		rec := recordingdbtest.CreateRecording(ctx, t, db, place, camera, time.Now())

		require.NoError(t, db.Update(ctx, place, rec.ID, time.Hour, map[string]string{"name": "front door"}))
		found, err := db.FindByPlaceAndID(ctx, place, rec.ID)
		require.NoError(t, err)
		require.Equal(t, "front door", found.Name)

		err = db.Update(ctx, place, rec.ID, time.Hour, map[string]string{"width": "10"})
		require.True(t, recordingdb.ErrInvalidRequest.Has(err))

		err = db.Update(ctx, place, uuid.New(), time.Hour, map[string]string{"name": "x"})
		require.True(t, recordingdb.ErrNotFound.Has(err))

		_, err = db.AddTags(ctx, place, rec.ID, []string{recordingdb.FavoriteTag}, time.Hour)
		require.NoError(t, err)

		require.NoError(t, db.Update(ctx, place, rec.ID, time.Hour, map[string]string{"name": "pinned"}))
		found, err = db.FindByPlaceAndID(ctx, place, rec.ID)
		require.NoError(t, err)
		require.Equal(t, "pinned", found.Name)
		require.True(t, found.IsFavorite())
	})
}

func TestComplete(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		rec := recordingdbtest.CreateRecording(ctx, t, db, place, camera, time.Now())

		recordingdbtest.Query{
			Query: recordingdb.Query{PlaceID: place},
		}.Check(ctx, t, db)
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place, ListInProgress: true},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)

		recordingdbtest.Complete{
			Place:    place,
			ID:       rec.ID,
			Duration: 12 * time.Second,
			Size:     4096,
			TTL:      24 * time.Hour,
		}.Check(ctx, t, db)

		recordingdbtest.Complete{
			Place:    place,
			ID:       uuid.New(),
			Duration: time.Second,
			Size:     1,
			ErrClass: &recordingdb.ErrNotFound,
		}.Check(ctx, t, db)

		recordingdbtest.Complete{
			Place:    place,
			ID:       rec.ID,
			Duration: -time.Second,
			ErrClass: &recordingdb.ErrInvalidRequest,
		}.Check(ctx, t, db)

		found, err := db.FindByPlaceAndID(ctx, place, rec.ID)
		require.NoError(t, err)
		require.True(t, found.Completed)
		require.Equal(t, 12*time.Second, found.Duration)
		require.EqualValues(t, 4096, found.Size)

		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: place},
			Result: []uuid.UUID{rec.ID},
		}.Check(ctx, t, db)

		raw, err := db.TestingGetRecording(ctx, place, rec.ID)
		require.NoError(t, err)
		var sizes []int64
		for _, entry := range raw.Index {
			if entry.Field == "type" {
				sizes = append(sizes, entry.Size)
			}
		}
		require.Equal(t, []int64{4096}, sizes)

		video, err := db.GetVideoRecording(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, video.Finished())
		require.Equal(t, 12*time.Second, video.Duration)
	})
}

func TestRepairOnRead(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		place, camera := uuid.New(), uuid.New()
		now := time.Now()

		rec := recordingdbtest.CreateRecording(ctx, t, db, place, camera, now)
		require.NoError(t, db.InsertFrame(ctx, rec.ID, 0, 0, 300, 24*time.Hour))
		require.NoError(t, db.InsertFrame(ctx, rec.ID, 4*time.Second, 300, 200, 24*time.Hour))

		stream := recordingdbtest.CreateStream(ctx, t, db, place, camera, now)
		require.NoError(t, db.InsertFrame(ctx, stream.ID, 0, 0, 100, 24*time.Hour))

		found, err := db.FindByPlaceAndID(ctx, place, rec.ID)
		require.NoError(t, err)
		require.True(t, found.InProgress(), "writer may still be active")

		db.TestingSetNow(func() time.Time { return now.Add(10 * time.Minute) })

		found, err = db.FindByPlaceAndID(ctx, place, rec.ID)
		require.NoError(t, err)
		require.False(t, found.InProgress())
		require.Equal(t, 4*time.Second, found.Duration)
		require.EqualValues(t, 500, found.Size)

		raw, err := db.TestingGetRecording(ctx, place, rec.ID)
		require.NoError(t, err)
		require.True(t, raw.Metadata[recordingdb.Standard].Completed)

		found, err = db.FindByPlaceAndID(ctx, place, stream.ID)
		require.NoError(t, err)
		require.False(t, found.InProgress())

		// streams are not written back
		raw, err = db.TestingGetRecording(ctx, place, stream.ID)
		require.NoError(t, err)
		require.False(t, raw.Metadata[recordingdb.Standard].Completed)
	})
}
