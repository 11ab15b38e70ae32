// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/common/testrand"
	"storj.io/videostore/recordingdb"
)

// RandRecording returns a recording of place created at now, not yet inserted.
func RandRecording(t testing.TB, place, camera uuid.UUID, now time.Time, stream bool) *recordingdb.Recording {
	id, err := recordingdb.NewRecordingID(now, stream)
	require.NoError(t, err)

	return &recordingdb.Recording{
		ID:         id,
		PlaceID:    place,
		AccountID:  uuid.New(),
		CameraID:   camera,
		Name:       "recording " + id.String()[:8],
		Width:      1280,
		Height:     720,
		Bandwidth:  512 + testrand.Intn(1024),
		Framerate:  15,
		Precapture: 5 * time.Second,
		Location:   "s3://videos/" + id.String(),
		Expiration: recordingdb.ExpirationFromTTL(id, 24*time.Hour, recordingdb.DefaultExpirationRounding),
	}
}

// CreateRecording inserts a new in progress recording.
func CreateRecording(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB, place, camera uuid.UUID, now time.Time) *recordingdb.Recording {
	rec := RandRecording(t, place, camera, now, false)
	require.NoError(t, db.Insert(ctx, rec))
	return rec
}

// CreateStream inserts a new in progress stream.
func CreateStream(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB, place, camera uuid.UUID, now time.Time) *recordingdb.Recording {
	rec := RandRecording(t, place, camera, now, true)
	require.NoError(t, db.Insert(ctx, rec))
	return rec
}

// CreateCompletedRecording inserts a recording with a few frames and completes it.
func CreateCompletedRecording(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB, place, camera uuid.UUID, now time.Time) *recordingdb.Recording {
	rec := CreateRecording(ctx, t, db, place, camera, now)

	var offset int64
	for i := 0; i < 3; i++ {
		length := 100 + testrand.Int63n(1000)
		require.NoError(t, db.InsertFrame(ctx, rec.ID, time.Duration(i)*time.Second, offset, length, time.Hour))
		offset += length
	}

	rec.Duration = 3 * time.Second
	rec.Size = offset
	rec.Completed = true
	require.NoError(t, db.Complete(ctx, place, rec.ID, rec.Duration, rec.Size, 24*time.Hour))
	return rec
}

// IDs returns the ids of recs in order.
func IDs(recs []*recordingdb.Recording) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids
}
