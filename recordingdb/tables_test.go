// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/videostore/storage"
)

func TestBatches(t *testing.T) {
	mutations := make([]storage.Mutation, 7)
	for i := range mutations {
		mutations[i].TTL = time.Duration(i)
	}

	require.Nil(t, batches(nil, 3))
	require.Len(t, batches(mutations, 0), 1)
	require.Len(t, batches(mutations, 7), 1)

	chunks := batches(mutations, 3)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 3)
	require.Len(t, chunks[1], 3)
	require.Len(t, chunks[2], 1)

	var order []time.Duration
	for _, chunk := range chunks {
		for _, m := range chunk {
			order = append(order, m.TTL)
		}
	}
	require.Equal(t, []time.Duration{0, 1, 2, 3, 4, 5, 6}, order)
}

func rowsOf(mutations ...storage.Mutation) []storage.Row {
	var rows []storage.Row
	for _, m := range mutations {
		rows = append(rows, storage.Row{Clustering: m.Clustering, Value: m.Value})
	}
	return rows
}

func TestMetadataMaterialize(t *testing.T) {
	log := zaptest.NewLogger(t)
	id, err := NewRecordingID(time.Now(), false)
	require.NoError(t, err)
	place, camera := uuid.New(), uuid.New()

	metadata := favoriteTables.metadata()
	require.Nil(t, metadata.materialize(log, id, nil))

	rows := rowsOf(
		metadata.insertField(id, attrPlace, place.String(), 0),
		metadata.insertField(id, attrCamera, camera.String(), 0),
		metadata.insertField(id, attrWidth, "not a number", 0),
		metadata.insertField(id, "unknown", "x", 0),
		metadata.insertField(id, attrDuration, "1.5", 0),
		metadata.insertTag(id, "b", 0),
		metadata.insertTag(id, "a", 0),
	)

	rec := metadata.materialize(log, id, rows)
	require.NotNil(t, rec)
	require.Equal(t, Favorited, rec.Class)
	require.Equal(t, place, rec.PlaceID)
	require.Equal(t, camera, rec.CameraID)
	require.Equal(t, -1, rec.Width)
	require.Equal(t, []string{"a", "b"}, rec.Tags)
	require.True(t, rec.InProgress(), "size is missing")
	require.Equal(t, 1500*time.Millisecond, rec.Duration)
	require.Equal(t, UnknownPartition, rec.DeletionPartition)

	rows = append(rows, rowsOf(metadata.insertField(id, attrSize, "1024", 0))...)
	rec = metadata.materialize(log, id, rows)
	require.False(t, rec.InProgress())
	require.EqualValues(t, 1024, rec.Size)
}

func TestRecordingMaterialize(t *testing.T) {
	log := zaptest.NewLogger(t)
	created := time.Now().Add(-time.Hour)
	id, err := NewRecordingID(created, false)
	require.NoError(t, err)

	recording := standardTables.recording()
	header := []storage.Mutation{
		recording.insertString(id, headerStorage, "s3://videos/a", time.Hour),
		recording.insertUUID(id, headerAccount, uuid.New(), time.Hour),
		recording.insertUUID(id, headerPlace, uuid.New(), time.Hour),
		recording.insertUUID(id, headerCamera, uuid.New(), time.Hour),
		recording.insertInt(id, headerWidth, 640, time.Hour),
	}
	frames := []storage.Mutation{
		recording.insertFrame(id, 0, 0, 100, time.Hour),
		recording.insertFrame(id, time.Second, 100, 50, time.Hour),
		// out of order offsets are dropped
		recording.insertFrame(id, 2*time.Second, 90, 10, time.Hour),
		recording.insertFrame(id, 3*time.Second, 150, 25, time.Hour),
	}

	sorted := func(mutations []storage.Mutation) []storage.Row {
		rows := rowsOf(mutations...)
		for i := 1; i < len(rows); i++ {
			for j := i; j > 0 && rows[j].Clustering.Less(rows[j-1].Clustering); j-- {
				rows[j], rows[j-1] = rows[j-1], rows[j]
			}
		}
		return rows
	}

	_, err = recording.materialize(log, id, nil, time.Now(), time.Minute)
	require.True(t, ErrNotFound.Has(err))

	_, err = recording.materialize(log, id, sorted(frames), time.Now(), time.Minute)
	require.Error(t, err)

	now := created.Add(3 * time.Second).Add(30 * time.Second)
	rec, err := recording.materialize(log, id, sorted(append(header, frames...)), now, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 640, rec.Width)
	require.Equal(t, "s3://videos/a", rec.Storage)
	require.Len(t, rec.IFrames, 3)
	require.False(t, rec.Finished())

	rec, err = recording.materialize(log, id, sorted(append(header, frames...)), now.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.True(t, rec.Finished())
	require.Equal(t, 3*time.Second, rec.Duration)
	require.EqualValues(t, 175, rec.Size)

	done := append(append([]storage.Mutation{}, header...), frames...)
	done = append(done,
		recording.insertFloat(id, headerDuration, 4, time.Hour),
		recording.insertInt(id, headerSize, 200, time.Hour),
	)
	rec, err = recording.materialize(log, id, sorted(done), now, time.Minute)
	require.NoError(t, err)
	require.True(t, rec.Finished())
	require.Equal(t, 4*time.Second, rec.Duration)
	require.EqualValues(t, 200, rec.Size)

	expired := append(append([]storage.Mutation{}, header...), recording.insertInt(id, headerExpiration, created.Add(time.Minute).UnixMilli(), time.Hour))
	_, err = recording.materialize(log, id, sorted(expired), time.Now(), time.Minute)
	require.True(t, ErrNotFound.Has(err))
}
