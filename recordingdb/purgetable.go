// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"time"

	"github.com/google/uuid"

	"storj.io/videostore/storage"
)

const (
	purgeTable      storage.Table = "purge_recordings_v2"
	purgeAtTable    storage.Table = "purge_recordings_at_v2"
	placePurgeTable storage.Table = "place_purge_recording"
)

// PurgeRecord is a recording waiting in a purge bucket.
type PurgeRecord struct {
	Time        time.Time
	Partition   int
	RecordingID uuid.UUID
	PlaceID     uuid.UUID
	// StorageLocation may be empty for records written before it was tracked.
	StorageLocation string
	// PurgePreview is set when the preview image has to be removed as well.
	PurgePreview bool
}

func purgeBucket(at time.Time, partition int) storage.Key {
	return storage.Key(nil).AppendInt64(at.UnixMilli()).AppendInt64(int64(partition))
}

func purgePartition(partition int) storage.Key {
	return storage.Key(nil).AppendInt64(int64(partition))
}

func insertPurgeEntry(at time.Time, partition int, id, place uuid.UUID, location string, preview bool) storage.Mutation {
	return storage.Mutation{
		Table:      purgeTable,
		Partition:  purgeBucket(at, partition),
		Clustering: storage.Key(nil).AppendUUID(id),
		Value:      storage.Value(storage.Key(nil).AppendUUID(place).AppendString(location).AppendBool(preview)),
	}
}

func insertPurgeAt(at time.Time, partition int) storage.Mutation {
	return storage.Mutation{
		Table:      purgeAtTable,
		Partition:  purgePartition(partition),
		Clustering: storage.Key(nil).AppendInt64(at.UnixMilli()),
		Value:      storage.Value{},
	}
}

func deletePurgeEntry(at time.Time, partition int, id uuid.UUID) storage.Mutation {
	return storage.Mutation{
		Table:      purgeTable,
		Partition:  purgeBucket(at, partition),
		Clustering: storage.Key(nil).AppendUUID(id),
		Delete:     true,
	}
}

// schedulePurge enqueues id in the bucket at (at, partition).
func schedulePurge(at time.Time, partition int, id, place uuid.UUID, location string, preview bool) []storage.Mutation {
	return []storage.Mutation{
		insertPurgeEntry(at, partition, id, place, location, preview),
		insertPurgeAt(at, partition),
	}
}

func selectPurgeTimes(partition int) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     purgeAtTable,
		Partition: purgePartition(partition),
	}
}

func selectPurgeRecordings(at time.Time, partition int) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     purgeTable,
		Partition: purgeBucket(at, partition),
	}
}

func deletePurgeRow(at time.Time, partition int) []storage.Mutation {
	return []storage.Mutation{
		{
			Table:     purgeTable,
			Partition: purgeBucket(at, partition),
			Delete:    true,
		},
		{
			Table:      purgeAtTable,
			Partition:  purgePartition(partition),
			Clustering: storage.Key(nil).AppendInt64(at.UnixMilli()),
			Delete:     true,
		},
	}
}

func decodePurgeTime(row storage.Row) (time.Time, error) {
	key := storage.NewKeyReader(row.Clustering)
	ms := key.ReadInt64()
	if !key.Done() {
		return time.Time{}, Error.New("invalid purge time %x: %v", []byte(row.Clustering), key.Err())
	}
	return time.UnixMilli(ms).UTC(), nil
}

func decodePurgeRecord(at time.Time, partition int, row storage.Row) (PurgeRecord, error) {
	key := storage.NewKeyReader(row.Clustering)
	id := key.ReadUUID()
	if !key.Done() {
		return PurgeRecord{}, Error.New("invalid purge key %x: %v", []byte(row.Clustering), key.Err())
	}

	value := storage.NewKeyReader(row.Value)
	record := PurgeRecord{
		Time:            at,
		Partition:       partition,
		RecordingID:     id,
		PlaceID:         value.ReadUUID(),
		StorageLocation: value.ReadString(),
		PurgePreview:    value.ReadBool(),
	}
	if !value.Done() {
		return PurgeRecord{}, Error.New("invalid purge value for %s: %v", id, value.Err())
	}
	return record, nil
}

// PurgeMode selects what a place purge removes.
type PurgeMode string

const (
	// PurgePinned demotes every favorite of the place.
	PurgePinned PurgeMode = "PINNED"
	// PurgeAll removes every recording of the place.
	PurgeAll PurgeMode = "ALL"
)

// PlacePurgeRecord is a place purge directive due at Day.
type PlacePurgeRecord struct {
	Day     time.Time
	PlaceID uuid.UUID
	Mode    PurgeMode
}

func placePurgeDay(day time.Time) storage.Key {
	return storage.Key(nil).AppendInt64(day.UnixMilli())
}

func insertPlacePurge(day time.Time, place uuid.UUID, mode PurgeMode) storage.Mutation {
	return storage.Mutation{
		Table:      placePurgeTable,
		Partition:  placePurgeDay(day),
		Clustering: storage.Key(nil).AppendUUID(place),
		Value:      storage.Value(mode),
	}
}

func selectPlacePurge(day time.Time) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     placePurgeTable,
		Partition: placePurgeDay(day),
	}
}

func deletePlacePurge(day time.Time) storage.Mutation {
	return storage.Mutation{
		Table:     placePurgeTable,
		Partition: placePurgeDay(day),
		Delete:    true,
	}
}

func decodePlacePurge(day time.Time, row storage.Row) (PlacePurgeRecord, error) {
	key := storage.NewKeyReader(row.Clustering)
	place := key.ReadUUID()
	if !key.Done() {
		return PlacePurgeRecord{}, Error.New("invalid place purge key %x: %v", []byte(row.Clustering), key.Err())
	}
	return PlacePurgeRecord{Day: day, PlaceID: place, Mode: PurgeMode(row.Value)}, nil
}
