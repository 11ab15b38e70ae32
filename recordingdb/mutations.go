// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"storj.io/videostore/storage"
)

// writeMutations writes the metadata and index entries of rec into set.
// Deleted recordings only get their deleted and tag index entries.
func writeMutations(set TableSet, rec *Recording, ttl time.Duration) []storage.Mutation {
	metadata, index := set.metadata(), set.index()
	id, place := rec.ID, rec.PlaceID

	mutations := []storage.Mutation{
		metadata.insertField(id, attrName, rec.Name, ttl),
		metadata.insertField(id, attrPlace, place.String(), ttl),
		metadata.insertField(id, attrAccount, rec.AccountID.String(), ttl),
		metadata.insertField(id, attrCamera, rec.CameraID.String(), ttl),
		metadata.insertField(id, attrWidth, strconv.Itoa(rec.Width), ttl),
		metadata.insertField(id, attrHeight, strconv.Itoa(rec.Height), ttl),
		metadata.insertField(id, attrBandwidth, strconv.Itoa(rec.Bandwidth), ttl),
		metadata.insertField(id, attrFramerate, strconv.FormatFloat(rec.Framerate, 'f', -1, 64), ttl),
		metadata.insertField(id, attrPrecapture, strconv.Itoa(int(rec.Precapture/time.Second)), ttl),
		metadata.insertField(id, attrLocation, rec.Location, ttl),
		metadata.insertField(id, attrType, typeValue(rec.Stream), ttl),
		metadata.insertField(id, attrVideoCodec, rec.VideoCodec, ttl),
		metadata.insertField(id, attrAudioCodec, rec.AudioCodec, ttl),
	}
	if rec.PersonID != uuid.Nil {
		mutations = append(mutations, metadata.insertField(id, attrPerson, rec.PersonID.String(), ttl))
	}
	if !rec.Expiration.IsZero() {
		mutations = append(mutations, metadata.insertTime(id, attrExpiration, rec.Expiration, ttl))
	}
	if !rec.DeletionTime.IsZero() {
		mutations = append(mutations, metadata.insertTime(id, attrDeletedTime, rec.DeletionTime, ttl))
	}
	if rec.DeletionPartition >= 0 {
		mutations = append(mutations, metadata.insertField(id, attrDeletedPartition, strconv.Itoa(rec.DeletionPartition), ttl))
	}

	size := int64(unknownSize)
	if rec.Completed {
		size = rec.Size
		mutations = append(mutations,
			metadata.insertField(id, attrDuration, formatSeconds(rec.Duration), ttl),
			metadata.insertField(id, attrSize, strconv.FormatInt(rec.Size, 10), ttl),
		)
	}

	for _, tag := range rec.Tags {
		mutations = append(mutations,
			metadata.insertTag(id, tag, ttl),
			index.insertTag(place, tag, id, rec.Expiration, ttl),
		)
	}

	if rec.Deleted {
		return append(mutations,
			metadata.insertField(id, attrDeleted, deletedValue, ttl),
			index.insertDeleted(place, id, size, rec.Expiration, ttl),
		)
	}
	return append(mutations,
		index.insertCamera(place, rec.CameraID, id, rec.Expiration, ttl),
		index.insertType(place, rec.Stream, id, size, rec.Expiration, ttl),
	)
}

// eraseMutations removes every row of rec from set.
func eraseMutations(set TableSet, rec *Recording) []storage.Mutation {
	index := set.index()
	id, place := rec.ID, rec.PlaceID

	mutations := []storage.Mutation{
		set.metadata().deleteRecording(id),
		set.recording().deleteRecording(id),
		index.deleteCamera(place, rec.CameraID, id),
		index.deleteType(place, false, id),
		index.deleteType(place, true, id),
		index.deleteDeleted(place, id),
	}
	for _, tag := range rec.Tags {
		mutations = append(mutations, index.deleteTag(place, tag, id))
	}
	return mutations
}

// copyFrameMutations copies the recording rows of a recording into set.
func copyFrameMutations(set TableSet, id uuid.UUID, rows []storage.Row, ttl time.Duration) []storage.Mutation {
	recording := set.recording()
	mutations := make([]storage.Mutation, 0, len(rows))
	for _, row := range rows {
		mutations = append(mutations, recording.copyFrame(id, row, ttl))
	}
	return mutations
}

// completeMutations stores the final duration and size of rec in set.
func completeMutations(set TableSet, rec *Recording, duration time.Duration, size int64, expiration time.Time, ttl time.Duration) []storage.Mutation {
	metadata, recording, index := set.metadata(), set.recording(), set.index()
	id := rec.ID

	mutations := []storage.Mutation{
		metadata.insertField(id, attrDuration, formatSeconds(duration), ttl),
		metadata.insertField(id, attrSize, strconv.FormatInt(size, 10), ttl),
		recording.insertFloat(id, headerDuration, duration.Seconds(), ttl),
		recording.insertInt(id, headerSize, size, ttl),
	}
	if rec.Deleted {
		return append(mutations, index.insertDeleted(rec.PlaceID, id, size, expiration, ttl))
	}
	return append(mutations, index.insertType(rec.PlaceID, rec.Stream, id, size, expiration, ttl))
}

// deleteMutations marks a standard recording deleted and moves its purge
// entry to purgeTime when that is earlier than the scheduled one.
func (db *DB) deleteMutations(rec *Recording, purgeTime time.Time, partition int) []storage.Mutation {
	metadata, index := standardTables.metadata(), standardTables.index()
	id, place := rec.ID, rec.PlaceID
	ttl := ActualTTL(id, rec.Expiration)

	size := int64(unknownSize)
	if rec.Completed {
		size = rec.Size
	}

	mutations := []storage.Mutation{
		metadata.insertField(id, attrDeleted, deletedValue, ttl),
		index.insertDeleted(place, id, size, rec.Expiration, ttl),
		index.deleteCamera(place, rec.CameraID, id),
		index.deleteType(place, false, id),
		index.deleteType(place, true, id),
	}

	if partition < 0 {
		partition = db.PartitionID(id)
	}
	if rec.DeletionTime.IsZero() || purgeTime.Before(rec.DeletionTime) {
		if !rec.DeletionTime.IsZero() && rec.DeletionPartition >= 0 {
			mutations = append(mutations, deletePurgeEntry(rec.DeletionTime, rec.DeletionPartition, id))
		}
		mutations = append(mutations, schedulePurge(purgeTime, partition, id, place, rec.Location, !rec.Stream)...)
		mutations = append(mutations,
			metadata.insertTime(id, attrDeletedTime, purgeTime, ttl),
			metadata.insertField(id, attrDeletedPartition, strconv.Itoa(partition), ttl),
		)
		rec.DeletionTime, rec.DeletionPartition = purgeTime, partition
	}

	rec.Deleted = true
	return mutations
}
