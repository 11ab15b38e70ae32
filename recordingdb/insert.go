// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// Insert stores a new in progress recording and schedules its purge at the
// recording expiration. A zero expiration is replaced by the default ttl.
func (db *DB) Insert(ctx context.Context, rec *Recording) (err error) {
	defer mon.Task()(&ctx)(&err)

	switch {
	case rec.ID == uuid.Nil:
		return ErrInvalidRequest.New("recording id missing")
	case rec.PlaceID == uuid.Nil:
		return ErrInvalidRequest.New("place id missing for recording %s", rec.ID)
	case rec.CameraID == uuid.Nil:
		return ErrInvalidRequest.New("camera id missing for recording %s, place %s", rec.ID, rec.PlaceID)
	}

	if rec.Expiration.IsZero() {
		rec.Expiration = db.ExpirationFromTTL(rec.ID, DefaultTTL)
	}
	rec.Stream = IsStreamID(rec.ID)
	rec.Class = Standard
	rec.DeletionTime = rec.Expiration
	rec.DeletionPartition = db.PartitionID(rec.ID)
	if rec.VideoCodec == "" {
		rec.VideoCodec = DefaultVideoCodec
	}
	if rec.AudioCodec == "" {
		rec.AudioCodec = DefaultAudioCodec
	}

	rec.Deleted, rec.Completed = false, false
	rec.Tags = mergeTags(rec.Tags, nil)
	if containsTag(rec.Tags, FavoriteTag) {
		return ErrInvalidRequest.New("recording %s can not be inserted as a favorite", rec.ID)
	}

	ttl := ActualTTL(rec.ID, rec.Expiration)
	recording := standardTables.recording()
	id := rec.ID

	mutations := writeMutations(standardTables, rec, ttl)
	mutations = append(mutations,
		recording.insertString(id, headerStorage, rec.Location, ttl),
		recording.insertUUID(id, headerAccount, rec.AccountID, ttl),
		recording.insertUUID(id, headerPlace, rec.PlaceID, ttl),
		recording.insertUUID(id, headerCamera, rec.CameraID, ttl),
		recording.insertInt(id, headerExpiration, rec.Expiration.UnixMilli(), ttl),
		recording.insertInt(id, headerWidth, int64(rec.Width), ttl),
		recording.insertInt(id, headerHeight, int64(rec.Height), ttl),
		recording.insertInt(id, headerBandwidth, int64(rec.Bandwidth), ttl),
		recording.insertFloat(id, headerFramerate, rec.Framerate, ttl),
		recording.insertString(id, headerVideoCodec, rec.VideoCodec, ttl),
		recording.insertString(id, headerAudioCodec, rec.AudioCodec, ttl),
	)
	if rec.PersonID != uuid.Nil {
		mutations = append(mutations, recording.insertUUID(id, headerPerson, rec.PersonID, ttl))
	}
	mutations = append(mutations, schedulePurge(rec.DeletionTime, rec.DeletionPartition, id, rec.PlaceID, rec.Location, !rec.Stream)...)

	return db.apply(ctx, db.config.MaxBatchSize, mutations)
}

// InsertFrame stores the position of a key frame. The timestamp is relative
// to the recording start.
func (db *DB) InsertFrame(ctx context.Context, id uuid.UUID, ts time.Duration, byteOffset, byteSize int64, ttl time.Duration) (err error) {
	defer mon.Task()(&ctx)(&err)

	if ts < 0 || byteOffset < 0 || byteSize < 0 {
		return ErrInvalidRequest.New("invalid frame for recording %s: ts=%v offset=%d size=%d", id, ts, byteOffset, byteSize)
	}
	return Error.Wrap(db.store.Apply(ctx, standardTables.recording().insertFrame(id, ts, byteOffset, byteSize, ttl)))
}

// Update changes the writable attributes of a recording.
func (db *DB) Update(ctx context.Context, place, id uuid.UUID, ttl time.Duration, attrs map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)

	for attr := range attrs {
		if attr != attrName {
			mon.Counter("video_attr_readonly").Inc(1)
			return ErrInvalidRequest.New("attribute %q is read only (place %s, recording %s)", attr, place, id)
		}
	}

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return err
	}
	if len(attrs) == 0 {
		return nil
	}

	set := Tables(rec.Class)
	rowTTL := ActualTTL(id, db.ExpirationFromTTL(id, ttl))

	var mutations []storage.Mutation
	for attr, value := range attrs {
		mutations = append(mutations, set.metadata().insertField(id, attr, value, rowTTL))
	}

	db.log.Debug("updating recording",
		zap.Stringer("place", place),
		zap.Stringer("recording", id),
		zap.Stringer("class", rec.Class))
	return db.apply(ctx, db.config.MaxBatchSize, mutations)
}
