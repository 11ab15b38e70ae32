// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// Header fields are stored as pseudo frames before the first and after the
// last real frame, the byte offset is the field ordinal.
const (
	headerStart = -1.0
	headerEnd   = math.MaxFloat64
)

type headerField int64

const (
	headerStorage headerField = iota
	headerAccount
	headerPlace
	headerCamera
	headerPerson
	headerWidth
	headerHeight
	headerBandwidth
	headerFramerate
	headerVideoCodec
	headerAudioCodec
	headerExpiration

	headerDuration
	headerSize
)

func (field headerField) timestamp() float64 {
	if field >= headerDuration {
		return headerEnd
	}
	return headerStart
}

// IFrame locates a key frame inside the recording object.
type IFrame struct {
	// Timestamp is the offset from the recording start.
	Timestamp  time.Duration
	ByteOffset int64
	ByteLength int64
}

// VideoRecording is the playback view of a recording.
type VideoRecording struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	PlaceID    uuid.UUID
	CameraID   uuid.UUID
	PersonID   uuid.UUID
	Storage    string
	Width      int
	Height     int
	Bandwidth  int
	Framerate  float64
	VideoCodec string
	AudioCodec string
	Expiration time.Time

	// Duration and Size are negative until the recording is finished.
	Duration time.Duration
	Size     int64

	IFrames []IFrame
}

// Finished returns whether the final duration and size are known.
func (rec *VideoRecording) Finished() bool {
	return rec.Duration >= 0 && rec.Size >= 0
}

// recordingTable stores frame positions and header fields of a recording.
type recordingTable struct{ set TableSet }

func frameKey(ts float64, offset int64) storage.Key {
	return storage.Key(nil).AppendFloat64(ts).AppendInt64(offset)
}

func (t recordingTable) insertField(id uuid.UUID, field headerField, value storage.Key, ttl time.Duration) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Recording,
		Partition:  recordingPartition(id),
		Clustering: frameKey(field.timestamp(), int64(field)),
		Value:      storage.Value(value),
		TTL:        t.set.ttl(ttl),
	}
}

func (t recordingTable) insertString(id uuid.UUID, field headerField, value string, ttl time.Duration) storage.Mutation {
	return t.insertField(id, field, storage.Key(nil).AppendString(value), ttl)
}

func (t recordingTable) insertUUID(id uuid.UUID, field headerField, value uuid.UUID, ttl time.Duration) storage.Mutation {
	return t.insertField(id, field, storage.Key(nil).AppendUUID(value), ttl)
}

func (t recordingTable) insertInt(id uuid.UUID, field headerField, value int64, ttl time.Duration) storage.Mutation {
	return t.insertField(id, field, storage.Key(nil).AppendInt64(value), ttl)
}

func (t recordingTable) insertFloat(id uuid.UUID, field headerField, value float64, ttl time.Duration) storage.Mutation {
	return t.insertField(id, field, storage.Key(nil).AppendFloat64(value), ttl)
}

func (t recordingTable) insertFrame(id uuid.UUID, ts time.Duration, offset, length int64, ttl time.Duration) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Recording,
		Partition:  recordingPartition(id),
		Clustering: frameKey(ts.Seconds(), offset),
		Value:      storage.Value(storage.Key(nil).AppendInt64(length)),
		TTL:        t.set.ttl(ttl),
	}
}

// copyFrame rewrites a row read from any recording table into this one.
func (t recordingTable) copyFrame(id uuid.UUID, row storage.Row, ttl time.Duration) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Recording,
		Partition:  recordingPartition(id),
		Clustering: storage.CloneKey(row.Clustering),
		Value:      storage.CloneValue(row.Value),
		TTL:        t.set.ttl(ttl),
	}
}

func (t recordingTable) deleteRecording(id uuid.UUID) storage.Mutation {
	return storage.Mutation{
		Table:     t.set.Recording,
		Partition: recordingPartition(id),
		Delete:    true,
	}
}

func (t recordingTable) selectRecording(id uuid.UUID) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     t.set.Recording,
		Partition: recordingPartition(id),
	}
}

// materialize builds the playback view from the rows of a recording. Rows
// must be in clustering order.
func (t recordingTable) materialize(log *zap.Logger, id uuid.UUID, rows []storage.Row, now time.Time, quietPeriod time.Duration) (*VideoRecording, error) {
	if len(rows) == 0 {
		return nil, ErrNotFound.New("recording %s", id)
	}

	rec := &VideoRecording{
		ID:         id,
		Width:      -1,
		Height:     -1,
		Bandwidth:  -1,
		Framerate:  -1,
		Duration:   -1,
		Size:       -1,
		VideoCodec: DefaultVideoCodec,
		AudioCodec: DefaultAudioCodec,
	}

	lastOffset := int64(-1)
	for _, row := range rows {
		key := storage.NewKeyReader(row.Clustering)
		ts, offset := key.ReadFloat64(), key.ReadInt64()
		if !key.Done() {
			log.Warn("invalid recording key", zap.Stringer("recording", id), zap.Error(key.Err()))
			continue
		}
		value := storage.NewKeyReader(row.Value)

		switch ts {
		case headerStart, headerEnd:
			readHeader(log, rec, headerField(offset), value)
		default:
			length := value.ReadInt64()
			if value.Err() != nil {
				log.Warn("invalid frame", zap.Stringer("recording", id), zap.Error(value.Err()))
				continue
			}
			if offset <= lastOffset {
				mon.Counter("video_bad_frame").Inc(1)
				continue
			}
			lastOffset = offset
			rec.IFrames = append(rec.IFrames, IFrame{
				Timestamp:  secondsToDuration(ts),
				ByteOffset: offset,
				ByteLength: length,
			})
		}
	}

	switch {
	case rec.Storage == "":
		return nil, Error.New("recording %s has no storage location", id)
	case rec.AccountID == uuid.Nil:
		return nil, Error.New("recording %s has no account", id)
	case rec.CameraID == uuid.Nil:
		return nil, Error.New("recording %s has no camera", id)
	case rec.PlaceID == uuid.Nil:
		return nil, Error.New("recording %s has no place", id)
	case !rec.Expiration.IsZero() && rec.Expiration.Before(now):
		return nil, ErrNotFound.New("recording %s expired at %s", id, rec.Expiration)
	}

	// a recording whose writer went away is finished at its last key frame
	if rec.Duration < 0 && len(rec.IFrames) > 0 {
		last := rec.IFrames[len(rec.IFrames)-1]
		if CreationTime(id).Add(last.Timestamp).Add(quietPeriod).Before(now) {
			rec.Duration = last.Timestamp
			rec.Size = last.ByteOffset + last.ByteLength
		}
	}

	return rec, nil
}

func readHeader(log *zap.Logger, rec *VideoRecording, field headerField, value *storage.KeyReader) {
	switch field {
	case headerStorage:
		rec.Storage = value.ReadString()
	case headerAccount:
		rec.AccountID = value.ReadUUID()
	case headerPlace:
		rec.PlaceID = value.ReadUUID()
	case headerCamera:
		rec.CameraID = value.ReadUUID()
	case headerPerson:
		rec.PersonID = value.ReadUUID()
	case headerWidth:
		rec.Width = int(value.ReadInt64())
	case headerHeight:
		rec.Height = int(value.ReadInt64())
	case headerBandwidth:
		rec.Bandwidth = int(value.ReadInt64())
	case headerFramerate:
		rec.Framerate = value.ReadFloat64()
	case headerVideoCodec:
		rec.VideoCodec = value.ReadString()
	case headerAudioCodec:
		rec.AudioCodec = value.ReadString()
	case headerExpiration:
		if ms := value.ReadInt64(); ms > 0 {
			rec.Expiration = time.UnixMilli(ms).UTC()
		}
	case headerDuration:
		rec.Duration = secondsToDuration(value.ReadFloat64())
	case headerSize:
		rec.Size = value.ReadInt64()
	default:
		log.Warn("unknown recording header", zap.Stringer("recording", rec.ID), zap.Int64("field", int64(field)))
		return
	}
	if err := value.Err(); err != nil {
		log.Warn("invalid recording header", zap.Stringer("recording", rec.ID), zap.Int64("field", int64(field)), zap.Error(err))
	}
}
