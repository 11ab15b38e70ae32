// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// Recording ids are version 7 uuids: the first 48 bits hold the creation
// time in unix milliseconds, so byte order is creation order.
const (
	streamByte = 9
	streamBit  = 0x01
)

var (
	minRecordingID = uuid.UUID{}
	maxRecordingID = uuid.UUID{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)

// NewRecordingID returns a new recording id created at now.
func NewRecordingID(now time.Time, stream bool) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.UUID{}, Error.Wrap(err)
	}

	putTimestamp(&id, now)
	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80
	if stream {
		id[streamByte] |= streamBit
	} else {
		id[streamByte] &^= streamBit
	}
	return id, nil
}

// IsStreamID returns whether id was created for a live stream.
func IsStreamID(id uuid.UUID) bool {
	return id[streamByte]&streamBit != 0
}

// CreationTime returns the creation time embedded in id.
func CreationTime(id uuid.UUID) time.Time {
	var buf [8]byte
	copy(buf[2:], id[:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(buf[:]))).UTC()
}

// MinID returns the smallest id that can be created at t.
func MinID(t time.Time) uuid.UUID {
	id := minRecordingID
	putTimestamp(&id, t)
	return id
}

// MaxID returns the largest id that can be created at t.
func MaxID(t time.Time) uuid.UUID {
	id := maxRecordingID
	putTimestamp(&id, t)
	return id
}

func putTimestamp(id *uuid.UUID, t time.Time) {
	ms := t.UnixMilli()
	if ms < 0 {
		ms = 0
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ms))
	copy(id[:6], buf[2:])
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
