// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package recordingdb implements storing and querying video recordings.
package recordingdb

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var (
	mon = monkit.Package()

	// Error is the default recordingdb errs class.
	Error = errs.Class("recordingdb")
	// ErrNotFound is returned when a recording does not exist.
	ErrNotFound = errs.Class("recording not found")
	// ErrInvalidRequest is returned for requests that can never succeed.
	ErrInvalidRequest = errs.Class("recordingdb: invalid request")
)

// FavoriteTag is the reserved tag that pins a recording.
const FavoriteTag = "FAVORITE"

// Default codecs of recordings that do not declare one.
const (
	DefaultVideoCodec = "H264_BASELINE_3_1"
	DefaultAudioCodec = "NONE"
)

// UnknownPartition marks a recording whose purge partition was never recorded.
const UnknownPartition = -1

// StorageClass is the table set owning a recording.
type StorageClass int

const (
	// Standard recordings expire.
	Standard StorageClass = iota
	// Favorited recordings never expire.
	Favorited
)

// String implements fmt.Stringer.
func (class StorageClass) String() string {
	switch class {
	case Standard:
		return "standard"
	case Favorited:
		return "favorited"
	default:
		return "unknown"
	}
}

// Recording is the metadata of a single recording or stream.
type Recording struct {
	ID        uuid.UUID
	PlaceID   uuid.UUID
	AccountID uuid.UUID
	CameraID  uuid.UUID
	// PersonID is uuid.Nil when the recording was not started by a person.
	PersonID uuid.UUID

	Name       string
	Width      int
	Height     int
	Bandwidth  int
	Framerate  float64
	Precapture time.Duration
	Location   string
	VideoCodec string
	AudioCodec string
	Stream     bool

	// Duration and Size are only meaningful when Completed is set.
	Duration  time.Duration
	Size      int64
	Completed bool

	Deleted           bool
	DeletionTime      time.Time
	DeletionPartition int
	Expiration        time.Time

	Tags  []string
	Class StorageClass
}

// InProgress returns whether the recording is still being written.
func (rec *Recording) InProgress() bool { return !rec.Completed }

// IsFavorite returns whether the recording is pinned.
func (rec *Recording) IsFavorite() bool { return rec.Class == Favorited }

// HasTag returns whether the recording carries tag.
func (rec *Recording) HasTag(tag string) bool {
	for _, t := range rec.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RecordingType selects recordings, streams or both.
type RecordingType int

const (
	// TypeAny matches recordings and streams.
	TypeAny RecordingType = iota
	// TypeRecording matches recordings only.
	TypeRecording
	// TypeStream matches streams only.
	TypeStream
)

func (rec *Recording) matchesType(typ RecordingType) bool {
	switch typ {
	case TypeRecording:
		return !rec.Stream
	case TypeStream:
		return rec.Stream
	default:
		return true
	}
}

func typeValue(stream bool) string {
	if stream {
		return "stream"
	}
	return "recording"
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// mergeTags returns the sorted union of a and b.
func mergeTags(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		set[t] = struct{}{}
	}
	return sortedTags(set)
}

// subtractTags returns the sorted tags of a that are not in b.
func subtractTags(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		if !containsTag(b, t) {
			set[t] = struct{}{}
		}
	}
	return sortedTags(set)
}

func sortedTags(set map[string]struct{}) []string {
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
