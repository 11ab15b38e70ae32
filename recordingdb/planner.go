// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Query selects recordings of a place, newest first.
type Query struct {
	PlaceID uuid.UUID

	// Latest and Earliest bound the creation time, zero means unbounded.
	Latest   time.Time
	Earliest time.Time
	// Token continues a previous query, it is the id of the first recording
	// not returned.
	Token string

	Tags         []string
	MatchAllTags bool
	Cameras      []uuid.UUID
	Type         RecordingType

	ListDeleted    bool
	ListInProgress bool

	Limit int
}

// bounds returns the inclusive id range of the query, start is the newest id.
func (q Query) bounds() (start, end uuid.UUID, err error) {
	start = maxRecordingID
	if !q.Latest.IsZero() {
		start = MaxID(q.Latest)
	}
	if q.Token != "" {
		token, err := uuid.Parse(q.Token)
		if err != nil {
			return start, end, ErrInvalidRequest.New("invalid token %q for place %s", q.Token, q.PlaceID)
		}
		if compareIDs(token, start) < 0 {
			start = token
		}
	}

	end = minRecordingID
	if !q.Earliest.IsZero() {
		end = MinID(q.Earliest)
	}
	return start, end, nil
}

// match implements the checks the chosen indexes cannot express.
func (q Query) match(rec *Recording) bool {
	if len(q.Cameras) > 0 {
		found := false
		for _, camera := range q.Cameras {
			if camera == rec.CameraID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(q.Tags) > 0 {
		matched := 0
		for _, tag := range q.Tags {
			if rec.HasTag(tag) {
				matched++
			}
		}
		if matched == 0 || (q.MatchAllTags && matched < len(q.Tags)) {
			return false
		}
	}

	if rec.Deleted && !q.ListDeleted {
		return false
	}
	if rec.InProgress() && !q.ListInProgress {
		return false
	}
	return rec.matchesType(q.Type)
}

// scanIndex returns an iterator over a single index range.
func (db *DB) scanIndex(ctx context.Context, set TableSet, place uuid.UUID, field, value string, start, end uuid.UUID, limit int) EntryIterator {
	table := set.index()
	return newIndexIterator(table, db.store.Scan(ctx, table.selectIDs(place, field, value, start, end, limit)))
}

// bothSets returns the union of the favorite and standard index ranges.
func (db *DB) bothSets(ctx context.Context, place uuid.UUID, field, value string, start, end uuid.UUID, limit int) EntryIterator {
	return Union(Descending,
		db.scanIndex(ctx, favoriteTables, place, field, value, start, end, limit),
		db.scanIndex(ctx, standardTables, place, field, value, start, end, limit),
	)
}

// plan picks the most selective index for q.
func (db *DB) plan(ctx context.Context, q Query, start, end uuid.UUID, limit int) EntryIterator {
	place := q.PlaceID

	switch {
	case q.Type == TypeStream:
		// streams are never favorites
		return db.scanIndex(ctx, standardTables, place, fieldType, typeValue(true), start, end, limit)

	case len(q.Tags) > 0:
		perTag := make([]EntryIterator, 0, len(q.Tags))
		for _, tag := range q.Tags {
			perTag = append(perTag, db.bothSets(ctx, place, fieldTag, tag, start, end, limit))
		}
		if q.MatchAllTags {
			return Intersection(Descending, perTag...)
		}
		return Union(Descending, perTag...)

	case len(q.Cameras) > 0:
		perCamera := make([]EntryIterator, 0, len(q.Cameras))
		for _, camera := range q.Cameras {
			perCamera = append(perCamera, db.bothSets(ctx, place, fieldCamera, camera.String(), start, end, limit))
		}
		return Union(Descending, perCamera...)
	}

	sources := []EntryIterator{db.bothSets(ctx, place, fieldType, typeValue(false), start, end, limit)}
	if q.Type == TypeAny {
		sources = append(sources, db.scanIndex(ctx, standardTables, place, fieldType, typeValue(true), start, end, limit))
	}
	if q.ListDeleted {
		sources = append(sources, db.bothSets(ctx, place, fieldDeleted, "", start, end, limit))
	}
	return Union(Descending, sources...)
}
