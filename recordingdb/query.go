// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// PagedResults is a single page of a query.
type PagedResults struct {
	Recordings []*Recording
	// NextToken continues the query, it is empty on the last page.
	NextToken string
}

// RecordingIterator iterates over a sequence of recordings.
type RecordingIterator interface {
	Next(ctx context.Context, rec *Recording) bool
}

// SizeIterator iterates over the sizes of recordings.
type SizeIterator interface {
	Next(ctx context.Context, entry *IndexEntry) bool
}

// StreamRecordingSizes contains arguments for StreamRecordingSizeAsc.
type StreamRecordingSizes struct {
	PlaceID           uuid.UUID
	IncludeFavorites  bool
	IncludeInProgress bool
	BatchSize         int
}

// fetch resolves an index entry. It returns nil when the entry is stale.
func (db *DB) fetch(ctx context.Context, place uuid.UUID, entry IndexEntry) (*Recording, error) {
	set := standardTables
	if entry.Favorite {
		set = favoriteTables
	}
	rec, _, err := db.loadRecording(ctx, set, entry.RecordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.PlaceID != place {
		mon.Counter("stale_index_entry").Inc(1)
		db.log.Debug("invalid index entry",
			zap.Stringer("place", place),
			zap.Stringer("recording", entry.RecordingID),
			zap.Bool("favorite", entry.Favorite))
		return nil, nil
	}
	return rec, nil
}

func (db *DB) limit(limit int) int {
	if limit <= 0 {
		return db.config.DefaultQueryLimit
	}
	return limit
}

// Query returns a page of the recordings matching q, newest first.
func (db *DB) Query(ctx context.Context, q Query) (_ PagedResults, err error) {
	defer mon.Task()(&ctx)(&err)

	if q.PlaceID == uuid.Nil {
		return PagedResults{}, ErrInvalidRequest.New("place id missing")
	}
	start, end, err := q.bounds()
	if err != nil {
		return PagedResults{}, err
	}

	limit := db.limit(q.Limit)
	it := db.plan(ctx, q, start, end, limit+1)
	defer func() { err = errs.Combine(err, Error.Wrap(it.Close())) }()

	var results PagedResults
	var entry IndexEntry
	for len(results.Recordings) <= limit && it.Next(ctx, &entry) {
		rec, err := db.fetch(ctx, q.PlaceID, entry)
		if err != nil {
			return PagedResults{}, err
		}
		if rec == nil {
			continue
		}
		db.repairIfNeeded(ctx, rec)
		if !q.match(rec) {
			continue
		}
		results.Recordings = append(results.Recordings, rec)
	}
	if err := it.Err(); err != nil {
		return PagedResults{}, Error.Wrap(err)
	}

	if len(results.Recordings) > limit {
		results.NextToken = results.Recordings[limit].ID.String()
		results.Recordings = results.Recordings[:limit]
	}
	return results, nil
}

// StreamVideoMetadata calls fn with an iterator over every recording
// matching q, newest first. Recordings are not repaired.
func (db *DB) StreamVideoMetadata(ctx context.Context, q Query, fn func(context.Context, RecordingIterator) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	if q.PlaceID == uuid.Nil {
		return ErrInvalidRequest.New("place id missing")
	}
	start, end, err := q.bounds()
	if err != nil {
		return err
	}

	it := &recordingIterator{
		db:      db,
		query:   q,
		entries: db.plan(ctx, q, start, end, db.limit(q.Limit)),
	}
	return errs.Combine(fn(ctx, it), it.err, Error.Wrap(it.entries.Err()), Error.Wrap(it.entries.Close()))
}

type recordingIterator struct {
	db      *DB
	query   Query
	entries EntryIterator
	err     error
}

func (it *recordingIterator) Next(ctx context.Context, rec *Recording) bool {
	if it.err != nil {
		return false
	}

	var entry IndexEntry
	for it.entries.Next(ctx, &entry) {
		fetched, err := it.db.fetch(ctx, it.query.PlaceID, entry)
		if err != nil {
			it.err = err
			return false
		}
		if fetched == nil || !it.query.match(fetched) {
			continue
		}
		*rec = *fetched
		return true
	}
	return false
}

// StreamRecordingSizeAsc calls fn with an iterator over the recording type
// index entries of a place, oldest first.
func (db *DB) StreamRecordingSizeAsc(ctx context.Context, opts StreamRecordingSizes, fn func(context.Context, SizeIterator) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	if opts.PlaceID == uuid.Nil {
		return ErrInvalidRequest.New("place id missing")
	}

	scan := func(set TableSet) EntryIterator {
		table := set.index()
		return newIndexIterator(table, db.store.Scan(ctx, table.selectRecordingSizeAsc(opts.PlaceID, db.limit(opts.BatchSize))))
	}

	var it EntryIterator
	if opts.IncludeFavorites {
		it = Union(Ascending, scan(favoriteTables), scan(standardTables))
	} else {
		it = Difference(Ascending, scan(standardTables), scan(favoriteTables))
	}
	if !opts.IncludeInProgress {
		it = &filterIterator{EntryIterator: it, keep: IndexEntry.Completed}
	}

	return errs.Combine(fn(ctx, it), Error.Wrap(it.Err()), Error.Wrap(it.Close()))
}

// CountByTag returns the number of recordings of a place carrying tag.
func (db *DB) CountByTag(ctx context.Context, place uuid.UUID, tag string) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	sets := []TableSet{favoriteTables}
	if tag != FavoriteTag {
		sets = append(sets, standardTables)
	}

	var total int64
	for _, set := range sets {
		count, err := db.store.Count(ctx, set.index().count(place, fieldTag, tag))
		if err != nil {
			return 0, Error.Wrap(err)
		}
		total += count
	}
	return total, nil
}
