// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

import (
	"context"

	"github.com/zeebo/errs"
)

// Cursor iterates over the rows selected by a scan.
type Cursor interface {
	// Next loads the next row into row and returns false when there are no
	// more rows or the cursor failed.
	Next(ctx context.Context, row *Row) bool
	// Err returns the error that stopped the iteration.
	Err() error
	// Close releases the resources held by the cursor.
	Close() error
}

// FetchFunc returns up to limit rows whose clustering key is in [lo, hi),
// ordered descending when reverse is set. The returned rows must not be
// modified by the store afterwards.
type FetchFunc func(ctx context.Context, lo, hi Key, reverse bool, limit int) ([]Row, error)

// NewPagedCursor returns a cursor that loads opts.PageLimit() rows at a
// time using fetch. Nothing is fetched until the first call to Next.
func NewPagedCursor(opts ScanOptions, fetch FetchFunc) Cursor {
	lo, hi := opts.Bounds()
	return &pagedCursor{
		fetch:   fetch,
		lo:      lo,
		hi:      hi,
		reverse: opts.Reverse,
		limit:   opts.PageLimit(),
	}
}

type pagedCursor struct {
	fetch   FetchFunc
	lo, hi  Key
	reverse bool
	limit   int

	page    []Row
	index   int
	fetched bool
	last    bool

	err    error
	closed bool
}

// Next implements Cursor.
func (cursor *pagedCursor) Next(ctx context.Context, row *Row) bool {
	if cursor.err != nil || cursor.closed {
		return false
	}

	for cursor.index >= len(cursor.page) {
		if cursor.last {
			return false
		}
		if !cursor.nextPage(ctx) {
			return false
		}
	}

	*row = cursor.page[cursor.index]
	cursor.index++
	return true
}

func (cursor *pagedCursor) nextPage(ctx context.Context) bool {
	if cursor.fetched && len(cursor.page) > 0 {
		previous := cursor.page[len(cursor.page)-1].Clustering
		if cursor.reverse {
			cursor.hi = CloneKey(previous)
		} else {
			cursor.lo = NextKey(previous)
		}
	}
	if cursor.hi != nil && !cursor.lo.Less(cursor.hi) {
		cursor.last = true
		return false
	}

	rows, err := cursor.fetch(ctx, cursor.lo, cursor.hi, cursor.reverse, cursor.limit)
	if err != nil {
		cursor.err = err
		return false
	}

	cursor.fetched = true
	cursor.page, cursor.index = rows, 0
	cursor.last = len(rows) < cursor.limit
	return len(rows) > 0
}

// Err implements Cursor.
func (cursor *pagedCursor) Err() error { return cursor.err }

// Close implements Cursor.
func (cursor *pagedCursor) Close() error {
	cursor.closed = true
	cursor.page = nil
	return nil
}

// ErrorCursor returns a cursor that fails with err.
func ErrorCursor(err error) Cursor { return &errorCursor{err: err} }

type errorCursor struct{ err error }

func (cursor *errorCursor) Next(context.Context, *Row) bool { return false }
func (cursor *errorCursor) Err() error                      { return cursor.err }
func (cursor *errorCursor) Close() error                    { return nil }

// CountRows counts the rows of a cursor and closes it.
func CountRows(ctx context.Context, cursor Cursor) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	var count int64
	var row Row
	for cursor.Next(ctx, &row) {
		count++
	}
	return count, errs.Combine(cursor.Err(), cursor.Close())
}
