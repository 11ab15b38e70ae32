// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var mon = monkit.Package()

var (
	// Error is the default storage error class.
	Error = errs.Class("storage")

	// ErrKeyNotFound used when something doesn't exist.
	ErrKeyNotFound = errs.Class("key not found")

	// ErrEmptyKey is returned when an empty partition key is used.
	ErrEmptyKey = errs.Class("empty key")

	// ErrInvalidMutation is returned when a mutation cannot be applied.
	ErrInvalidMutation = errs.Class("invalid mutation")
)

// DefaultPageSize is the number of rows fetched per round trip when
// ScanOptions.PageSize is not set.
const DefaultPageSize = 100

// Key is the type for partition and clustering keys in a `Store`.
type Key []byte

// Value is the type for the values in a `Store`.
type Value []byte

// Table names a logical wide-row table.
type Table string

// Row is a single clustering row within a partition.
type Row struct {
	Clustering Key
	Value      Value
}

// Mutation is a single write against a table.
//
// A mutation with Delete set and an empty Clustering key removes the whole partition.
type Mutation struct {
	Table      Table
	Partition  Key
	Clustering Key
	Value      Value
	// TTL is the time the row stays visible, zero means forever.
	TTL    time.Duration
	Delete bool
}

// Verify checks whether the mutation can be applied.
func (m Mutation) Verify() error {
	switch {
	case m.Table == "":
		return ErrInvalidMutation.New("table missing")
	case m.Partition.IsZero():
		return ErrEmptyKey.New("table %q", m.Table)
	case !m.Delete && m.Clustering.IsZero():
		return ErrInvalidMutation.New("write without clustering key in table %q", m.Table)
	case m.TTL < 0:
		return ErrInvalidMutation.New("negative ttl in table %q", m.Table)
	}
	return nil
}

// ScanOptions describes a range of rows within a single partition.
//
// First and Last are inclusive bounds, nil means unbounded. Both are
// restricted to Prefix when it is set.
type ScanOptions struct {
	Table     Table
	Partition Key
	Prefix    Key
	First     Key
	Last      Key
	Reverse   bool
	// PageSize is the number of rows fetched in a single round trip.
	PageSize int
}

// Bounds returns the half-open interval [lo, hi) of clustering keys
// selected by opts. A nil hi means there is no upper bound.
func (opts ScanOptions) Bounds() (lo, hi Key) {
	lo = opts.Prefix
	if opts.First != nil && bytes.Compare(opts.First, lo) > 0 {
		lo = opts.First
	}

	if opts.Prefix != nil {
		hi = PrefixLimit(opts.Prefix)
	}
	if opts.Last != nil {
		last := NextKey(opts.Last)
		if hi == nil || bytes.Compare(last, hi) < 0 {
			hi = last
		}
	}
	return lo, hi
}

// PageLimit returns the effective page size.
func (opts ScanOptions) PageLimit() int {
	if opts.PageSize <= 0 {
		return DefaultPageSize
	}
	return opts.PageSize
}

// Store describes wide-row stores like cassandra, redis and boltdb.
type Store interface {
	// Apply executes all mutations as a single batch.
	Apply(ctx context.Context, mutations ...Mutation) error
	// Get returns the value of a single row.
	Get(ctx context.Context, table Table, partition, clustering Key) (Value, error)
	// Scan returns a cursor over the rows selected by opts.
	Scan(ctx context.Context, opts ScanOptions) Cursor
	// Count returns the number of rows selected by opts.
	Count(ctx context.Context, opts ScanOptions) (int64, error)
	// Close closes the store.
	Close() error
}

// IsZero returns true if the value struct is a zero value.
func (value Value) IsZero() bool {
	return len(value) == 0
}

// IsZero returns true if the key struct is a zero value.
func (key Key) IsZero() bool {
	return len(key) == 0
}

// Less returns whether key should be sorted before b.
func (key Key) Less(b Key) bool { return bytes.Compare(key, b) < 0 }

// Equal returns whether key and b are equal.
func (key Key) Equal(b Key) bool { return bytes.Equal(key, b) }

// String implements the Stringer interface.
func (key Key) String() string { return string(key) }

// InRange returns whether key is inside the half-open interval [lo, hi).
func InRange(key, lo, hi Key) bool {
	if bytes.Compare(key, lo) < 0 {
		return false
	}
	return hi == nil || bytes.Compare(key, hi) < 0
}
