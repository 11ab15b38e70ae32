// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DefaultTTL is used when a recording has no usable expiration.
const DefaultTTL = 30 * 24 * time.Hour

// DefaultExpirationRounding is the granularity expirations and purge times are rounded up to.
const DefaultExpirationRounding = time.Hour

// ExpirationFromTTL returns the expiration of a recording living for ttl after
// its creation, rounded up to the next rounding boundary.
func ExpirationFromTTL(id uuid.UUID, ttl, rounding time.Duration) time.Time {
	return roundUp(CreationTime(id).Add(ttl), rounding)
}

// ActualTTL returns the row ttl for a recording expiring at expiration.
func ActualTTL(id uuid.UUID, expiration time.Time) time.Duration {
	if expiration.IsZero() {
		return DefaultTTL
	}
	ttl := expiration.Sub(CreationTime(id))
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// PurgeTimestamp returns the time a recording deleted at now becomes purgeable.
func PurgeTimestamp(now time.Time, delay, rounding time.Duration) time.Time {
	return roundUp(now.Add(delay), rounding)
}

// PartitionID returns the purge partition of id.
func PartitionID(id uuid.UUID, partitions int) int {
	if partitions <= 0 {
		return 0
	}
	return int(xxhash.Sum64(id[:]) % uint64(partitions))
}

// StartOfDay returns the beginning of the UTC day containing t.
func StartOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// StartOfNextDay returns the beginning of the UTC day after t.
func StartOfNextDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24 * time.Hour)
}

func roundUp(t time.Time, rounding time.Duration) time.Time {
	t = t.UTC()
	if rounding <= 0 {
		return t
	}
	truncated := t.Truncate(rounding)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(rounding)
}
