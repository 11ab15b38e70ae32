// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRecordingID(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)

	for _, stream := range []bool{false, true} {
		id, err := NewRecordingID(now, stream)
		require.NoError(t, err)

		require.Equal(t, stream, IsStreamID(id))
		require.Equal(t, now, CreationTime(id))
		require.EqualValues(t, 7, id.Version())

		require.True(t, compareIDs(MinID(now), id) <= 0)
		require.True(t, compareIDs(id, MaxID(now)) <= 0)
	}
}

func TestRecordingIDOrder(t *testing.T) {
	now := time.Now()

	older, err := NewRecordingID(now.Add(-time.Second), true)
	require.NoError(t, err)
	newer, err := NewRecordingID(now, false)
	require.NoError(t, err)

	require.Equal(t, -1, compareIDs(older, newer))
	require.Equal(t, 1, compareIDs(newer, older))
	require.Equal(t, 0, compareIDs(newer, newer))

	require.True(t, Descending.before(newer, older))
	require.True(t, Ascending.before(older, newer))

	require.Equal(t, -1, compareIDs(MaxID(now.Add(-time.Millisecond)), MinID(now)))
}
