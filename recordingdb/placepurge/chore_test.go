// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package placepurge

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingdb"
	"storj.io/videostore/recordingdb/recordingdbtest"
)

func TestPlacePurge(t *testing.T) {
	recordingdbtest.Run(t, func(ctx *testcontext.Context, t *testing.T, db *recordingdb.DB) {
		allPlace, pinnedPlace, camera := uuid.New(), uuid.New(), uuid.New()
		now := time.Now()

		all := []*recordingdb.Recording{
			recordingdbtest.CreateCompletedRecording(ctx, t, db, allPlace, camera, now.Add(-2*time.Second)),
			recordingdbtest.CreateRecording(ctx, t, db, allPlace, camera, now.Add(-time.Second)),
		}
		pinned := recordingdbtest.CreateCompletedRecording(ctx, t, db, pinnedPlace, camera, now.Add(-time.Second))
		unpinned := recordingdbtest.CreateCompletedRecording(ctx, t, db, pinnedPlace, camera, now)
		_, err := db.AddTags(ctx, pinnedPlace, pinned.ID, []string{recordingdb.FavoriteTag}, 0)
		require.NoError(t, err)

		require.NoError(t, db.AddToPurgeAllRecording(ctx, allPlace, now))
		require.NoError(t, db.AddToPurgePinnedRecording(ctx, pinnedPlace, now))

		chore := NewChore(zaptest.NewLogger(t), Config{Enabled: true}, db)

		// directives are due on the next day
		chore.TestingSetNow(func() time.Time { return now })
		require.NoError(t, chore.purgePlaces(ctx))
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: allPlace, ListInProgress: true},
			Result: []uuid.UUID{all[1].ID, all[0].ID},
		}.Check(ctx, t, db)

		chore.TestingSetNow(func() time.Time { return recordingdb.StartOfNextDay(now).Add(time.Hour) })
		require.NoError(t, chore.purgePlaces(ctx))

		recordingdbtest.Query{
			Query: recordingdb.Query{PlaceID: allPlace, ListInProgress: true},
		}.Check(ctx, t, db)
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: allPlace, ListInProgress: true, ListDeleted: true},
			Result: []uuid.UUID{all[1].ID, all[0].ID},
		}.Check(ctx, t, db)

		recordingdbtest.VerifyClass{
			Place: pinnedPlace,
			ID:    pinned.ID,
			Class: recordingdbtest.Class(recordingdb.Standard),
		}.Check(ctx, t, db)
		recordingdbtest.Query{
			Query:  recordingdb.Query{PlaceID: pinnedPlace},
			Result: []uuid.UUID{unpinned.ID, pinned.ID},
		}.Check(ctx, t, db)

		records, err := db.GetPlacePurgeRecordingNoLaterThan(ctx, recordingdb.StartOfNextDay(now))
		require.NoError(t, err)
		require.Empty(t, records)
	})
}
