// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdbtest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingdb"
)

func checkError(t require.TestingT, err error, errClass *errs.Class, errText string) {
	if errClass != nil {
		require.True(t, errClass.Has(err), "expected an error %v got %v", *errClass, err)
	}
	if errText != "" {
		require.EqualError(t, err, errClass.New(errText).Error())
	}
	if errClass == nil && errText == "" {
		require.NoError(t, err)
	}
}

// DefaultTimeDiff is the default time difference option for cmp.
func DefaultTimeDiff() cmp.Option {
	return cmpopts.EquateApproxTime(time.Millisecond)
}

// Insert is for testing recordingdb.Insert.
type Insert struct {
	Recording *recordingdb.Recording

	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test.
func (step Insert) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	err := db.Insert(ctx, step.Recording)
	checkError(t, err, step.ErrClass, step.ErrText)
}

// Complete is for testing recordingdb.Complete.
type Complete struct {
	Place    uuid.UUID
	ID       uuid.UUID
	Duration time.Duration
	Size     int64
	TTL      time.Duration

	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test.
func (step Complete) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	err := db.Complete(ctx, step.Place, step.ID, step.Duration, step.Size, step.TTL)
	checkError(t, err, step.ErrClass, step.ErrText)
}

// AddTags is for testing recordingdb.AddTags.
type AddTags struct {
	Place uuid.UUID
	ID    uuid.UUID
	Tags  []string
	TTL   time.Duration

	Result   []string
	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test.
func (step AddTags) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	result, err := db.AddTags(ctx, step.Place, step.ID, step.Tags, step.TTL)
	checkError(t, err, step.ErrClass, step.ErrText)

	diff := cmp.Diff(step.Result, result, cmpopts.EquateEmpty())
	require.Zero(t, diff)
}

// RemoveTags is for testing recordingdb.RemoveTags.
type RemoveTags struct {
	Place uuid.UUID
	ID    uuid.UUID
	Tags  []string

	Result   []string
	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test.
func (step RemoveTags) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	result, err := db.RemoveTags(ctx, step.Place, step.ID, step.Tags)
	checkError(t, err, step.ErrClass, step.ErrText)

	diff := cmp.Diff(step.Result, result, cmpopts.EquateEmpty())
	require.Zero(t, diff)
}

// Delete is for testing recordingdb.Delete.
type Delete struct {
	Place      uuid.UUID
	ID         uuid.UUID
	IsFavorite bool
	PurgeTime  time.Time
	Partition  int

	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test.
func (step Delete) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	err := db.Delete(ctx, step.Place, step.ID, step.IsFavorite, step.PurgeTime, step.Partition)
	checkError(t, err, step.ErrClass, step.ErrText)
}

// Query is for testing recordingdb.Query.
type Query struct {
	Query recordingdb.Query

	Result    []uuid.UUID
	NextToken string
	ErrClass  *errs.Class
	ErrText   string
}

// Check runs the test.
func (step Query) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	result, err := db.Query(ctx, step.Query)
	checkError(t, err, step.ErrClass, step.ErrText)

	ids := IDs(result.Recordings)
	diff := cmp.Diff(step.Result, ids, cmpopts.EquateEmpty())
	require.Zero(t, diff)
	require.Equal(t, step.NextToken, result.NextToken)
}

// FindByPlaceAndID is for testing recordingdb.FindByPlaceAndID.
type FindByPlaceAndID struct {
	Place uuid.UUID
	ID    uuid.UUID

	Result   *recordingdb.Recording
	ErrClass *errs.Class
	ErrText  string
}

// Check runs the test and returns the found recording.
func (step FindByPlaceAndID) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) *recordingdb.Recording {
	result, err := db.FindByPlaceAndID(ctx, step.Place, step.ID)
	checkError(t, err, step.ErrClass, step.ErrText)

	if step.Result != nil {
		diff := cmp.Diff(step.Result, result, DefaultTimeDiff(), cmpopts.EquateEmpty())
		require.Zero(t, diff)
	}
	return result
}

// VerifyClass checks which table set holds a recording.
type VerifyClass struct {
	Place uuid.UUID
	ID    uuid.UUID

	// Class is nil when the recording must not exist in either set.
	Class *recordingdb.StorageClass
}

// Check runs the test.
func (step VerifyClass) Check(ctx *testcontext.Context, t testing.TB, db *recordingdb.DB) {
	raw, err := db.TestingGetRecording(ctx, step.Place, step.ID)
	require.NoError(t, err)

	if step.Class == nil {
		require.Empty(t, raw.Metadata)
		require.Empty(t, raw.Frames)
		require.Empty(t, raw.Index)
		return
	}

	require.Len(t, raw.Metadata, 1)
	require.Contains(t, raw.Metadata, *step.Class)
	for _, entry := range raw.Index {
		require.Equal(t, *step.Class, entry.Class, "index entry %s=%s", entry.Field, entry.Value)
	}
	for class := range raw.Frames {
		require.Equal(t, *step.Class, class)
	}
}

// Class returns a pointer to class for use in VerifyClass.
func Class(class recordingdb.StorageClass) *recordingdb.StorageClass {
	return &class
}
