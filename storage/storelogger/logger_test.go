// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storelogger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storj.io/common/testcontext"
	"storj.io/videostore/storage"
	"storj.io/videostore/storage/teststore"
	"storj.io/videostore/storage/testsuite"
)

func TestSuite(t *testing.T) {
	store := teststore.New()
	logged := New(zap.NewNop(), store)
	testsuite.RunTests(t, logged)
}

func TestLogsRows(t *testing.T) {
	ctx := testcontext.New(t)

	core, logs := observer.New(zap.DebugLevel)
	logged := New(zap.New(core), teststore.New())

	require.NoError(t, logged.Apply(ctx, storage.Mutation{
		Table:      "t",
		Partition:  storage.Key("p"),
		Clustering: storage.Key("a"),
		Value:      storage.Value("0123456789abcdef"),
	}))

	count, err := storage.CountRows(ctx, logged.Scan(ctx, storage.ScanOptions{Table: "t", Partition: storage.Key("p")}))
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.Equal(t, 1, logs.FilterMessage("Apply").Len())
	require.Equal(t, 1, logs.FilterMessage("Scan").Len())
	require.Equal(t, 1, logs.FilterMessage("Scan done").Len())
	// one entry for the mutation and one for the scanned row
	require.Equal(t, 2, logs.FilterMessage("  ").Len())
}
