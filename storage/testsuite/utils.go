// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package testsuite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/videostore/storage"
)

const testTable = storage.Table("testsuite")

// nowSetter is implemented by stores that evaluate row expiration on the client.
type nowSetter interface {
	TestingSetNow(nowFn func() time.Time)
}

func newRow(key, value string) storage.Row {
	return storage.Row{
		Clustering: storage.Key(key),
		Value:      storage.Value(value),
	}
}

func putRows(ctx *testcontext.Context, t testing.TB, store storage.Store, table storage.Table, partition string, rows ...storage.Row) {
	t.Helper()

	var mutations []storage.Mutation
	for _, row := range rows {
		mutations = append(mutations, storage.Mutation{
			Table:      table,
			Partition:  storage.Key(partition),
			Clustering: row.Clustering,
			Value:      row.Value,
		})
	}
	require.NoError(t, store.Apply(ctx, mutations...))
}

func cleanupPartition(ctx *testcontext.Context, store storage.Store, table storage.Table, partition string) {
	_ = store.Apply(ctx, storage.Mutation{
		Table:     table,
		Partition: storage.Key(partition),
		Delete:    true,
	})
}

func scanRows(ctx *testcontext.Context, t testing.TB, store storage.Store, opts storage.ScanOptions) []storage.Row {
	t.Helper()

	cursor := store.Scan(ctx, opts)
	var rows []storage.Row
	var row storage.Row
	for cursor.Next(ctx, &row) {
		rows = append(rows, storage.CloneRow(row))
	}
	require.NoError(t, cursor.Err())
	require.NoError(t, cursor.Close())
	return rows
}

func checkRows(t testing.TB, got, exp []storage.Row) {
	t.Helper()

	gotKeys := make([]string, len(got))
	for i, row := range got {
		gotKeys[i] = string(row.Clustering)
	}
	expKeys := make([]string, len(exp))
	for i, row := range exp {
		expKeys[i] = string(row.Clustering)
	}
	require.Equal(t, expKeys, gotKeys)

	for i := range exp {
		require.Equal(t, string(exp[i].Value), string(got[i].Value), "value of %q", exp[i].Clustering)
	}
}

func reversed(rows []storage.Row) []storage.Row {
	out := make([]storage.Row, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row
	}
	return out
}
