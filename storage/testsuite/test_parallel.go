// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package testsuite

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/videostore/storage"
)

func testParallel(t *testing.T, store storage.Store) {
	rows := []storage.Row{
		newRow("a", "1"),
		newRow("b", "2"),
		newRow("c", "3"),
	}

	for i := range rows {
		row := rows[i]
		partition := "parallel-" + strconv.Itoa(i)
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			t.Parallel()
			ctx := testcontext.New(t)
			defer cleanupPartition(ctx, store, testTable, partition)

			putRows(ctx, t, store, testTable, partition, row)

			value, err := store.Get(ctx, testTable, storage.Key(partition), row.Clustering)
			require.NoError(t, err)
			require.Equal(t, string(row.Value), string(value))

			next := newRow(string(row.Clustering), string(row.Value)+"X")
			putRows(ctx, t, store, testTable, partition, next)

			checkRows(t, scanRows(ctx, t, store, storage.ScanOptions{
				Table:     testTable,
				Partition: storage.Key(partition),
			}), []storage.Row{next})

			require.NoError(t, store.Apply(ctx, storage.Mutation{
				Table:      testTable,
				Partition:  storage.Key(partition),
				Clustering: row.Clustering,
				Delete:     true,
			}))

			_, err = store.Get(ctx, testTable, storage.Key(partition), row.Clustering)
			require.True(t, storage.ErrKeyNotFound.Has(err), "got %v", err)
		})
	}
}
