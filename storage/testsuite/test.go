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

// RunTests runs common storage.Store tests.
func RunTests(t *testing.T, store storage.Store) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, store) })
	t.Run("Constraints", func(t *testing.T) { testConstraints(t, store) })
	t.Run("Scan", func(t *testing.T) { testScan(t, store) })
	t.Run("Paging", func(t *testing.T) { testPaging(t, store) })
	t.Run("Isolation", func(t *testing.T) { testIsolation(t, store) })
	t.Run("DeletePartition", func(t *testing.T) { testDeletePartition(t, store) })
	t.Run("Expiration", func(t *testing.T) { testExpiration(t, store) })
	t.Run("Parallel", func(t *testing.T) { testParallel(t, store) })
}

func testCRUD(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "crud")

	putRows(ctx, t, store, testTable, "crud", newRow("a", "1"), newRow("b", "2"))

	value, err := store.Get(ctx, testTable, storage.Key("crud"), storage.Key("a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(value))

	putRows(ctx, t, store, testTable, "crud", newRow("a", "updated"))
	value, err = store.Get(ctx, testTable, storage.Key("crud"), storage.Key("a"))
	require.NoError(t, err)
	require.Equal(t, "updated", string(value))

	require.NoError(t, store.Apply(ctx, storage.Mutation{
		Table:      testTable,
		Partition:  storage.Key("crud"),
		Clustering: storage.Key("a"),
		Delete:     true,
	}))

	_, err = store.Get(ctx, testTable, storage.Key("crud"), storage.Key("a"))
	require.True(t, storage.ErrKeyNotFound.Has(err), "got %v", err)

	value, err = store.Get(ctx, testTable, storage.Key("crud"), storage.Key("b"))
	require.NoError(t, err)
	require.Equal(t, "2", string(value))

	// deleting a missing row is not an error
	require.NoError(t, store.Apply(ctx, storage.Mutation{
		Table:      testTable,
		Partition:  storage.Key("crud"),
		Clustering: storage.Key("missing"),
		Delete:     true,
	}))

	// empty values are allowed
	putRows(ctx, t, store, testTable, "crud", newRow("empty", ""))
	value, err = store.Get(ctx, testTable, storage.Key("crud"), storage.Key("empty"))
	require.NoError(t, err)
	require.Empty(t, value)
}

func testConstraints(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "constraints")

	valid := storage.Mutation{
		Table:      testTable,
		Partition:  storage.Key("constraints"),
		Clustering: storage.Key("valid"),
		Value:      storage.Value("x"),
	}

	err := store.Apply(ctx, valid, storage.Mutation{
		Table:      testTable,
		Clustering: storage.Key("a"),
	})
	require.True(t, storage.ErrEmptyKey.Has(err), "got %v", err)

	err = store.Apply(ctx, valid, storage.Mutation{
		Table:     testTable,
		Partition: storage.Key("constraints"),
	})
	require.True(t, storage.ErrInvalidMutation.Has(err), "got %v", err)

	err = store.Apply(ctx, valid, storage.Mutation{
		Partition:  storage.Key("constraints"),
		Clustering: storage.Key("a"),
	})
	require.True(t, storage.ErrInvalidMutation.Has(err), "got %v", err)

	err = store.Apply(ctx, valid, storage.Mutation{
		Table:      testTable,
		Partition:  storage.Key("constraints"),
		Clustering: storage.Key("a"),
		TTL:        -time.Second,
	})
	require.True(t, storage.ErrInvalidMutation.Has(err), "got %v", err)

	// rejected batches must not be applied partially
	_, err = store.Get(ctx, testTable, storage.Key("constraints"), storage.Key("valid"))
	require.True(t, storage.ErrKeyNotFound.Has(err), "got %v", err)

	_, err = store.Get(ctx, testTable, nil, storage.Key("valid"))
	require.True(t, storage.ErrEmptyKey.Has(err), "got %v", err)

	cursor := store.Scan(ctx, storage.ScanOptions{Table: testTable})
	var row storage.Row
	require.False(t, cursor.Next(ctx, &row))
	require.True(t, storage.ErrEmptyKey.Has(cursor.Err()), "got %v", cursor.Err())
	require.NoError(t, cursor.Close())

	require.NoError(t, store.Apply(ctx))
}

func testScan(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "scan")

	all := []storage.Row{
		newRow("a", "a"),
		newRow("b/1", "b/1"),
		newRow("b/2", "b/2"),
		newRow("b/3", "b/3"),
		newRow("c", "c"),
		newRow("c/", "c/"),
		newRow("c//", "c//"),
		newRow("c/1", "c/1"),
		newRow("g", "g"),
		newRow("h", "h"),
	}
	putRows(ctx, t, store, testTable, "scan", reversed(all)...)

	tests := []struct {
		Name     string
		Prefix   string
		First    string
		Last     string
		Expected []storage.Row
	}{
		{"no limits", "", "", "", all},
		{"first", "", "c", "", all[4:]},
		{"last", "", "", "c/", all[:6]},
		{"first and last", "", "b/2", "c//", all[2:7]},
		{"first after last", "", "g", "c", nil},
		{"prefix", "b/", "", "", all[1:4]},
		{"prefix first", "b/", "b/2", "", all[2:4]},
		{"prefix last", "c/", "", "c//", all[5:7]},
		{"prefix first outside", "c/", "a", "", all[5:8]},
		{"prefix missing", "d", "", "", nil},
		{"exact", "", "g", "g", all[8:9]},
	}

	for _, test := range tests {
		opts := storage.ScanOptions{
			Table:     testTable,
			Partition: storage.Key("scan"),
		}
		if test.Prefix != "" {
			opts.Prefix = storage.Key(test.Prefix)
		}
		if test.First != "" {
			opts.First = storage.Key(test.First)
		}
		if test.Last != "" {
			opts.Last = storage.Key(test.Last)
		}

		checkRows(t, scanRows(ctx, t, store, opts), test.Expected)

		opts.Reverse = true
		checkRows(t, scanRows(ctx, t, store, opts), reversed(test.Expected))

		count, err := store.Count(ctx, opts)
		require.NoError(t, err, test.Name)
		require.EqualValues(t, len(test.Expected), count, test.Name)
	}
}

func testPaging(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "paging")

	var rows []storage.Row
	for i := 0; i < 25; i++ {
		key := string([]byte{'k', byte('a' + i)})
		rows = append(rows, newRow(key, key))
	}
	putRows(ctx, t, store, testTable, "paging", rows...)

	for _, pageSize := range []int{1, 2, 5, 24, 25, 26, 0} {
		opts := storage.ScanOptions{
			Table:     testTable,
			Partition: storage.Key("paging"),
			PageSize:  pageSize,
		}
		checkRows(t, scanRows(ctx, t, store, opts), rows)

		opts.Reverse = true
		checkRows(t, scanRows(ctx, t, store, opts), reversed(rows))

		opts.First, opts.Last = storage.Key("kc"), storage.Key("kq")
		checkRows(t, scanRows(ctx, t, store, opts), reversed(rows[2:17]))
	}

	// stopping early
	cursor := store.Scan(ctx, storage.ScanOptions{
		Table:     testTable,
		Partition: storage.Key("paging"),
		PageSize:  3,
	})
	var row storage.Row
	for i := 0; i < 4; i++ {
		require.True(t, cursor.Next(ctx, &row))
	}
	require.Equal(t, "kd", string(row.Clustering))
	require.NoError(t, cursor.Close())
	require.False(t, cursor.Next(ctx, &row))
}

func testIsolation(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	const otherTable = storage.Table("testsuite_other")
	defer cleanupPartition(ctx, store, testTable, "iso")
	defer cleanupPartition(ctx, store, testTable, "iso2")
	defer cleanupPartition(ctx, store, otherTable, "iso")

	putRows(ctx, t, store, testTable, "iso", newRow("a", "1"))
	putRows(ctx, t, store, testTable, "iso2", newRow("a", "2"), newRow("b", "2"))
	putRows(ctx, t, store, otherTable, "iso", newRow("a", "3"), newRow("c", "3"))

	checkRows(t, scanRows(ctx, t, store, storage.ScanOptions{
		Table:     testTable,
		Partition: storage.Key("iso"),
	}), []storage.Row{newRow("a", "1")})

	checkRows(t, scanRows(ctx, t, store, storage.ScanOptions{
		Table:     otherTable,
		Partition: storage.Key("iso"),
	}), []storage.Row{newRow("a", "3"), newRow("c", "3")})

	// a partition that is a prefix of another must not see its rows
	count, err := store.Count(ctx, storage.ScanOptions{
		Table:     testTable,
		Partition: storage.Key("iso"),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = store.Get(ctx, otherTable, storage.Key("iso2"), storage.Key("a"))
	require.True(t, storage.ErrKeyNotFound.Has(err), "got %v", err)
}

func testDeletePartition(t *testing.T, store storage.Store) {
	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "del")
	defer cleanupPartition(ctx, store, testTable, "keep")

	putRows(ctx, t, store, testTable, "del", newRow("a", "1"), newRow("b", "2"), newRow("c", "3"))
	putRows(ctx, t, store, testTable, "keep", newRow("a", "1"))

	require.NoError(t, store.Apply(ctx,
		storage.Mutation{Table: testTable, Partition: storage.Key("del"), Delete: true},
		storage.Mutation{Table: testTable, Partition: storage.Key("del"), Clustering: storage.Key("z"), Value: storage.Value("after")},
	))

	checkRows(t, scanRows(ctx, t, store, storage.ScanOptions{
		Table:     testTable,
		Partition: storage.Key("del"),
	}), []storage.Row{newRow("z", "after")})

	checkRows(t, scanRows(ctx, t, store, storage.ScanOptions{
		Table:     testTable,
		Partition: storage.Key("keep"),
	}), []storage.Row{newRow("a", "1")})
}

func testExpiration(t *testing.T, store storage.Store) {
	setter, ok := store.(nowSetter)
	if !ok {
		t.Skip("store does not support changing the current time")
	}

	ctx := testcontext.New(t)
	defer cleanupPartition(ctx, store, testTable, "ttl")

	now := time.Now()
	setter.TestingSetNow(func() time.Time { return now })
	defer setter.TestingSetNow(time.Now)

	require.NoError(t, store.Apply(ctx,
		storage.Mutation{Table: testTable, Partition: storage.Key("ttl"), Clustering: storage.Key("a"), Value: storage.Value("short"), TTL: time.Hour},
		storage.Mutation{Table: testTable, Partition: storage.Key("ttl"), Clustering: storage.Key("b"), Value: storage.Value("forever")},
		storage.Mutation{Table: testTable, Partition: storage.Key("ttl"), Clustering: storage.Key("c"), Value: storage.Value("long"), TTL: 3 * time.Hour},
	))

	opts := storage.ScanOptions{Table: testTable, Partition: storage.Key("ttl")}
	checkRows(t, scanRows(ctx, t, store, opts), []storage.Row{
		newRow("a", "short"), newRow("b", "forever"), newRow("c", "long"),
	})

	setter.TestingSetNow(func() time.Time { return now.Add(2 * time.Hour) })

	_, err := store.Get(ctx, testTable, storage.Key("ttl"), storage.Key("a"))
	require.True(t, storage.ErrKeyNotFound.Has(err), "got %v", err)

	checkRows(t, scanRows(ctx, t, store, opts), []storage.Row{
		newRow("b", "forever"), newRow("c", "long"),
	})

	opts.Reverse, opts.PageSize = true, 1
	checkRows(t, scanRows(ctx, t, store, opts), []storage.Row{
		newRow("c", "long"), newRow("b", "forever"),
	})

	count, err := store.Count(ctx, opts)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// rewriting an expired row makes it visible again
	require.NoError(t, store.Apply(ctx, storage.Mutation{
		Table: testTable, Partition: storage.Key("ttl"), Clustering: storage.Key("a"), Value: storage.Value("again"), TTL: time.Hour,
	}))
	value, err := store.Get(ctx, testTable, storage.Key("ttl"), storage.Key("a"))
	require.NoError(t, err)
	require.Equal(t, "again", string(value))
}
