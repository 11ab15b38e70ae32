// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/common/testcontext"
	"storj.io/videostore/storage"
)

func sliceFetch(rows []storage.Row, calls *int) storage.FetchFunc {
	return func(ctx context.Context, lo, hi storage.Key, reverse bool, limit int) ([]storage.Row, error) {
		*calls++
		var out []storage.Row
		if reverse {
			for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
				if storage.InRange(rows[i].Clustering, lo, hi) {
					out = append(out, rows[i])
				}
			}
			return out, nil
		}
		for i := 0; i < len(rows) && len(out) < limit; i++ {
			if storage.InRange(rows[i].Clustering, lo, hi) {
				out = append(out, rows[i])
			}
		}
		return out, nil
	}
}

func collect(ctx context.Context, t *testing.T, cursor storage.Cursor) []string {
	var keys []string
	var row storage.Row
	for cursor.Next(ctx, &row) {
		keys = append(keys, string(row.Clustering))
	}
	require.NoError(t, cursor.Err())
	require.NoError(t, cursor.Close())
	return keys
}

func TestPagedCursor(t *testing.T) {
	ctx := testcontext.New(t)

	var rows []storage.Row
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		rows = append(rows, storage.Row{Clustering: storage.Key(k), Value: storage.Value(k)})
	}

	t.Run("forward", func(t *testing.T) {
		calls := 0
		cursor := storage.NewPagedCursor(storage.ScanOptions{PageSize: 3}, sliceFetch(rows, &calls))
		require.Zero(t, calls)
		require.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, collect(ctx, t, cursor))
		require.Equal(t, 3, calls)
	})

	t.Run("reverse bounded", func(t *testing.T) {
		calls := 0
		cursor := storage.NewPagedCursor(storage.ScanOptions{
			First:    storage.Key("b"),
			Last:     storage.Key("f"),
			Reverse:  true,
			PageSize: 2,
		}, sliceFetch(rows, &calls))
		require.Equal(t, []string{"f", "e", "d", "c", "b"}, collect(ctx, t, cursor))
		require.Equal(t, 3, calls)
	})

	t.Run("lazy", func(t *testing.T) {
		calls := 0
		cursor := storage.NewPagedCursor(storage.ScanOptions{PageSize: 2}, sliceFetch(rows, &calls))
		var row storage.Row
		require.True(t, cursor.Next(ctx, &row))
		require.True(t, cursor.Next(ctx, &row))
		require.Equal(t, 1, calls)
		require.True(t, cursor.Next(ctx, &row))
		require.Equal(t, 2, calls)
		require.NoError(t, cursor.Close())
		require.False(t, cursor.Next(ctx, &row))
	})

	t.Run("exact page", func(t *testing.T) {
		calls := 0
		cursor := storage.NewPagedCursor(storage.ScanOptions{PageSize: 7}, sliceFetch(rows, &calls))
		require.Len(t, collect(ctx, t, cursor), 7)
		require.Equal(t, 2, calls)
	})

	t.Run("error", func(t *testing.T) {
		failure := errors.New("failure")
		cursor := storage.NewPagedCursor(storage.ScanOptions{}, func(context.Context, storage.Key, storage.Key, bool, int) ([]storage.Row, error) {
			return nil, failure
		})
		var row storage.Row
		require.False(t, cursor.Next(ctx, &row))
		require.ErrorIs(t, cursor.Err(), failure)

		count, err := storage.CountRows(ctx, storage.ErrorCursor(failure))
		require.Zero(t, count)
		require.ErrorIs(t, err, failure)
	})
}
