// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"storj.io/videostore/storage"
)

// RawIndexEntry is an index row pointing at a recording.
type RawIndexEntry struct {
	Class StorageClass
	Field string
	Value string
	Size  int64
}

// RawRecording is the stored state of a recording in both table sets.
type RawRecording struct {
	Metadata map[StorageClass]*Recording
	Frames   map[StorageClass]int
	Index    []RawIndexEntry
}

// TestingGetRecording returns every row stored for a recording.
func (db *DB) TestingGetRecording(ctx context.Context, place, id uuid.UUID) (_ *RawRecording, err error) {
	defer mon.Task()(&ctx)(&err)

	raw := &RawRecording{
		Metadata: map[StorageClass]*Recording{},
		Frames:   map[StorageClass]int{},
	}

	for _, set := range []TableSet{standardTables, favoriteTables} {
		rec, _, err := db.loadRecording(ctx, set, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			raw.Metadata[set.Class] = rec
		}

		frames, err := db.store.Count(ctx, set.recording().selectRecording(id))
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if frames > 0 {
			raw.Frames[set.Class] = int(frames)
		}

		index := set.index()
		for _, field := range []string{fieldCamera, fieldTag, fieldType, fieldDeleted} {
			rows, err := db.readAll(ctx, storage.ScanOptions{
				Table:     set.Index,
				Partition: indexPartition(place, field),
			})
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				entry, err := index.decode(row)
				if err != nil {
					return nil, err
				}
				if entry.RecordingID != id {
					continue
				}
				raw.Index = append(raw.Index, RawIndexEntry{
					Class: set.Class,
					Field: field,
					Value: storage.NewKeyReader(row.Clustering).ReadString(),
					Size:  entry.Size,
				})
			}
		}
	}

	sort.Slice(raw.Index, func(i, j int) bool {
		a, b := raw.Index[i], raw.Index[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Value < b.Value
	})
	return raw, nil
}
