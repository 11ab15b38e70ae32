// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// AddTags adds tags to a recording and returns its resulting tags. Adding
// FavoriteTag moves the recording into the favorite tables.
func (db *DB) AddTags(ctx context.Context, place, id uuid.UUID, tags []string, ttl time.Duration) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	rec, _, err := db.findOwner(ctx, place, id)
	if err != nil {
		return nil, err
	}

	tags = mergeTags(tags, nil)
	if len(tags) == 0 {
		return rec.Tags, nil
	}
	if containsTag(tags, FavoriteTag) && rec.Class == Standard {
		return db.promote(ctx, rec, tags)
	}

	set := Tables(rec.Class)
	expiration := rec.Expiration
	if rec.Class == Standard {
		expiration = db.ExpirationFromTTL(id, ttl)
	}
	rowTTL := ActualTTL(id, expiration)

	mutations := make([]storage.Mutation, 0, 2*len(tags))
	for _, tag := range tags {
		mutations = append(mutations,
			set.metadata().insertTag(id, tag, rowTTL),
			set.index().insertTag(place, tag, id, expiration, rowTTL),
		)
	}
	if err := db.apply(ctx, db.config.MaxBatchSize, mutations); err != nil {
		return nil, err
	}
	return mergeTags(rec.Tags, tags), nil
}

// promote moves a standard recording into the favorite tables.
func (db *DB) promote(ctx context.Context, rec *Recording, tags []string) ([]string, error) {
	log := db.log.With(zap.Stringer("place", rec.PlaceID), zap.Stringer("recording", rec.ID))

	if !rec.DeletionTime.IsZero() && rec.DeletionTime.Before(db.now()) {
		log.Warn("can not add favorite tag to a deleted video", zap.Time("deletion time", rec.DeletionTime))
		return []string{}, nil
	}

	frames, err := db.readAll(ctx, standardTables.recording().selectRecording(rec.ID))
	if err != nil {
		return nil, err
	}

	favorite := *rec
	favorite.Class = Favorited
	favorite.Tags = mergeTags(rec.Tags, tags)

	mutations := writeMutations(favoriteTables, &favorite, 0)
	mutations = append(mutations, copyFrameMutations(favoriteTables, rec.ID, frames, 0)...)
	if !rec.DeletionTime.IsZero() && rec.DeletionPartition >= 0 {
		mutations = append(mutations, deletePurgeEntry(rec.DeletionTime, rec.DeletionPartition, rec.ID))
	}
	mutations = append(mutations, eraseMutations(standardTables, rec)...)

	log.Debug("promoting recording", zap.Int("frames", len(frames)), zap.Int("mutations", len(mutations)))
	mon.Counter("recording_promoted").Inc(1)

	if err := db.apply(ctx, db.config.FavoriteBatchSize, mutations); err != nil {
		return nil, err
	}
	return favorite.Tags, nil
}

// RemoveTags removes tags from a recording and returns its resulting tags.
// Removing FavoriteTag moves the recording back into the standard tables.
func (db *DB) RemoveTags(ctx context.Context, place, id uuid.UUID, tags []string) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	tags = mergeTags(tags, nil)
	if containsTag(tags, FavoriteTag) {
		return db.demote(ctx, place, id, tags)
	}

	metadata, index := standardTables.metadata(), standardTables.index()
	mutations := make([]storage.Mutation, 0, 2*len(tags))
	for _, tag := range tags {
		mutations = append(mutations,
			metadata.deleteTag(id, tag),
			index.deleteTag(place, tag, id),
		)
	}
	if err := db.apply(ctx, db.config.MaxBatchSize, mutations); err != nil {
		return nil, err
	}

	rec, err := db.FindByPlaceAndID(ctx, place, id)
	if err != nil {
		return nil, err
	}
	return rec.Tags, nil
}

// demote moves a favorite back into the standard tables. When its deletion
// time has passed it is only scheduled for purge.
func (db *DB) demote(ctx context.Context, place, id uuid.UUID, tags []string) ([]string, error) {
	log := db.log.With(zap.Stringer("place", place), zap.Stringer("recording", id))

	rec, _, err := db.loadRecording(ctx, favoriteTables, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		log.Warn("can not remove favorite tag from a video that is not a favorite")
		return []string{}, nil
	}
	if rec.PlaceID != place {
		return nil, ErrNotFound.New("place %s, recording %s", place, id)
	}

	purgeAt, copyBack := rec.DeletionTime, true
	if purgeAt.IsZero() || purgeAt.Before(db.now()) {
		purgeAt, copyBack = db.PurgeTimestamp(), false
	}

	mutations, err := db.demoteMutations(ctx, rec, tags, purgeAt, copyBack)
	if err != nil {
		return nil, err
	}

	log.Debug("demoting recording", zap.Bool("copy back", copyBack), zap.Time("purge at", purgeAt))
	mon.Counter("recording_demoted").Inc(1)

	if err := db.apply(ctx, db.config.FavoriteBatchSize, mutations); err != nil {
		return nil, err
	}
	return subtractTags(rec.Tags, tags), nil
}

// demoteMutations removes rec from the favorite tables and schedules its
// purge at purgeAt. With copyBack the recording is written to the standard
// tables without the removed tags.
func (db *DB) demoteMutations(ctx context.Context, rec *Recording, removed []string, purgeAt time.Time, copyBack bool) ([]storage.Mutation, error) {
	id := rec.ID
	partition := rec.DeletionPartition
	if partition < 0 {
		partition = db.PartitionID(id)
	}

	var mutations []storage.Mutation
	if copyBack {
		frames, err := db.readAll(ctx, favoriteTables.recording().selectRecording(id))
		if err != nil {
			return nil, err
		}

		standard := *rec
		standard.Class = Standard
		standard.Tags = subtractTags(rec.Tags, append([]string{FavoriteTag}, removed...))
		standard.DeletionTime = purgeAt
		standard.DeletionPartition = partition

		ttl := ActualTTL(id, rec.Expiration)
		mutations = append(mutations, writeMutations(standardTables, &standard, ttl)...)
		mutations = append(mutations, copyFrameMutations(standardTables, id, frames, ttl)...)
		if rec.Completed {
			recording := standardTables.recording()
			mutations = append(mutations,
				recording.insertFloat(id, headerDuration, rec.Duration.Seconds(), ttl),
				recording.insertInt(id, headerSize, rec.Size, ttl),
			)
		}
	}

	mutations = append(mutations, schedulePurge(purgeAt, partition, id, rec.PlaceID, rec.Location, !rec.Stream)...)
	return append(mutations, eraseMutations(favoriteTables, rec)...), nil
}
