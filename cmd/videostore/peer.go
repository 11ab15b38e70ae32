// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/videostore/recordingdb"
	"storj.io/videostore/recordingdb/placepurge"
	"storj.io/videostore/recordingdb/purgedeletion"
	"storj.io/videostore/recordingevents"
	"storj.io/videostore/storage"
	"storj.io/videostore/videostorage"
)

// Config is the configuration of the videostore process.
type Config struct {
	StoreURL   string `help:"recording store url: memory://, bolt://path, redis://host:port?db=N or cassandra://hosts/keyspace" releaseDefault:"cassandra://localhost:9042/video" devDefault:"bolt://$CONFDIR/recordings.db" testDefault:"memory://"`
	DebugStore bool   `help:"log every store operation" default:"false"`

	RecordingDB   recordingdb.Config
	Storage       videostorage.Config
	Events        recordingevents.Config
	PurgeDeletion purgedeletion.Config
	PlacePurge    placepurge.Config
}

// Peer is the videostore background process.
type Peer struct {
	Log *zap.Logger
	DB  *recordingdb.DB

	Events recordingevents.Publisher

	PurgeDeletion *purgedeletion.Chore
	PlacePurge    *placepurge.Chore
}

// NewPeer wires the services of the process on top of store. The peer owns store.
func NewPeer(ctx context.Context, log *zap.Logger, store storage.Store, config Config) (_ *Peer, err error) {
	peer := &Peer{
		Log: log,
		DB:  recordingdb.New(log.Named("recordingdb"), store, config.RecordingDB),
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, peer.Close())
		}
	}()

	recordings, previews, err := videostorage.Open(log.Named("videostorage"), config.Storage)
	if err != nil {
		return nil, err
	}

	peer.Events, err = recordingevents.Open(ctx, log.Named("events"), config.Events)
	if err != nil {
		return nil, err
	}

	peer.PurgeDeletion = purgedeletion.NewChore(log.Named("purgedeletion"), config.PurgeDeletion, peer.DB, recordings, previews, peer.Events)
	peer.PlacePurge = placepurge.NewChore(log.Named("placepurge"), config.PlacePurge, peer.DB)
	return peer, nil
}

// Run runs the chores until ctx is canceled or one of them fails.
func (peer *Peer) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return peer.PurgeDeletion.Run(ctx) })
	group.Go(func() error { return peer.PlacePurge.Run(ctx) })
	return group.Wait()
}

// Close closes every service of the peer.
func (peer *Peer) Close() error {
	var group errs.Group
	if peer.PurgeDeletion != nil {
		group.Add(peer.PurgeDeletion.Close())
	}
	if peer.PlacePurge != nil {
		group.Add(peer.PlacePurge.Close())
	}
	if peer.Events != nil {
		group.Add(peer.Events.Close())
	}
	group.Add(peer.DB.Close())
	return group.Err()
}
