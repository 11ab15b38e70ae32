// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package recordingevents publishes recording lifecycle events.
package recordingevents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	// Error is the error class of this package.
	Error = errs.Class("recordingevents")

	mon = monkit.Package()
)

// Config contains configurable values for event publishing.
type Config struct {
	Address string `help:"redis url events are published to, empty disables publishing" default:""`
	Channel string `help:"redis channel events are published on" default:"recording-events"`
}

// EventType names a recording event.
type EventType string

// EventDeleted is sent when a recording has been purged.
const EventDeleted EventType = "recording:Deleted"

// Event is a single recording event.
type Event struct {
	Type        EventType `json:"type"`
	PlaceID     uuid.UUID `json:"placeId"`
	RecordingID uuid.UUID `json:"recordingId"`
	Time        time.Time `json:"time"`
}

// Publisher sends recording events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Open returns the publisher described by config.
func Open(ctx context.Context, log *zap.Logger, config Config) (Publisher, error) {
	if config.Address == "" {
		log.Info("recording events disabled")
		return NopPublisher{}, nil
	}

	options, err := redis.ParseURL(config.Address)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Combine(Error.New("ping failed: %v", err), client.Close())
	}
	return NewRedisPublisher(log, client, config.Channel), nil
}

// RedisPublisher publishes JSON encoded events on a redis channel.
type RedisPublisher struct {
	log     *zap.Logger
	client  *redis.Client
	channel string
}

// NewRedisPublisher returns a publisher using client. The publisher owns client.
func NewRedisPublisher(log *zap.Logger, client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		log:     log,
		client:  client,
		channel: channel,
	}
}

// Publish sends event.
func (publisher *RedisPublisher) Publish(ctx context.Context, event Event) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(event)
	if err != nil {
		return Error.Wrap(err)
	}

	receivers, err := publisher.client.Publish(ctx, publisher.channel, data).Result()
	if err != nil {
		mon.Counter("event_publish_failed").Inc(1)
		return Error.Wrap(err)
	}

	publisher.log.Debug("published event",
		zap.String("type", string(event.Type)),
		zap.Stringer("place", event.PlaceID),
		zap.Stringer("recording", event.RecordingID),
		zap.Int64("receivers", receivers))
	return nil
}

// Close closes the redis client.
func (publisher *RedisPublisher) Close() error {
	return Error.Wrap(publisher.client.Close())
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
