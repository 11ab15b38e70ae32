// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingevents_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/common/testcontext"
	"storj.io/videostore/recordingevents"
)

func TestRedisPublisher(t *testing.T) {
	ctx := testcontext.New(t)

	server := miniredis.RunT(t)

	publisher, err := recordingevents.Open(ctx, zaptest.NewLogger(t), recordingevents.Config{
		Address: "redis://" + server.Addr(),
		Channel: "events",
	})
	require.NoError(t, err)
	defer ctx.Check(publisher.Close)

	// miniredis only records messages for channels with a subscriber
	conn := server.NewSubscriber()
	defer conn.Close()
	conn.Subscribe("events")

	event := recordingevents.Event{
		Type:        recordingevents.EventDeleted,
		PlaceID:     uuid.New(),
		RecordingID: uuid.New(),
		Time:        time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case message := <-conn.Messages():
		require.Equal(t, "events", message.Channel)

		var received recordingevents.Event
		require.NoError(t, json.Unmarshal([]byte(message.Message), &received))
		require.Equal(t, event.Type, received.Type)
		require.Equal(t, event.PlaceID, received.PlaceID)
		require.Equal(t, event.RecordingID, received.RecordingID)
		require.True(t, event.Time.Equal(received.Time))
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestOpenDisabled(t *testing.T) {
	ctx := testcontext.New(t)

	publisher, err := recordingevents.Open(ctx, zaptest.NewLogger(t), recordingevents.Config{})
	require.NoError(t, err)
	require.IsType(t, recordingevents.NopPublisher{}, publisher)
	require.NoError(t, publisher.Publish(ctx, recordingevents.Event{Type: recordingevents.EventDeleted}))
	require.NoError(t, publisher.Close())
}

func TestOpenUnreachable(t *testing.T) {
	ctx := testcontext.New(t)

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := recordingevents.Open(ctx, zaptest.NewLogger(t), recordingevents.Config{Address: "redis://" + addr})
	require.Error(t, err)
	require.True(t, recordingevents.Error.Has(err))
}
