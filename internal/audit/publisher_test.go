package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/pkg/requestcontext"
)

func TestPublisherEmit_EnrichesFromContext(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	at := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	require.NoError(t, pub.Emit(ctx, Event{
		Action:  ActionRegistrationApproved,
		ActorID: "organizer-1",
		EventID: "E20251116000001",
	}))

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, ActionRegistrationApproved, events[0].Action)
}

func TestPublisherEmit_KeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), Event{
		Action:    ActionEventCreated,
		Timestamp: at,
	}))

	events, err := store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestPublisherAsync_DrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(64))

	ctx := context.Background()
	for range 10 {
		require.NoError(t, pub.Emit(ctx, Event{Action: ActionCheckinRecorded}))
	}
	pub.Close()

	events, err := store.ListRecent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 10, "Close must flush every buffered event")
}

func TestInMemoryStoreListByActor(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{Action: ActionEventCreated, ActorID: "a"}))
	require.NoError(t, store.Append(ctx, Event{Action: ActionEventCancelled, ActorID: "b"}))
	require.NoError(t, store.Append(ctx, Event{Action: ActionEventFinished, ActorID: "a"}))

	events, err := store.ListByActor(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionEventCreated, events[0].Action)
	assert.Equal(t, ActionEventFinished, events[1].Action)
}
