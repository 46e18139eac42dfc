package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/channels/gochannel"
	"github.com/leadflowhq/leadflow/pkg/eventbus"
	"github.com/leadflowhq/leadflow/pkg/events"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.LeadTagAddedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.LeadTagAdded{
		BaseEvent: events.NewBaseEvent(events.LeadTagAddedEvent),
		LeadID:    "lead-1",
		Tag:       "vip",
	}
	require.NoError(t, bus.Publish(ctx, "lead-1", sent))

	select {
	case event := <-received:
		tagAdded, ok := event.(*events.LeadTagAdded)
		require.True(t, ok)
		assert.Equal(t, "lead-1", tagAdded.LeadID)
		assert.Equal(t, "vip", tagAdded.Tag)
		assert.Equal(t, sent.ID, tagAdded.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestSubscribeIgnoresUnhandledEventTypes(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan any, 2)

	require.NoError(t, bus.Handle(events.PostPublishedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this one: acked and dropped.
	require.NoError(t, bus.Publish(ctx, "lead-1", events.LeadSubscribed{
		BaseEvent: events.NewBaseEvent(events.LeadSubscribedEvent),
		LeadID:    "lead-1",
	}))

	require.NoError(t, bus.Publish(ctx, "post", events.PostPublished{
		BaseEvent: events.NewBaseEvent(events.PostPublishedEvent),
		PostTitle: "Novo artigo",
		PostURL:   "https://blog.example.com/novo",
	}))

	select {
	case event := <-received:
		published, ok := event.(*events.PostPublished)
		require.True(t, ok)
		assert.Equal(t, "Novo artigo", published.PostTitle)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Empty(t, received)
}

func TestGenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
