package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "e-1", Type: EventTicketCreated, TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t-1", got[0].TicketID)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventTicketClaimed, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketResolved})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	second := false
	d.Subscribe(EventTicketClaimed, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventTicketClaimed, func(_ context.Context, _ Event) error {
		second = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketClaimed})
	require.NoError(t, err)
	assert.True(t, second)
}
