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

	var seen []string
	d.Subscribe(EventOrderCreated, func(ctx context.Context, e Event) error {
		seen = append(seen, "first:"+e.OrderID)
		return nil
	})
	d.Subscribe(EventOrderCreated, func(ctx context.Context, e Event) error {
		seen = append(seen, "second:"+e.OrderID)
		return nil
	})
	d.Subscribe(EventRefundIssued, func(ctx context.Context, e Event) error {
		seen = append(seen, "refund")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventOrderCreated, OrderID: "o1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first:o1", "second:o1"}, seen)
}

func TestDispatcherContinuesPastHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()

	var called bool
	d.Subscribe(EventEscrowReleased, func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventEscrowReleased, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventEscrowReleased})
	require.NoError(t, err)
	assert.True(t, called)
}
