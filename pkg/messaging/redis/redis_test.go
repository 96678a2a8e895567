package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/messaging"
)

func newBroker(t *testing.T) messaging.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	b := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "events")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "events", map[string]string{"hello": "world"}))

	select {
	case raw := <-msgs:
		assert.JSONEq(t, `{"hello":"world"}`, string(raw))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	select {
	case _, open := <-msgs:
		for open {
			_, open = <-msgs
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestBookingEventsRoundTrip(t *testing.T) {
	b := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan model.BookingEvent, 1)
	done := make(chan error, 1)

	// subscribe before publishing so the event is not lost
	msgs, err := b.Subscribe(ctx, model.EventAppointmentBooked)
	require.NoError(t, err)
	go func() {
		done <- messaging.ConsumeBookings(ctx, channelBroker{msgs}, logger.Nop(), func(_ context.Context, e model.BookingEvent) error {
			received <- e
			return nil
		})
	}()

	publisher := messaging.NewBookingPublisher(b)
	require.NoError(t, publisher.PublishBooking(ctx, model.BookingEvent{
		Type:          model.EventAppointmentBooked,
		Tenant:        "acme",
		AppointmentID: 42,
		ServiceIDs:    []int{1, 2},
	}))

	select {
	case e := <-received:
		assert.Equal(t, 42, e.AppointmentID)
		assert.Equal(t, "acme", e.Tenant)
		assert.Equal(t, []int{1, 2}, e.ServiceIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("booking event not consumed")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

// channelBroker hands an already-confirmed subscription to ConsumeBookings.
type channelBroker struct {
	msgs <-chan []byte
}

func (c channelBroker) Publish(context.Context, string, interface{}) error { return nil }
func (c channelBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return c.msgs, nil
}
func (c channelBroker) Close() error { return nil }
