package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/pkg/messaging"
	"github.com/jwalitptl/booking-console/pkg/metrics"
)

// scriptedBroker serves one prepared subscription, then refuses to subscribe.
type scriptedBroker struct {
	mu         sync.Mutex
	msgs       chan []byte
	subscribes int
}

func (b *scriptedBroker) Publish(context.Context, string, interface{}) error { return nil }

func (b *scriptedBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes++
	if b.subscribes == 1 {
		return b.msgs, nil
	}
	return nil, errors.New("connection refused")
}

func (b *scriptedBroker) Close() error { return nil }

func (b *scriptedBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribes
}

func encode(t *testing.T, event model.BookingEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(messaging.Message{Type: event.Type, Payload: event})
	require.NoError(t, err)
	return raw
}

func TestBookingEventWorker_CountsAndResubscribes(t *testing.T) {
	broker := &scriptedBroker{msgs: make(chan []byte, 3)}
	broker.msgs <- encode(t, model.BookingEvent{Type: model.EventAppointmentBooked, Tenant: "acme", AppointmentID: 7})
	broker.msgs <- encode(t, model.BookingEvent{Type: model.EventAppointmentBooked, AppointmentID: 8})
	broker.msgs <- []byte("not json")
	close(broker.msgs)

	m := metrics.New("test")
	w := NewBookingEventWorker(broker, BookingEventWorkerConfig{RetryDelay: 10 * time.Millisecond}, nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return broker.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingEvents.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingEvents.WithLabelValues("invalid")))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
