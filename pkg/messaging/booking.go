package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/pkg/logger"
)

// BookingPublisher announces created appointments on the booking channel.
type BookingPublisher struct {
	broker Broker
}

func NewBookingPublisher(broker Broker) *BookingPublisher {
	return &BookingPublisher{broker: broker}
}

func (p *BookingPublisher) PublishBooking(ctx context.Context, event model.BookingEvent) error {
	if err := p.broker.Publish(ctx, model.EventAppointmentBooked, Message{Type: event.Type, Payload: event}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

type bookingMessage struct {
	Type    string             `json:"type"`
	Payload model.BookingEvent `json:"payload"`
}

// ConsumeBookings feeds every booking event on the channel to handler until ctx is done
// or the subscription ends. Malformed messages and handler errors are logged and skipped.
func ConsumeBookings(ctx context.Context, broker Broker, log *logger.Logger, handler func(context.Context, model.BookingEvent) error) error {
	msgs, err := broker.Subscribe(ctx, model.EventAppointmentBooked)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", model.EventAppointmentBooked, err)
	}

	for raw := range msgs {
		var msg bookingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Error(err, "dropping malformed booking event")
			continue
		}
		if err := handler(ctx, msg.Payload); err != nil {
			log.Error(err, "booking event handler failed", "appointment_id", msg.Payload.AppointmentID)
			continue
		}
	}
	return ctx.Err()
}
