package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
	loggerpkg "github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/messaging"
	metricspkg "github.com/jwalitptl/booking-console/pkg/metrics"
)

var errInvalidEvent = errors.New("booking event without tenant or appointment")

type BookingEventWorkerConfig struct {
	// RetryDelay is the pause before resubscribing after the subscription ends.
	RetryDelay time.Duration
}

// BookingEventWorker logs and counts the booking events the console publishes.
type BookingEventWorker struct {
	broker  messaging.Broker
	config  BookingEventWorkerConfig
	logger  *loggerpkg.Logger
	metrics *metricspkg.Metrics
}

func NewBookingEventWorker(
	broker messaging.Broker,
	config BookingEventWorkerConfig,
	logger *loggerpkg.Logger,
	metrics *metricspkg.Metrics,
) *BookingEventWorker {
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if logger == nil {
		logger = loggerpkg.Nop()
	}
	if metrics == nil {
		metrics = metricspkg.New("worker")
	}
	return &BookingEventWorker{
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Start consumes booking events until ctx is done, resubscribing when the subscription drops.
func (w *BookingEventWorker) Start(ctx context.Context) {
	w.logger.Info("Starting booking event worker", "channel", model.EventAppointmentBooked)

	for {
		err := messaging.ConsumeBookings(ctx, w.broker, w.logger, w.handle)
		if ctx.Err() != nil {
			w.logger.Info("Shutting down booking event worker")
			return
		}
		if err != nil {
			w.logger.Error(err, "Booking event subscription failed")
		} else {
			w.logger.Warn("Booking event subscription ended")
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down booking event worker")
			return
		case <-time.After(w.config.RetryDelay):
		}
	}
}

func (w *BookingEventWorker) handle(ctx context.Context, event model.BookingEvent) error {
	if event.Tenant == "" || event.AppointmentID == 0 {
		w.metrics.BookingEvents.WithLabelValues("invalid").Inc()
		return errInvalidEvent
	}

	w.metrics.BookingEvents.WithLabelValues("processed").Inc()
	w.logger.WithFields(map[string]interface{}{
		"tenant":         event.Tenant,
		"session_id":     event.SessionID,
		"appointment_id": event.AppointmentID,
		"service_ids":    event.ServiceIDs,
	}).Info("Appointment booked", "appointment_time", event.StartInstant.Format(time.RFC3339))
	return nil
}
