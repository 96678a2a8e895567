package repository

import (
	"context"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
)

type (
	// AppointmentFeed supplies the appointments the calendar buckets.
	AppointmentFeed interface {
		Appointments(ctx context.Context, query model.AppointmentQuery) ([]model.Appointment, error)
	}

	// TenantSettings resolves per-tenant scheduling settings.
	TenantSettings interface {
		Location(ctx context.Context, tenant string) (*time.Location, error)
	}
)
