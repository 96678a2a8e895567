package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jwalitptl/booking-console/internal/model"
)

// Availability queries bookable slots for one date and service set.
func (c *Client) Availability(ctx context.Context, q model.AvailabilityQuery) (*model.AvailabilityResult, error) {
	ids := make([]string, 0, len(q.ServiceIDs))
	for _, id := range q.ServiceIDs {
		ids = append(ids, strconv.Itoa(id))
	}
	query := url.Values{}
	query.Set("date_query", q.Date.Format(model.DateLayout))
	query.Set("service_ids_query", strings.Join(ids, ","))

	var out model.AvailabilityResult
	if err := c.do(ctx, request{
		operation: "availability",
		method:    http.MethodGet,
		path:      "/availability/",
		tenant:    q.Tenant,
		query:     query,
	}, &out); err != nil {
		return nil, err
	}
	if out.AvailableSlots == nil {
		out.AvailableSlots = []string{}
	}
	return &out, nil
}

// CreateAppointment sends a booking. The instant is always sent in UTC.
func (c *Client) CreateAppointment(ctx context.Context, tenant string, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	req.AppointmentInstant = req.AppointmentInstant.UTC()

	var out appointmentDTO
	if err := c.do(ctx, request{
		operation: "create_appointment",
		method:    http.MethodPost,
		path:      "/appointments/",
		tenant:    tenant,
		body:      req,
	}, &out); err != nil {
		return nil, err
	}
	created := out.toModel()
	if created.ClientName == "" {
		created.ClientName = req.ClientName
		created.ClientEmail = req.ClientEmail
	}
	return &created, nil
}

// Services lists the tenant's service catalog.
func (c *Client) Services(ctx context.Context, tenant string) ([]model.Service, error) {
	var out []serviceDTO
	if err := c.do(ctx, request{
		operation: "services",
		method:    http.MethodGet,
		path:      "/services/",
		tenant:    tenant,
	}, &out); err != nil {
		return nil, err
	}
	services := make([]model.Service, 0, len(out))
	for _, s := range out {
		services = append(services, s.toModel())
	}
	return services, nil
}

// Appointments walks the paginated feed until a short page is returned. Appointments
// outside [From, To) are dropped when a bound is set.
func (c *Client) Appointments(ctx context.Context, q model.AppointmentQuery) ([]model.Appointment, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = c.pageSize
	}

	var all []model.Appointment
	for skip := 0; ; skip += limit {
		query := url.Values{}
		query.Set("skip", strconv.Itoa(skip))
		query.Set("limit", strconv.Itoa(limit))

		var page []appointmentDTO
		if err := c.do(ctx, request{
			operation: "appointments",
			method:    http.MethodGet,
			path:      "/appointments/",
			tenant:    q.Tenant,
			query:     query,
		}, &page); err != nil {
			return nil, err
		}
		for _, a := range page {
			appt := a.toModel()
			if !q.From.IsZero() && appt.StartInstant.Before(q.From) {
				continue
			}
			if !q.To.IsZero() && !appt.StartInstant.Before(q.To) {
				continue
			}
			all = append(all, appt)
		}
		if len(page) < limit {
			break
		}
	}
	if all == nil {
		all = []model.Appointment{}
	}
	return all, nil
}
