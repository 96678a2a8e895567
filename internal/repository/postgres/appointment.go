package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/repository"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// AppointmentRepository reads the booking backend's tables directly. It never writes.
type AppointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

var (
	_ repository.AppointmentFeed = (*AppointmentRepository)(nil)
	_ repository.TenantSettings  = (*AppointmentRepository)(nil)
)

type appointmentRow struct {
	ID              int       `db:"id"`
	AppointmentTime time.Time `db:"appointment_time"`
	Status          string    `db:"status"`
	ClientName      string    `db:"client_name"`
	ClientEmail     string    `db:"client_email"`
}

type serviceRow struct {
	AppointmentID   int    `db:"appointment_id"`
	ID              int    `db:"id"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	DurationMinutes int    `db:"duration_minutes"`
}

func (r *AppointmentRepository) Appointments(ctx context.Context, q model.AppointmentQuery) ([]model.Appointment, error) {
	query := `
		SELECT a.id, a.appointment_time, a.status,
			   TRIM(CONCAT(COALESCE(c.first_name, ''), ' ', COALESCE(c.last_name, ''))) AS client_name,
			   COALESCE(c.email, '') AS client_email
		FROM appointments a
		JOIN tenants t ON t.id = a.tenant_id
		JOIN clients c ON c.id = a.client_id
		WHERE t.subdomain = $1
	`
	args := []interface{}{q.Tenant}
	if !q.From.IsZero() {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND a.appointment_time >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		query += fmt.Sprintf(" AND a.appointment_time < $%d", len(args))
	}
	query += " ORDER BY a.appointment_time"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []appointmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments := make([]model.Appointment, 0, len(rows))
	if len(rows) == 0 {
		return appointments, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, int64(row.ID))
	}
	services, err := r.services(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		appointments = append(appointments, model.Appointment{
			ID:           row.ID,
			ClientName:   row.ClientName,
			ClientEmail:  row.ClientEmail,
			StartInstant: row.AppointmentTime.UTC(),
			Status:       model.AppointmentStatus(strings.ToLower(row.Status)),
			Services:     services[row.ID],
		})
	}
	return appointments, nil
}

func (r *AppointmentRepository) services(ctx context.Context, appointmentIDs []int64) (map[int][]model.Service, error) {
	query := `
		SELECT aps.appointment_id, s.id, s.name,
			   COALESCE(s.description, '') AS description, s.duration_minutes
		FROM appointment_services aps
		JOIN services s ON s.id = aps.service_id
		WHERE aps.appointment_id = ANY($1)
		ORDER BY aps.appointment_id, s.id
	`
	var rows []serviceRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(appointmentIDs)); err != nil {
		return nil, fmt.Errorf("failed to list appointment services: %w", err)
	}

	byAppointment := make(map[int][]model.Service, len(appointmentIDs))
	for _, row := range rows {
		byAppointment[row.AppointmentID] = append(byAppointment[row.AppointmentID], model.Service{
			ID:              row.ID,
			Name:            row.Name,
			Description:     row.Description,
			DurationMinutes: row.DurationMinutes,
		})
	}
	return byAppointment, nil
}

// Location loads the tenant's configured IANA timezone.
func (r *AppointmentRepository) Location(ctx context.Context, tenant string) (*time.Location, error) {
	var name string
	err := r.db.GetContext(ctx, &name, `SELECT timezone FROM tenants WHERE subdomain = $1`, tenant)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("tenant "+tenant, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant timezone: %w", err)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q for tenant %s: %w", name, tenant, err)
	}
	return loc, nil
}
