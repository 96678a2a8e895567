package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-console/internal/middleware"
	"github.com/jwalitptl/booking-console/internal/model"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

type feed struct {
	appointments []model.Appointment
	queries      []model.AppointmentQuery
	err          error
}

func (f *feed) Appointments(ctx context.Context, q model.AppointmentQuery) ([]model.Appointment, error) {
	f.queries = append(f.queries, q)
	return f.appointments, f.err
}

type settings struct {
	loc *time.Location
	err error
}

func (s settings) Location(ctx context.Context, tenant string) (*time.Location, error) {
	return s.loc, s.err
}

func newEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.NewTenantMiddleware(nil, "acme").Resolve())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func serve(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

var sample = []model.Appointment{
	{ID: 1, ClientName: "Ann", StartInstant: time.Date(2026, 11, 3, 15, 0, 0, 0, time.UTC), Services: []model.Service{{ID: 1, Name: "Cut"}}},
	{ID: 2, ClientName: "Bo", StartInstant: time.Date(2026, 11, 3, 16, 0, 0, 0, time.UTC)},
}

func TestMonth(t *testing.T) {
	f := &feed{appointments: sample}
	h := NewHandler(f, nil, time.UTC)
	h.now = func() time.Time { return time.Date(2026, 11, 17, 9, 0, 0, 0, time.UTC) }

	w := serve(newEngine(h), http.MethodGet, "/api/v1/calendar", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data MonthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "November 2026", env.Data.View.Title)
	assert.Equal(t, MonthRef{Year: 2026, Month: time.October}, env.Data.Prev)
	assert.Equal(t, MonthRef{Year: 2026, Month: time.December}, env.Data.Next)
	assert.Len(t, env.Data.View.Buckets[3], 2)

	require.Len(t, f.queries, 1)
	assert.Equal(t, "acme", f.queries[0].Tenant)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), f.queries[0].From)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), f.queries[0].To)
}

func TestMonth_TenantLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	f := &feed{}
	h := NewHandler(f, settings{loc: loc}, time.UTC)

	w := serve(newEngine(h), http.MethodGet, "/api/v1/calendar?year=2026&month=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.queries, 1)
	assert.Equal(t, time.Date(2026, 2, 1, 5, 0, 0, 0, time.UTC), f.queries[0].From.UTC())
}

func TestMonth_Errors(t *testing.T) {
	h := NewHandler(&feed{}, nil, time.UTC)
	r := newEngine(h)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/calendar?month=13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/calendar?year=next", nil).Code)

	failing := NewHandler(&feed{err: apperrors.NewNetwork(nil)}, nil, time.UTC)
	assert.Equal(t, http.StatusBadGateway, serve(newEngine(failing), http.MethodGet, "/api/v1/calendar", nil).Code)

	unknown := NewHandler(&feed{}, settings{err: apperrors.NewNotFound("tenant", nil)}, time.UTC)
	assert.Equal(t, http.StatusNotFound, serve(newEngine(unknown), http.MethodGet, "/api/v1/calendar", nil).Code)
}

func TestClick(t *testing.T) {
	r := newEngine(NewHandler(&feed{appointments: sample}, nil, time.UTC))

	id := 2
	w := serve(r, http.MethodPost, "/api/v1/calendar/clicks", map[string]interface{}{
		"year": 2026, "month": 11, "day": 3, "appointment_id": id,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data ClickResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "appointment_clicked", env.Data.Event)
	require.NotNil(t, env.Data.Appointment)
	assert.Equal(t, 2, env.Data.Appointment.ID)
	assert.Empty(t, env.Data.Date)

	w = serve(r, http.MethodPost, "/api/v1/calendar/clicks", map[string]interface{}{"year": 2026, "month": 11, "day": 4})
	require.Equal(t, http.StatusOK, w.Code)
	env.Data = ClickResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "day_clicked", env.Data.Event)
	assert.Equal(t, "2026-11-04", env.Data.Date)

	w = serve(r, http.MethodPost, "/api/v1/calendar/clicks", map[string]interface{}{"year": 2026, "month": 11, "day": 3, "appointment_id": 99})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/calendar/clicks", map[string]interface{}{"year": 2026, "month": 2, "day": 30})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
