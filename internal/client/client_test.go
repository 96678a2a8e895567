package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/service/availability"
	"github.com/jwalitptl/booking-console/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(Config{BaseURL: ts.URL + "/", Token: "secret", BreakerFailures: 2}, nil, nil)
}

func TestAvailability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/availability/", r.URL.Path)
		assert.Equal(t, "2026-11-03", r.URL.Query().Get("date_query"))
		assert.Equal(t, "1,2", r.URL.Query().Get("service_ids_query"))
		assert.Equal(t, "acme", r.Header.Get(TenantHeader))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"available_slots":  []string{"09:00", "09:15"},
			"date_checked":     "2026-11-03",
			"timezone_queried": "America/New_York",
		})
	})

	res, err := c.Availability(context.Background(), model.AvailabilityQuery{
		Date:       time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
		ServiceIDs: []int{1, 2},
		Tenant:     "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:15"}, res.AvailableSlots)
	assert.Equal(t, "America/New_York", res.TimezoneQueried)
}

func TestCreateAppointment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-11-03T15:00:00Z", body["appointment_time"])
		assert.Equal(t, "Ann Lee", body["client_name"])
		_, hasPhone := body["client_phone"]
		assert.False(t, hasPhone)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":               77,
			"appointment_time": "2026-11-03T15:00:00Z",
			"status":           "PENDING",
			"client":           map[string]any{"first_name": "Ann", "last_name": "Lee", "email": "ann@example.com"},
			"services":         []map[string]any{{"id": 1, "name": "Cut", "duration_minutes": 30}},
		})
	})

	loc := time.FixedZone("UTC-5", -5*60*60)
	created, err := c.CreateAppointment(context.Background(), "acme", model.CreateAppointmentRequest{
		ClientName:         "Ann Lee",
		ClientEmail:        "ann@example.com",
		AppointmentInstant: time.Date(2026, 11, 3, 10, 0, 0, 0, loc),
		ServiceIDs:         []int{1},
	})
	require.NoError(t, err)
	assert.Equal(t, 77, created.ID)
	assert.Equal(t, "Ann Lee", created.ClientName)
	assert.Equal(t, model.AppointmentStatusPending, created.Status)
	require.Len(t, created.Services, 1)
	assert.Equal(t, 30, created.Services[0].DurationMinutes)
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apperrors.ErrorCode
		message string
	}{
		{
			name:    "validation list",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"loc":["body","client_email"],"msg":"value is not a valid email address"},{"loc":["body","service_ids",0],"msg":"value is not a valid integer"}]}`,
			code:    apperrors.ErrValidation,
			message: "body.client_email - value is not a valid email address; body.service_ids.0 - value is not a valid integer",
		},
		{
			name:    "string detail",
			status:  http.StatusConflict,
			body:    `{"detail":"Time slot is no longer available"}`,
			code:    apperrors.ErrServer,
			message: "Time slot is no longer available",
		},
		{
			name:    "no detail",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			code:    apperrors.ErrServer,
			message: "request failed with status 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateAppointment(context.Background(), "acme", model.CreateAppointmentRequest{})
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := New(Config{BaseURL: url}, nil, nil)
	_, err := c.Services(context.Background(), "acme")

	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
	assert.Equal(t, apperrors.GenericNetworkMessage, apperrors.Message(err, ""))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	})

	for i := 0; i < 2; i++ {
		_, err := c.Services(context.Background(), "acme")
		assert.True(t, apperrors.Is(err, apperrors.ErrServer))
	}
	_, err := c.Services(context.Background(), "acme")
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
	assert.Equal(t, 2, calls)
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad"}`))
	})

	for i := 0; i < 4; i++ {
		_, _ = c.Services(context.Background(), "acme")
	}
	assert.Equal(t, 4, calls)
}

func TestAppointmentsWalksPages(t *testing.T) {
	total := 5
	base := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page := []map[string]any{}
		for i := skip; i < total && i < skip+limit; i++ {
			page = append(page, map[string]any{
				"id":               i + 1,
				"appointment_time": base.AddDate(0, 0, i*10).Format(time.RFC3339),
				"status":           "confirmed",
				"services":         []any{},
			})
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	all, err := c.Appointments(context.Background(), model.AppointmentQuery{Tenant: "acme", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	november, err := c.Appointments(context.Background(), model.AppointmentQuery{
		Tenant: "acme",
		Limit:  2,
		From:   time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, november, 3)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0", RatePerSecond: 0.001, Burst: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Services(ctx, "acme")
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
}

func TestSupersededFetchesKeepBreakerClosed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"available_slots": []string{"09:00"}})
	})

	busy := availability.NewCoordinator(c, availability.Options{Tenant: "acme"})
	t.Cleanup(busy.Close)
	busy.SetServices([]int{1})
	for day := 1; day <= 6; day++ {
		busy.SetDate(time.Date(2026, 11, day, 0, 0, 0, 0, time.UTC))
		time.Sleep(10 * time.Millisecond)
	}
	busy.Wait()
	assert.Equal(t, circuitbreaker.StateClosed, c.breaker.State())

	other := availability.NewCoordinator(c, availability.Options{Tenant: "globex"})
	t.Cleanup(other.Close)
	other.SetServices([]int{1})
	other.SetDate(time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC))
	other.Wait()

	loaded, ok := other.State().(availability.Loaded)
	require.True(t, ok, "state %#v", other.State())
	assert.Equal(t, []string{"09:00"}, loaded.Slots)
}

func TestCancelledRequestIsNotABreakerFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := c.Services(ctx, "acme")
		cancel()
		assert.True(t, apperrors.Is(err, apperrors.ErrNetwork))
		assert.ErrorIs(t, err, errAbandoned)
	}
	assert.Equal(t, circuitbreaker.StateClosed, c.breaker.State())
}
