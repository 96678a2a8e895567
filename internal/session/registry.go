// Package session keeps the booking sessions the console has open. Each session pairs an
// availability coordinator with the booking form that reads from it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/service/availability"
	"github.com/jwalitptl/booking-console/internal/service/booking"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/metrics"
)

type (
	// CatalogSource lists a tenant's bookable services.
	CatalogSource interface {
		List(ctx context.Context, tenant string) ([]model.Service, error)
	}

	// LocationSource resolves the tenant's timezone.
	LocationSource interface {
		Location(ctx context.Context, tenant string) (*time.Location, error)
	}
)

type Config struct {
	// IdleTTL closes sessions untouched for this long when Sweep runs.
	IdleTTL     time.Duration
	Step        int
	Location    *time.Location
	PhoneRegion string
}

type Deps struct {
	Fetcher   availability.Fetcher
	Submitter booking.Submitter
	Publisher booking.Publisher
	Catalog   CatalogSource
	Locations LocationSource
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type OpenRequest struct {
	Tenant     string
	Date       time.Time
	ServiceIDs []int
	PreInfo    *model.ClientPreInfo
}

type Session struct {
	ID          string
	Tenant      string
	Location    *time.Location
	OpenedAt    time.Time
	Coordinator *availability.Coordinator
	Form        *booking.Form

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Coordinator.Close()
}

type Registry struct {
	deps Deps
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps, cfg Config) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New("console")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Registry{
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for the tenant. An initial date and services start the first
// availability fetch right away.
func (r *Registry) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	if req.Tenant == "" {
		return nil, apperrors.NewBadRequest("tenant is required", nil)
	}

	var catalog []model.Service
	if r.deps.Catalog != nil {
		services, err := r.deps.Catalog.List(ctx, req.Tenant)
		if err != nil {
			return nil, err
		}
		catalog = services
	}

	loc, err := r.location(ctx, req.Tenant)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	log := r.deps.Logger.WithFields(map[string]interface{}{"session_id": id, "tenant": req.Tenant})

	coord := availability.NewCoordinator(r.deps.Fetcher, availability.Options{
		Tenant:  req.Tenant,
		Step:    r.cfg.Step,
		Catalog: catalog,
		Logger:  log,
		Metrics: r.deps.Metrics,
	})
	form, err := booking.NewForm(coord, r.deps.Submitter, booking.Options{
		Tenant:      req.Tenant,
		SessionID:   id,
		Location:    loc,
		PhoneRegion: r.cfg.PhoneRegion,
		PreInfo:     req.PreInfo,
		Publisher:   r.deps.Publisher,
		Now:         r.deps.Now,
		Logger:      log,
		Metrics:     r.deps.Metrics,
	})
	if err != nil {
		coord.Close()
		return nil, apperrors.NewInternal(err)
	}

	now := r.deps.Now()
	s := &Session{
		ID:          id,
		Tenant:      req.Tenant,
		Location:    loc,
		OpenedAt:    now,
		Coordinator: coord,
		Form:        form,
		lastSeen:    now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	r.deps.Metrics.OpenSessions.Inc()

	if !req.Date.IsZero() {
		coord.SetDate(req.Date)
	}
	if len(req.ServiceIDs) > 0 {
		coord.SetServices(req.ServiceIDs)
	}

	log.Info("booking session opened")
	return s, nil
}

func (r *Registry) location(ctx context.Context, tenant string) (*time.Location, error) {
	if r.deps.Locations == nil {
		return r.cfg.Location, nil
	}
	loc, err := r.deps.Locations.Location(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return r.cfg.Location, nil
	}
	return loc, nil
}

// Get returns the tenant's session. Sessions of other tenants are reported as missing.
func (r *Registry) Get(tenant, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.Tenant != tenant {
		return nil, apperrors.NewNotFound("booking session", nil)
	}
	s.touch(r.deps.Now())
	return s, nil
}

// Close cancels the session's in-flight fetch and discards its state.
func (r *Registry) Close(tenant, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.Tenant != tenant {
		r.mu.Unlock()
		return apperrors.NewNotFound("booking session", nil)
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	s.close()
	r.deps.Metrics.OpenSessions.Dec()
	r.deps.Logger.Info("booking session closed", "session_id", id, "tenant", tenant)
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.deps.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
		r.deps.Metrics.OpenSessions.Dec()
	}
	if len(expired) > 0 {
		r.deps.Logger.Info("expired idle booking sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
		r.deps.Metrics.OpenSessions.Dec()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
