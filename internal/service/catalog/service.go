// Package catalog caches each tenant's service catalog.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/pkg/metrics"
)

// Source loads a tenant's catalog from the booking backend.
type Source interface {
	Services(ctx context.Context, tenant string) ([]model.Service, error)
}

type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type Service struct {
	source  Source
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewService(source Source, cfg Config, m *metrics.Metrics) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * cfg.TTL
	}
	if m == nil {
		m = metrics.New("console")
	}
	return &Service{
		source:  source,
		cache:   cache.New(cfg.TTL, cfg.CleanupInterval),
		metrics: m,
	}
}

// List returns the tenant's catalog, loading it on a cache miss.
func (s *Service) List(ctx context.Context, tenant string) ([]model.Service, error) {
	if cached, found := s.cache.Get(tenant); found {
		s.metrics.CatalogCache.WithLabelValues("hit").Inc()
		return cached.([]model.Service), nil
	}
	s.metrics.CatalogCache.WithLabelValues("miss").Inc()

	services, err := s.source.Services(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load service catalog: %w", err)
	}
	s.cache.Set(tenant, services, cache.DefaultExpiration)
	return services, nil
}

// Durations sums the selected services' durations against the tenant's catalog.
func (s *Service) Durations(ctx context.Context, tenant string, selected []int) (int, error) {
	services, err := s.List(ctx, tenant)
	if err != nil {
		return 0, err
	}
	return model.TotalDuration(services, selected), nil
}

func (s *Service) Invalidate(tenant string) {
	s.cache.Delete(tenant)
}
