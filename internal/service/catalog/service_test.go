package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-console/internal/model"
)

type countingSource struct {
	calls    map[string]int
	services []model.Service
	err      error
}

func (s *countingSource) Services(ctx context.Context, tenant string) ([]model.Service, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[tenant]++
	if s.err != nil {
		return nil, s.err
	}
	return s.services, nil
}

func TestService_CachesPerTenant(t *testing.T) {
	src := &countingSource{services: []model.Service{{ID: 1, DurationMinutes: 30}, {ID: 2, DurationMinutes: 20}}}
	svc := NewService(src, Config{TTL: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		services, err := svc.List(ctx, "acme")
		require.NoError(t, err)
		assert.Len(t, services, 2)
	}
	_, err := svc.List(ctx, "globex")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls["acme"])
	assert.Equal(t, 1, src.calls["globex"])

	svc.Invalidate("acme")
	_, err = svc.List(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls["acme"])
}

func TestService_Durations(t *testing.T) {
	src := &countingSource{services: []model.Service{{ID: 1, DurationMinutes: 30}, {ID: 2, DurationMinutes: 20}}}
	svc := NewService(src, Config{}, nil)

	total, err := svc.Durations(context.Background(), "acme", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 50, total)

	total, err = svc.Durations(context.Background(), "acme", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("down")}
	svc := NewService(src, Config{}, nil)

	_, err := svc.List(context.Background(), "acme")
	assert.Error(t, err)

	src.err = nil
	_, err = svc.List(context.Background(), "acme")
	assert.NoError(t, err)
	assert.Equal(t, 2, src.calls["acme"])
}
