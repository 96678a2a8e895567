// Package client talks to the booking backend: availability, booking creation, the
// service catalog and the appointment feed.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-console/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 100

	// TenantHeader carries the tenant every request is scoped to.
	TenantHeader = "X-Tenant"
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RatePerSecond caps outgoing requests. Zero disables limiting.
	RatePerSecond   float64
	Burst           int
	BreakerFailures int
	BreakerTimeout  time.Duration
	PageSize        int
}

// Client is a JSON client for the booking backend.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("console")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "booking-backend",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
			// only transport failures and 5xx trip the breaker
			IsFailure: func(err error) bool {
				appErr, ok := apperrors.As(err)
				if !ok {
					return true
				}
				return appErr.Code == apperrors.ErrNetwork || appErr.Status >= http.StatusInternalServerError
			},
			IsIgnored: func(err error) bool {
				return errors.Is(err, errAbandoned)
			},
		}),
		log:     log,
		metrics: m,
	}
}

// errAbandoned marks requests whose caller context ended before the backend answered.
var errAbandoned = errors.New("request abandoned by caller")

type request struct {
	operation string
	method    string
	path      string
	tenant    string
	query     url.Values
	body      interface{}
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewNetwork(err)
	}

	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("client: marshal %s request: %w", r.operation, err)
		}
		payload = b
	}

	start := time.Now()
	status := 0
	err := c.breaker.Execute(func() error {
		var execErr error
		status, execErr = c.roundTrip(ctx, r, payload, out)
		return execErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = apperrors.NewNetwork(err)
	}

	c.metrics.UpstreamLatency.WithLabelValues(r.operation).Observe(time.Since(start).Seconds())
	c.metrics.UpstreamRequests.WithLabelValues(r.operation, statusLabel(status)).Inc()
	if err != nil {
		c.log.WithContext(ctx).Warn("upstream request failed",
			"operation", r.operation,
			"tenant", r.tenant,
			"status", status,
			"error", err.Error(),
		)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, payload []byte, out interface{}) (int, error) {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("client: create %s request: %w", r.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.tenant != "" {
		req.Header.Set(TenantHeader, r.tenant)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, apperrors.NewNetwork(fmt.Errorf("%w: %w", errAbandoned, ctx.Err()))
		}
		return 0, apperrors.NewNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return resp.StatusCode, apperrors.NewNetwork(fmt.Errorf("%w: %w", errAbandoned, ctx.Err()))
		}
		return resp.StatusCode, apperrors.NewNetwork(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("client: unmarshal %s response: %w", r.operation, err)
	}
	return resp.StatusCode, nil
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
