package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/slot"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/metrics"
)

// Fetcher is the external availability query.
type Fetcher interface {
	Availability(ctx context.Context, query model.AvailabilityQuery) (*model.AvailabilityResult, error)
}

type Options struct {
	Tenant  string
	Step    int
	Catalog []model.Service
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Coordinator refetches the slot list whenever the selected date or services change.
// Only the most recent fetch may update its state; superseded fetches are cancelled and
// their results discarded.
type Coordinator struct {
	fetcher Fetcher
	tenant  string
	step    int
	log     *logger.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	catalog     []model.Service
	date        time.Time
	services    []int
	chosen      string
	state       State
	generation  uint64
	cancel      context.CancelFunc
	closed      bool
	subscribers map[int]func(State)
	nextSub     int

	inflight sync.WaitGroup
}

func NewCoordinator(fetcher Fetcher, opts Options) *Coordinator {
	if opts.Step <= 0 {
		opts.Step = slot.DefaultStep
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("console")
	}
	return &Coordinator{
		fetcher:     fetcher,
		tenant:      opts.Tenant,
		step:        opts.Step,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		catalog:     opts.Catalog,
		state:       Idle{},
		subscribers: make(map[int]func(State)),
	}
}

// SetDate selects a date. A zero time clears the selection.
func (c *Coordinator) SetDate(date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = model.DateOf(date)
	c.refreshLocked()
}

// SetServices replaces the selected service set.
func (c *Coordinator) SetServices(ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = normalizeIDs(ids)
	c.refreshLocked()
}

// ToggleService adds id to the selection, or removes it when already selected.
func (c *Coordinator) ToggleService(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]int, 0, len(c.services)+1)
	found := false
	for _, s := range c.services {
		if s == id {
			found = true
			continue
		}
		next = append(next, s)
	}
	if !found {
		next = append(next, id)
	}
	c.services = normalizeIDs(next)
	c.refreshLocked()
}

// Retry repeats the fetch for the current selection.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked()
}

// SetCatalog replaces the service catalog used for durations.
func (c *Coordinator) SetCatalog(catalog []model.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = catalog
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Date() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

func (c *Coordinator) Services() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.services...)
}

func (c *Coordinator) Chosen() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chosen
}

// Offered reports whether s is in the current Loaded slot list.
func (c *Coordinator) Offered(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.state.(Loaded)
	return ok && slot.Contains(l.Slots, s)
}

func (c *Coordinator) Loading() bool {
	return c.State().Kind() == KindLoading
}

// Choose selects a slot from the current Loaded list.
func (c *Coordinator) Choose(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.state.(Loaded)
	if !ok {
		return apperrors.NewState("available times are not loaded")
	}
	if !slot.Contains(l.Slots, s) {
		return apperrors.NewState("time " + s + " is not available")
	}
	c.chosen = s
	return nil
}

// ClearChoice drops the chosen slot without refetching.
func (c *Coordinator) ClearChoice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chosen = ""
}

// Earliest returns the first slot of a non-empty Loaded list.
func (c *Coordinator) Earliest() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.state.(Loaded)
	if !ok || len(l.Slots) == 0 {
		return "", false
	}
	return l.Slots[0], true
}

// ChooseEarliest is the explicit "next available" action.
func (c *Coordinator) ChooseEarliest() (string, error) {
	first, ok := c.Earliest()
	if !ok {
		return "", apperrors.NewState("no available time to select")
	}
	return first, c.Choose(first)
}

// Segments groups the Loaded slot list. Other states have no segments.
func (c *Coordinator) Segments() []model.Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.state.(Loaded)
	if !ok {
		return []model.Segment{}
	}
	return slot.Segment(l.Slots, c.step)
}

func (c *Coordinator) TotalDuration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.TotalDuration(c.catalog, c.services)
}

// NeedsService is the "select a service" prompt state.
func (c *Coordinator) NeedsService() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.services) == 0
}

// Readout renders "start - end" for the chosen slot, or "" when none is chosen.
func (c *Coordinator) Readout() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chosen == "" {
		return ""
	}
	return slot.Range(c.chosen, model.TotalDuration(c.catalog, c.services))
}

// Subscribe registers fn for every state transition. Subscribers run with the
// coordinator locked and must not call back into it.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Wait blocks until no fetch is in flight.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// Close cancels the in-flight fetch and stops further state changes.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.subscribers = map[int]func(State){}
}

func (c *Coordinator) refreshLocked() {
	if c.closed {
		return
	}
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.chosen = ""

	if c.date.IsZero() || len(c.services) == 0 {
		c.setLocked(Idle{})
		return
	}

	query := model.AvailabilityQuery{
		Date:       c.date,
		ServiceIDs: append([]int(nil), c.services...),
		Tenant:     c.tenant,
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setLocked(Loading{})

	c.inflight.Add(1)
	go c.fetch(ctx, c.generation, query)
}

func (c *Coordinator) fetch(ctx context.Context, generation uint64, query model.AvailabilityQuery) {
	defer c.inflight.Done()

	result, err := c.fetcher.Availability(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.metrics.StaleResponses.Inc()
		c.log.Debug("discarding stale availability response",
			"date", query.Date.Format(model.DateLayout),
			"generation", generation,
		)
		return
	}
	c.cancel = nil

	if err != nil {
		c.metrics.AvailabilityFetches.WithLabelValues("failed").Inc()
		c.log.Warn("availability fetch failed",
			"date", query.Date.Format(model.DateLayout),
			"tenant", query.Tenant,
			"error", err.Error(),
		)
		c.setLocked(failed(err))
		return
	}

	var slots []string
	if result != nil {
		slots = slot.Sort(result.AvailableSlots)
	}
	if len(slots) == 0 {
		c.metrics.AvailabilityFetches.WithLabelValues("empty").Inc()
	} else {
		c.metrics.AvailabilityFetches.WithLabelValues("loaded").Inc()
	}
	c.setLocked(loaded(slots))
}

func (c *Coordinator) setLocked(s State) {
	c.state = s
	for _, fn := range c.subscribers {
		fn(s)
	}
}

func normalizeIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
