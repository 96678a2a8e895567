// Package tooltip drives the hover panel shown next to calendar appointment chips.
package tooltip

import (
	"sync"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/pkg/geometry"
)

type Phase string

const (
	PhaseHidden      Phase = "hidden"
	PhasePositioning Phase = "positioning"
	PhaseVisible     Phase = "visible"
)

// Scheduler runs fn after the current layout pass.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// Viewport delivers scroll and resize notifications. Each registration returns its release func.
type Viewport interface {
	OnScroll(fn func()) (release func())
	OnResize(fn func()) (release func())
}

// State is a snapshot of the panel. Position is nil until it has been computed for the current anchor.
type State struct {
	Phase    Phase              `json:"phase"`
	Visible  bool               `json:"visible"`
	Anchor   string             `json:"anchor,omitempty"`
	Content  *model.Appointment `json:"content,omitempty"`
	Position *geometry.Position `json:"position,omitempty"`
}

type Controller struct {
	provider  geometry.Provider
	scheduler Scheduler
	viewport  Viewport

	mu         sync.Mutex
	phase      Phase
	anchor     string
	measurer   geometry.Measurer
	content    *model.Appointment
	position   *geometry.Position
	generation uint64
	cancelTick func()
	releases   []func()
}

func NewController(provider geometry.Provider, scheduler Scheduler, viewport Viewport) *Controller {
	return &Controller{
		provider:  provider,
		scheduler: scheduler,
		viewport:  viewport,
		phase:     PhaseHidden,
	}
}

// Show starts positioning the panel for anchor. The panel becomes visible on the first
// successful measurement after the next tick.
func (c *Controller) Show(anchor string, m geometry.Measurer, content model.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.generation++
	c.phase = PhasePositioning
	c.anchor = anchor
	c.measurer = m
	c.content = &content

	gen := c.generation
	c.releases = append(c.releases,
		c.viewport.OnScroll(func() { c.recompute(gen) }),
		c.viewport.OnResize(func() { c.recompute(gen) }),
	)
	c.cancelTick = c.scheduler.Schedule(func() { c.recompute(gen) })
}

// Hide clears the panel and releases its listeners.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.resetLocked()
}

// Close is Hide for an unmounting host.
func (c *Controller) Close() {
	c.Hide()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{Phase: c.phase, Visible: c.phase == PhaseVisible, Anchor: c.anchor, Content: c.content}
	if c.phase == PhaseVisible && c.position != nil {
		pos := *c.position
		s.Position = &pos
	}
	return s
}

// Listening reports how many viewport listeners are registered.
func (c *Controller) Listening() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.releases)
}

func (c *Controller) recompute(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.phase == PhaseHidden {
		return
	}
	pos, ok := geometry.Measure(c.measurer, c.provider)
	if !ok {
		return
	}
	c.position = &pos
	c.phase = PhaseVisible
}

func (c *Controller) resetLocked() {
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
	for _, release := range c.releases {
		release()
	}
	c.releases = nil
	c.phase = PhaseHidden
	c.anchor = ""
	c.measurer = nil
	c.content = nil
	c.position = nil
}

// TimerScheduler defers work with time.AfterFunc.
type TimerScheduler struct {
	Delay time.Duration
}

func (s TimerScheduler) Schedule(fn func()) func() {
	t := time.AfterFunc(s.Delay, fn)
	return func() { t.Stop() }
}
