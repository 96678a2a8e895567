// Package geometry places a floating panel next to a trigger element so that it stays inside the viewport.
package geometry

import "math"

const (
	DefaultGap    = 10.0
	DefaultMargin = 8.0
)

// Rect is a trigger's bounding box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Bottom() float64 { return r.Top + r.Height }

func (r Rect) Right() float64 { return r.Left + r.Width }

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Placement names the branch that produced a position.
type Placement string

const (
	PlacementBelow    Placement = "below"
	PlacementAbove    Placement = "above"
	PlacementFallback Placement = "fallback"
)

type Options struct {
	Gap    float64
	Margin float64
}

func DefaultOptions() Options {
	return Options{Gap: DefaultGap, Margin: DefaultMargin}
}

// Provider computes a panel position from plain rectangles.
type Provider interface {
	Position(trigger Rect, content Size, viewport Size) Position
}

// Measurer reads live geometry from the environment the panel is rendered in.
type Measurer interface {
	Trigger() (Rect, bool)
	Content() (Size, bool)
	Viewport() Size
}

// Place returns the panel position and the branch that was taken.
//
// The panel goes below the trigger when it fits, above when only that fits, and otherwise
// below with the top clamped so the panel ends inside the bottom margin. Horizontally it is
// centred on the trigger and kept within the side margins. The left margin is applied last,
// so a panel wider than the viewport minus both margins starts at the margin.
func Place(trigger Rect, content Size, viewport Size, opts Options) (Position, Placement) {
	gap, margin := opts.Gap, opts.Margin

	spaceBelow := viewport.Height - trigger.Bottom()
	spaceAbove := trigger.Top

	var (
		top       float64
		placement Placement
	)
	switch {
	case content.Height+gap <= spaceBelow:
		top = trigger.Bottom() + gap
		placement = PlacementBelow
	case content.Height+gap <= spaceAbove:
		top = trigger.Top - content.Height - gap
		placement = PlacementAbove
	default:
		top = trigger.Bottom() + gap
		placement = PlacementFallback
		if top+content.Height > viewport.Height-margin {
			top = math.Max(margin, viewport.Height-content.Height-margin)
		}
	}

	left := trigger.Left + trigger.Width/2 - content.Width/2
	if left+content.Width > viewport.Width-margin {
		left = viewport.Width - content.Width - margin
	}
	if left < margin {
		left = margin
	}

	return Position{Top: top, Left: left}, placement
}

// Placer is the default Provider.
type Placer struct {
	opts Options
}

func NewPlacer(opts Options) *Placer {
	if opts.Gap < 0 {
		opts.Gap = DefaultGap
	}
	if opts.Margin < 0 {
		opts.Margin = DefaultMargin
	}
	return &Placer{opts: opts}
}

func (p *Placer) Position(trigger Rect, content Size, viewport Size) Position {
	pos, _ := Place(trigger, content, viewport, p.opts)
	return pos
}

// Measure reads the current geometry through m and places the panel with p.
// It reports false when the trigger or content cannot be measured yet.
func Measure(m Measurer, p Provider) (Position, bool) {
	trigger, ok := m.Trigger()
	if !ok {
		return Position{}, false
	}
	content, ok := m.Content()
	if !ok {
		return Position{}, false
	}
	return p.Position(trigger, content, m.Viewport()), true
}
