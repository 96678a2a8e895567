package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlace_Below(t *testing.T) {
	pos, placement := Place(
		Rect{Top: 100, Left: 200, Width: 100, Height: 20},
		Size{Width: 200, Height: 150},
		Size{Width: 1000, Height: 800},
		DefaultOptions(),
	)

	assert.Equal(t, PlacementBelow, placement)
	assert.Equal(t, 130.0, pos.Top)
	assert.Equal(t, 150.0, pos.Left)
}

func TestPlace_FitsExactlyBelow(t *testing.T) {
	// space below is 160, panel plus gap is 160
	_, placement := Place(
		Rect{Top: 620, Left: 400, Width: 20, Height: 20},
		Size{Width: 100, Height: 150},
		Size{Width: 1000, Height: 800},
		DefaultOptions(),
	)

	assert.Equal(t, PlacementBelow, placement)
}

func TestPlace_Above(t *testing.T) {
	pos, placement := Place(
		Rect{Top: 700, Left: 400, Width: 40, Height: 20},
		Size{Width: 100, Height: 150},
		Size{Width: 1000, Height: 800},
		DefaultOptions(),
	)

	assert.Equal(t, PlacementAbove, placement)
	assert.Equal(t, 540.0, pos.Top)
}

func TestPlace_FallbackClampsToBottomMargin(t *testing.T) {
	pos, placement := Place(
		Rect{Top: 150, Left: 400, Width: 40, Height: 20},
		Size{Width: 100, Height: 250},
		Size{Width: 1000, Height: 300},
		DefaultOptions(),
	)

	assert.Equal(t, PlacementFallback, placement)
	assert.Equal(t, 42.0, pos.Top)
}

func TestPlace_FallbackTallerThanViewport(t *testing.T) {
	pos, placement := Place(
		Rect{Top: 100, Left: 400, Width: 40, Height: 20},
		Size{Width: 100, Height: 500},
		Size{Width: 1000, Height: 300},
		DefaultOptions(),
	)

	assert.Equal(t, PlacementFallback, placement)
	assert.Equal(t, DefaultMargin, pos.Top)
}

func TestPlace_HorizontalClamp(t *testing.T) {
	viewport := Size{Width: 500, Height: 800}
	content := Size{Width: 200, Height: 100}

	left, _ := Place(Rect{Top: 10, Left: 0, Width: 20, Height: 20}, content, viewport, DefaultOptions())
	assert.Equal(t, DefaultMargin, left.Left)

	right, _ := Place(Rect{Top: 10, Left: 480, Width: 20, Height: 20}, content, viewport, DefaultOptions())
	assert.Equal(t, 292.0, right.Left)

	wide, _ := Place(Rect{Top: 10, Left: 0, Width: 20, Height: 20}, Size{Width: 490, Height: 100}, viewport, DefaultOptions())
	assert.Equal(t, DefaultMargin, wide.Left)

	wide, _ = Place(Rect{Top: 10, Left: 480, Width: 20, Height: 20}, Size{Width: 490, Height: 100}, viewport, DefaultOptions())
	assert.Equal(t, DefaultMargin, wide.Left)
}

func TestPlace_ClampProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opts := DefaultOptions()

	for i := 0; i < 1000; i++ {
		viewport := Size{Width: 300 + rng.Float64()*1500, Height: 300 + rng.Float64()*1000}
		content := Size{
			Width:  20 + rng.Float64()*(viewport.Width-2*opts.Margin-20),
			Height: 20 + rng.Float64()*(viewport.Height-2*opts.Margin-20),
		}
		trigger := Rect{
			Top:    rng.Float64() * (viewport.Height - 30),
			Left:   rng.Float64() * (viewport.Width - 30),
			Width:  1 + rng.Float64()*29,
			Height: 1 + rng.Float64()*29,
		}

		pos, placement := Place(trigger, content, viewport, opts)

		assert.GreaterOrEqual(t, pos.Left, opts.Margin)
		assert.LessOrEqual(t, pos.Left+content.Width, viewport.Width-opts.Margin+1e-9)
		switch placement {
		case PlacementFallback:
			assert.GreaterOrEqual(t, pos.Top, opts.Margin)
		default:
			assert.GreaterOrEqual(t, pos.Top, 0.0)
			assert.LessOrEqual(t, pos.Top+content.Height, viewport.Height+1e-9)
		}
	}
}

func TestPlace_WidePanelNeverStartsLeftOfMargin(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	opts := DefaultOptions()

	for i := 0; i < 500; i++ {
		viewport := Size{Width: 200 + rng.Float64()*600, Height: 800}
		content := Size{Width: viewport.Width - 2*opts.Margin + 1 + rng.Float64()*300, Height: 50}
		trigger := Rect{Top: 10, Left: rng.Float64() * viewport.Width, Width: 20, Height: 20}

		pos, _ := Place(trigger, content, viewport, opts)
		assert.Equal(t, opts.Margin, pos.Left)
	}
}

type fakeMeasurer struct {
	trigger  Rect
	content  Size
	measured bool
}

func (f fakeMeasurer) Trigger() (Rect, bool) { return f.trigger, true }
func (f fakeMeasurer) Content() (Size, bool) { return f.content, f.measured }
func (f fakeMeasurer) Viewport() Size        { return Size{Width: 1000, Height: 800} }

func TestMeasure(t *testing.T) {
	placer := NewPlacer(DefaultOptions())
	m := fakeMeasurer{trigger: Rect{Top: 100, Left: 200, Width: 100, Height: 20}, content: Size{Width: 200, Height: 150}}

	_, ok := Measure(m, placer)
	assert.False(t, ok)

	m.measured = true
	pos, ok := Measure(m, placer)
	assert.True(t, ok)
	assert.Equal(t, Position{Top: 130, Left: 150}, pos)
}
