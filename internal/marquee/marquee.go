// Package marquee implements the reviews carousel: a horizontally
// scrolling track that loops forever, pauses while hovered and restarts
// cleanly when the selected platform tab changes.
//
// The track holds the filtered reviews twice, end to end. Scrolling left by
// exactly one copy's width (the half-track width) lands on content that is
// pixel-identical to the start, so the offset can be wrapped there without a
// visible seam.
//
// A Marquee is not safe for concurrent use. Drive it from one goroutine, or
// through a Driver.
package marquee

import (
	"math"
	"time"

	"academy_site/internal/catalog"
	"academy_site/internal/domain"
)

// State is the two-state animation machine.
type State int

const (
	Running State = iota
	Paused
)

func (s State) String() string {
	if s == Paused {
		return "paused"
	}
	return "running"
}

type Marquee struct {
	all      []domain.Review
	active   domain.Source
	filtered []domain.Review

	offset    float64
	lastFrame time.Time
	halfWidth float64

	hovered       map[string]struct{}
	reducedMotion bool

	viewport float64
	speed    float64
	policy   SpeedPolicy
	layouts  LayoutPolicy
	layout   Layout
}

type Option func(*Marquee)

// WithSpeedPolicy replaces DefaultSpeedPolicy. New panics if p is not
// Monotonic.
func WithSpeedPolicy(p SpeedPolicy) Option { return func(m *Marquee) { m.policy = p } }

// WithLayoutPolicy replaces DefaultLayouts.
func WithLayoutPolicy(p LayoutPolicy) Option { return func(m *Marquee) { m.layouts = p } }

// WithViewport sets the initial viewport width in pixels (default 1280).
func WithViewport(w float64) Option { return func(m *Marquee) { m.viewport = w } }

func WithReducedMotion(on bool) Option { return func(m *Marquee) { m.reducedMotion = on } }

// New builds a marquee over reviews with the default tab selected.
func New(reviews []domain.Review, opts ...Option) *Marquee {
	m := &Marquee{
		all:      reviews,
		active:   domain.DefaultSource,
		hovered:  map[string]struct{}{},
		viewport: 1280,
		policy:   DefaultSpeedPolicy,
		layouts:  DefaultLayouts,
	}
	for _, o := range opts {
		o(m)
	}
	if !m.policy.Monotonic() {
		panic("marquee: speed policy slows down on wider viewports")
	}
	m.filtered = catalog.Filter(m.all, m.active)
	m.Resize(m.viewport)
	return m
}

// Items returns the rendered track: the filtered reviews followed by the
// same reviews again.
func (m *Marquee) Items() []domain.Review {
	out := make([]domain.Review, 0, 2*len(m.filtered))
	out = append(out, m.filtered...)
	return append(out, m.filtered...)
}

func (m *Marquee) Filtered() []domain.Review { return m.filtered }
func (m *Marquee) Active() domain.Source     { return m.active }
func (m *Marquee) Offset() float64           { return m.offset }
func (m *Marquee) HalfWidth() float64        { return m.halfWidth }
func (m *Marquee) Speed() float64            { return m.speed }
func (m *Marquee) Layout() Layout            { return m.layout }
func (m *Marquee) ReducedMotion() bool       { return m.reducedMotion }

func (m *Marquee) State() State {
	if len(m.hovered) > 0 {
		return Paused
	}
	return Running
}

// SelectTab switches the data source. Selecting the active tab is a no-op.
// Any other tab resets the offset, forgets the last frame timestamp and
// re-measures the track for the new content.
func (m *Marquee) SelectTab(src domain.Source) {
	if src == m.active {
		return
	}
	m.active = src
	m.filtered = catalog.Filter(m.all, src)
	m.offset = 0
	m.lastFrame = time.Time{}
	m.Measure()
}

// Resize applies the speed and card layout for a new viewport width and
// re-measures the loop period.
func (m *Marquee) Resize(viewport float64) {
	m.viewport = viewport
	m.speed = m.policy.SpeedFor(viewport)
	m.layout = m.layouts.For(viewport)
	m.Measure()
}

// Measure recomputes the half-track width from the rendered track and
// pulls the offset back inside the new loop bound.
func (m *Marquee) Measure() {
	m.halfWidth = m.layout.TrackWidth(2*len(m.filtered)) / 2
	m.offset = wrap(m.offset, m.halfWidth)
}

// Enter marks region as hovered. Regions are identified by the caller
// ("track", "card:3"); entering the same region twice counts once.
func (m *Marquee) Enter(region string) { m.hovered[region] = struct{}{} }

// Leave clears region. The marquee resumes once no region is hovered.
func (m *Marquee) Leave(region string) { delete(m.hovered, region) }

// LeaveAll clears every hovered region, e.g. when the pointer leaves the
// window entirely.
func (m *Marquee) LeaveAll() { clear(m.hovered) }

// SetReducedMotion turns the animation off (true) or back on. While off the
// offset is pinned at zero.
func (m *Marquee) SetReducedMotion(on bool) {
	m.reducedMotion = on
	if on {
		m.offset = 0
	}
	m.lastFrame = time.Time{}
}

// Frame advances the marquee to frame timestamp ts. The first frame after a
// reset only records the timestamp. The timestamp is refreshed while paused
// so resuming does not jump.
func (m *Marquee) Frame(ts time.Time) {
	if m.reducedMotion {
		return
	}
	if m.lastFrame.IsZero() {
		m.lastFrame = ts
		return
	}
	dt := ts.Sub(m.lastFrame)
	m.lastFrame = ts
	if dt < 0 {
		dt = 0
	}
	m.Tick(dt)
}

// Tick moves the track left by speed*dt, wrapping at the half-track width.
func (m *Marquee) Tick(dt time.Duration) {
	if m.reducedMotion || m.State() == Paused || m.halfWidth <= 0 || dt <= 0 {
		return
	}
	m.offset = wrap(m.offset-m.speed*dt.Seconds(), m.halfWidth)
}

// wrap maps offset into (-half, 0]. A non-positive half resets to 0.
func wrap(offset, half float64) float64 {
	if half <= 0 || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return 0
	}
	if offset > 0 {
		offset = 0
	}
	offset = math.Mod(offset, half)
	if offset == 0 {
		return 0 // normalize -0
	}
	return offset
}
