package marquee

import "sort"

// Breakpoint applies Speed (px/s) to viewports narrower than MaxWidth.
type Breakpoint struct {
	MaxWidth float64
	Speed    float64
}

// SpeedPolicy is a step function of viewport width. Breakpoints are checked
// in ascending MaxWidth order; Widest applies past the last one.
type SpeedPolicy struct {
	Breakpoints []Breakpoint
	Widest      float64
}

// DefaultSpeedPolicy: phones, tablets, laptops, desktops.
var DefaultSpeedPolicy = SpeedPolicy{
	Breakpoints: []Breakpoint{
		{MaxWidth: 640, Speed: 30},
		{MaxWidth: 1024, Speed: 45},
		{MaxWidth: 1440, Speed: 60},
	},
	Widest: 80,
}

func (p SpeedPolicy) SpeedFor(viewport float64) float64 {
	bps := append([]Breakpoint(nil), p.Breakpoints...)
	sort.Slice(bps, func(i, j int) bool { return bps[i].MaxWidth < bps[j].MaxWidth })
	for _, bp := range bps {
		if viewport < bp.MaxWidth {
			return bp.Speed
		}
	}
	return p.Widest
}

// Monotonic reports whether a wider viewport never scrolls slower.
func (p SpeedPolicy) Monotonic() bool {
	bps := append([]Breakpoint(nil), p.Breakpoints...)
	sort.Slice(bps, func(i, j int) bool { return bps[i].MaxWidth < bps[j].MaxWidth })
	prev := 0.0
	for _, bp := range bps {
		if bp.Speed < prev {
			return false
		}
		prev = bp.Speed
	}
	return p.Widest >= prev
}

// Layout is the horizontal geometry of one card slot. Units are whatever
// the renderer uses: CSS pixels for the web section, columns for the
// terminal preview.
type Layout struct {
	CardWidth float64 `json:"cardWidth"`
	Gap       float64 `json:"gap"`
}

// TrackWidth is the scroll width of n cards laid out end to end, each
// followed by its gap.
func (l Layout) TrackWidth(n int) float64 {
	if n <= 0 || l.CardWidth <= 0 {
		return 0
	}
	gap := l.Gap
	if gap < 0 {
		gap = 0
	}
	return float64(n) * (l.CardWidth + gap)
}

// LayoutPolicy picks a card layout per viewport class.
type LayoutPolicy func(viewport float64) Layout

func (p LayoutPolicy) For(viewport float64) Layout {
	if p == nil {
		return DefaultLayouts(viewport)
	}
	return p(viewport)
}

// DefaultLayouts mirrors the site's card sizes at each breakpoint.
func DefaultLayouts(viewport float64) Layout {
	switch {
	case viewport < 640:
		return Layout{CardWidth: 280, Gap: 16}
	case viewport < 1024:
		return Layout{CardWidth: 320, Gap: 20}
	default:
		return Layout{CardWidth: 360, Gap: 24}
	}
}

// FixedLayout ignores the viewport.
func FixedLayout(l Layout) LayoutPolicy { return func(float64) Layout { return l } }
