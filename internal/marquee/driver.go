package marquee

import (
	"context"
	"errors"
	"time"

	"academy_site/internal/domain"
)

// Snapshot is what a renderer needs to place the track for one frame.
type Snapshot struct {
	Source    domain.Source
	Offset    float64
	HalfWidth float64
	Speed     float64
	State     State
	Cards     int
}

func (m *Marquee) Snapshot() Snapshot {
	return Snapshot{
		Source:    m.active,
		Offset:    m.offset,
		HalfWidth: m.halfWidth,
		Speed:     m.speed,
		State:     m.State(),
		Cards:     2 * len(m.filtered),
	}
}

var ErrDriverStopped = errors.New("marquee: driver stopped")

// Driver owns a Marquee and serializes frames and UI events (tab clicks,
// hover, resize) onto the goroutine running Run.
type Driver struct {
	m      *Marquee
	events chan func(*Marquee)
	done   chan struct{}
}

func NewDriver(m *Marquee) *Driver {
	return &Driver{
		m:      m,
		events: make(chan func(*Marquee), 16),
		done:   make(chan struct{}),
	}
}

// Do queues fn to run against the marquee between frames. It blocks until
// the event is queued, ctx is done, or the driver has stopped.
func (d *Driver) Do(ctx context.Context, fn func(*Marquee)) error {
	select {
	case <-d.done:
		return ErrDriverStopped
	default:
	}
	select {
	case d.events <- fn:
		return nil
	case <-d.done:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes frames until ctx is cancelled or frames is closed. render is
// called after every frame and every event, always on Run's goroutine, and
// never after Run returns. With reduced motion on, frames leave the offset
// at zero.
func (d *Driver) Run(ctx context.Context, frames <-chan time.Time, render func(Snapshot)) error {
	defer close(d.done)
	if render == nil {
		render = func(Snapshot) {}
	}
	render(d.m.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-d.events:
			fn(d.m)
			render(d.m.Snapshot())
		case ts, ok := <-frames:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.m.Frame(ts)
			render(d.m.Snapshot())
		}
	}
}

// FrameTicker emits frame timestamps at fps until stop is called.
func FrameTicker(fps int) (<-chan time.Time, func()) {
	if fps <= 0 {
		fps = 60
	}
	t := time.NewTicker(time.Second / time.Duration(fps))
	return t.C, t.Stop
}
