// Package progress produces an eased progress value that is independent of real transfer progress.
package progress

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultDuration is how long the ease takes to reach the ceiling.
	DefaultDuration = 1800 * time.Millisecond
	// Ceiling is the highest value the driver reports on its own.
	Ceiling = 90.0
)

// Ease is a cubic ease-out from start toward ceiling over duration.
func Ease(start, ceiling float64, elapsed, duration time.Duration) float64 {
	t := 1.0
	if duration > 0 {
		t = math.Min(float64(elapsed)/float64(duration), 1)
	}
	if t < 0 {
		t = 0
	}
	return start + (ceiling-start)*(1-math.Pow(1-t, 3))
}

// Driver reports eased progress on every frame until it reaches the ceiling or is stopped.
type Driver struct {
	scheduler Scheduler
	duration  time.Duration
	ceiling   float64

	mu      sync.Mutex
	gen     uint64
	running bool
	handle  Handle
	from    float64
	origin  time.Time
	onTick  func(float64)
}

func NewDriver(scheduler Scheduler, duration time.Duration) *Driver {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if scheduler == nil {
		scheduler = NewFrameScheduler(DefaultFrameInterval)
	}
	return &Driver{scheduler: scheduler, duration: duration, ceiling: Ceiling}
}

// Start begins easing from the given value. A running ease is replaced.
func (d *Driver) Start(from float64, onTick func(float64)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	d.gen++
	d.running = true
	d.from = from
	d.origin = time.Time{}
	d.onTick = onTick
	d.scheduleLocked(d.gen)
}

// Stop releases the scheduled frame. Stopping a stopped driver does nothing.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) stopLocked() {
	if !d.running {
		return
	}
	d.scheduler.Cancel(d.handle)
	d.running = false
	d.onTick = nil
}

func (d *Driver) scheduleLocked(gen uint64) {
	d.handle = d.scheduler.Schedule(func(now time.Time) {
		d.frame(gen, now)
	})
}

func (d *Driver) frame(gen uint64, now time.Time) {
	d.mu.Lock()
	if !d.running || gen != d.gen {
		d.mu.Unlock()
		return
	}

	// The first frame is the time origin of the ease.
	if d.origin.IsZero() {
		d.origin = now
	}

	elapsed := now.Sub(d.origin)
	value := Ease(d.from, d.ceiling, elapsed, d.duration)
	onTick := d.onTick

	if elapsed >= d.duration {
		value = d.ceiling
		d.running = false
		d.onTick = nil
	} else {
		d.scheduleLocked(gen)
	}
	d.mu.Unlock()

	if onTick != nil {
		onTick(value)
	}
}
