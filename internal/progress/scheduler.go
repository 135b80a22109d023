package progress

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies a scheduled callback.
type Handle uint64

// Scheduler runs a callback once on the next frame. The callback receives the frame time.
type Scheduler interface {
	Schedule(fn func(now time.Time)) Handle
	Cancel(h Handle)
}

// DefaultFrameInterval approximates one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameScheduler fires callbacks on real timers at a fixed cadence.
type FrameScheduler struct {
	Interval time.Duration

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{Interval: interval, timers: make(map[Handle]*time.Timer)}
}

func (s *FrameScheduler) Schedule(fn func(now time.Time)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(s.Interval, func() {
		s.mu.Lock()
		_, ok := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()

		if ok {
			fn(time.Now())
		}
	})

	return h
}

func (s *FrameScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending returns the number of callbacks waiting to fire.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler is a deterministic scheduler driven by Advance. Callbacks run on the
// goroutine that calls Advance or Flush.
type ManualScheduler struct {
	Frame time.Duration

	mu      sync.Mutex
	now     time.Time
	next    Handle
	pending map[Handle]func(time.Time)
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{
		Frame:   DefaultFrameInterval,
		now:     start,
		pending: make(map[Handle]func(time.Time)),
	}
}

func (s *ManualScheduler) Schedule(fn func(now time.Time)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *ManualScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Flush moves the clock one frame forward and fires what was pending at that moment.
// Callbacks scheduled while flushing wait for the next frame.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	s.now = s.now.Add(s.Frame)
	now := s.now

	handles := make([]Handle, 0, len(s.pending))
	for h := range s.pending {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	fns := make([]func(time.Time), 0, len(handles))
	for _, h := range handles {
		fns = append(fns, s.pending[h])
		delete(s.pending, h)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}

	return len(fns)
}

// Advance flushes frames until d has elapsed.
func (s *ManualScheduler) Advance(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += s.Frame {
		s.Flush()
	}
}

// Pending returns the number of callbacks waiting for the next frame.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Now returns the scheduler clock.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
