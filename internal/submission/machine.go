// Package submission owns the lifecycle of a single résumé upload: selection, the cancellable
// call to the analyzer, the synthetic progress value and the settled outcome.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/analysis"
	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/metrics"
	"github.com/spigell/resume-report/internal/progress"
	"github.com/spigell/resume-report/internal/report"
	"github.com/spigell/resume-report/internal/upload"
)

const (
	// CancelledMessage is shown after the user aborts a submission.
	CancelledMessage = "Upload cancelled."
	// FallbackMessage is shown when a failed call carries no message of its own.
	FallbackMessage = "Failed to upload resume. Please try again."

	reducedMotionProgress = 50.0
)

var (
	ErrBusy        = errors.New("a submission is already in progress")
	ErrNoCandidate = errors.New("no file selected")
	ErrNoRetry     = errors.New("nothing to retry")
	ErrClosed      = errors.New("submission machine is closed")
)

// Transport performs the network call. It must return an error wrapping context.Canceled
// once ctx is cancelled.
type Transport interface {
	SubmitForAnalysis(ctx context.Context, candidate upload.Candidate) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, candidate upload.Candidate) ([]byte, error)

func (f TransportFunc) SubmitForAnalysis(ctx context.Context, candidate upload.Candidate) ([]byte, error) {
	return f(ctx, candidate)
}

// UserMessager is implemented by transport errors that carry a message meant for the user.
type UserMessager interface {
	UserMessage() string
}

type Config struct {
	// ReducedMotion starts submissions at 50% and runs no progress driver.
	ReducedMotion bool
	// EaseDuration overrides progress.DefaultDuration.
	EaseDuration time.Duration
}

type Deps struct {
	Transport Transport
	Scheduler progress.Scheduler
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// Observer receives every committed state in commit order. It must not call
	// transition methods of the machine.
	Observer func(State)
}

type Machine struct {
	cfg       Config
	transport Transport
	driver    *progress.Driver
	logger    *zap.Logger
	metrics   *metrics.Metrics
	observer  func(State)

	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     State
	seq       uint64
	last      upload.Candidate
	rejection error
	cancel    context.CancelFunc
	settled   chan struct{}
	started   time.Time
	closed    bool

	calls sync.WaitGroup
}

func New(cfg Config, deps Deps) (*Machine, error) {
	if deps.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	return &Machine{
		cfg:       cfg,
		transport: deps.Transport,
		driver:    progress.NewDriver(deps.Scheduler, cfg.EaseDuration),
		logger:    logger.WithFields(deps.Logger),
		metrics:   deps.Metrics,
		observer:  deps.Observer,
		state:     Idle{},
	}, nil
}

// State returns the active variant.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Progress is the percent a renderer should show right now.
func (m *Machine) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return progressOf(m.state)
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{Kind: m.state.Kind(), Progress: progressOf(m.state)}
	if m.rejection != nil {
		snap.Rejection = m.rejection.Error()
	}

	switch st := m.state.(type) {
	case FileSelected:
		snap.Candidate = st.Candidate
	case Submitting:
		snap.Candidate = st.Candidate
		snap.Seq = st.Seq
	case Failed:
		snap.Message = st.Message
	case Cancelled:
		snap.Message = CancelledMessage
	}

	return snap
}

// Report returns the normalized report of a successful submission, or nil.
func (m *Machine) Report() *report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.state.(Succeeded); ok {
		return st.Report
	}
	return nil
}

// Rejection is the last validation error, cleared by an accepted selection or a reset.
func (m *Machine) Rejection() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejection
}

// SelectFile validates the candidate and selects it. A rejected candidate leaves the state
// unchanged and is returned as *upload.ValidationError. Selecting from a settled state resets first.
func (m *Machine) SelectFile(c upload.Candidate) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.state.(Submitting); ok {
		m.mu.Unlock()
		return ErrBusy
	}

	log := logger.WithFields(m.logger, logger.CandidateFields(c.Name, c.MIMEType)...)

	verdict := upload.Validate(c)
	if !verdict.Accepted {
		m.rejection = verdict.Err()
		m.mu.Unlock()
		m.metrics.Rejected(verdict.Reason.String())
		log.Info("file rejected", zap.Stringer("reason", verdict.Reason), zap.Int64("size", c.Size))
		return verdict.Err()
	}

	m.rejection = nil
	m.last = c
	m.state = FileSelected{Candidate: c}
	st := m.state
	log.Debug("file selected", zap.String("size", c.SizeLabel()))
	m.unlockAndNotify(st)
	return nil
}

// RemoveFile discards the selected candidate. It does nothing outside FileSelected.
func (m *Machine) RemoveFile() {
	m.mu.Lock()
	if _, ok := m.state.(FileSelected); !ok {
		m.mu.Unlock()
		return
	}
	m.last = upload.Candidate{}
	m.state = Idle{}
	m.unlockAndNotify(m.state)
}

// StartSubmission issues the call for the selected candidate and returns its sequence number.
// Only one submission may be outstanding.
func (m *Machine) StartSubmission(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}

	var candidate upload.Candidate
	switch st := m.state.(type) {
	case Submitting:
		m.mu.Unlock()
		return 0, ErrBusy
	case FileSelected:
		candidate = st.Candidate
	default:
		m.mu.Unlock()
		return 0, ErrNoCandidate
	}

	m.seq++
	seq := m.seq

	callCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.settled = make(chan struct{})
	m.started = time.Now()

	start := 0.0
	if m.cfg.ReducedMotion {
		start = reducedMotionProgress
	}
	m.state = Submitting{Candidate: candidate, Progress: start, Seq: seq}

	if !m.cfg.ReducedMotion {
		m.driver.Start(start, func(p float64) { m.tick(seq, p) })
	}

	m.metrics.InFlight(1)
	m.calls.Add(1)
	go func() {
		defer m.calls.Done()
		raw, err := m.transport.SubmitForAnalysis(callCtx, candidate)
		m.settle(seq, raw, err)
	}()

	m.logger.Info("submission started",
		append(logger.CandidateFields(candidate.Name, candidate.MIMEType), zap.Uint64(logger.FieldSubmission, seq))...)

	m.unlockAndNotify(m.state)
	return seq, nil
}

// Cancel aborts the outstanding submission. It does nothing outside Submitting.
func (m *Machine) Cancel() {
	m.mu.Lock()
	st, ok := m.state.(Submitting)
	if !ok {
		m.mu.Unlock()
		return
	}

	m.abortLocked()
	m.metrics.Settled(metrics.OutcomeCancelled, time.Since(m.started))
	m.logger.Info("submission cancelled", zap.Uint64(logger.FieldSubmission, st.Seq))
	m.unlockAndNotify(m.state)
}

// Reset returns to Idle from a settled state or FileSelected. It does nothing in Idle or Submitting.
func (m *Machine) Reset() {
	m.mu.Lock()
	switch m.state.(type) {
	case Idle, Submitting:
		m.mu.Unlock()
		return
	}

	m.last = upload.Candidate{}
	m.rejection = nil
	m.state = Idle{}
	m.unlockAndNotify(m.state)
}

// Retry selects the previous candidate again after a failure or a cancellation.
func (m *Machine) Retry() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	switch m.state.(type) {
	case Failed, Cancelled:
	default:
		m.mu.Unlock()
		return ErrNoRetry
	}

	if m.last.IsZero() {
		m.mu.Unlock()
		return ErrNoRetry
	}

	m.state = FileSelected{Candidate: m.last}
	m.unlockAndNotify(m.state)
	return nil
}

// Wait blocks until the current submission settles or ctx is done and returns the state.
func (m *Machine) Wait(ctx context.Context) (State, error) {
	m.mu.Lock()
	settled := m.settled
	m.mu.Unlock()

	if settled == nil {
		return m.State(), nil
	}

	select {
	case <-settled:
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

// Close aborts an outstanding call, stops the progress driver and waits for the call to return.
// Transitions after Close fail with ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	if _, ok := m.state.(Submitting); ok {
		m.abortLocked()
		m.metrics.Settled(metrics.OutcomeCancelled, time.Since(m.started))
		m.logger.Debug("submission aborted on close")
		m.unlockAndNotify(m.state)
	} else {
		m.mu.Unlock()
	}

	m.driver.Stop()
	m.calls.Wait()
}

func (m *Machine) tick(seq uint64, p float64) {
	m.mu.Lock()
	st, ok := m.state.(Submitting)
	if !ok || st.Seq != seq || p <= st.Progress {
		m.mu.Unlock()
		return
	}

	st.Progress = min(p, progress.Ceiling)
	m.state = st
	m.unlockAndNotify(st)
}

func (m *Machine) settle(seq uint64, raw []byte, err error) {
	m.mu.Lock()
	st, ok := m.state.(Submitting)
	if !ok || st.Seq != seq {
		m.mu.Unlock()
		m.logger.Debug("ignoring stale settlement", zap.Uint64(logger.FieldSubmission, seq), zap.Error(err))
		return
	}

	m.releaseLocked()
	elapsed := time.Since(m.started)
	log := m.logger.With(zap.Uint64(logger.FieldSubmission, seq), zap.Duration("elapsed", elapsed))

	switch {
	case err == nil:
		rep := report.FromRaw(raw)
		m.state = Succeeded{Response: raw, Report: rep}
		m.metrics.Settled(metrics.OutcomeSucceeded, elapsed)
		log.Info("submission succeeded", zap.Int("records", rep.Len()))
		if deviations := analysis.Diagnose(raw); len(deviations) > 0 {
			log.Debug("response deviates from contract", zap.Strings("deviations", deviations))
		}
	case errors.Is(err, context.Canceled):
		m.state = Cancelled{}
		m.metrics.Settled(metrics.OutcomeCancelled, elapsed)
		log.Info("submission cancelled by transport")
	default:
		m.state = Failed{Message: FailureMessage(err), Err: err}
		m.metrics.Settled(metrics.OutcomeFailed, elapsed)
		log.Warn("submission failed", zap.Error(err))
	}

	m.unlockAndNotify(m.state)
}

// abortLocked moves Submitting to Cancelled and signals the call.
func (m *Machine) abortLocked() {
	m.releaseLocked()
	m.state = Cancelled{}
}

// releaseLocked frees everything a Submitting state holds. Every exit from Submitting passes here.
func (m *Machine) releaseLocked() {
	m.driver.Stop()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.settled != nil {
		close(m.settled)
	}
	m.metrics.InFlight(-1)
}

func (m *Machine) unlockAndNotify(st State) {
	if m.observer == nil {
		m.mu.Unlock()
		return
	}

	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	m.observer(st)
}

// FailureMessage derives the message shown for a failed call.
func FailureMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}

	var um UserMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
		return FallbackMessage
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}
