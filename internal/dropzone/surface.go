// Package dropzone turns drag-style events into validated file selections.
package dropzone

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/upload"
)

var ErrNoFiles = errors.New("drop carried no files")

// Event is a drag event whose default platform action can be suppressed.
type Event interface {
	PreventDefault()
}

// Selector receives accepted files. *submission.Machine satisfies it.
type Selector interface {
	SelectFile(c upload.Candidate) error
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(c upload.Candidate) error

func (f SelectorFunc) SelectFile(c upload.Candidate) error { return f(c) }

// Surface tracks whether a file hovers over the drop target and routes dropped files.
type Surface struct {
	selector Selector
	logger   *zap.Logger

	mu        sync.Mutex
	hovering  bool
	rejection error
}

func NewSurface(selector Selector, log *zap.Logger) *Surface {
	return &Surface{selector: selector, logger: logger.WithFields(log)}
}

func (s *Surface) DragEnter(ev Event) { s.hover(ev, true) }

func (s *Surface) DragOver(ev Event) { s.hover(ev, true) }

func (s *Surface) DragLeave(ev Event) { s.hover(ev, false) }

// Drop selects the first file when it passes validation. Additional files are ignored.
// A rejected file is returned as *upload.ValidationError and never reaches the selector.
func (s *Surface) Drop(ev Event, files []upload.Candidate) error {
	s.hover(ev, false)

	if len(files) == 0 {
		return ErrNoFiles
	}

	first := files[0]
	if len(files) > 1 {
		s.logger.Debug("ignoring extra dropped files", zap.Int("ignored", len(files)-1))
	}

	verdict := upload.Validate(first)

	s.mu.Lock()
	s.rejection = verdict.Err()
	s.mu.Unlock()

	if !verdict.Accepted {
		s.logger.Info("dropped file rejected",
			append(logger.CandidateFields(first.Name, first.MIMEType), zap.Stringer("reason", verdict.Reason))...)
		return verdict.Err()
	}

	return s.selector.SelectFile(first)
}

func (s *Surface) Hovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovering
}

// Rejection is the reason the last dropped file was refused, or nil.
func (s *Surface) Rejection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejection
}

func (s *Surface) hover(ev Event, hovering bool) {
	if ev != nil {
		ev.PreventDefault()
	}

	s.mu.Lock()
	s.hovering = hovering
	s.mu.Unlock()
}
