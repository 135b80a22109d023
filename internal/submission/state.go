package submission

import (
	"fmt"

	"github.com/spigell/resume-report/internal/report"
	"github.com/spigell/resume-report/internal/upload"
)

// Kind names the active variant of a State.
type Kind int

const (
	KindIdle Kind = iota
	KindFileSelected
	KindSubmitting
	KindSucceeded
	KindFailed
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindFileSelected:
		return "file_selected"
	case KindSubmitting:
		return "submitting"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Terminal reports whether the submission has settled.
func (k Kind) Terminal() bool {
	return k == KindSucceeded || k == KindFailed || k == KindCancelled
}

// State is one of Idle, FileSelected, Submitting, Succeeded, Failed or Cancelled.
type State interface {
	Kind() Kind
	isState()
}

type Idle struct{}

type FileSelected struct {
	Candidate upload.Candidate
}

// Submitting is an outstanding call identified by Seq.
type Submitting struct {
	Candidate upload.Candidate
	Progress  float64
	Seq       uint64
}

// Succeeded holds the raw analyzer response and its normalized report.
type Succeeded struct {
	Response []byte
	Report   *report.Report
}

// Failed holds the user-facing message and the transport error behind it.
type Failed struct {
	Message string
	Err     error
}

type Cancelled struct{}

func (Idle) Kind() Kind         { return KindIdle }
func (FileSelected) Kind() Kind { return KindFileSelected }
func (Submitting) Kind() Kind   { return KindSubmitting }
func (Succeeded) Kind() Kind    { return KindSucceeded }
func (Failed) Kind() Kind       { return KindFailed }
func (Cancelled) Kind() Kind    { return KindCancelled }

func (Idle) isState()         {}
func (FileSelected) isState() {}
func (Submitting) isState()   {}
func (Succeeded) isState()    {}
func (Failed) isState()       {}
func (Cancelled) isState()    {}

// Snapshot is a flat read of the machine for renderers that poll.
type Snapshot struct {
	Kind      Kind
	Candidate upload.Candidate
	Progress  float64
	Seq       uint64
	Message   string
	Rejection string
}

// progressOf is the value a renderer shows for the state: 100 after success, 0 after failure or cancel.
func progressOf(s State) float64 {
	switch st := s.(type) {
	case Submitting:
		return st.Progress
	case Succeeded:
		return 100
	default:
		return 0
	}
}
