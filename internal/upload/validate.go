// Package upload validates résumé files before they are handed to the submission machine.
package upload

import "fmt"

const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// MaxSizeBytes is the largest accepted file, 10 MiB.
	MaxSizeBytes int64 = 10 * 1024 * 1024
)

// ReasonCode explains why a candidate was rejected.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonUnsupportedType
	ReasonTooLarge
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUnsupportedType:
		return "UNSUPPORTED_TYPE"
	case ReasonTooLarge:
		return "TOO_LARGE"
	default:
		return fmt.Sprintf("REASON(%d)", int(r))
	}
}

// Message is the user-facing text for the reason.
func (r ReasonCode) Message() string {
	switch r {
	case ReasonUnsupportedType:
		return "Please upload a PDF, DOC, or DOCX file."
	case ReasonTooLarge:
		return "File is too large. Max 10MB."
	default:
		return ""
	}
}

// Verdict is the outcome of Validate.
type Verdict struct {
	Accepted bool
	Reason   ReasonCode
}

// Err returns nil for accepted verdicts and a *ValidationError otherwise.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return &ValidationError{Reason: v.Reason}
}

// ValidationError is a recoverable rejection of a candidate.
type ValidationError struct {
	Reason ReasonCode
}

func (e *ValidationError) Error() string {
	return e.Reason.Message()
}

// allowedTypes is matched exactly, case included.
var allowedTypes = map[string]struct{}{
	MIMEPDF:  {},
	MIMEDoc:  {},
	MIMEDocx: {},
}

// AllowedTypes lists the accepted declared types.
func AllowedTypes() []string {
	return []string{MIMEPDF, MIMEDoc, MIMEDocx}
}

// Validate checks a candidate against the fixed type allow-list and size ceiling.
func Validate(c Candidate) Verdict {
	if _, ok := allowedTypes[c.MIMEType]; !ok {
		return Verdict{Reason: ReasonUnsupportedType}
	}

	if c.Size > MaxSizeBytes {
		return Verdict{Reason: ReasonTooLarge}
	}

	return Verdict{Accepted: true, Reason: ReasonNone}
}
