package upload

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mime   string
		size   int64
		expect Verdict
	}{
		{
			name:   "pdf under limit",
			mime:   MIMEPDF,
			size:   1_000_000,
			expect: Verdict{Accepted: true, Reason: ReasonNone},
		},
		{
			name:   "docx exactly at limit",
			mime:   MIMEDocx,
			size:   MaxSizeBytes,
			expect: Verdict{Accepted: true, Reason: ReasonNone},
		},
		{
			name:   "pdf over limit",
			mime:   MIMEPDF,
			size:   11_000_000,
			expect: Verdict{Reason: ReasonTooLarge},
		},
		{
			name:   "png",
			mime:   "image/png",
			size:   10,
			expect: Verdict{Reason: ReasonUnsupportedType},
		},
		{
			name:   "type match is case sensitive",
			mime:   "Application/PDF",
			size:   10,
			expect: Verdict{Reason: ReasonUnsupportedType},
		},
		{
			name:   "unsupported type wins over size",
			mime:   "text/plain",
			size:   MaxSizeBytes + 1,
			expect: Verdict{Reason: ReasonUnsupportedType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Validate(Candidate{Name: "cv", Size: tt.size, MIMEType: tt.mime})
			if got != tt.expect {
				t.Fatalf("expected %+v, got %+v", tt.expect, got)
			}
		})
	}
}

func TestVerdictErr(t *testing.T) {
	if err := (Verdict{Accepted: true}).Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := (Verdict{Reason: ReasonTooLarge}).Err()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	if verr.Reason != ReasonTooLarge {
		t.Fatalf("unexpected reason: %s", verr.Reason)
	}

	if err.Error() != "File is too large. Max 10MB." {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFromFileDeclaredType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.DOCX")
	if err := os.WriteFile(path, []byte("not really a docx"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c, err := FromFile(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Name != "resume.DOCX" || c.MIMEType != MIMEDocx || c.Size != 17 {
		t.Fatalf("unexpected candidate: %+v", c)
	}

	rc, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "not really a docx" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestFromFileSniffedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renamed.pdf")
	if err := os.WriteFile(path, []byte("just some plain text"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c, err := FromFile(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.MIMEType != "text/plain" {
		t.Fatalf("expected sniffed text/plain, got %q", c.MIMEType)
	}

	if Validate(c).Reason != ReasonUnsupportedType {
		t.Fatalf("expected renamed file to be rejected")
	}
}

func TestFromFileErrors(t *testing.T) {
	if _, err := FromFile("", false); err == nil {
		t.Fatalf("expected error for empty path")
	}

	if _, err := FromFile(t.TempDir(), false); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestCandidateHelpers(t *testing.T) {
	c := FromBytes("cv.pdf", MIMEPDF, make([]byte, 1536*1024))
	if got := c.SizeLabel(); got != "1.50 MB" {
		t.Fatalf("unexpected size label: %q", got)
	}

	if c.IsZero() {
		t.Fatalf("expected non-zero candidate")
	}

	if !(Candidate{}).IsZero() {
		t.Fatalf("expected zero candidate")
	}

	if _, err := (Candidate{Name: "x"}).Open(); err == nil {
		t.Fatalf("expected error opening candidate without content")
	}
}
