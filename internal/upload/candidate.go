package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Candidate is a user-selected résumé file that has not been submitted yet.
// It is a value type: copies are independent and nothing mutates it after construction.
type Candidate struct {
	Name     string
	Size     int64
	MIMEType string

	open func() (io.ReadCloser, error)
}

// declaredTypes mirrors what a browser reports for a picked file: the type follows the extension.
var declaredTypes = map[string]string{
	".pdf":  MIMEPDF,
	".doc":  MIMEDoc,
	".docx": MIMEDocx,
}

// FromFile builds a candidate from a file on disk. The declared type follows the file
// extension unless sniff is set, in which case it is detected from the content.
func FromFile(path string, sniff bool) (Candidate, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Candidate{}, fmt.Errorf("file path is required")
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %q: %w", path, err)
	}

	if stat.IsDir() {
		return Candidate{}, fmt.Errorf("%q is a directory", path)
	}

	mimeType := declaredTypes[strings.ToLower(filepath.Ext(path))]
	if sniff {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return Candidate{}, fmt.Errorf("detect type of %q: %w", path, err)
		}
		mimeType = baseType(detected.String())
	}

	return Candidate{
		Name:     filepath.Base(path),
		Size:     stat.Size(),
		MIMEType: mimeType,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds an in-memory candidate with an explicitly declared type.
func FromBytes(name, mimeType string, data []byte) Candidate {
	return Candidate{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Open returns a fresh reader over the candidate content.
func (c Candidate) Open() (io.ReadCloser, error) {
	if c.open == nil {
		return nil, fmt.Errorf("candidate %q has no content", c.Name)
	}
	return c.open()
}

// IsZero reports whether the candidate was never set.
func (c Candidate) IsZero() bool {
	return c.Name == "" && c.Size == 0 && c.MIMEType == "" && c.open == nil
}

// SizeLabel formats the size the way the upload card shows it.
func (c Candidate) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(c.Size)/1024/1024)
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(t string) string {
	if idx := strings.Index(t, ";"); idx != -1 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
