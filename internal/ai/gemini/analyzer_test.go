package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-report/internal/analyzer"
	"github.com/spigell/resume-report/internal/upload"
)

type stubGenerator struct {
	prompt      string
	attachments []*genai.Part
	response    string
	err         error
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string, attachments ...*genai.Part) (string, error) {
	s.prompt = prompt
	s.attachments = attachments
	return s.response, s.err
}

func TestAnalyzerSubmitForAnalysis(t *testing.T) {
	gen := &stubGenerator{response: "```json\n[{\"title\":\"Backend Engineer\",\"matchScore\":{\"overall\":0.8}}]\n```"}
	jobs := []analyzer.Job{{Title: "Backend Engineer", Company: "Acme"}}

	a := NewAnalyzer(gen, jobs, zap.NewNop(), 0)
	raw, err := a.SubmitForAnalysis(context.Background(), upload.FromBytes("cv.pdf", upload.MIMEPDF, []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !strings.HasPrefix(string(raw), "[{") {
		t.Fatalf("expected fences to be stripped, got %s", raw)
	}

	if !strings.Contains(gen.prompt, `"title": "Backend Engineer"`) || !strings.Contains(gen.prompt, "cv.pdf") {
		t.Fatalf("prompt does not carry the jobs and file name:\n%s", gen.prompt)
	}

	if len(gen.attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(gen.attachments))
	}

	blob := gen.attachments[0].InlineData
	if blob == nil || blob.MIMEType != upload.MIMEPDF || string(blob.Data) != "%PDF-1.4" {
		t.Fatalf("unexpected attachment: %+v", blob)
	}
}

func TestAnalyzerRejectsInvalidJSON(t *testing.T) {
	a := NewAnalyzer(&stubGenerator{response: "sorry, I cannot help"}, nil, nil, 10)

	if _, err := a.SubmitForAnalysis(context.Background(), upload.FromBytes("cv.pdf", upload.MIMEPDF, []byte("x"))); err == nil {
		t.Fatalf("expected error for non-JSON answer")
	}
}

func TestAnalyzerPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAnalyzer(&stubGenerator{err: errors.New("transport closed")}, nil, nil, 0)
	_, err := a.SubmitForAnalysis(ctx, upload.FromBytes("cv.pdf", upload.MIMEPDF, []byte("x")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```\n[]\n```", want: `[]`},
		{in: "  {\"a\":1}  ", want: `{"a":1}`},
	}

	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("cv.docx", "[]")
	if strings.Contains(prompt, "{{") {
		t.Fatalf("prompt has unresolved placeholders:\n%s", prompt)
	}
}
