package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-report/internal/analyzer"
	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/upload"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, attachments ...*genai.Part) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Analyzer asks Gemini to compare the résumé with the configured jobs. Its answer follows
// the same shape the HTTP analyzer returns.
type Analyzer struct {
	generator contentGenerator
	jobs      []analyzer.Job
	logger    *zap.Logger
	maxLogLen int
}

func NewAnalyzer(generator contentGenerator, jobs []analyzer.Job, logger *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		generator: generator,
		jobs:      jobs,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) SubmitForAnalysis(ctx context.Context, candidate upload.Candidate) ([]byte, error) {
	content, err := candidate.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()

	data, err := io.ReadAll(io.LimitReader(content, upload.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", candidate.Name, err)
	}

	jobsJSON, err := json.MarshalIndent(a.jobs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal jobs payload: %w", err)
	}

	prompt := buildPrompt(candidate.Name, string(jobsJSON))

	log := logger.WithFields(a.logger, logger.CandidateFields(candidate.Name, candidate.MIMEType)...)
	log.Debug("gemini generate content request",
		zap.Int("jobs", len(a.jobs)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Preview(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt, genai.NewPartFromBytes(data, candidate.MIMEType))
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.Preview(raw, a.maxLogLen)),
	)

	cleaned := extractJSON(raw)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("parse gemini response: not valid JSON")
	}

	return []byte(cleaned), nil
}

func buildPrompt(fileName, jobsJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume file: {{RESUME_NAME}}\n\nJobs:\n{{JOBS_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{RESUME_NAME}}", fileName)
	prompt = strings.ReplaceAll(prompt, "{{JOBS_JSON}}", jobsJSON)
	return prompt
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
