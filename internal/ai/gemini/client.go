package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-report/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-pro"
	defaultMaxRetries = 3

	baseRetryDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

// waitFor is swapped in tests.
var waitFor = utils.WaitFor

type modelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models     modelsClient
	modelName  string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// A negative maxRetries disables retries; zero selects the default.
func NewGenerator(ctx context.Context, logger *zap.Logger, apiKey, model string, maxRetries int) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, logger, model, maxRetries), nil
}

func newGenerator(models modelsClient, logger *zap.Logger, model string, maxRetries int) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{models: models, modelName: model, maxRetries: maxRetries, logger: logger}
}

// GenerateContent sends the prompt with the attachments and returns the textual response.
// The model is asked to answer in JSON.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, attachments ...*genai.Part) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	parts := append([]*genai.Part{genai.NewPartFromText(prompt)}, attachments...)
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	var (
		resp *genai.GenerateContentResponse
		err  error
	)

	for attempt := 0; ; attempt++ {
		resp, err = g.models.GenerateContent(ctx, g.modelName, contents, config)
		if err == nil {
			break
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("generate content: %w", ctx.Err())
		}

		if !retryable(err) || attempt >= g.maxRetries {
			return "", fmt.Errorf("generate content: %w", err)
		}

		delay := retryDelay(attempt)
		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// retryable reports rate limits and server side failures.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}

	return false
}

func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay << attempt
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}
