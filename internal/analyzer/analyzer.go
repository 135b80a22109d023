// Package analyzer is the HTTP client of the remote résumé analyzer.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/upload"
)

const (
	apiURL    = "http://localhost:8000"
	userAgent = "spigell/resume-report"

	AnalyzePath  = "/analyze"
	AnalysisPath = "/analysis/"

	// Multipart field names.
	FieldResume = "resume"
	FieldJobs   = "jobs"
)

// Job is a posting the résumé is compared against.
type Job struct {
	Title       string `mapstructure:"title" json:"title"`
	Company     string `mapstructure:"company" json:"company,omitempty"`
	Location    string `mapstructure:"location" json:"location,omitempty"`
	Description string `mapstructure:"description" json:"description,omitempty"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	Jobs       []Job
}

// New builds a client. A zero timeout leaves the call bounded only by its context.
func New(logger *zap.Logger, token string, timeout time.Duration) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// SubmitForAnalysis uploads the candidate with the configured jobs and returns the raw response.
// Cancelling ctx aborts the upload; the returned error then wraps context.Canceled.
func (c *Client) SubmitForAnalysis(ctx context.Context, candidate upload.Candidate) ([]byte, error) {
	content, err := candidate.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()

	log := logger.WithFields(c.logger, logger.CandidateFields(candidate.Name, candidate.MIMEType)...)
	log.Debug("uploading resume", zap.Int("jobs", len(c.Jobs)))

	raw, err := c.postFile(ctx, c.APIURL+AnalyzePath, filePart{
		field:       FieldResume,
		name:        candidate.Name,
		contentType: candidate.MIMEType,
		content:     content,
	}, c.Jobs)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", candidate.Name, err)
	}

	log.Debug("got analysis", zap.String("preview", logger.Preview(string(raw), 200)))

	return raw, nil
}

// GetAnalysis fetches a stored analysis by its id.
func (c *Client) GetAnalysis(ctx context.Context, id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("analysis id is required")
	}

	raw, err := c.getRaw(ctx, c.APIURL+AnalysisPath+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}

	return raw, nil
}
