package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/analysis"
	"github.com/spigell/resume-report/internal/metrics"
	"github.com/spigell/resume-report/internal/progress"
	"github.com/spigell/resume-report/internal/report"
	"github.com/spigell/resume-report/internal/submission"
	"github.com/spigell/resume-report/internal/upload"
)

const payload = `[
  {"title": "Backend Engineer", "company": "Acme", "matchScore": {"overall": 82, "skillsMatch": 70}},
  {"jobTitle": "Data Analyst", "matchScore": {"overall": 0.4}}
]`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
analyzer:
  provider: gemini
  timeout: 30s
  gemini:
    model: gemini-2.5-flash
jobs:
  - title: Backend Engineer
    company: Acme
report:
  minimum-score: 50
  exclude-companies: [Initech]
`), 0o600))

	v := viper.New()
	setDefaults(v)
	require.NoError(t, readConfig(v, file))

	config, err := getConfig(v)
	require.NoError(t, err)

	assert.Equal(t, providerGemini, config.Analyzer.Provider)
	assert.Equal(t, 30*time.Second, config.Analyzer.Timeout)
	assert.Equal(t, "gemini-2.5-flash", config.Analyzer.Gemini.Model)
	assert.Equal(t, "http://localhost:8000", config.Analyzer.URL)
	require.Len(t, config.Jobs, 1)
	assert.Equal(t, "Acme", config.Jobs[0].Company)
	assert.Equal(t, 50, config.Report.MinimumScore)
	assert.Equal(t, []string{"Initech"}, config.Report.ExcludeCompanies)
	assert.Equal(t, "text", config.Report.Format)
	assert.True(t, config.Report.Color)
	assert.NotNil(t, config.UI)
	assert.NotNil(t, config.Metrics)
}

func TestReadConfigWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	setDefaults(v)
	require.NoError(t, readConfig(v, ""))

	config, err := getConfig(v)
	require.NoError(t, err)
	assert.Equal(t, providerHTTP, config.Analyzer.Provider)
	assert.Empty(t, config.Jobs)
}

func TestReadConfigExplicitMissingFile(t *testing.T) {
	err := readConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewTransportUnknownProvider(t *testing.T) {
	config := &Config{Analyzer: &AnalyzerConfig{Provider: "carrier-pigeon", Gemini: &GeminiConfig{}}}

	_, err := newTransport(context.Background(), config, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported analyzer provider")
}

func TestNewTransportGeminiNeedsKey(t *testing.T) {
	config := &Config{Analyzer: &AnalyzerConfig{Provider: "Gemini", Gemini: &GeminiConfig{}}}

	_, err := newTransport(context.Background(), config, zap.NewNop())
	assert.ErrorContains(t, err, "GEMINI_API_KEY_FILE")
}

func TestWriteReportFilters(t *testing.T) {
	var out bytes.Buffer
	rep := report.FromRaw([]byte(payload))

	err := writeReport(context.Background(), &out, rep, &ReportConfig{
		MinimumScore: 50,
		Format:       report.FormatJSON,
	}, zap.NewNop())
	require.NoError(t, err)

	var records []analysis.Record
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Backend Engineer", records[0].Title)
	assert.Equal(t, 82, records[0].OverallScorePercent)
}

func TestWriteReportDisabledFilter(t *testing.T) {
	var out bytes.Buffer
	rep := report.FromRaw([]byte(payload))

	err := writeReport(context.Background(), &out, rep, &ReportConfig{
		MinimumScore:   50,
		DisableFilters: []string{"minimum_score"},
		Format:         report.FormatJSON,
	}, zap.NewNop())
	require.NoError(t, err)

	var records []analysis.Record
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name      string
		transport submission.TransportFunc
		wantOut   string
	}{
		{
			name: "success writes the report",
			transport: func(context.Context, upload.Candidate) ([]byte, error) {
				return []byte(payload), nil
			},
			wantOut: "==> resume.pdf",
		},
		{
			name: "failure writes nothing",
			transport: func(context.Context, upload.Candidate) ([]byte, error) {
				return nil, errors.New("analyzer is down")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m, err := submission.New(submission.Config{ReducedMotion: true}, submission.Deps{
				Transport: tt.transport,
				Scheduler: progress.NewManualScheduler(time.Now()),
				Logger:    zap.NewNop(),
				Metrics:   metrics.New(reg),
			})
			require.NoError(t, err)
			t.Cleanup(m.Close)

			var out bytes.Buffer
			candidate := upload.FromBytes("resume.pdf", "application/pdf", []byte("%PDF-1.7"))
			config := &Config{Report: &ReportConfig{Format: report.FormatJSON}}

			require.NoError(t, process(context.Background(), &out, m, candidate, config, zap.NewNop()))

			assert.Equal(t, submission.KindIdle, m.State().Kind())
			if tt.wantOut == "" {
				assert.Empty(t, out.String())
				return
			}
			assert.Contains(t, out.String(), tt.wantOut)
			assert.Contains(t, out.String(), "Data Analyst")
		})
	}
}

func TestProcessRejectedCandidate(t *testing.T) {
	m, err := submission.New(submission.Config{ReducedMotion: true}, submission.Deps{
		Transport: submission.TransportFunc(func(context.Context, upload.Candidate) ([]byte, error) {
			t.Fatal("rejected files must not be submitted")
			return nil, nil
		}),
		Scheduler: progress.NewManualScheduler(time.Now()),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	var out bytes.Buffer
	candidate := upload.FromBytes("photo.png", "image/png", []byte("png"))

	require.NoError(t, process(context.Background(), &out, m, candidate, &Config{Report: &ReportConfig{}}, zap.NewNop()))
	assert.Empty(t, out.String())
	assert.Error(t, m.Rejection())
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).Rejected("TOO_LARGE")

	srv := httptest.NewServer(metricsHandler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.String(), `resume_validation_rejections_total{reason="TOO_LARGE"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestHandOffRejectsWhileBusy(t *testing.T) {
	candidates := make(chan upload.Candidate)
	selectFile := handOff(candidates)
	candidate := upload.FromBytes("resume.pdf", "application/pdf", []byte("%PDF-1.7"))

	// nobody is receiving: the loop is busy with a submission
	assert.ErrorIs(t, selectFile(candidate), submission.ErrBusy)
	assert.ErrorIs(t, selectFile(candidate), submission.ErrBusy)

	received := make(chan upload.Candidate, 1)
	go func() { received <- <-candidates }()

	require.Eventually(t, func() bool {
		return selectFile(candidate) == nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, "resume.pdf", (<-received).Name)

	// the loop took one file and is busy again
	assert.ErrorIs(t, selectFile(candidate), submission.ErrBusy)
}
