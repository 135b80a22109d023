package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/ai/gemini"
	"github.com/spigell/resume-report/internal/analyzer"
	"github.com/spigell/resume-report/internal/filtering"
	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/report"
	"github.com/spigell/resume-report/internal/secrets"
	"github.com/spigell/resume-report/internal/submission"
)

const (
	providerHTTP   = "http"
	providerGemini = "gemini"
)

// setup builds the logger and reads the config, exiting on failure.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func newHTTPClient(config *AnalyzerConfig, log *zap.Logger) (*analyzer.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name:     "analyzer token",
		File:     config.TokenFile,
		Optional: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set analyzer.token-file or RESUME_REPORT_TOKEN_FILE)", err)
	}

	client := analyzer.New(logger.WithProvider(log, providerHTTP), token, config.Timeout)
	if url := strings.TrimRight(strings.TrimSpace(config.URL), "/"); url != "" {
		client.APIURL = url
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	return client, nil
}

// newTransport returns the analyzer selected by analyzer.provider.
func newTransport(ctx context.Context, config *Config, log *zap.Logger) (submission.Transport, error) {
	provider := strings.TrimSpace(strings.ToLower(config.Analyzer.Provider))

	switch provider {
	case "", providerHTTP:
		client, err := newHTTPClient(config.Analyzer, log)
		if err != nil {
			return nil, err
		}
		client.Jobs = config.Jobs
		return client, nil

	case providerGemini:
		cfg := config.Analyzer.Gemini
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set analyzer.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		genLogger := logger.WithProvider(log, providerGemini).With(
			zap.String("model", cfg.Model),
			zap.Int("ai_retry_attempts", cfg.MaxRetries),
		)

		generator, err := gemini.NewGenerator(ctx, genLogger, apiKey, cfg.Model, cfg.MaxRetries)
		if err != nil {
			return nil, err
		}

		return gemini.NewAnalyzer(generator, config.Jobs, genLogger, cfg.MaxLogLength), nil

	default:
		return nil, fmt.Errorf("unsupported analyzer provider: %s", config.Analyzer.Provider)
	}
}

// writeReport filters the report and renders it to w.
func writeReport(ctx context.Context, w io.Writer, rep *report.Report, config *ReportConfig, log *zap.Logger) error {
	steps := filtering.Default()
	for _, name := range config.DisableFilters {
		filtering.DisableByName(steps, name, "disabled by configuration")
	}
	for _, status := range filtering.Describe(steps) {
		log.Debug("report filter",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	records, err := filtering.Run(ctx, &filtering.Config{
		MinimumScore:     config.MinimumScore,
		ExcludeCompanies: config.ExcludeCompanies,
		Limit:            config.Limit,
	}, filtering.Deps{Logger: log}, steps, rep.Records())
	if err != nil {
		return fmt.Errorf("filtering report: %w", err)
	}

	if len(records) < rep.Len() {
		log.Info("report filtered", zap.Int("roles", rep.Len()), zap.Int("left", len(records)))
	}

	return report.Render(w, report.New(records), report.RenderOptions{
		Format: config.Format,
		Color:  config.Color,
	})
}

// logState traces every state change of the machine.
func logState(log *zap.Logger) func(submission.State) {
	return func(s submission.State) {
		if s.Kind() == submission.KindSubmitting {
			return
		}
		log.Debug("submission state", zap.Stringer("state", s.Kind()))
	}
}
