package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/analysis"
	"github.com/spigell/resume-report/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [analysis-id]",
	Short: "Print the report of a stored analysis or a saved analyzer response",
	Args: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" && len(args) != 1 {
			return fmt.Errorf("an analysis id or --file is required")
		}
		if file != "" && len(args) > 0 {
			return fmt.Errorf("an analysis id and --file are mutually exclusive")
		}
		return nil
	},
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"report.format":          "output",
			"report.color":           "color",
			"report.minimum-score":   "minimum-score",
			"report.limit":           "limit",
			"report.disable-filters": "disable-filter",
			"analyzer.url":           "url",
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger, config := setup()

		file, _ := cmd.Flags().GetString("file")

		var (
			raw []byte
			err error
		)
		if file != "" {
			raw, err = readRaw(cmd.InOrStdin(), file)
		} else {
			raw, err = fetchAnalysis(ctx, config, logger, args[0])
		}
		if err != nil {
			logger.Fatal("getting the analysis", zap.Error(err))
		}

		for _, problem := range analysis.Diagnose(raw) {
			logger.Debug("response shape", zap.String("problem", problem))
		}

		rep := report.FromRaw(raw)
		if rep.Empty() {
			logger.Warn("the analysis holds no roles")
		}

		if err := writeReport(ctx, cmd.OutOrStdout(), rep, config.Report, logger); err != nil {
			logger.Fatal("writing the report", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("file", "f", "", "a saved analyzer response, - for stdin")
	reportCmd.Flags().StringP("output", "o", "text", "report format: text or json")
	reportCmd.Flags().Bool("color", true, "colorize the text report")
	reportCmd.Flags().Int("minimum-score", 0, "hide roles scoring below this percentage")
	reportCmd.Flags().Int("limit", 0, "show at most this many roles, 0 shows all")
	reportCmd.Flags().StringSlice("disable-filter", nil, "skip a report filter: minimum_score, excluded_companies or limit")
	reportCmd.Flags().String("url", "", "analyzer base URL")
}

func fetchAnalysis(ctx context.Context, config *Config, log *zap.Logger, id string) ([]byte, error) {
	client, err := newHTTPClient(config.Analyzer, log)
	if err != nil {
		return nil, err
	}

	return client.GetAnalysis(ctx, id)
}

func readRaw(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(file)
}
