package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-report/internal/analyzer"
)

const (
	app = "resume-report"
)

type Config struct {
	Analyzer *AnalyzerConfig `mapstructure:"analyzer"`
	Jobs     []analyzer.Job  `mapstructure:"jobs"`
	Report   *ReportConfig   `mapstructure:"report"`
	UI       *UIConfig       `mapstructure:"ui"`
	Metrics  *MetricsConfig  `mapstructure:"metrics"`
}

type AnalyzerConfig struct {
	Provider  string        `mapstructure:"provider"`
	URL       string        `mapstructure:"url"`
	TokenFile string        `mapstructure:"token-file"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ReportConfig struct {
	MinimumScore     int      `mapstructure:"minimum-score"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	Limit            int      `mapstructure:"limit"`
	DisableFilters   []string `mapstructure:"disable-filters"`
	Format           string   `mapstructure:"format"`
	Color            bool     `mapstructure:"color"`
}

type UIConfig struct {
	ReducedMotion bool `mapstructure:"reduced-motion"`
	SniffMIME     bool `mapstructure:"sniff-mime"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-report uploads a résumé to an analyzer and prints a ranked job match report",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	if err := viper.BindEnv("analyzer.token-file", "RESUME_REPORT_TOKEN_FILE"); err != nil {
		log.Fatalf("binding RESUME_REPORT_TOKEN_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("analyzer.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-report.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analyzer.provider", providerHTTP)
	v.SetDefault("analyzer.url", "http://localhost:8000")
	v.SetDefault("analyzer.timeout", 0)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.color", true)
}

func initConfig() {
	// The version command needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig reads the explicit file, or resume-report.yaml from the current directory when present.
func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		return v.ReadInConfig()
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}

	return err
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Analyzer == nil {
		config.Analyzer = &AnalyzerConfig{}
	}
	if config.Analyzer.Gemini == nil {
		config.Analyzer.Gemini = &GeminiConfig{}
	}
	if config.Report == nil {
		config.Report = &ReportConfig{}
	}
	if config.UI == nil {
		config.UI = &UIConfig{}
	}
	if config.Metrics == nil {
		config.Metrics = &MetricsConfig{}
	}

	return config, nil
}

// bindFlags binds command flags to config keys. Commands share keys, so binding happens
// when the command runs rather than in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}
