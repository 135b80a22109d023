package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/analysis"
)

type minimumScoreFilter struct {
	toggle
	minimum int
}

// NewMinimumScore creates a filter that removes records below the configured overall score.
func NewMinimumScore() Filter {
	return &minimumScoreFilter{}
}

func (f *minimumScoreFilter) Name() string { return "minimum_score" }

func (f *minimumScoreFilter) Validate(cfg *Config) error {
	f.minimum = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinimumScore < 0 || cfg.MinimumScore > 100 {
		return fmt.Errorf("minimum score must be between 0 and 100, got %d", cfg.MinimumScore)
	}
	f.minimum = cfg.MinimumScore
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, deps Deps, records []analysis.Record) ([]analysis.Record, Step, error) {
	initial := len(records)
	if f.minimum == 0 {
		return records, Step{Initial: initial, Left: initial}, nil
	}

	kept, dropped := keep(records, func(r analysis.Record) bool {
		return r.OverallScorePercent >= f.minimum
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding roles below minimum score",
			zap.Int("minimum_score", f.minimum),
			zap.Strings("excluded_roles", dropped),
			zap.Int("roles_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *minimumScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_score": strconv.Itoa(f.minimum)},
	}
}
