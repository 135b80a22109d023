package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/resume-report/internal/analysis"
)

type limitFilter struct {
	toggle
	limit int
}

// NewLimit creates a filter that keeps only the best ranked records. Zero means no limit.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg == nil {
		return nil
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", cfg.Limit)
	}
	f.limit = cfg.Limit
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, records []analysis.Record) ([]analysis.Record, Step, error) {
	initial := len(records)
	if f.limit == 0 || initial <= f.limit {
		return records, Step{Initial: initial, Left: initial}, nil
	}

	return records[:f.limit], Step{Initial: initial, Dropped: initial - f.limit, Left: f.limit}, nil
}

func (f *limitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"limit": strconv.Itoa(f.limit)},
	}
}
