package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/analysis"
)

type companiesFilter struct {
	toggle
	companies []string
}

// NewExcludedCompanies creates a filter that removes records by companies configured in the config.
// Company names match case-insensitively.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "excluded_companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg == nil {
		return nil
	}
	for _, c := range cfg.ExcludeCompanies {
		if c = strings.TrimSpace(c); c != "" {
			f.companies = append(f.companies, c)
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, records []analysis.Record) ([]analysis.Record, Step, error) {
	initial := len(records)
	if len(f.companies) == 0 {
		return records, Step{Initial: initial, Left: initial}, nil
	}

	kept, dropped := keep(records, func(r analysis.Record) bool {
		for _, c := range f.companies {
			if strings.EqualFold(strings.TrimSpace(r.Company), c) {
				return false
			}
		}
		return true
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding roles by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_roles", dropped),
			zap.Int("roles_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
