package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/manifoldco/promptui"

	"github.com/spigell/resume-report/internal/analysis"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// RenderOptions controls the terminal output.
type RenderOptions struct {
	Format string
	Color  bool
}

const textTemplate = `{{- if not .Entries }}{{ "No results found" | bold }}
We couldn't analyze the resume provided.
{{ else }}{{ range .Entries }}
{{ printf "Role %d" .Rank | cyan }}  {{ .Title | bold }}
{{- if .HasCompany }}  {{ .Company | faint }}{{ end }}
{{- if .HasLocation }}  {{ .Location | faint }}{{ end }}
  Match strength   {{ bar .OverallScorePercent }} {{ .OverallScorePercent }}%
  Keyword match    {{ bar .SkillsScorePercent }} {{ .SkillsScorePercent }}%
  Experience fit   {{ bar .ExperienceFit }} {{ .ExperienceFit }}%
  {{ .TechnicalLabel | yellow }} ({{ len .MatchedSkills }} matched, {{ len .MissingSkills }} missing)
{{- if .MatchedSkills }}{{ with split .MatchedSkills }}
  Technical skills      {{ join .First | green }}
{{- if .Second }}
  Competencies & tools  {{ join .Second | green }}
{{- end }}
{{- end }}{{ end }}
{{- with .MissingHighlights }}
  Missing / critical    {{ join . | red }}
{{- end }}
{{- with .Strengths }}
  Strengths             {{ join . }}
{{- end }}
  What to improve next:
{{- range .Improvements }}
    [{{ .Impact }}] {{ .Text }}
{{- else }}
    No critical improvements found. Your profile is very strong!
{{- end }}
{{ end }}{{ end }}`

type halves struct {
	First  []string
	Second []string
}

// Render writes the report in the requested format.
func Render(w io.Writer, r *Report, opts RenderOptions) error {
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatText:
		return renderText(w, r, opts.Color)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		records := r.Records()
		if records == nil {
			records = []analysis.Record{}
		}
		return enc.Encode(records)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func renderText(w io.Writer, r *Report, color bool) error {
	funcs := template.FuncMap{}
	if color {
		for name, fn := range promptui.FuncMap {
			funcs[name] = fn
		}
	} else {
		for name := range promptui.FuncMap {
			funcs[name] = fmt.Sprint
		}
	}

	funcs["bar"] = func(percent int) string { return Bar(percent, 20) }
	funcs["join"] = func(items []string) string { return strings.Join(items, ", ") }
	funcs["split"] = func(items []string) halves {
		first, second := Entry{Record: analysis.Record{MatchedSkills: items}}.SplitMatched()
		return halves{First: first, Second: second}
	}

	tpl, err := template.New("report").Funcs(funcs).Parse(textTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	return tpl.Execute(w, struct{ Entries []Entry }{Entries: r.Entries()})
}

// Bar draws a fixed-width horizontal gauge for a percent value.
func Bar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
