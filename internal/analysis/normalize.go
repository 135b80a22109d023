// Package analysis normalizes analyzer responses of loose shape into ranked records.
package analysis

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// ContractVersion identifies the field alias table below. Bump it when aliases change.
const ContractVersion = "1"

// Record is one job/résumé comparison after normalization.
type Record struct {
	Title               string   `json:"title"`
	Company             string   `json:"company,omitempty"`
	Location            string   `json:"location,omitempty"`
	OverallScorePercent int      `json:"overallScorePercent"`
	SkillsScorePercent  int      `json:"skillsScorePercent"`
	MatchedSkills       []string `json:"matchedSkills"`
	MissingSkills       []string `json:"missingSkills"`
	GrowthAreas         []string `json:"growthAreas"`
	Strengths           []string `json:"strengths"`
}

// HasCompany reports whether the analyzer named the employer.
func (r Record) HasCompany() bool { return r.Company != "" }

// HasLocation reports whether the analyzer named the location.
func (r Record) HasLocation() bool { return r.Location != "" }

// rawRecord captures every accepted spelling of a field. Values stay untyped so that
// decoding never fails on an unexpected type.
type rawRecord struct {
	Title    any `mapstructure:"title"`
	JobTitle any `mapstructure:"jobTitle"`
	Company  any `mapstructure:"company"`
	Location any `mapstructure:"location"`

	MatchScore      any `mapstructure:"matchScore"`
	MatchScoreSnake any `mapstructure:"match_score"`

	MatchingSkills any `mapstructure:"matchingSkills"`
	MatchedSkills  any `mapstructure:"matchedSkills"`
	MissingSkills  any `mapstructure:"missingSkills"`
	GrowthAreas    any `mapstructure:"growthAreas"`
	Strengths      any `mapstructure:"strengths"`
}

type rawScore struct {
	Overall     any `mapstructure:"overall"`
	SkillsMatch any `mapstructure:"skillsMatch"`
}

// Normalize decodes a raw analyzer payload and normalizes it. Invalid JSON yields no records.
func Normalize(raw []byte) []Record {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return []Record{}
	}

	return NormalizeValue(value)
}

// NormalizeValue normalizes an already decoded payload. A single object becomes a
// one-element sequence, arrays pass through, and elements that are not objects are skipped.
// The result is stably sorted by overall score, best first.
func NormalizeValue(value any) []Record {
	var items []any
	switch val := value.(type) {
	case []any:
		items = val
	case map[string]any:
		items = []any{val}
	default:
		return []Record{}
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, normalizeRecord(obj))
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		return b.OverallScorePercent - a.OverallScorePercent
	})

	return records
}

func normalizeRecord(obj map[string]any) Record {
	var raw rawRecord
	// Fields are untyped, so decoding a map cannot fail.
	_ = mapstructure.Decode(obj, &raw)

	var score rawScore
	if m, ok := firstPresent(raw.MatchScore, raw.MatchScoreSnake).(map[string]any); ok {
		_ = mapstructure.Decode(m, &score)
	}

	return Record{
		Title:               optionalString(firstPresent(raw.Title, raw.JobTitle)),
		Company:             optionalString(raw.Company),
		Location:            optionalString(raw.Location),
		OverallScorePercent: ToPercent(score.Overall),
		SkillsScorePercent:  ToPercent(score.SkillsMatch),
		MatchedSkills:       ToList(firstTruthy(raw.MatchingSkills, raw.MatchedSkills)),
		MissingSkills:       ToList(raw.MissingSkills),
		GrowthAreas:         ToList(raw.GrowthAreas),
		Strengths:           ToList(raw.Strengths),
	}
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// firstTruthy skips empty strings as well as missing values, so an empty
// "matchingSkills" falls back to "matchedSkills".
func firstTruthy(values ...any) any {
	for _, v := range values {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		case bool:
			if !val {
				continue
			}
		}
		return v
	}
	return nil
}
