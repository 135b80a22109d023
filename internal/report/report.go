// Package report exposes normalized analysis records to the rendering layer.
package report

import (
	"github.com/spigell/resume-report/internal/analysis"
)

const (
	maxImprovements = 5
	maxMissing      = 12

	highTechnicalThreshold = 60
)

// Report is an immutable, ranked sequence of records. Index 0 is the best-fit role.
type Report struct {
	records []analysis.Record
}

// New copies the records so later changes to the input do not leak into the report.
func New(records []analysis.Record) *Report {
	cp := make([]analysis.Record, len(records))
	for i, r := range records {
		cp[i] = cloneRecord(r)
	}
	return &Report{records: cp}
}

// FromRaw normalizes a raw analyzer payload into a report.
func FromRaw(raw []byte) *Report {
	return New(analysis.Normalize(raw))
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

func (r *Report) Empty() bool { return r.Len() == 0 }

// At returns a copy of the record at index i.
func (r *Report) At(i int) (analysis.Record, bool) {
	if r == nil || i < 0 || i >= len(r.records) {
		return analysis.Record{}, false
	}
	return cloneRecord(r.records[i]), true
}

// Best returns the highest ranked record.
func (r *Report) Best() (analysis.Record, bool) {
	return r.At(0)
}

// Records returns a copy of all records in rank order.
func (r *Report) Records() []analysis.Record {
	if r == nil {
		return nil
	}
	out := make([]analysis.Record, len(r.records))
	for i, rec := range r.records {
		out[i] = cloneRecord(rec)
	}
	return out
}

// Entries wraps every record with its presentation helpers.
func (r *Report) Entries() []Entry {
	records := r.Records()
	entries := make([]Entry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, Entry{Rank: i + 1, Record: rec})
	}
	return entries
}

// Entry is a ranked record with values derived for display.
type Entry struct {
	Rank int
	analysis.Record
}

// SplitMatched divides matched skills into two display buckets by count, keeping source order.
func (e Entry) SplitMatched() (first, second []string) {
	half := (len(e.MatchedSkills) + 1) / 2
	return e.MatchedSkills[:half], e.MatchedSkills[half:]
}

// ExperienceFit is the overall score nudged up by ten points.
func (e Entry) ExperienceFit() int {
	return min(e.OverallScorePercent+10, 100)
}

// TechnicalLabel summarizes the skills score.
func (e Entry) TechnicalLabel() string {
	if e.SkillsScorePercent > highTechnicalThreshold {
		return "High Technical Match"
	}
	return "Potential Technical Match"
}

// Improvement is a growth area with its suggested impact.
type Improvement struct {
	Text   string
	Impact string
}

// Improvements returns the leading growth areas; the first one is high impact.
func (e Entry) Improvements() []Improvement {
	areas := e.GrowthAreas
	if len(areas) > maxImprovements {
		areas = areas[:maxImprovements]
	}

	out := make([]Improvement, 0, len(areas))
	for i, a := range areas {
		impact := "Medium"
		if i == 0 {
			impact = "High"
		}
		out = append(out, Improvement{Text: a, Impact: impact})
	}
	return out
}

// MissingHighlights returns the first missing skills worth showing.
func (e Entry) MissingHighlights() []string {
	if len(e.MissingSkills) > maxMissing {
		return e.MissingSkills[:maxMissing]
	}
	return e.MissingSkills
}

func cloneRecord(r analysis.Record) analysis.Record {
	r.MatchedSkills = cloneList(r.MatchedSkills)
	r.MissingSkills = cloneList(r.MissingSkills)
	r.GrowthAreas = cloneList(r.GrowthAreas)
	r.Strengths = cloneList(r.Strengths)
	return r
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
