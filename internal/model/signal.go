package model

import "time"

// Category names a setup family. Values double as persisted memory keys.
type Category string

const (
	CategoryComposite   Category = "composite"
	CategoryChannel     Category = "channel"
	CategoryVWMASupport Category = "vwma"
)

// Categories lists every category in report priority order.
var Categories = []Category{CategoryComposite, CategoryChannel, CategoryVWMASupport}

// Match is one setup hit for an (instrument, timeframe) pair.
// Value is the composite score for composite matches and the gap percent otherwise.
type Match struct {
	InstrumentID string
	Timeframe    string
	Category     Category
	Value        float64
	Reasons      []string
	IsDuplicate  bool
}

// Report aggregates all matches of a run.
type Report struct {
	RunID     string
	CreatedAt time.Time
	Matches   []Match
}

// ByCategory returns the matches of one category, preserving scan order.
func (r *Report) ByCategory(c Category) []Match {
	var out []Match
	for _, m := range r.Matches {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}
