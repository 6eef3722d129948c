package qa

import (
	"math"
	"sort"
)

// Bounds is the inclusive acceptance range for one metric.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// BoundsTable maps metric names to their acceptance bounds. Metrics absent
// from the table are unconstrained (they still fail on NaN).
type BoundsTable map[string]Bounds

// Evaluation is the pass/fail classification of one metric.
type Evaluation struct {
	Name   string
	Value  float64
	Lower  float64
	Upper  float64
	Pass   bool
	Bound  bool // an acceptance range was configured for this metric
}

// Evaluate classifies every metric in the record against the bounds table.
// A metric fails iff its value is below the lower bound, above the upper
// bound, or NaN — an inconclusive value must surface as Fail, never as a
// silent Pass. Boundary values pass. Pure function; results are sorted by
// metric name.
func Evaluate(rec MetricRecord, table BoundsTable) []Evaluation {
	out := make([]Evaluation, 0, len(rec))
	for name, value := range rec {
		ev := Evaluation{
			Name:  name,
			Value: value,
			Lower: math.Inf(-1),
			Upper: math.Inf(1),
		}
		if b, ok := table[name]; ok {
			ev.Lower = b.Lower
			ev.Upper = b.Upper
			ev.Bound = true
		}
		ev.Pass = !math.IsNaN(value) && value >= ev.Lower && value <= ev.Upper
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllPass reports whether every evaluation passed.
func AllPass(evs []Evaluation) bool {
	for _, ev := range evs {
		if !ev.Pass {
			return false
		}
	}
	return true
}
