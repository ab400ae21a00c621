package publish

import (
	"github.com/dokzlo13/deskops/internal/reconcile"
)

// Outcome is what happened to one record.
type Outcome string

// Outcomes
const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped" // already on the target
	OutcomePlanned Outcome = "planned" // dry-run
	OutcomeFailed  Outcome = "failed"
)

// Result is the outcome for a single record.
type Result struct {
	Key      reconcile.ResourceKey
	Outcome  Outcome
	SourceID int64
	TargetID *int64
	Err      error
}

// Report summarises a publish run.
type Report struct {
	RunID   string
	Account string
	DryRun  bool
	Results []Result

	// Diff is the difference set with every created record's target id filled in.
	Diff *reconcile.DifferenceSet
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Count returns how many records ended with outcome.
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}
