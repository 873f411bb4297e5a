package sync

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus classifies what happened to one source finding.
type OutcomeStatus string

const (
	StatusSynced    OutcomeStatus = "synced"
	StatusSkipped   OutcomeStatus = "skipped"
	StatusUnmatched OutcomeStatus = "unmatched"
	StatusAmbiguous OutcomeStatus = "ambiguous"
	StatusFailed    OutcomeStatus = "failed"
)

// ReplayedChange records one replay attempt of a source changelog entry,
// including the ones skipped for capability reasons and the ones that failed
// after retries.
type ReplayedChange struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	SourceTime time.Time `json:"source_time,omitempty"`
	Provenance string    `json:"provenance,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SyncOutcome is the per-finding record of a sync pass. Every source finding
// of a scope produces exactly one outcome; findings that could not be fully
// synchronized carry a distinguishable reason.
type SyncOutcome struct {
	Status     OutcomeStatus    `json:"status"`
	SourceKey  string           `json:"source_key"`
	TargetKey  string           `json:"target_key,omitempty"`
	Confidence Confidence       `json:"confidence,omitempty"`
	Score      int              `json:"score,omitempty"`
	Replayed   []ReplayedChange `json:"replayed,omitempty"`
	Candidates []Candidate      `json:"candidates,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Scope pass statuses.
const (
	ScopeCompleted = "completed"
	ScopeFailed    = "failed"
)

// Counts aggregates the outcome totals of one scope.
type Counts struct {
	Synced    int `json:"synced"`
	Skipped   int `json:"skipped"`
	Unmatched int `json:"unmatched"`
	Ambiguous int `json:"ambiguous"`
	Failed    int `json:"failed"`
}

// ScopeReport is the result of one (project, branch) pair.
type ScopeReport struct {
	Scope    ScopePair     `json:"scope"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Counts   Counts        `json:"counts"`
	Findings []SyncOutcome `json:"findings,omitempty"`
}

// InstanceInfo describes one platform side of a run.
type InstanceInfo struct {
	URL          string `json:"url"`
	Organization string `json:"organization,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Version      string `json:"version,omitempty"`
}

// Report is the structured result of a whole sync run, the only artifact the
// run persists.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Source     InstanceInfo  `json:"source"`
	Target     InstanceInfo  `json:"target"`
	Scopes     []ScopeReport `json:"scopes"`
}

// NewReport starts a report with a fresh run identifier.
func NewReport(source, target InstanceInfo) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    source,
		Target:    target,
	}
}

// Totals sums the outcome counts across all scopes of the run.
func (r *Report) Totals() Counts {
	var total Counts
	for _, scope := range r.Scopes {
		total.Synced += scope.Counts.Synced
		total.Skipped += scope.Counts.Skipped
		total.Unmatched += scope.Counts.Unmatched
		total.Ambiguous += scope.Counts.Ambiguous
		total.Failed += scope.Counts.Failed
	}
	return total
}

// Tally computes the outcome totals of a scope's findings.
func Tally(outcomes []SyncOutcome) Counts {
	var c Counts
	for _, o := range outcomes {
		switch o.Status {
		case StatusSynced:
			c.Synced++
		case StatusSkipped:
			c.Skipped++
		case StatusUnmatched:
			c.Unmatched++
		case StatusAmbiguous:
			c.Ambiguous++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}
