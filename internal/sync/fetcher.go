package sync

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/findings"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
)

// Scope identifies one (project, branch) pair on one platform instance. An
// empty branch means the platform's default branch.
type Scope struct {
	Project string `json:"project"`
	Branch  string `json:"branch,omitempty"`
}

// String renders the scope for logs and reports.
func (s Scope) String() string {
	if s.Branch == "" {
		return s.Project
	}
	return s.Project + "@" + s.Branch
}

// ScopePair binds a source scope to its target counterpart for one sync pass.
type ScopePair struct {
	Source Scope `json:"source"`
	Target Scope `json:"target"`
}

// Snapshot is the immutable view of one scope's findings at fetch time,
// keyed by the platform finding key.
type Snapshot struct {
	Scope    Scope
	Findings map[string]findings.Finding
}

// Fetcher pulls finding snapshots from one platform connection. Reads only;
// it never mutates platform state.
type Fetcher struct {
	client       *sonar.Client
	logger       hclog.Logger
	withHotspots bool
	since        string
}

// NewFetcher creates a fetcher bound to one connection. since narrows the
// issue set to findings created after the given date; hotspot search has no
// such filter, so hotspots are always fetched whole.
func NewFetcher(client *sonar.Client, logger hclog.Logger, withHotspots bool, since string) *Fetcher {
	return &Fetcher{
		client:       client,
		logger:       logger,
		withHotspots: withHotspots,
		since:        since,
	}
}

// Snapshot fetches all findings of one scope with their history. A finding
// whose history cannot be retrieved is kept and flagged instead of failing
// the scope; a failed search fails the whole scope.
func (f *Fetcher) Snapshot(ctx context.Context, scope Scope) (*Snapshot, error) {
	snap := &Snapshot{
		Scope:    scope,
		Findings: make(map[string]findings.Finding),
	}

	issues, err := f.client.Issues.Search(ctx, sonar.IssueSearchOptions{
		Project:      scope.Project,
		Branch:       scope.Branch,
		CreatedAfter: f.since,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching issues for scope %s: %w", scope, err)
	}

	for _, issue := range issues {
		fnd := issue.ToFinding()
		entries, err := f.client.Issues.Changelog(ctx, issue.Key)
		if err != nil {
			f.logger.Warn("issue changelog unavailable",
				"issue", issue.Key,
				"error", err,
			)
			fnd.ChangelogUnavailable = true
		} else {
			sonar.AppendChangelog(&fnd, entries)
		}
		snap.Findings[fnd.Key] = fnd
	}

	if f.withHotspots {
		if err := f.fetchHotspots(ctx, scope, snap); err != nil {
			return nil, err
		}
	}

	f.logger.Info("snapshot complete",
		"scope", scope.String(),
		"findings", len(snap.Findings),
	)
	return snap, nil
}

// fetchHotspots adds the scope's security hotspots to the snapshot. The
// search payload is shallow, so each hotspot needs a detail call for its
// hash, history and comments.
func (f *Fetcher) fetchHotspots(ctx context.Context, scope Scope, snap *Snapshot) error {
	hotspots, err := f.client.Hotspots.Search(ctx, sonar.HotspotSearchOptions{
		Project: scope.Project,
		Branch:  scope.Branch,
	})
	if err != nil {
		return fmt.Errorf("fetching hotspots for scope %s: %w", scope, err)
	}

	for _, hotspot := range hotspots {
		details, err := f.client.Hotspots.Show(ctx, hotspot.Key)
		if err != nil {
			f.logger.Warn("hotspot details unavailable",
				"hotspot", hotspot.Key,
				"error", err,
			)
			fnd := hotspot.ToFinding()
			fnd.ChangelogUnavailable = true
			snap.Findings[fnd.Key] = fnd
			continue
		}
		fnd := details.ToFinding()
		snap.Findings[fnd.Key] = fnd
	}
	return nil
}
