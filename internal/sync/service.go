package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

// RunOptions configures one sync run.
type RunOptions struct {
	Pairs          []ScopePair
	Threads        int
	WithHotspots   bool
	Since          string
	ServiceAccount string
	NoAttribution  bool
	NoLink         bool
	// Policy overrides the write retry policy; zero value means the default.
	Policy retry.Policy
}

// Service drives the whole engine: fetch, match and replay per scope pair,
// fanned out over a bounded pool. Scopes share no mutable state.
type Service struct {
	source *sonar.Client
	target *sonar.Client
	logger hclog.Logger
	opts   RunOptions
}

// NewService creates a sync service between two connections.
func NewService(source, target *sonar.Client, logger hclog.Logger, opts RunOptions) *Service {
	return &Service{
		source: source,
		target: target,
		logger: logger,
		opts:   opts,
	}
}

// Run executes the sync pass. Fatal errors (failed authentication, unknown
// project or branch) cancel the remaining scopes and surface as the returned
// error; the report still carries every scope that ran. Scope-local failures
// stay inside their scope report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	if err := s.source.System.ValidateAuth(ctx); err != nil {
		return nil, fmt.Errorf("source authentication failed: %w", err)
	}
	if err := s.target.System.ValidateAuth(ctx); err != nil {
		return nil, fmt.Errorf("target authentication failed: %w", err)
	}

	sourceCaps, err := s.source.System.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing source capabilities: %w", err)
	}
	targetCaps, err := s.target.System.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing target capabilities: %w", err)
	}

	account := s.opts.ServiceAccount
	if account == "" {
		user, err := s.target.Users.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving service account login: %w", err)
		}
		account = user.Login
	}
	s.logger.Info("starting sync run",
		"scopes", len(s.opts.Pairs),
		"threads", s.threads(),
		"serviceAccount", account,
		"targetPlatform", targetCaps.Platform,
	)

	report := NewReport(instanceInfo(s.source, sourceCaps), instanceInfo(s.target, targetCaps))

	policy := s.opts.Policy
	if policy == (retry.Policy{}) {
		policy = retry.DefaultWritePolicy()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.threads())

	results := make(chan ScopeReport, len(s.opts.Pairs))
	for _, pair := range s.opts.Pairs {
		currentPair := pair
		g.Go(func() error {
			scopeReport, fatal := s.runScope(groupCtx, currentPair, targetCaps, account, policy)
			results <- scopeReport
			return fatal
		})
	}

	runErr := g.Wait()
	close(results)

	for scopeReport := range results {
		report.Scopes = append(report.Scopes, scopeReport)
	}
	sort.Slice(report.Scopes, func(i, j int) bool {
		a, b := report.Scopes[i].Scope, report.Scopes[j].Scope
		if a.Source.String() != b.Source.String() {
			return a.Source.String() < b.Source.String()
		}
		return a.Target.String() < b.Target.String()
	})
	report.FinishedAt = time.Now().UTC()

	return report, runErr
}

// runScope processes one scope pair end-to-end: fetch both sides, match,
// replay. The returned error is non-nil only for fatal conditions that must
// cancel the whole run; scope-local failures are folded into the report.
func (s *Service) runScope(ctx context.Context, pair ScopePair, caps *sonar.Capabilities, account string, policy retry.Policy) (ScopeReport, error) {
	scopeReport := ScopeReport{Scope: pair}
	s.logger.Info("processing scope",
		"source", pair.Source.String(),
		"target", pair.Target.String(),
	)

	// The target snapshot is always fetched whole: matching needs the full
	// target set to detect ambiguity, so the since filter narrows only the
	// source side.
	sourceFetcher := NewFetcher(s.source, s.logger, s.opts.WithHotspots, s.opts.Since)
	targetFetcher := NewFetcher(s.target, s.logger, s.opts.WithHotspots, "")

	sourceSnap, err := sourceFetcher.Snapshot(ctx, pair.Source)
	if err != nil {
		return failScope(scopeReport, err), fatalOrNil(err)
	}
	targetSnap, err := targetFetcher.Snapshot(ctx, pair.Target)
	if err != nil {
		return failScope(scopeReport, err), fatalOrNil(err)
	}

	matcher := NewMatcher(sourceSnap, targetSnap)
	synchronizer := NewSynchronizer(s.target, s.logger, caps, policy, SyncOptions{
		ServiceAccount: account,
		NoAttribution:  s.opts.NoAttribution,
		NoLink:         s.opts.NoLink,
		SourceBaseURL:  baseURL(s.source),
		SourceScope:    pair.Source,
	})

	var outcomes []SyncOutcome
	for _, match := range matcher.Results() {
		outcomes = append(outcomes, synchronizer.Sync(ctx, match))
	}

	scopeReport.Findings = outcomes
	scopeReport.Counts = Tally(outcomes)
	scopeReport.Status = ScopeCompleted
	s.logger.Info("scope complete",
		"source", pair.Source.String(),
		"synced", scopeReport.Counts.Synced,
		"skipped", scopeReport.Counts.Skipped,
		"unmatched", scopeReport.Counts.Unmatched,
		"ambiguous", scopeReport.Counts.Ambiguous,
		"failed", scopeReport.Counts.Failed,
	)
	return scopeReport, nil
}

// threads returns the configured pool size, at least one.
func (s *Service) threads() int {
	if s.opts.Threads < 1 {
		return 1
	}
	return s.opts.Threads
}

// failScope marks a scope report as failed with the given error.
func failScope(scopeReport ScopeReport, err error) ScopeReport {
	scopeReport.Status = ScopeFailed
	scopeReport.Error = err.Error()
	return scopeReport
}

// fatalOrNil decides whether a scope error must take the whole run down.
// Broken credentials and missing projects or branches poison every scope;
// anything else stays local.
func fatalOrNil(err error) error {
	if sonar.IsAuthError(err) || sonar.IsNotFound(err) {
		return err
	}
	return nil
}

// baseURL recovers the instance URL from a client.
func baseURL(client *sonar.Client) string {
	return strings.TrimSuffix(client.BaseURL, "/api")
}

// instanceInfo describes one side of the run for the report header.
func instanceInfo(client *sonar.Client, caps *sonar.Capabilities) InstanceInfo {
	return InstanceInfo{
		URL:          baseURL(client),
		Organization: client.Organization,
		Platform:     string(caps.Platform),
		Version:      caps.Version,
	}
}
