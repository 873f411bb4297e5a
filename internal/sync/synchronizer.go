package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/findings"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

// SyncOptions controls how the replay behaves.
type SyncOptions struct {
	// ServiceAccount is the login the target token authenticates as. Target
	// history entries from this login are recognized as earlier sync runs;
	// entries from anyone else make the finding off-limits.
	ServiceAccount string
	// NoAttribution drops the original-author prefix from replayed comments.
	NoAttribution bool
	// NoLink suppresses the cross-reference comment after a replay batch.
	NoLink bool
	// SourceBaseURL and SourceScope locate the source finding for the
	// cross-reference comment.
	SourceBaseURL string
	SourceScope   Scope
}

// Synchronizer replays source changelogs onto matched target findings. All
// writes land on the target connection, attributed to the service account,
// with provenance carried in the comment text.
type Synchronizer struct {
	target *sonar.Client
	logger hclog.Logger
	caps   *sonar.Capabilities
	policy retry.Policy
	opts   SyncOptions

	resolvedLogins map[string]bool
}

// NewSynchronizer creates a synchronizer writing through the given target
// client within its capability limits.
func NewSynchronizer(target *sonar.Client, logger hclog.Logger, caps *sonar.Capabilities, policy retry.Policy, opts SyncOptions) *Synchronizer {
	return &Synchronizer{
		target:         target,
		logger:         logger,
		caps:           caps,
		policy:         policy,
		opts:           opts,
		resolvedLogins: make(map[string]bool),
	}
}

// Sync turns one match result into a SyncOutcome, replaying the source
// history for clean and approximate matches. Non-matches pass through as
// their own outcome so the report covers every source finding.
func (s *Synchronizer) Sync(ctx context.Context, match MatchResult) SyncOutcome {
	outcome := SyncOutcome{
		SourceKey:  match.Source.Key,
		Confidence: match.Confidence,
		Score:      match.Score,
		Candidates: match.Candidates,
		Reason:     match.Reason,
	}

	switch match.Confidence {
	case MatchAmbiguous:
		outcome.Status = StatusAmbiguous
		return outcome
	case MatchNone:
		outcome.Status = StatusUnmatched
		return outcome
	}

	target := match.Target
	outcome.TargetKey = target.Key

	if match.Source.ChangelogUnavailable {
		outcome.Status = StatusFailed
		outcome.Reason = "source history unavailable"
		return outcome
	}
	if target.ChangelogUnavailable {
		outcome.Status = StatusFailed
		outcome.Reason = "target history unavailable"
		return outcome
	}
	if target.HasForeignManualChanges(s.opts.ServiceAccount) {
		outcome.Status = StatusSkipped
		outcome.Reason = "target has foreign manual changes"
		return outcome
	}

	pending := match.Source.Changelog
	if lastSynced, ok := target.NewestEventBy(s.opts.ServiceAccount); ok {
		pending = match.Source.EventsAfter(lastSynced)
	}

	replayedOK := 0
	anyFailed := false
	for _, event := range pending {
		change := s.replayEvent(ctx, target, event)
		outcome.Replayed = append(outcome.Replayed, change)
		if change.Failed {
			anyFailed = true
		} else if !change.Skipped {
			replayedOK++
		}
	}

	// The cross-reference lands only when every entry replayed.
	if replayedOK > 0 && !anyFailed && !s.opts.NoLink {
		outcome.Replayed = append(outcome.Replayed, s.replayLink(ctx, match.Source, target))
	}

	outcome.Status = StatusSynced
	for _, change := range outcome.Replayed {
		if change.Failed {
			outcome.Status = StatusFailed
			outcome.Reason = "one or more history entries failed to replay"
			break
		}
	}

	s.logger.Debug("finding synchronized",
		"source", match.Source.Key,
		"target", target.Key,
		"status", outcome.Status,
		"replayed", len(outcome.Replayed),
	)
	return outcome
}

// replayEvent applies one source history entry to the target finding,
// recording capability skips and retry-exhausted failures instead of
// aborting.
func (s *Synchronizer) replayEvent(ctx context.Context, target *findings.Finding, event findings.ChangeEvent) ReplayedChange {
	change := ReplayedChange{
		Kind:       string(event.Kind),
		SourceTime: event.At,
		Provenance: event.Actor,
	}

	switch event.Kind {
	case findings.ChangeComment:
		change.Detail = "comment"
		return s.attempt(ctx, change, func() error {
			text := s.formatComment(event)
			if target.Kind == findings.KindHotspot {
				return s.target.Hotspots.AddComment(ctx, target.Key, text)
			}
			return s.target.Issues.AddComment(ctx, target.Key, text)
		})

	case findings.ChangeTransition:
		if target.Kind == findings.KindHotspot {
			change.Detail = fmt.Sprintf("%s/%s", event.Status, event.Resolution)
			return s.attempt(ctx, change, func() error {
				return s.target.Hotspots.ChangeStatus(ctx, target.Key, event.Status, event.Resolution, "")
			})
		}
		transition, ok := deriveTransition(event.Status, event.Resolution)
		if !ok {
			change.Skipped = true
			change.Reason = fmt.Sprintf("no transition maps to status %q", event.Status)
			return change
		}
		change.Detail = transition
		return s.attempt(ctx, change, func() error {
			return s.target.Issues.DoTransition(ctx, target.Key, transition)
		})

	case findings.ChangeSeverity:
		if target.Kind == findings.KindHotspot || !s.caps.CanEditSeverity {
			change.Skipped = true
			change.Reason = "severity edits are not supported on the target"
			return change
		}
		change.Detail = event.Value
		return s.attempt(ctx, change, func() error {
			return s.target.Issues.SetSeverity(ctx, target.Key, event.Value)
		})

	case findings.ChangeType:
		if target.Kind == findings.KindHotspot || !s.caps.CanEditType {
			change.Skipped = true
			change.Reason = "type edits are not supported on the target"
			return change
		}
		change.Detail = event.Value
		return s.attempt(ctx, change, func() error {
			return s.target.Issues.SetType(ctx, target.Key, event.Value)
		})

	case findings.ChangeAssignee:
		change.Detail = event.Value
		if event.Value != "" && !s.resolveLogin(ctx, event.Value) {
			change.Skipped = true
			change.Reason = fmt.Sprintf("assignee %q does not resolve on the target", event.Value)
			return change
		}
		return s.attempt(ctx, change, func() error {
			if target.Kind == findings.KindHotspot {
				return s.target.Hotspots.Assign(ctx, target.Key, event.Value)
			}
			return s.target.Issues.Assign(ctx, target.Key, event.Value)
		})

	case findings.ChangeTags:
		if target.Kind == findings.KindHotspot {
			change.Skipped = true
			change.Reason = "tags are not a valid operation on hotspots"
			return change
		}
		change.Detail = event.Value
		return s.attempt(ctx, change, func() error {
			return s.target.Issues.SetTags(ctx, target.Key, strings.Fields(event.Value))
		})
	}

	change.Skipped = true
	change.Reason = fmt.Sprintf("unknown event kind %q", event.Kind)
	return change
}

// replayLink appends the cross-reference comment pointing back at the source
// finding.
func (s *Synchronizer) replayLink(ctx context.Context, source findings.Finding, target *findings.Finding) ReplayedChange {
	change := ReplayedChange{
		Kind:   "link",
		Detail: s.sourceLink(source),
	}
	return s.attempt(ctx, change, func() error {
		text := fmt.Sprintf("Synchronized from %s", s.sourceLink(source))
		if target.Kind == findings.KindHotspot {
			return s.target.Hotspots.AddComment(ctx, target.Key, text)
		}
		return s.target.Issues.AddComment(ctx, target.Key, text)
	})
}

// attempt runs one write under the retry policy. Validation failures are
// permanent and never retried; a transient failure gets the policy's single
// extra attempt.
func (s *Synchronizer) attempt(ctx context.Context, change ReplayedChange, op func() error) ReplayedChange {
	err := s.policy.Do(ctx, func() error {
		if err := op(); err != nil {
			if !sonar.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("replay entry failed",
			"kind", change.Kind,
			"detail", change.Detail,
			"error", err,
		)
		change.Failed = true
		change.Error = err.Error()
	}
	return change
}

// formatComment renders a replayed comment, prefixed with the original
// author and time unless attribution is suppressed.
func (s *Synchronizer) formatComment(event findings.ChangeEvent) string {
	if s.opts.NoAttribution {
		return event.Text
	}
	return fmt.Sprintf("[comment by %s on %s]\n\n%s",
		event.Actor, event.At.UTC().Format(time.RFC3339), event.Text)
}

// resolveLogin checks that a login exists on the target platform, caching
// answers for the run.
func (s *Synchronizer) resolveLogin(ctx context.Context, login string) bool {
	if resolved, ok := s.resolvedLogins[login]; ok {
		return resolved
	}

	resolved := false
	users, err := s.target.Users.Search(ctx, login)
	if err != nil {
		s.logger.Warn("assignee lookup failed", "login", login, "error", err)
	} else {
		for _, u := range users {
			if u.Login == login && u.Active {
				resolved = true
				break
			}
		}
	}
	s.resolvedLogins[login] = resolved
	return resolved
}

// sourceLink builds the web URL of the source finding.
func (s *Synchronizer) sourceLink(source findings.Finding) string {
	base := strings.TrimRight(s.opts.SourceBaseURL, "/")
	branch := ""
	if s.opts.SourceScope.Branch != "" {
		branch = "&branch=" + s.opts.SourceScope.Branch
	}
	if source.Kind == findings.KindHotspot {
		return fmt.Sprintf("%s/security_hotspots?id=%s%s&hotspots=%s",
			base, s.opts.SourceScope.Project, branch, source.Key)
	}
	return fmt.Sprintf("%s/project/issues?id=%s%s&open=%s",
		base, s.opts.SourceScope.Project, branch, source.Key)
}

// deriveTransition maps a recorded status and resolution pair back onto the
// workflow transition that produces it.
func deriveTransition(status, resolution string) (string, bool) {
	switch status {
	case "RESOLVED":
		switch resolution {
		case "FALSE-POSITIVE":
			return "falsepositive", true
		case "WONTFIX":
			return "wontfix", true
		case "ACCEPTED":
			return "accept", true
		default:
			return "resolve", true
		}
	case "CONFIRMED":
		return "confirm", true
	case "REOPENED", "OPEN":
		return "reopen", true
	case "TO_REVIEW", "REVIEWED":
		// Hotspot statuses never reach the issue workflow.
		return "", false
	default:
		return "", false
	}
}
