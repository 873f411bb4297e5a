package housekeep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

// ActionKind names one deletable object family.
type ActionKind string

const (
	ActionDeleteProject ActionKind = "delete-project"
	ActionDeleteBranch  ActionKind = "delete-branch"
	ActionRevokeToken   ActionKind = "revoke-token"
)

// Action is one planned deletion. Applied and Error are filled during
// apply and stay empty in dry runs.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Project string     `json:"project,omitempty"`
	Branch  string     `json:"branch,omitempty"`
	Login   string     `json:"login,omitempty"`
	Token   string     `json:"token,omitempty"`
	Reason  string     `json:"reason"`

	Applied bool   `json:"applied,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Options bounds a housekeeping run. All ages are in days; zero disables
// the corresponding family.
type Options struct {
	ProjectMaxAge int // days since last project analysis
	BranchMaxAge  int // days since last branch analysis
	TokenMaxAge   int // days since last token use
}

// Counts summarizes a run.
type Counts struct {
	Planned int `json:"planned"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// Summarize tallies the actions of a run.
func Summarize(actions []Action) Counts {
	counts := Counts{Planned: len(actions)}
	for _, action := range actions {
		switch {
		case action.Applied:
			counts.Applied++
		case action.Error != "":
			counts.Failed++
		}
	}
	return counts
}

// Housekeeper plans and applies deletions of stale platform objects.
type Housekeeper struct {
	client *sonar.Client
	logger hclog.Logger
	policy retry.Policy
}

// NewHousekeeper creates a housekeeper bound to one connection. A zero
// policy falls back to the default write policy.
func NewHousekeeper(client *sonar.Client, logger hclog.Logger, policy retry.Policy) *Housekeeper {
	if policy == (retry.Policy{}) {
		policy = retry.DefaultWritePolicy()
	}
	return &Housekeeper{client: client, logger: logger, policy: policy}
}

// Plan computes the deletions the thresholds call for without touching
// anything. Never-analyzed projects are left alone, they may be freshly
// provisioned. Token cleanup covers the authenticated user only.
func (h *Housekeeper) Plan(ctx context.Context, opts Options) ([]Action, error) {
	now := time.Now().UTC()
	var actions []Action

	if opts.ProjectMaxAge > 0 {
		cutoff := now.AddDate(0, 0, -opts.ProjectMaxAge)
		stale, err := h.client.Projects.Search(ctx, sonar.ProjectSearchOptions{
			AnalyzedBefore: cutoff.Format("2006-01-02"),
		})
		if err != nil {
			return nil, fmt.Errorf("planning project cleanup: %w", err)
		}
		for _, project := range stale {
			actions = append(actions, Action{
				Kind:    ActionDeleteProject,
				Project: project.Key,
				Reason:  fmt.Sprintf("not analyzed since %s", project.LastAnalysisDate),
			})
		}
	}

	if opts.BranchMaxAge > 0 {
		branchActions, err := h.planBranches(ctx, opts.BranchMaxAge, plannedProjects(actions), now)
		if err != nil {
			return nil, err
		}
		actions = append(actions, branchActions...)
	}

	if opts.TokenMaxAge > 0 {
		tokenActions, err := h.planTokens(ctx, opts.TokenMaxAge, now)
		if err != nil {
			return nil, err
		}
		actions = append(actions, tokenActions...)
	}

	sortActions(actions)
	h.logger.Info("housekeeping plan ready", "actions", len(actions))
	return actions, nil
}

// planBranches plans the deletion of stale non-main branches, skipping
// projects already planned for deletion and branches the platform excludes
// from purge.
func (h *Housekeeper) planBranches(ctx context.Context, maxAgeDays int, skip map[string]bool, now time.Time) ([]Action, error) {
	projects, err := h.client.Projects.Search(ctx, sonar.ProjectSearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("planning branch cleanup: %w", err)
	}

	var actions []Action
	for _, project := range projects {
		if skip[project.Key] {
			continue
		}
		branches, err := h.client.Branches.List(ctx, project.Key)
		if err != nil {
			return nil, fmt.Errorf("planning branch cleanup of %q: %w", project.Key, err)
		}
		for _, branch := range branches {
			if branch.IsMain || branch.ExcludedFromPurge {
				continue
			}
			last := sonar.ParseTime(branch.AnalysisDate)
			if last.IsZero() {
				continue
			}
			if age := daysBetween(last, now); age > maxAgeDays {
				actions = append(actions, Action{
					Kind:    ActionDeleteBranch,
					Project: project.Key,
					Branch:  branch.Name,
					Reason:  fmt.Sprintf("last analyzed %d days ago", age),
				})
			}
		}
	}
	return actions, nil
}

// planTokens plans the revocation of tokens unused for maxAge days. Tokens
// never used at all age from their creation date.
func (h *Housekeeper) planTokens(ctx context.Context, maxAgeDays int, now time.Time) ([]Action, error) {
	list, err := h.client.Tokens.Search(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("planning token cleanup: %w", err)
	}

	var actions []Action
	for _, token := range list.UserTokens {
		lastUsed := sonar.ParseTime(token.LastConnectionDate)
		reason := "unused"
		if lastUsed.IsZero() {
			lastUsed = sonar.ParseTime(token.CreatedAt)
			reason = "never used"
		}
		if lastUsed.IsZero() {
			continue
		}
		if age := daysBetween(lastUsed, now); age > maxAgeDays {
			actions = append(actions, Action{
				Kind:   ActionRevokeToken,
				Login:  list.Login,
				Token:  token.Name,
				Reason: fmt.Sprintf("%s for %d days", reason, age),
			})
		}
	}
	return actions, nil
}

// Apply performs the planned deletions, each write guarded by the retry
// policy. A failed action is recorded and does not stop the rest.
func (h *Housekeeper) Apply(ctx context.Context, actions []Action) []Action {
	for i := range actions {
		if err := ctx.Err(); err != nil {
			actions[i].Error = err.Error()
			continue
		}

		current := actions[i]
		err := h.policy.Do(ctx, func() error {
			if err := h.applyAction(ctx, current); err != nil {
				if !sonar.IsTransient(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		})
		if err != nil {
			h.logger.Warn("housekeeping action failed",
				"kind", actions[i].Kind,
				"project", actions[i].Project,
				"error", err,
			)
			actions[i].Error = err.Error()
			continue
		}
		actions[i].Applied = true
	}
	return actions
}

func (h *Housekeeper) applyAction(ctx context.Context, action Action) error {
	switch action.Kind {
	case ActionDeleteProject:
		return h.client.Projects.Delete(ctx, action.Project)
	case ActionDeleteBranch:
		return h.client.Branches.Delete(ctx, action.Project, action.Branch)
	case ActionRevokeToken:
		return h.client.Tokens.Revoke(ctx, action.Login, action.Token)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

func plannedProjects(actions []Action) map[string]bool {
	planned := map[string]bool{}
	for _, action := range actions {
		if action.Kind == ActionDeleteProject {
			planned[action.Project] = true
		}
	}
	return planned
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func sortActions(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Kind != actions[j].Kind {
			return actions[i].Kind < actions[j].Kind
		}
		if actions[i].Project != actions[j].Project {
			return actions[i].Project < actions[j].Project
		}
		if actions[i].Branch != actions[j].Branch {
			return actions[i].Branch < actions[j].Branch
		}
		return actions[i].Token < actions[j].Token
	})
}
