package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
)

// Severity ranks a problem.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ParseSeverity validates a severity name from the CLI.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToUpper(s)) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("unknown severity %q: expected low, medium or high", s)
	}
}

// rank orders severities, higher is worse.
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the severity is at or above the given minimum.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

// Problem categories.
const (
	CategoryToken   = "token"
	CategoryProject = "project"
	CategoryBranch  = "branch"
	CategorySetting = "setting"
	CategoryBinding = "binding"
)

// Problem is one audit finding.
type Problem struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Key      string   `json:"key"`
	Message  string   `json:"message"`
}

// AnyAtLeast reports whether any problem is at or above the given severity.
func AnyAtLeast(problems []Problem, min Severity) bool {
	for _, p := range problems {
		if p.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// Options narrows an audit run.
type Options struct {
	Projects    []string // empty means every project visible to the token
	CheckRemote bool
	Threads     int
}

// Auditor runs best-practice checks against one instance. Reads only.
type Auditor struct {
	client     *sonar.Client
	logger     hclog.Logger
	thresholds Thresholds
	remotes    map[string]RemoteChecker
}

// NewAuditor creates an auditor bound to one connection.
func NewAuditor(client *sonar.Client, logger hclog.Logger, thresholds Thresholds) *Auditor {
	return &Auditor{
		client:     client,
		logger:     logger,
		thresholds: thresholds,
		remotes:    map[string]RemoteChecker{},
	}
}

// RegisterRemote attaches a repository existence checker for one DevOps
// platform kind, as reported in the binding's alm field ("github",
// "gitlab").
func (a *Auditor) RegisterRemote(alm string, checker RemoteChecker) {
	a.remotes[alm] = checker
}

// Run executes all checks and returns the problems found, sorted by
// category and key. Fetch failures abort the run; a clean instance returns
// an empty slice.
func (a *Auditor) Run(ctx context.Context, opts Options) ([]Problem, error) {
	now := time.Now().UTC()
	var problems []Problem

	tokens, err := a.client.Tokens.Search(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("auditing tokens: %w", err)
	}
	problems = append(problems, checkTokens(tokens, a.thresholds.TokenMaxAge, now)...)

	settings, err := a.client.Settings.Values(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("auditing settings: %w", err)
	}
	problems = append(problems, checkSettings(settings, a.thresholds.ExpectedSettings)...)

	projects, err := a.client.Projects.Search(ctx, sonar.ProjectSearchOptions{Projects: opts.Projects})
	if err != nil {
		return nil, fmt.Errorf("auditing projects: %w", err)
	}

	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	results := make(chan []Problem, len(projects))
	for _, project := range projects {
		currentProject := project
		g.Go(func() error {
			found, err := a.auditProject(groupCtx, currentProject, opts.CheckRemote, now)
			if err != nil {
				return err
			}
			results <- found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	for found := range results {
		problems = append(problems, found...)
	}

	sortProblems(problems)
	a.logger.Info("audit finished", "projects", len(projects), "problems", len(problems))
	return problems, nil
}

// auditProject runs the per-project checks: analysis staleness, lines of
// code, branch sprawl and staleness, and the DevOps platform binding.
func (a *Auditor) auditProject(ctx context.Context, project sonar.Project, checkRemote bool, now time.Time) ([]Problem, error) {
	problems := checkProjectAge(project, a.thresholds.ProjectMaxAnalysisAge, now)

	if project.LastAnalysisDate != "" {
		component, err := a.client.Measures.Component(ctx, project.Key, []string{"ncloc"})
		if err != nil {
			return nil, fmt.Errorf("auditing measures of %q: %w", project.Key, err)
		}
		problems = append(problems, checkLinesOfCode(project.Key, component.Measures)...)
	}

	branches, err := a.client.Branches.List(ctx, project.Key)
	if err != nil {
		return nil, fmt.Errorf("auditing branches of %q: %w", project.Key, err)
	}
	problems = append(problems, checkBranches(project.Key, branches, a.thresholds, now)...)

	binding, err := a.client.Settings.ProjectBinding(ctx, project.Key)
	switch {
	case sonar.IsNotFound(err):
		// not bound to a DevOps platform
	case err != nil:
		return nil, fmt.Errorf("auditing binding of %q: %w", project.Key, err)
	default:
		problems = append(problems, a.checkBinding(ctx, project.Key, binding, checkRemote)...)
	}
	return problems, nil
}

// checkTokens flags tokens older than maxAge days.
func checkTokens(list *sonar.TokenList, maxAgeDays int, now time.Time) []Problem {
	if maxAgeDays <= 0 {
		return nil
	}

	var problems []Problem
	for _, token := range list.UserTokens {
		createdAt := sonar.ParseTime(token.CreatedAt)
		if createdAt.IsZero() {
			continue
		}
		age := daysBetween(createdAt, now)
		if age > maxAgeDays {
			problems = append(problems, Problem{
				Severity: SeverityHigh,
				Category: CategoryToken,
				Key:      token.Name,
				Message:  fmt.Sprintf("token %q of %q is %d days old, max age is %d", token.Name, list.Login, age, maxAgeDays),
			})
		}
	}
	return problems
}

// checkSettings compares platform settings with the expected values.
// Property keys arrive lowercased from the file, so platform keys are
// matched case-insensitively and reported in their canonical spelling.
func checkSettings(settings []sonar.Setting, expected map[string]string) []Problem {
	if len(expected) == 0 {
		return nil
	}

	actual := make(map[string]sonar.Setting, len(settings))
	for _, s := range settings {
		actual[strings.ToLower(s.Key)] = s
	}

	keys := make([]string, 0, len(expected))
	for key := range expected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var problems []Problem
	for _, key := range keys {
		want := expected[key]
		setting, ok := actual[key]
		if !ok {
			problems = append(problems, Problem{
				Severity: SeverityMedium,
				Category: CategorySetting,
				Key:      key,
				Message:  fmt.Sprintf("setting %q is not set, expected %q", key, want),
			})
			continue
		}

		got := setting.Value
		if got == "" && len(setting.Values) > 0 {
			got = strings.Join(setting.Values, ",")
		}
		if !strings.EqualFold(got, want) {
			problems = append(problems, Problem{
				Severity: SeverityMedium,
				Category: CategorySetting,
				Key:      setting.Key,
				Message:  fmt.Sprintf("setting %q is %q, expected %q", setting.Key, got, want),
			})
		}
	}
	return problems
}

// checkProjectAge flags projects never analyzed or stale beyond maxAge days.
func checkProjectAge(project sonar.Project, maxAgeDays int, now time.Time) []Problem {
	if maxAgeDays <= 0 {
		return nil
	}
	if project.LastAnalysisDate == "" {
		return []Problem{{
			Severity: SeverityLow,
			Category: CategoryProject,
			Key:      project.Key,
			Message:  fmt.Sprintf("project %q has never been analyzed", project.Key),
		}}
	}

	last := sonar.ParseTime(project.LastAnalysisDate)
	if last.IsZero() {
		return nil
	}
	age := daysBetween(last, now)
	if age > maxAgeDays {
		return []Problem{{
			Severity: SeverityMedium,
			Category: CategoryProject,
			Key:      project.Key,
			Message:  fmt.Sprintf("project %q was last analyzed %d days ago, max age is %d", project.Key, age, maxAgeDays),
		}}
	}
	return nil
}

// checkLinesOfCode flags analyzed projects with zero lines of code. Those
// are usually broken analysis setups occupying a license slot.
func checkLinesOfCode(projectKey string, measures []sonar.Measure) []Problem {
	for _, m := range measures {
		if m.Metric == "ncloc" && m.Value == "0" {
			return []Problem{{
				Severity: SeverityLow,
				Category: CategoryProject,
				Key:      projectKey,
				Message:  fmt.Sprintf("project %q contains no lines of code", projectKey),
			}}
		}
	}
	return nil
}

// checkBranches flags branch sprawl and stale branches. Main branches and
// branches excluded from purge never count as stale.
func checkBranches(projectKey string, branches []sonar.Branch, t Thresholds, now time.Time) []Problem {
	var problems []Problem
	if t.ProjectMaxBranches > 0 && len(branches) > t.ProjectMaxBranches {
		problems = append(problems, Problem{
			Severity: SeverityLow,
			Category: CategoryProject,
			Key:      projectKey,
			Message:  fmt.Sprintf("project %q has %d branches, max is %d", projectKey, len(branches), t.ProjectMaxBranches),
		})
	}
	if t.BranchMaxAnalysisAge <= 0 {
		return problems
	}

	for _, branch := range branches {
		if branch.IsMain || branch.ExcludedFromPurge {
			continue
		}
		last := sonar.ParseTime(branch.AnalysisDate)
		if last.IsZero() {
			continue
		}
		age := daysBetween(last, now)
		if age > t.BranchMaxAnalysisAge {
			problems = append(problems, Problem{
				Severity: SeverityLow,
				Category: CategoryBranch,
				Key:      projectKey + ":" + branch.Name,
				Message:  fmt.Sprintf("branch %q of %q was last analyzed %d days ago, max age is %d", branch.Name, projectKey, age, t.BranchMaxAnalysisAge),
			})
		}
	}
	return problems
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func sortProblems(problems []Problem) {
	sort.Slice(problems, func(i, j int) bool {
		if problems[i].Category != problems[j].Category {
			return problems[i].Category < problems[j].Category
		}
		if problems[i].Key != problems[j].Key {
			return problems[i].Key < problems[j].Key
		}
		return problems[i].Message < problems[j].Message
	})
}
