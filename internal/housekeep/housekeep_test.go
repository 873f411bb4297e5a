package housekeep

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

type hkProjects struct {
	stale     []sonar.Project
	all       []sonar.Project
	searches  int
	deleted   []string
	deleteErr error
	failFirst int
}

func (f *hkProjects) Search(_ context.Context, opts sonar.ProjectSearchOptions) ([]sonar.Project, error) {
	f.searches++
	if opts.AnalyzedBefore != "" {
		return f.stale, nil
	}
	return f.all, nil
}

func (f *hkProjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.failFirst > 0 {
		f.failFirst--
		return &sonar.APIError{StatusCode: 503}
	}
	return f.deleteErr
}

type hkBranches struct {
	byProject map[string][]sonar.Branch
	deleted   []string
	deleteErr error
}

func (f *hkBranches) List(_ context.Context, project string) ([]sonar.Branch, error) {
	return f.byProject[project], nil
}

func (f *hkBranches) Delete(_ context.Context, project, branch string) error {
	f.deleted = append(f.deleted, project+"@"+branch)
	return f.deleteErr
}

type hkTokens struct {
	list    *sonar.TokenList
	revoked []string
}

func (f *hkTokens) Search(context.Context, string) (*sonar.TokenList, error) { return f.list, nil }

func (f *hkTokens) Revoke(_ context.Context, login, name string) error {
	f.revoked = append(f.revoked, login+"/"+name)
	return nil
}

var fastPolicy = retry.Policy{
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
	MaxRetries:      2,
}

func newTestHousekeeper(projects *hkProjects, branches *hkBranches, tokens *hkTokens) *Housekeeper {
	client := &sonar.Client{
		Logger:   hclog.NewNullLogger(),
		Projects: projects,
		Branches: branches,
		Tokens:   tokens,
	}
	return NewHousekeeper(client, hclog.NewNullLogger(), fastPolicy)
}

// day formats a date the given number of days before now, the way the
// platform reports analysis dates.
func day(daysAgo int) string {
	return time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func TestPlan_CoversAllFamilies(t *testing.T) {
	projects := &hkProjects{
		stale: []sonar.Project{{Key: "legacy-app", LastAnalysisDate: "2022-01-15"}},
		all: []sonar.Project{
			{Key: "legacy-app", LastAnalysisDate: "2022-01-15"},
			{Key: "svc-a", LastAnalysisDate: day(2)},
		},
	}
	branches := &hkBranches{byProject: map[string][]sonar.Branch{
		// The whole project is planned for deletion, its branches must not
		// be planned again.
		"legacy-app": {{Name: "feature/dead", AnalysisDate: day(400)}},
		"svc-a": {
			{Name: "main", IsMain: true, AnalysisDate: day(400)},
			{Name: "release/1.x", ExcludedFromPurge: true, AnalysisDate: day(400)},
			{Name: "feature/slow", AnalysisDate: day(60)},
			{Name: "feature/fresh", AnalysisDate: day(2)},
			{Name: "feature/unborn"},
		},
	}}
	tokens := &hkTokens{list: &sonar.TokenList{
		Login: "svc-sonar",
		UserTokens: []sonar.UserToken{
			{Name: "old-ci", CreatedAt: day(400), LastConnectionDate: day(120)},
			{Name: "fresh", CreatedAt: day(400), LastConnectionDate: day(5)},
			{Name: "never-used-old", CreatedAt: day(200)},
			{Name: "never-used-new", CreatedAt: day(5)},
			{Name: "undated"},
		},
	}}
	h := newTestHousekeeper(projects, branches, tokens)

	actions, err := h.Plan(context.Background(), Options{ProjectMaxAge: 365, BranchMaxAge: 30, TokenMaxAge: 90})
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(actions) != 4 {
		t.Fatalf("expected 4 actions, got %d: %+v", len(actions), actions)
	}

	branch := actions[0]
	if branch.Kind != ActionDeleteBranch || branch.Project != "svc-a" || branch.Branch != "feature/slow" {
		t.Fatalf("expected the stale branch first, got %+v", branch)
	}
	if !strings.Contains(branch.Reason, "60 days ago") {
		t.Fatalf("expected the branch age in the reason, got %q", branch.Reason)
	}

	project := actions[1]
	if project.Kind != ActionDeleteProject || project.Project != "legacy-app" {
		t.Fatalf("expected the stale project second, got %+v", project)
	}
	if !strings.Contains(project.Reason, "2022-01-15") {
		t.Fatalf("expected the last analysis date in the reason, got %q", project.Reason)
	}

	if actions[2].Kind != ActionRevokeToken || actions[2].Token != "never-used-old" {
		t.Fatalf("expected the never-used token, got %+v", actions[2])
	}
	if !strings.Contains(actions[2].Reason, "never used") {
		t.Fatalf("expected the never-used reason, got %q", actions[2].Reason)
	}
	if actions[3].Kind != ActionRevokeToken || actions[3].Token != "old-ci" {
		t.Fatalf("expected the unused token, got %+v", actions[3])
	}

	if len(projects.deleted) != 0 || len(branches.deleted) != 0 || len(tokens.revoked) != 0 {
		t.Fatal("planning must not delete anything")
	}
}

func TestPlan_DisabledFamiliesAreNotFetched(t *testing.T) {
	projects := &hkProjects{}
	tokens := &hkTokens{list: &sonar.TokenList{
		Login:      "svc-sonar",
		UserTokens: []sonar.UserToken{{Name: "old-ci", LastConnectionDate: day(120)}},
	}}
	h := newTestHousekeeper(projects, &hkBranches{}, tokens)

	actions, err := h.Plan(context.Background(), Options{TokenMaxAge: 90})
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != ActionRevokeToken {
		t.Fatalf("expected only the token action, got %+v", actions)
	}
	if projects.searches != 0 {
		t.Fatalf("disabled families must not hit the API, got %d searches", projects.searches)
	}
}

func TestApply_RecordsOutcomesPerAction(t *testing.T) {
	projects := &hkProjects{}
	branches := &hkBranches{deleteErr: &sonar.APIError{StatusCode: 400}}
	tokens := &hkTokens{}
	h := newTestHousekeeper(projects, branches, tokens)

	actions := []Action{
		{Kind: ActionDeleteBranch, Project: "svc-a", Branch: "feature/slow"},
		{Kind: ActionDeleteProject, Project: "legacy-app"},
		{Kind: ActionRevokeToken, Login: "svc-sonar", Token: "old-ci"},
	}
	applied := h.Apply(context.Background(), actions)

	if applied[0].Applied || applied[0].Error == "" {
		t.Fatalf("expected the branch deletion recorded as failed, got %+v", applied[0])
	}
	if len(branches.deleted) != 1 {
		t.Fatalf("a validation failure must not be retried, got %d attempts", len(branches.deleted))
	}
	if !applied[1].Applied || !applied[2].Applied {
		t.Fatalf("expected the remaining actions applied, got %+v", applied[1:])
	}
	if projects.deleted[0] != "legacy-app" || tokens.revoked[0] != "svc-sonar/old-ci" {
		t.Fatalf("unexpected write targets: %v / %v", projects.deleted, tokens.revoked)
	}

	counts := Summarize(applied)
	if counts.Planned != 3 || counts.Applied != 2 || counts.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", counts)
	}
}

func TestApply_RetriesTransientFailures(t *testing.T) {
	projects := &hkProjects{failFirst: 1}
	h := newTestHousekeeper(projects, &hkBranches{}, &hkTokens{})

	actions := h.Apply(context.Background(), []Action{{Kind: ActionDeleteProject, Project: "legacy-app"}})
	if !actions[0].Applied {
		t.Fatalf("expected the action to recover, got %+v", actions[0])
	}
	if len(projects.deleted) != 2 {
		t.Fatalf("expected one retry after the transient failure, got %d attempts", len(projects.deleted))
	}
}

func TestApply_StopsOnCancelledContext(t *testing.T) {
	projects := &hkProjects{}
	h := newTestHousekeeper(projects, &hkBranches{}, &hkTokens{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	actions := h.Apply(ctx, []Action{{Kind: ActionDeleteProject, Project: "legacy-app"}})
	if actions[0].Applied || actions[0].Error == "" {
		t.Fatalf("expected the action skipped with the context error, got %+v", actions[0])
	}
	if len(projects.deleted) != 0 {
		t.Fatal("a cancelled run must not touch the platform")
	}
}
