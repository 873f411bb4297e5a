package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/findings"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

// fakeIssues records issue writes. Read methods are never called by the
// synchronizer.
type fakeIssues struct {
	comments    []string
	transitions []string
	severities  []string
	typeEdits   []string
	assigned    []string
	tagEdits    [][]string
	err         error
}

func (f *fakeIssues) Search(ctx context.Context, opts sonar.IssueSearchOptions) ([]sonar.Issue, error) {
	return nil, nil
}

func (f *fakeIssues) Changelog(ctx context.Context, issueKey string) ([]sonar.ChangelogEntry, error) {
	return nil, nil
}

func (f *fakeIssues) DoTransition(ctx context.Context, issueKey, transition string) error {
	f.transitions = append(f.transitions, transition)
	return f.err
}

func (f *fakeIssues) AddComment(ctx context.Context, issueKey, text string) error {
	f.comments = append(f.comments, text)
	return f.err
}

func (f *fakeIssues) Assign(ctx context.Context, issueKey, assignee string) error {
	f.assigned = append(f.assigned, assignee)
	return f.err
}

func (f *fakeIssues) SetSeverity(ctx context.Context, issueKey, severity string) error {
	f.severities = append(f.severities, severity)
	return f.err
}

func (f *fakeIssues) SetType(ctx context.Context, issueKey, issueType string) error {
	f.typeEdits = append(f.typeEdits, issueType)
	return f.err
}

func (f *fakeIssues) SetTags(ctx context.Context, issueKey string, tags []string) error {
	f.tagEdits = append(f.tagEdits, tags)
	return f.err
}

// fakeHotspots records hotspot writes.
type fakeHotspots struct {
	comments []string
	statuses []string
	assigned []string
}

func (f *fakeHotspots) Search(ctx context.Context, opts sonar.HotspotSearchOptions) ([]sonar.Hotspot, error) {
	return nil, nil
}

func (f *fakeHotspots) Show(ctx context.Context, hotspotKey string) (*sonar.HotspotDetails, error) {
	return nil, nil
}

func (f *fakeHotspots) ChangeStatus(ctx context.Context, hotspotKey, status, resolution, comment string) error {
	f.statuses = append(f.statuses, status+"/"+resolution)
	return nil
}

func (f *fakeHotspots) Assign(ctx context.Context, hotspotKey, assignee string) error {
	f.assigned = append(f.assigned, assignee)
	return nil
}

func (f *fakeHotspots) AddComment(ctx context.Context, hotspotKey, text string) error {
	f.comments = append(f.comments, text)
	return nil
}

// fakeUsers resolves only the configured logins.
type fakeUsers struct {
	logins []string
}

func (f *fakeUsers) Search(ctx context.Context, query string) ([]sonar.User, error) {
	var out []sonar.User
	for _, l := range f.logins {
		if l == query {
			out = append(out, sonar.User{Login: l, Active: true})
		}
	}
	return out, nil
}

func (f *fakeUsers) Current(ctx context.Context) (*sonar.User, error) {
	return &sonar.User{Login: "svc", Active: true}, nil
}

var syncBase = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestSynchronizer(issues *fakeIssues, hotspots *fakeHotspots, users *fakeUsers, caps *sonar.Capabilities, opts SyncOptions) *Synchronizer {
	client := &sonar.Client{
		Issues:   issues,
		Hotspots: hotspots,
		Users:    users,
		Logger:   hclog.NewNullLogger(),
	}
	policy := retry.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxRetries: 0}
	return NewSynchronizer(client, hclog.NewNullLogger(), caps, policy, opts)
}

func serverCaps() *sonar.Capabilities {
	return &sonar.Capabilities{
		Platform:        sonar.PlatformServer,
		Version:         "9.9",
		CanEditSeverity: true,
		CanEditType:     true,
	}
}

func cleanMatch(src, tgt findings.Finding) MatchResult {
	return MatchResult{Confidence: MatchClean, Source: src, Target: &tgt, Score: maxScore}
}

func TestSynchronizer_ReplaysHistoryInOrder(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "looks fine to me"},
		{At: syncBase.Add(time.Minute), Actor: "alice", Kind: findings.ChangeTransition, Status: "RESOLVED", Resolution: "WONTFIX"},
		{At: syncBase.Add(2 * time.Minute), Actor: "alice", Kind: findings.ChangeSeverity, Value: "MINOR"},
	}
	tgt := testIssue("TGT-1", 10)

	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
		SourceBaseURL:  "https://src.example.com",
		SourceScope:    Scope{Project: "my-app", Branch: "main"},
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q (%s)", outcome.Status, outcome.Reason)
	}
	if len(outcome.Replayed) != 4 {
		t.Fatalf("expected 3 replayed entries plus the link, got %d", len(outcome.Replayed))
	}
	if len(issues.comments) != 2 {
		t.Fatalf("expected the comment and the link comment, got %d", len(issues.comments))
	}
	if !strings.Contains(issues.comments[0], "[comment by alice on 2024-05-10T12:00:00Z]") {
		t.Fatalf("expected attribution prefix, got %q", issues.comments[0])
	}
	if !strings.Contains(issues.comments[0], "looks fine to me") {
		t.Fatalf("expected original comment body, got %q", issues.comments[0])
	}
	if !strings.Contains(issues.comments[1], "Synchronized from https://src.example.com/project/issues?id=my-app&branch=main&open=SRC-1") {
		t.Fatalf("expected cross-reference link, got %q", issues.comments[1])
	}
	if len(issues.transitions) != 1 || issues.transitions[0] != "wontfix" {
		t.Fatalf("expected the wontfix transition, got %v", issues.transitions)
	}
	if len(issues.severities) != 1 || issues.severities[0] != "MINOR" {
		t.Fatalf("expected the severity edit, got %v", issues.severities)
	}
}

func TestSynchronizer_ResumeReplaysOnlyNewEvents(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "already replayed"},
		{At: syncBase.Add(10 * time.Minute), Actor: "alice", Kind: findings.ChangeComment, Text: "new since last run"},
	}
	tgt := testIssue("TGT-1", 10)
	// The service account's own entry marks how far the previous run got.
	tgt.Changelog = []findings.ChangeEvent{
		{At: syncBase.Add(time.Minute), Actor: "svc", Kind: findings.ChangeComment, Text: "already replayed"},
	}

	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
		NoLink:         true,
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q", outcome.Status)
	}
	if len(issues.comments) != 1 {
		t.Fatalf("expected only the newer comment replayed, got %d", len(issues.comments))
	}
	if !strings.Contains(issues.comments[0], "new since last run") {
		t.Fatalf("wrong comment replayed: %q", issues.comments[0])
	}
}

func TestSynchronizer_SecondRunIsIdempotent(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "once is enough"},
	}
	tgt := testIssue("TGT-1", 10)
	tgt.Changelog = []findings.ChangeEvent{
		{At: syncBase.Add(time.Minute), Actor: "svc", Kind: findings.ChangeComment, Text: "once is enough"},
	}

	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q", outcome.Status)
	}
	if len(issues.comments) != 0 {
		t.Fatalf("expected no writes on an already-synchronized finding, got %d", len(issues.comments))
	}
}

func TestSynchronizer_ForeignChangesAreNeverTouched(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "should not land"},
	}
	tgt := testIssue("TGT-1", 10)
	tgt.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "bob", Kind: findings.ChangeTransition, Status: "CONFIRMED"},
	}

	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %q", outcome.Status)
	}
	if len(issues.comments)+len(issues.transitions) != 0 {
		t.Fatalf("expected no writes on a finding with foreign changes")
	}
}

func TestSynchronizer_CapabilitySkips(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeSeverity, Value: "MINOR"},
		{At: syncBase.Add(time.Minute), Actor: "alice", Kind: findings.ChangeType, Value: "BUG"},
	}
	tgt := testIssue("TGT-1", 10)

	caps := &sonar.Capabilities{Platform: sonar.PlatformCloud}
	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, caps, SyncOptions{ServiceAccount: "svc"})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("capability skips must not fail the finding, got %q", outcome.Status)
	}
	if len(outcome.Replayed) != 2 {
		t.Fatalf("expected 2 replay records, got %d", len(outcome.Replayed))
	}
	for _, change := range outcome.Replayed {
		if !change.Skipped {
			t.Fatalf("expected %q skipped on a cloud target", change.Kind)
		}
	}
	if len(issues.severities)+len(issues.typeEdits) != 0 {
		t.Fatalf("expected no severity or type writes on a cloud target")
	}
}

func TestSynchronizer_HotspotWorkflow(t *testing.T) {
	src := testIssue("SRC-H", 10)
	src.Kind = findings.KindHotspot
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "reviewed it"},
		{At: syncBase.Add(time.Minute), Actor: "alice", Kind: findings.ChangeTransition, Status: "REVIEWED", Resolution: "SAFE"},
		{At: syncBase.Add(2 * time.Minute), Actor: "alice", Kind: findings.ChangeTags, Value: "security audit"},
	}
	tgt := testIssue("TGT-H", 10)
	tgt.Kind = findings.KindHotspot

	issues := &fakeIssues{}
	hotspots := &fakeHotspots{}
	s := newTestSynchronizer(issues, hotspots, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
		SourceBaseURL:  "https://src.example.com",
		SourceScope:    Scope{Project: "my-app"},
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q (%s)", outcome.Status, outcome.Reason)
	}
	if len(hotspots.statuses) != 1 || hotspots.statuses[0] != "REVIEWED/SAFE" {
		t.Fatalf("expected the hotspot status change, got %v", hotspots.statuses)
	}
	if len(issues.comments) != 0 {
		t.Fatalf("hotspot comments must not reach the issue endpoint")
	}
	if len(hotspots.comments) != 2 {
		t.Fatalf("expected the comment and the link on the hotspot, got %d", len(hotspots.comments))
	}
	if !strings.Contains(hotspots.comments[1], "/security_hotspots?id=my-app&hotspots=SRC-H") {
		t.Fatalf("expected hotspot link, got %q", hotspots.comments[1])
	}

	var tagsChange *ReplayedChange
	for i := range outcome.Replayed {
		if outcome.Replayed[i].Kind == string(findings.ChangeTags) {
			tagsChange = &outcome.Replayed[i]
		}
	}
	if tagsChange == nil || !tagsChange.Skipped {
		t.Fatalf("expected the tags event skipped on a hotspot, got %+v", tagsChange)
	}
}

func TestSynchronizer_FailedWriteMarksFinding(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "will not land"},
	}
	tgt := testIssue("TGT-1", 10)

	issues := &fakeIssues{err: &sonar.APIError{StatusCode: 400, Endpoint: "/issues/add_comment"}}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{ServiceAccount: "svc"})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", outcome.Status)
	}
	if len(outcome.Replayed) != 1 || !outcome.Replayed[0].Failed {
		t.Fatalf("expected the replay entry marked failed, got %+v", outcome.Replayed)
	}
	if outcome.Replayed[0].Error == "" {
		t.Fatalf("expected the failure message recorded")
	}
	// A permanent validation error must not be retried.
	if len(issues.comments) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(issues.comments))
	}
}

func TestSynchronizer_AssigneeMustResolveOnTarget(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeAssignee, Value: "carol"},
		{At: syncBase.Add(time.Minute), Actor: "alice", Kind: findings.ChangeAssignee, Value: "mallory"},
	}
	tgt := testIssue("TGT-1", 10)

	issues := &fakeIssues{}
	users := &fakeUsers{logins: []string{"carol"}}
	s := newTestSynchronizer(issues, &fakeHotspots{}, users, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
		NoLink:         true,
	})

	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q", outcome.Status)
	}
	if len(issues.assigned) != 1 || issues.assigned[0] != "carol" {
		t.Fatalf("expected only the resolvable assignee applied, got %v", issues.assigned)
	}
	if !outcome.Replayed[1].Skipped {
		t.Fatalf("expected the unresolvable assignee skipped, got %+v", outcome.Replayed[1])
	}
}

func TestSynchronizer_NoAttribution(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.Changelog = []findings.ChangeEvent{
		{At: syncBase, Actor: "alice", Kind: findings.ChangeComment, Text: "bare text"},
	}
	tgt := testIssue("TGT-1", 10)

	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{
		ServiceAccount: "svc",
		NoAttribution:  true,
		NoLink:         true,
	})

	if outcome := s.Sync(context.Background(), cleanMatch(src, tgt)); outcome.Status != StatusSynced {
		t.Fatalf("expected synced, got %q", outcome.Status)
	}
	if len(issues.comments) != 1 || issues.comments[0] != "bare text" {
		t.Fatalf("expected the raw comment text, got %v", issues.comments)
	}
}

func TestSynchronizer_NonMatchesPassThrough(t *testing.T) {
	issues := &fakeIssues{}
	s := newTestSynchronizer(issues, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{ServiceAccount: "svc"})

	ambiguous := s.Sync(context.Background(), MatchResult{
		Confidence: MatchAmbiguous,
		Source:     testIssue("SRC-1", 10),
		Candidates: []Candidate{{Key: "TGT-A", Score: 8}, {Key: "TGT-B", Score: 8}},
	})
	if ambiguous.Status != StatusAmbiguous {
		t.Fatalf("expected ambiguous, got %q", ambiguous.Status)
	}

	unmatched := s.Sync(context.Background(), MatchResult{
		Confidence: MatchNone,
		Source:     testIssue("SRC-2", 11),
	})
	if unmatched.Status != StatusUnmatched {
		t.Fatalf("expected unmatched, got %q", unmatched.Status)
	}

	if len(issues.comments)+len(issues.transitions) != 0 {
		t.Fatalf("non-matches must not write anything")
	}
}

func TestSynchronizer_UnavailableHistoryFails(t *testing.T) {
	src := testIssue("SRC-1", 10)
	src.ChangelogUnavailable = true
	tgt := testIssue("TGT-1", 10)

	s := newTestSynchronizer(&fakeIssues{}, &fakeHotspots{}, &fakeUsers{}, serverCaps(), SyncOptions{ServiceAccount: "svc"})
	outcome := s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed when source history is unavailable, got %q", outcome.Status)
	}

	src.ChangelogUnavailable = false
	tgt.ChangelogUnavailable = true
	outcome = s.Sync(context.Background(), cleanMatch(src, tgt))
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed when target history is unavailable, got %q", outcome.Status)
	}
}

func TestDeriveTransition(t *testing.T) {
	cases := []struct {
		status, resolution string
		want               string
		ok                 bool
	}{
		{"RESOLVED", "FALSE-POSITIVE", "falsepositive", true},
		{"RESOLVED", "WONTFIX", "wontfix", true},
		{"RESOLVED", "ACCEPTED", "accept", true},
		{"RESOLVED", "FIXED", "resolve", true},
		{"CONFIRMED", "", "confirm", true},
		{"REOPENED", "", "reopen", true},
		{"OPEN", "", "reopen", true},
		{"TO_REVIEW", "", "", false},
		{"CLOSED", "", "", false},
	}
	for _, tc := range cases {
		got, ok := deriveTransition(tc.status, tc.resolution)
		if got != tc.want || ok != tc.ok {
			t.Errorf("deriveTransition(%q, %q) = (%q, %v), want (%q, %v)",
				tc.status, tc.resolution, got, ok, tc.want, tc.ok)
		}
	}
}
