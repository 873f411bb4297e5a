package sonar

import (
	"testing"
	"time"

	"github.com/sonarkit-io/sonarkit/internal/findings"
)

func TestParseTime(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"2024-05-10T12:30:45+0200", time.Date(2024, 5, 10, 12, 30, 45, 0, time.FixedZone("", 2*3600))},
		{"2024-05-10T12:30:45Z", time.Date(2024, 5, 10, 12, 30, 45, 0, time.UTC)},
		{"2024-05-10", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"not a date", time.Time{}},
		{"", time.Time{}},
	}
	for _, tc := range cases {
		if got := ParseTime(tc.input); !got.Equal(tc.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestIssueToFinding(t *testing.T) {
	line := 42
	issue := Issue{
		Key:          "AX-123",
		Rule:         "go:S1186",
		Severity:     "MAJOR",
		Component:    "my-app:internal/server/handler.go",
		Project:      "my-app",
		Line:         &line,
		Hash:         "c2a7e1d09b5f",
		Status:       "OPEN",
		Message:      "Add a comment",
		Type:         "CODE_SMELL",
		Author:       "dev@example.com",
		CreationDate: "2024-05-10T12:00:00+0000",
		Comments: []Comment{
			{Login: "alice", Markdown: "first", CreatedAt: "2024-05-10T13:00:00+0000"},
		},
	}

	f := issue.ToFinding()
	if f.Kind != findings.KindIssue {
		t.Fatalf("expected issue kind, got %q", f.Kind)
	}
	if f.FilePath != "internal/server/handler.go" {
		t.Fatalf("expected the project prefix stripped, got %q", f.FilePath)
	}
	if !f.HasLine() || f.LineValue() != 42 {
		t.Fatalf("expected line 42, got %v", f.Line)
	}
	if f.CreatedAt.IsZero() {
		t.Fatalf("expected the creation date parsed")
	}
	if len(f.Changelog) != 1 || f.Changelog[0].Kind != findings.ChangeComment {
		t.Fatalf("expected the comment converted to an event, got %+v", f.Changelog)
	}
	if f.Changelog[0].Text != "first" || f.Changelog[0].Actor != "alice" {
		t.Fatalf("unexpected comment event: %+v", f.Changelog[0])
	}
}

func TestIssueToFinding_ProjectLevel(t *testing.T) {
	issue := Issue{Key: "AX-1", Component: "my-app", Project: "my-app"}
	if got := issue.ToFinding().FilePath; got != "" {
		t.Fatalf("project-level finding expected an empty path, got %q", got)
	}
}

func TestCommentEventFallsBackToHTML(t *testing.T) {
	events := eventsFromComments([]Comment{
		{Login: "alice", HTMLText: "<p>rendered only</p>", CreatedAt: "2024-05-10T12:00:00+0000"},
	})
	if len(events) != 1 || events[0].Text != "<p>rendered only</p>" {
		t.Fatalf("expected html fallback, got %+v", events)
	}
}

func TestEventsFromChangelog_DropsSystemEntries(t *testing.T) {
	entries := []ChangelogEntry{
		{CreationDate: "2024-05-10T12:00:00+0000", Diffs: []Diff{{Key: "status", NewValue: "CLOSED"}}},
		{User: "alice", CreationDate: "2024-05-10T13:00:00+0000", Diffs: []Diff{{Key: "severity", NewValue: "MINOR"}}},
	}

	events := eventsFromChangelog(entries)
	if len(events) != 1 {
		t.Fatalf("expected the system entry dropped, got %d events", len(events))
	}
	if events[0].Kind != findings.ChangeSeverity || events[0].Value != "MINOR" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestEventsFromChangelog_TransitionCollapsesStatusAndResolution(t *testing.T) {
	entries := []ChangelogEntry{
		{
			User:         "alice",
			CreationDate: "2024-05-10T12:00:00+0000",
			Diffs: []Diff{
				{Key: "status", OldValue: "OPEN", NewValue: "RESOLVED"},
				{Key: "resolution", NewValue: "WONTFIX"},
			},
		},
	}

	events := eventsFromChangelog(entries)
	if len(events) != 1 {
		t.Fatalf("expected one transition event, got %d", len(events))
	}
	if events[0].Kind != findings.ChangeTransition {
		t.Fatalf("expected a transition, got %q", events[0].Kind)
	}
	if events[0].Status != "RESOLVED" || events[0].Resolution != "WONTFIX" {
		t.Fatalf("unexpected transition: %+v", events[0])
	}
}

func TestEventsFromChangelog_MixedEntryYieldsOnePerConcern(t *testing.T) {
	entries := []ChangelogEntry{
		{
			User:         "alice",
			CreationDate: "2024-05-10T12:00:00+0000",
			Diffs: []Diff{
				{Key: "assignee", NewValue: "bob"},
				{Key: "tags", NewValue: "security audit"},
				{Key: "status", NewValue: "CONFIRMED"},
			},
		},
	}

	events := eventsFromChangelog(entries)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	kinds := map[findings.ChangeKind]bool{}
	for _, ev := range events {
		kinds[ev.Kind] = true
	}
	for _, want := range []findings.ChangeKind{findings.ChangeAssignee, findings.ChangeTags, findings.ChangeTransition} {
		if !kinds[want] {
			t.Fatalf("missing %q event in %+v", want, events)
		}
	}
}

func TestEventsFromChangelog_IssueStatusNormalization(t *testing.T) {
	cases := []struct {
		value          string
		wantStatus     string
		wantResolution string
	}{
		{"OPEN", "REOPENED", ""},
		{"CONFIRMED", "CONFIRMED", ""},
		{"FALSE_POSITIVE", "RESOLVED", "FALSE-POSITIVE"},
		{"ACCEPTED", "RESOLVED", "ACCEPTED"},
		{"FIXED", "RESOLVED", "FIXED"},
	}
	for _, tc := range cases {
		entries := []ChangelogEntry{
			{User: "alice", CreationDate: "2024-05-10T12:00:00+0000", Diffs: []Diff{{Key: "issueStatus", NewValue: tc.value}}},
		}
		events := eventsFromChangelog(entries)
		if len(events) != 1 {
			t.Fatalf("issueStatus %q: expected one event, got %d", tc.value, len(events))
		}
		if events[0].Status != tc.wantStatus || events[0].Resolution != tc.wantResolution {
			t.Errorf("issueStatus %q normalized to (%q, %q), want (%q, %q)",
				tc.value, events[0].Status, events[0].Resolution, tc.wantStatus, tc.wantResolution)
		}
	}
}

func TestAppendChangelogKeepsEventsSorted(t *testing.T) {
	f := findings.Finding{
		Changelog: []findings.ChangeEvent{
			{At: time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC), Actor: "alice", Kind: findings.ChangeComment},
		},
	}
	AppendChangelog(&f, []ChangelogEntry{
		{User: "bob", CreationDate: "2024-05-10T12:00:00+0000", Diffs: []Diff{{Key: "status", NewValue: "CONFIRMED"}}},
	})

	if len(f.Changelog) != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.Changelog))
	}
	if f.Changelog[0].Actor != "bob" {
		t.Fatalf("expected the earlier event first, got %+v", f.Changelog[0])
	}
}

func TestHotspotDetailsToFinding(t *testing.T) {
	line := 7
	details := &HotspotDetails{
		Key:          "HS-1",
		Component:    ComponentRef{Key: "my-app:cmd/main.go", Path: "cmd/main.go"},
		Project:      ComponentRef{Key: "my-app"},
		Rule:         HotspotRule{Key: "go:S4507"},
		Status:       "TO_REVIEW",
		Line:         &line,
		Hash:         "beef",
		Message:      "Make sure this debug feature is deactivated",
		CreationDate: "2024-05-10T12:00:00+0000",
		Comment: []Comment{
			{Login: "alice", Markdown: "checked", CreatedAt: "2024-05-10T13:00:00+0000"},
		},
		Changelog: []ChangelogEntry{
			{User: "bob", CreationDate: "2024-05-10T12:30:00+0000", Diffs: []Diff{{Key: "assignee", NewValue: "carol"}}},
		},
	}

	f := details.ToFinding()
	if f.Kind != findings.KindHotspot {
		t.Fatalf("expected hotspot kind, got %q", f.Kind)
	}
	if f.FilePath != "cmd/main.go" || f.Hash != "beef" {
		t.Fatalf("unexpected finding: %+v", f)
	}
	if len(f.Changelog) != 2 {
		t.Fatalf("expected comment and changelog merged, got %d events", len(f.Changelog))
	}
	// Merged events must come out sorted ascending.
	if f.Changelog[0].Kind != findings.ChangeAssignee || f.Changelog[1].Kind != findings.ChangeComment {
		t.Fatalf("expected events sorted by time, got %+v", f.Changelog)
	}
}
