package findings

import (
	"time"
)

// Kind discriminates the two finding families the platform tracks. Issues and
// security hotspots have different workflows and never match each other.
type Kind string

const (
	KindIssue   Kind = "issue"
	KindHotspot Kind = "hotspot"
)

// ChangeKind classifies a manual action recorded on a finding.
type ChangeKind string

const (
	ChangeComment    ChangeKind = "comment"
	ChangeTransition ChangeKind = "transition"
	ChangeSeverity   ChangeKind = "severity"
	ChangeType       ChangeKind = "type"
	ChangeAssignee   ChangeKind = "assignee"
	ChangeTags       ChangeKind = "tags"
)

// ChangeEvent is one manual action from a finding's history: a comment, a
// workflow transition, or an attribute edit. System-generated history entries
// carry no actor and are filtered out during normalization, so every event
// here has one.
type ChangeEvent struct {
	At    time.Time  `json:"at"`
	Actor string     `json:"actor"`
	Kind  ChangeKind `json:"kind"`

	// Transition target; status and resolution change together in a single
	// history entry and map back to a single workflow transition.
	Status     string `json:"status,omitempty"`
	Resolution string `json:"resolution,omitempty"`

	// Attribute edit value: a severity or type name, an assignee login, or
	// space-joined tags.
	Value string `json:"value,omitempty"`

	// Comment body, markdown.
	Text string `json:"text,omitempty"`
}

// Finding is the normalized representation of an issue or a security hotspot
// on one platform instance, scoped to a project and branch.
type Finding struct {
	Key        string   `json:"key"`
	Kind       Kind     `json:"kind"`
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	Component  string   `json:"component"`
	FilePath   string   `json:"file_path,omitempty"`
	Line       *int     `json:"line,omitempty"`
	Hash       string   `json:"hash,omitempty"`
	Status     string   `json:"status"`
	Resolution string   `json:"resolution,omitempty"`
	Severity   string   `json:"severity,omitempty"`
	Type       string   `json:"type,omitempty"`
	Author     string   `json:"author,omitempty"`
	Assignee   string   `json:"assignee,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// Changelog holds the manual events sorted ascending by timestamp.
	// ChangelogUnavailable marks findings whose history could not be
	// retrieved; they are reported instead of silently treated as clean.
	Changelog            []ChangeEvent `json:"changelog,omitempty"`
	ChangelogUnavailable bool          `json:"changelog_unavailable,omitempty"`
}

// HasLine reports whether the finding is anchored to a specific line.
// Project- and file-level findings have no line at all, which is different
// from line zero.
func (f *Finding) HasLine() bool {
	return f.Line != nil
}

// LineValue returns the anchored line, or 0 when there is none.
func (f *Finding) LineValue() int {
	if f.Line == nil {
		return 0
	}
	return *f.Line
}

// EventsAfter returns the manual events strictly newer than the given
// timestamp, preserving order.
func (f *Finding) EventsAfter(t time.Time) []ChangeEvent {
	var out []ChangeEvent
	for _, ev := range f.Changelog {
		if ev.At.After(t) {
			out = append(out, ev)
		}
	}
	return out
}

// NewestEventBy returns the timestamp of the newest manual event authored by
// the given actor, and whether one exists.
func (f *Finding) NewestEventBy(actor string) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, ev := range f.Changelog {
		if ev.Actor == actor && (!found || ev.At.After(newest)) {
			newest = ev.At
			found = true
		}
	}
	return newest, found
}

// HasForeignManualChanges reports whether anyone other than the given service
// account has manually acted on the finding. Such findings belong to a human
// and are never overwritten.
func (f *Finding) HasForeignManualChanges(serviceAccount string) bool {
	for _, ev := range f.Changelog {
		if ev.Actor != serviceAccount {
			return true
		}
	}
	return false
}
