package sonar

import (
	"sort"
	"strings"
	"time"

	"github.com/sonarkit-io/sonarkit/internal/findings"
)

// sonarTimeLayout is the timestamp format the Web API uses. It is RFC3339
// with the colon missing from the zone offset.
const sonarTimeLayout = "2006-01-02T15:04:05-0700"

// ParseTime parses a Web API timestamp, falling back to RFC3339 and plain
// dates. Returns the zero time when nothing matches.
func ParseTime(s string) time.Time {
	for _, layout := range []string{sonarTimeLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// filePathFromComponent strips the project prefix from a component key.
// Project-level findings have the bare project key as their component and
// yield an empty path.
func filePathFromComponent(component, project string) string {
	if component == project {
		return ""
	}
	return strings.TrimPrefix(component, project+":")
}

// ToFinding converts the issue into the domain model. Comments travel with
// the search payload and become comment events; the rest of the history is
// attached separately via AppendChangelog.
func (i Issue) ToFinding() findings.Finding {
	f := findings.Finding{
		Key:        i.Key,
		Kind:       findings.KindIssue,
		Rule:       i.Rule,
		Message:    i.Message,
		Component:  i.Component,
		FilePath:   filePathFromComponent(i.Component, i.Project),
		Line:       i.Line,
		Hash:       i.Hash,
		Status:     i.Status,
		Resolution: i.Resolution,
		Severity:   i.Severity,
		Type:       i.Type,
		Author:     i.Author,
		Assignee:   i.Assignee,
		Tags:       i.Tags,
		CreatedAt:  ParseTime(i.CreationDate),
		UpdatedAt:  ParseTime(i.UpdateDate),
	}
	f.Changelog = eventsFromComments(i.Comments)
	return f
}

// ToFinding converts the shallow search payload of a hotspot. Hash, history
// and comments are missing here; callers normally use HotspotDetails instead
// and fall back to this when the detail call fails.
func (h Hotspot) ToFinding() findings.Finding {
	return findings.Finding{
		Key:        h.Key,
		Kind:       findings.KindHotspot,
		Rule:       h.RuleKey,
		Message:    h.Message,
		Component:  h.Component,
		FilePath:   filePathFromComponent(h.Component, h.Project),
		Line:       h.Line,
		Status:     h.Status,
		Resolution: h.Resolution,
		Author:     h.Author,
		Assignee:   h.Assignee,
		CreatedAt:  ParseTime(h.CreationDate),
		UpdatedAt:  ParseTime(h.UpdateDate),
	}
}

// ToFinding converts the full hotspot detail into the domain model. Hotspots
// have no severity or type; their workflow runs on status and resolution.
func (d *HotspotDetails) ToFinding() findings.Finding {
	f := findings.Finding{
		Key:        d.Key,
		Kind:       findings.KindHotspot,
		Rule:       d.Rule.Key,
		Message:    d.Message,
		Component:  d.Component.Key,
		FilePath:   d.Component.Path,
		Line:       d.Line,
		Hash:       d.Hash,
		Status:     d.Status,
		Resolution: d.Resolution,
		Author:     d.Author,
		Assignee:   d.Assignee,
		CreatedAt:  ParseTime(d.CreationDate),
		UpdatedAt:  ParseTime(d.UpdateDate),
	}
	events := eventsFromComments(d.Comment)
	events = append(events, eventsFromChangelog(d.Changelog)...)
	sortEvents(events)
	f.Changelog = events
	return f
}

// AppendChangelog converts raw history entries into manual events and merges
// them into the finding's changelog, keeping it sorted ascending.
func AppendChangelog(f *findings.Finding, entries []ChangelogEntry) {
	f.Changelog = append(f.Changelog, eventsFromChangelog(entries)...)
	sortEvents(f.Changelog)
}

// eventsFromComments converts the comment array into comment events.
func eventsFromComments(comments []Comment) []findings.ChangeEvent {
	var events []findings.ChangeEvent
	for _, c := range comments {
		text := c.Markdown
		if text == "" {
			text = c.HTMLText
		}
		events = append(events, findings.ChangeEvent{
			At:    ParseTime(c.CreatedAt),
			Actor: c.Login,
			Kind:  findings.ChangeComment,
			Text:  text,
		})
	}
	return events
}

// eventsFromChangelog converts raw history entries into typed events.
// Entries without a user are produced by analyses and housekeeping and are
// dropped; one entry can carry several concerns and then yields one event per
// concern, except that a status and resolution pair collapses into a single
// transition.
func eventsFromChangelog(entries []ChangelogEntry) []findings.ChangeEvent {
	var events []findings.ChangeEvent
	for _, entry := range entries {
		if entry.User == "" {
			continue
		}
		at := ParseTime(entry.CreationDate)

		var status, resolution string
		var hasTransition bool
		for _, diff := range entry.Diffs {
			switch diff.Key {
			case "status":
				status = diff.NewValue
				hasTransition = true
			case "resolution":
				resolution = diff.NewValue
				hasTransition = true
			case "issueStatus":
				status, resolution = normalizeIssueStatus(diff.NewValue)
				hasTransition = true
			case "severity":
				events = append(events, findings.ChangeEvent{
					At: at, Actor: entry.User, Kind: findings.ChangeSeverity, Value: diff.NewValue,
				})
			case "type":
				events = append(events, findings.ChangeEvent{
					At: at, Actor: entry.User, Kind: findings.ChangeType, Value: diff.NewValue,
				})
			case "assignee":
				events = append(events, findings.ChangeEvent{
					At: at, Actor: entry.User, Kind: findings.ChangeAssignee, Value: diff.NewValue,
				})
			case "tags":
				events = append(events, findings.ChangeEvent{
					At: at, Actor: entry.User, Kind: findings.ChangeTags, Value: diff.NewValue,
				})
			}
		}
		if hasTransition {
			events = append(events, findings.ChangeEvent{
				At: at, Actor: entry.User, Kind: findings.ChangeTransition,
				Status: status, Resolution: resolution,
			})
		}
	}
	return events
}

// normalizeIssueStatus maps the combined issueStatus values newer servers
// record back onto the status and resolution pair the workflow model uses.
func normalizeIssueStatus(value string) (string, string) {
	switch value {
	case "OPEN":
		return "REOPENED", ""
	case "CONFIRMED":
		return "CONFIRMED", ""
	case "FALSE_POSITIVE":
		return "RESOLVED", "FALSE-POSITIVE"
	case "ACCEPTED":
		return "RESOLVED", "ACCEPTED"
	case "FIXED":
		return "RESOLVED", "FIXED"
	default:
		return value, ""
	}
}

// sortEvents orders events ascending by timestamp, keeping the original
// order of entries that share one.
func sortEvents(events []findings.ChangeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
}
