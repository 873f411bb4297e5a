package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/sonarkit-io/sonarkit/internal/findings"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
)

// Format selects the serialization of an export.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name against the allowed set of a command.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	format := Format(strings.ToLower(s))
	for _, a := range allowed {
		if format == a {
			return format, nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	return "", fmt.Errorf("unknown format %q: expected one of %s", s, strings.Join(names, ", "))
}

// Entry is one exported finding with its scope attached.
type Entry struct {
	Project string `json:"project"`
	Branch  string `json:"branch,omitempty"`
	findings.Finding
}

// Options narrows an export run.
type Options struct {
	Projects     []string // empty means every project visible to the token
	Branch       string
	Statuses     []string
	Severities   []string
	Types        []string
	CreatedAfter string
	WithHotspots bool
	Threads      int
}

// Exporter pulls findings and platform data for the export commands.
// Reads only.
type Exporter struct {
	client *sonar.Client
	logger hclog.Logger
}

// NewExporter creates an exporter bound to one connection.
func NewExporter(client *sonar.Client, logger hclog.Logger) *Exporter {
	return &Exporter{client: client, logger: logger}
}

// Findings fetches the findings of the requested projects, fanned out over a
// bounded pool, and returns them in a deterministic order. History is not
// fetched; exports carry the current state only.
func (e *Exporter) Findings(ctx context.Context, opts Options) ([]Entry, error) {
	projects, err := e.resolveProjects(ctx, opts.Projects)
	if err != nil {
		return nil, err
	}

	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	results := make(chan []Entry, len(projects))
	for _, project := range projects {
		currentProject := project
		g.Go(func() error {
			entries, err := e.projectFindings(groupCtx, currentProject, opts)
			if err != nil {
				return err
			}
			results <- entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	var all []Entry
	for entries := range results {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Project != all[j].Project {
			return all[i].Project < all[j].Project
		}
		if all[i].FilePath != all[j].FilePath {
			return all[i].FilePath < all[j].FilePath
		}
		return all[i].Key < all[j].Key
	})
	return all, nil
}

// projectFindings fetches one project's issues and, optionally, hotspots.
func (e *Exporter) projectFindings(ctx context.Context, project string, opts Options) ([]Entry, error) {
	issues, err := e.client.Issues.Search(ctx, sonar.IssueSearchOptions{
		Project:      project,
		Branch:       opts.Branch,
		CreatedAfter: opts.CreatedAfter,
		Statuses:     opts.Statuses,
		Severities:   opts.Severities,
		Types:        opts.Types,
	})
	if err != nil {
		return nil, fmt.Errorf("exporting issues of %q: %w", project, err)
	}

	entries := make([]Entry, 0, len(issues))
	for _, issue := range issues {
		entries = append(entries, Entry{
			Project: project,
			Branch:  opts.Branch,
			Finding: issue.ToFinding(),
		})
	}

	if opts.WithHotspots {
		hotspots, err := e.client.Hotspots.Search(ctx, sonar.HotspotSearchOptions{
			Project: project,
			Branch:  opts.Branch,
		})
		if err != nil {
			return nil, fmt.Errorf("exporting hotspots of %q: %w", project, err)
		}
		for _, hotspot := range hotspots {
			entries = append(entries, Entry{
				Project: project,
				Branch:  opts.Branch,
				Finding: hotspot.ToFinding(),
			})
		}
	}
	return entries, nil
}

// resolveProjects expands an empty project list to every visible project.
func (e *Exporter) resolveProjects(ctx context.Context, projects []string) ([]string, error) {
	if len(projects) > 0 {
		return projects, nil
	}

	all, err := e.client.Projects.Search(ctx, sonar.ProjectSearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	keys := make([]string, 0, len(all))
	for _, p := range all {
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// findingsCSVHeader is the column layout of the CSV export.
var findingsCSVHeader = []string{
	"project", "branch", "kind", "key", "rule", "severity", "type",
	"status", "resolution", "file", "line", "message", "author",
	"assignee", "tags", "created_at",
}

// WriteCSV renders the entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(findingsCSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, entry := range entries {
		line := ""
		if entry.HasLine() {
			line = strconv.Itoa(entry.LineValue())
		}
		record := []string{
			entry.Project,
			entry.Branch,
			string(entry.Kind),
			entry.Key,
			entry.Rule,
			entry.Severity,
			entry.Type,
			entry.Status,
			entry.Resolution,
			entry.FilePath,
			line,
			entry.Message,
			entry.Author,
			entry.Assignee,
			strings.Join(entry.Tags, " "),
			formatTimestamp(entry.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the entries as an indented JSON array.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

// formatTimestamp renders a timestamp for CSV, empty when unset.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
