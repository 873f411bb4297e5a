package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultMetrics are exported when no explicit metric list is given.
var DefaultMetrics = []string{
	"ncloc", "coverage", "bugs", "vulnerabilities", "code_smells",
	"security_hotspots", "duplicated_lines_density", "sqale_index",
}

// MeasureRow is one project's metric values, keyed by metric name. Metrics
// the platform has no value for are absent from the map.
type MeasureRow struct {
	Project  string            `json:"project"`
	Name     string            `json:"name,omitempty"`
	Measures map[string]string `json:"measures"`
}

// Measures fetches the given metrics for each project, fanned out over a
// bounded pool, sorted by project key.
func (e *Exporter) Measures(ctx context.Context, projects, metrics []string, threads int) ([]MeasureRow, error) {
	resolved, err := e.resolveProjects(ctx, projects)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}
	if threads < 1 {
		threads = 1
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	results := make(chan MeasureRow, len(resolved))
	for _, project := range resolved {
		currentProject := project
		g.Go(func() error {
			component, err := e.client.Measures.Component(groupCtx, currentProject, metrics)
			if err != nil {
				return fmt.Errorf("exporting measures of %q: %w", currentProject, err)
			}
			row := MeasureRow{
				Project:  component.Key,
				Name:     component.Name,
				Measures: make(map[string]string, len(component.Measures)),
			}
			for _, m := range component.Measures {
				row.Measures[m.Metric] = m.Value
			}
			results <- row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	rows := make([]MeasureRow, 0, len(resolved))
	for row := range results {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Project < rows[j].Project })
	return rows, nil
}

// WriteMeasuresCSV renders one row per project with a column per metric.
func WriteMeasuresCSV(w io.Writer, metrics []string, rows []MeasureRow) error {
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}

	cw := csv.NewWriter(w)
	header := append([]string{"project", "name"}, metrics...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Project, row.Name)
		for _, metric := range metrics {
			record = append(record, row.Measures[metric])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
