package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const (
	sarifToolName = "sonarkit"
	sarifToolURI  = "https://github.com/sonarkit-io/sonarkit"
)

// WriteSARIF renders the entries as a SARIF 2.1.0 report with a single run,
// one rule per platform rule key.
func WriteSARIF(w io.Writer, entries []Entry) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(sarifToolName, sarifToolURI)
	for _, entry := range entries {
		rule := run.AddRule(entry.Rule).
			WithDescription(entry.Message).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(entry.Severity),
			})

		uri := entry.FilePath
		if uri == "" {
			uri = entry.Component
		}
		physical := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri))
		if entry.HasLine() {
			physical = physical.WithRegion(sarif.NewRegion().WithStartLine(entry.LineValue()))
		}
		location := sarif.NewLocation().WithPhysicalLocation(physical)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(entry.Message)).
			WithLevel(toSarifLevel(entry.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	report.AddRun(run)
	return report.PrettyWrite(w)
}

// toSarifLevel maps platform severities onto SARIF levels. Hotspots carry no
// severity and fall through to none.
func toSarifLevel(severity string) string {
	switch strings.ToUpper(severity) {
	case "BLOCKER", "CRITICAL":
		return "error"
	case "MAJOR":
		return "warning"
	case "MINOR":
		return "note"
	default:
		return "none"
	}
}
