package findingsexport

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonarkit-io/sonarkit/internal/export"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
)

// RunOptionsFindingsExport holds the arguments for the findings-export command.
type RunOptionsFindingsExport struct {
	URL          string
	Token        string
	Organization string
	Projects     []string
	Branch       string
	Format       string
	Statuses     []string
	Severities   []string
	Types        []string
	Since        string
	WithHotspots bool
	Threads      int
	Output       string
}

// Global variables for configuration and command arguments
var (
	AppConfig                  *config.Config
	exportOptions              RunOptionsFindingsExport
	exampleFindingsExportUsage = `  # Export all open issues of one project as CSV
  sonarkit findings-export --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --statuses OPEN,CONFIRMED,REOPENED --format csv

  # Export issues and hotspots of every visible project as SARIF
  sonarkit findings-export --url https://sonar.example.com --token $SONAR_TOKEN \
    --with-hotspots --format sarif --output findings.sarif

  # Export blocker and critical issues created this year as JSON to stdout
  sonarkit findings-export --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --severities BLOCKER,CRITICAL --since 2026-01-01 \
    --format json --output -`
)

// FindingsExportCmd represents the findings-export command.
var FindingsExportCmd = &cobra.Command{
	Use:                   "findings-export --url URL --token TOKEN [--project KEY]... [--format csv|json|sarif] [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleFindingsExportUsage,
	Short:                 "Export issues and security hotspots to CSV, JSON or SARIF",
	RunE:                  runFindingsExportCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runFindingsExportCommand executes the findings-export command.
func runFindingsExportCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-findings-export")

	format, err := validateFindingsExportArgs(&exportOptions)
	if err != nil {
		logger.Error("invalid findings-export arguments", "error", err)
		return err
	}

	client, err := sonar.New(AppConfig, logger, sonar.Connection{
		URL:          exportOptions.URL,
		Token:        exportOptions.Token,
		Organization: exportOptions.Organization,
	})
	if err != nil {
		return err
	}

	exporter := export.NewExporter(client, logger)
	entries, err := exporter.Findings(cmd.Context(), export.Options{
		Projects:     exportOptions.Projects,
		Branch:       exportOptions.Branch,
		Statuses:     exportOptions.Statuses,
		Severities:   exportOptions.Severities,
		Types:        exportOptions.Types,
		CreatedAfter: exportOptions.Since,
		WithHotspots: exportOptions.WithHotspots,
		Threads:      exportOptions.Threads,
	})
	if err != nil {
		logger.Error("findings-export command failed", "error", err)
		return err
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, entries)
	case export.FormatJSON:
		err = export.WriteJSON(&buf, entries)
	case export.FormatSARIF:
		err = export.WriteSARIF(&buf, entries)
	}
	if err != nil {
		logger.Error("failed to render export", "format", format, "error", err)
		return err
	}

	location, err := artifacts.WriteRaw(AppConfig, logger, "findings-export", exportTarget(exportOptions.Projects), exportOptions.Output, string(format), buf.Bytes())
	if err != nil {
		logger.Error("failed to write export", "error", err)
		return err
	}

	logger.Info("findings-export command completed successfully", "findings", len(entries), "location", location)
	return nil
}

// exportTarget labels the artifact after the exported scope.
func exportTarget(projects []string) string {
	switch len(projects) {
	case 0:
		return "all"
	case 1:
		return projects[0]
	default:
		return fmt.Sprintf("%s-and-%d-more", projects[0], len(projects)-1)
	}
}

// Initialize flags for the findings-export command.
func init() {
	FindingsExportCmd.Flags().StringVar(&exportOptions.URL, "url", "", "Base URL of the instance.")
	FindingsExportCmd.Flags().StringVar(&exportOptions.Token, "token", "", "Token used for authentication.")
	FindingsExportCmd.Flags().StringVar(&exportOptions.Organization, "org", "", "Organization key, required for SonarCloud.")
	FindingsExportCmd.Flags().StringSliceVarP(&exportOptions.Projects, "project", "p", nil, "Project key to export. Repeatable; empty exports every visible project.")
	FindingsExportCmd.Flags().StringVar(&exportOptions.Branch, "branch", "", "Branch name. Empty means the default branch.")
	FindingsExportCmd.Flags().StringVarP(&exportOptions.Format, "format", "f", "csv", "Output format: csv, json or sarif.")
	FindingsExportCmd.Flags().StringSliceVar(&exportOptions.Statuses, "statuses", nil, "Issue statuses to include, comma-separated (e.g. OPEN,CONFIRMED).")
	FindingsExportCmd.Flags().StringSliceVar(&exportOptions.Severities, "severities", nil, "Issue severities to include, comma-separated (e.g. BLOCKER,CRITICAL).")
	FindingsExportCmd.Flags().StringSliceVar(&exportOptions.Types, "types", nil, "Issue types to include, comma-separated (e.g. BUG,VULNERABILITY).")
	FindingsExportCmd.Flags().StringVar(&exportOptions.Since, "since", "", "Only findings created on or after this date (yyyy-MM-dd).")
	FindingsExportCmd.Flags().BoolVar(&exportOptions.WithHotspots, "with-hotspots", false, "Include security hotspots.")
	FindingsExportCmd.Flags().IntVarP(&exportOptions.Threads, "threads", "j", 5, "Number of projects fetched concurrently.")
	FindingsExportCmd.Flags().StringVarP(&exportOptions.Output, "output", "o", "", "Output destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
