package measuresexport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonarkit-io/sonarkit/internal/export"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
)

// RunOptionsMeasuresExport holds the arguments for the measures-export command.
type RunOptionsMeasuresExport struct {
	URL          string
	Token        string
	Organization string
	Projects     []string
	Metrics      []string
	Format       string
	Threads      int
	Output       string
}

// Global variables for configuration and command arguments
var (
	AppConfig                  *config.Config
	measuresOptions            RunOptionsMeasuresExport
	exampleMeasuresExportUsage = `  # Export the default metric set of every project as CSV
  sonarkit measures-export --url https://sonar.example.com --token $SONAR_TOKEN

  # Export selected metrics of two projects as JSON to stdout
  sonarkit measures-export --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --project my-lib --metrics ncloc,coverage,sqale_index \
    --format json --output -`
)

// MeasuresExportCmd represents the measures-export command.
var MeasuresExportCmd = &cobra.Command{
	Use:                   "measures-export --url URL --token TOKEN [--project KEY]... [--metrics LIST] [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleMeasuresExportUsage,
	Short:                 "Export current metric values per project to CSV or JSON",
	Long: fmt.Sprintf(`Exports the current values of the requested metrics for each project.

Default metric set:
  %s`, strings.Join(export.DefaultMetrics, ", ")),
	RunE: runMeasuresExportCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runMeasuresExportCommand executes the measures-export command.
func runMeasuresExportCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-measures-export")

	format, err := validateMeasuresExportArgs(&measuresOptions)
	if err != nil {
		logger.Error("invalid measures-export arguments", "error", err)
		return err
	}

	client, err := sonar.New(AppConfig, logger, sonar.Connection{
		URL:          measuresOptions.URL,
		Token:        measuresOptions.Token,
		Organization: measuresOptions.Organization,
	})
	if err != nil {
		return err
	}

	exporter := export.NewExporter(client, logger)
	rows, err := exporter.Measures(cmd.Context(), measuresOptions.Projects, measuresOptions.Metrics, measuresOptions.Threads)
	if err != nil {
		logger.Error("measures-export command failed", "error", err)
		return err
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteMeasuresCSV(&buf, measuresOptions.Metrics, rows)
	case export.FormatJSON:
		err = export.WriteJSON(&buf, rows)
	}
	if err != nil {
		logger.Error("failed to render export", "format", format, "error", err)
		return err
	}

	location, err := artifacts.WriteRaw(AppConfig, logger, "measures-export", "measures", measuresOptions.Output, string(format), buf.Bytes())
	if err != nil {
		logger.Error("failed to write export", "error", err)
		return err
	}

	logger.Info("measures-export command completed successfully", "projects", len(rows), "location", location)
	return nil
}

// Initialize flags for the measures-export command.
func init() {
	MeasuresExportCmd.Flags().StringVar(&measuresOptions.URL, "url", "", "Base URL of the instance.")
	MeasuresExportCmd.Flags().StringVar(&measuresOptions.Token, "token", "", "Token used for authentication.")
	MeasuresExportCmd.Flags().StringVar(&measuresOptions.Organization, "org", "", "Organization key, required for SonarCloud.")
	MeasuresExportCmd.Flags().StringSliceVarP(&measuresOptions.Projects, "project", "p", nil, "Project key to export. Repeatable; empty exports every visible project.")
	MeasuresExportCmd.Flags().StringSliceVar(&measuresOptions.Metrics, "metrics", nil, "Metric keys to export, comma-separated. Empty uses the default set.")
	MeasuresExportCmd.Flags().StringVarP(&measuresOptions.Format, "format", "f", "csv", "Output format: csv or json.")
	MeasuresExportCmd.Flags().IntVarP(&measuresOptions.Threads, "threads", "j", 5, "Number of projects fetched concurrently.")
	MeasuresExportCmd.Flags().StringVarP(&measuresOptions.Output, "output", "o", "", "Output destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
