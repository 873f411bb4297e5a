package configexport

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/sonarkit-io/sonarkit/internal/export"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
)

// RunOptionsConfigExport holds the arguments for the config-export command.
type RunOptionsConfigExport struct {
	URL          string
	Token        string
	Organization string
	Keys         []string
	Format       string
	Output       string
}

// Global variables for configuration and command arguments
var (
	AppConfig                *config.Config
	configOptions            RunOptionsConfigExport
	exampleConfigExportUsage = `  # Snapshot the full instance configuration as YAML into the artifacts folder
  sonarkit config-export --url https://sonar.example.com --token $SONAR_TOKEN

  # Dump selected settings as JSON to a file
  sonarkit config-export --url https://sonar.example.com --token $SONAR_TOKEN \
    --keys sonar.forceAuthentication,sonar.core.serverBaseURL \
    --format json --output /tmp/sonar-config.json`
)

// ConfigExportCmd represents the config-export command.
var ConfigExportCmd = &cobra.Command{
	Use:                   "config-export --url URL --token TOKEN [--keys LIST] [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleConfigExportUsage,
	Short:                 "Snapshot instance settings, quality gates and quality profiles",
	Long: `Exports the instance configuration to a reviewable document: global settings,
quality gates with their conditions, and quality profiles. Secret-valued
settings are masked by the platform before they reach the export.`,
	RunE: runConfigExportCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runConfigExportCommand executes the config-export command.
func runConfigExportCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-config-export")

	format, err := validateConfigExportArgs(&configOptions)
	if err != nil {
		logger.Error("invalid config-export arguments", "error", err)
		return err
	}

	client, err := sonar.New(AppConfig, logger, sonar.Connection{
		URL:          configOptions.URL,
		Token:        configOptions.Token,
		Organization: configOptions.Organization,
	})
	if err != nil {
		return err
	}

	exporter := export.NewExporter(client, logger)
	dump, err := exporter.ConfigDump(cmd.Context(), configOptions.Keys)
	if err != nil {
		logger.Error("config-export command failed", "error", err)
		return err
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatYAML:
		err = export.WriteYAML(&buf, dump)
	case export.FormatJSON:
		err = export.WriteJSON(&buf, dump)
	}
	if err != nil {
		logger.Error("failed to render export", "format", format, "error", err)
		return err
	}

	location, err := artifacts.WriteRaw(AppConfig, logger, "config-export", "config", configOptions.Output, string(format), buf.Bytes())
	if err != nil {
		logger.Error("failed to write export", "error", err)
		return err
	}

	logger.Info("config-export command completed successfully",
		"settings", len(dump.Settings),
		"quality_gates", len(dump.QualityGates),
		"quality_profiles", len(dump.QualityProfiles),
		"location", location)
	return nil
}

// Initialize flags for the config-export command.
func init() {
	ConfigExportCmd.Flags().StringVar(&configOptions.URL, "url", "", "Base URL of the instance.")
	ConfigExportCmd.Flags().StringVar(&configOptions.Token, "token", "", "Token used for authentication.")
	ConfigExportCmd.Flags().StringVar(&configOptions.Organization, "org", "", "Organization key, required for SonarCloud.")
	ConfigExportCmd.Flags().StringSliceVar(&configOptions.Keys, "keys", nil, "Setting keys to export, comma-separated. Empty exports every readable setting.")
	ConfigExportCmd.Flags().StringVarP(&configOptions.Format, "format", "f", "yaml", "Output format: yaml or json.")
	ConfigExportCmd.Flags().StringVarP(&configOptions.Output, "output", "o", "", "Output destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
