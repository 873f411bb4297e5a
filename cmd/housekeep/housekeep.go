package housekeep

import (
	"fmt"

	"github.com/spf13/cobra"

	housekeeper "github.com/sonarkit-io/sonarkit/internal/housekeep"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/errors"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
	"github.com/sonarkit-io/sonarkit/pkg/shared/retry"
)

// RunOptionsHousekeep holds the arguments for the housekeep command.
type RunOptionsHousekeep struct {
	URL           string
	Token         string
	Organization  string
	ProjectMaxAge int
	BranchMaxAge  int
	TokenMaxAge   int
	Apply         bool
	Output        string
}

// Global variables for configuration and command arguments
var (
	AppConfig             *config.Config
	housekeepOptions      RunOptionsHousekeep
	exampleHousekeepUsage = `  # Dry run: list stale branches and unused tokens without deleting anything
  sonarkit housekeep --url https://sonar.example.com --token $SONAR_TOKEN \
    --branch-max-age 30 --token-max-age 90

  # Delete projects not analyzed for a year, for real
  sonarkit housekeep --url https://sonar.example.com --token $SONAR_TOKEN \
    --project-max-age 365 --apply`
)

// HousekeepCmd represents the housekeep command.
var HousekeepCmd = &cobra.Command{
	Use:                   "housekeep --url URL --token TOKEN [--project-max-age DAYS] [--branch-max-age DAYS] [--token-max-age DAYS] [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleHousekeepUsage,
	Short:                 "Delete stale projects, branches and unused tokens",
	Long: `Plans the deletion of stale platform objects: projects not analyzed for
longer than --project-max-age, non-main branches not analyzed for longer
than --branch-max-age, and tokens of the authenticated user unused for
longer than --token-max-age. A zero age disables the family.

The default is a dry run that only reports the plan. Deletions happen
with --apply and are irreversible; main branches, branches excluded from
purge and never-analyzed projects are never touched.`,
	RunE: runHousekeepCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runHousekeepCommand executes the housekeep command.
func runHousekeepCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-housekeep")

	if err := validateHousekeepArgs(&housekeepOptions); err != nil {
		logger.Error("invalid housekeep arguments", "error", err)
		return err
	}

	client, err := sonar.New(AppConfig, logger, sonar.Connection{
		URL:          housekeepOptions.URL,
		Token:        housekeepOptions.Token,
		Organization: housekeepOptions.Organization,
	})
	if err != nil {
		return err
	}

	h := housekeeper.NewHousekeeper(client, logger, retry.Policy{})
	actions, err := h.Plan(cmd.Context(), housekeeper.Options{
		ProjectMaxAge: housekeepOptions.ProjectMaxAge,
		BranchMaxAge:  housekeepOptions.BranchMaxAge,
		TokenMaxAge:   housekeepOptions.TokenMaxAge,
	})
	if err != nil {
		logger.Error("housekeep command failed", "error", err)
		return err
	}

	if housekeepOptions.Apply {
		actions = h.Apply(cmd.Context(), actions)
	}

	location, err := artifacts.WriteJSON(AppConfig, logger, "housekeep", "housekeep", housekeepOptions.Output, actions)
	if err != nil {
		logger.Error("failed to write housekeeping report", "error", err)
		return err
	}

	counts := housekeeper.Summarize(actions)
	if counts.Failed > 0 {
		failErr := fmt.Errorf("%d of %d housekeeping actions failed", counts.Failed, counts.Planned)
		logger.Error("housekeep command finished with failures",
			"planned", counts.Planned,
			"applied", counts.Applied,
			"failed", counts.Failed,
			"location", location,
		)
		return errors.NewCommandError(housekeepOptions, actions, failErr, 2)
	}

	logger.Info("housekeep command completed successfully",
		"planned", counts.Planned,
		"applied", counts.Applied,
		"dry_run", !housekeepOptions.Apply,
		"location", location,
	)
	return nil
}

// Initialize flags for the housekeep command.
func init() {
	HousekeepCmd.Flags().StringVar(&housekeepOptions.URL, "url", "", "Base URL of the instance.")
	HousekeepCmd.Flags().StringVar(&housekeepOptions.Token, "token", "", "Token used for authentication.")
	HousekeepCmd.Flags().StringVar(&housekeepOptions.Organization, "org", "", "Organization key, required for SonarCloud.")
	HousekeepCmd.Flags().IntVar(&housekeepOptions.ProjectMaxAge, "project-max-age", 0, "Delete projects not analyzed for this many days. Zero disables.")
	HousekeepCmd.Flags().IntVar(&housekeepOptions.BranchMaxAge, "branch-max-age", 0, "Delete non-main branches not analyzed for this many days. Zero disables.")
	HousekeepCmd.Flags().IntVar(&housekeepOptions.TokenMaxAge, "token-max-age", 0, "Revoke own tokens unused for this many days. Zero disables.")
	HousekeepCmd.Flags().BoolVar(&housekeepOptions.Apply, "apply", false, "Perform the deletions. Without it the command only reports the plan.")
	HousekeepCmd.Flags().StringVarP(&housekeepOptions.Output, "output", "o", "", "Output destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
