package findingssync

import (
	"github.com/spf13/cobra"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/internal/sync"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/errors"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
)

// RunOptionsFindingsSync holds the arguments for the findings-sync command.
type RunOptionsFindingsSync struct {
	SourceURL      string
	SourceToken    string
	SourceOrg      string
	TargetURL      string
	TargetToken    string
	TargetOrg      string
	Project        string
	TargetProject  string
	Branch         string
	TargetBranch   string
	Since          string
	ServiceAccount string
	NoAttribution  bool
	NoLink         bool
	WithHotspots   bool
	Threads        int
	Output         string
}

// Global variables for configuration and command arguments
var (
	AppConfig                *config.Config
	syncOptions              RunOptionsFindingsSync
	exampleFindingsSyncUsage = `  # Synchronize issue history between two branches of one instance
  sonarkit findings-sync --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --branch main --target-branch release-1.0

  # Synchronize between a server and SonarCloud, security hotspots included
  sonarkit findings-sync --source-url https://sonar.internal --source-token $SRC_TOKEN \
    --url https://sonarcloud.io --token $DST_TOKEN --target-org my-org \
    --project my-app --target-project my-org_my-app --with-hotspots

  # Incremental run resuming from a date, report written to a file
  sonarkit findings-sync --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --branch main --target-branch develop \
    --since 2024-01-01 --output sync-report.json

  # Report uploaded to S3
  sonarkit findings-sync --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --branch main --target-branch develop \
    --output s3://my-bucket/sonarkit/sync-report.json`
)

// FindingsSyncCmd represents the findings-sync command.
var FindingsSyncCmd = &cobra.Command{
	Use:                   "findings-sync --url URL --token TOKEN --project KEY --branch NAME --target-branch NAME [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleFindingsSyncUsage,
	Short:                 "Synchronize finding history between two project scopes",
	Long: `Synchronizes the manual finding history (workflow transitions, comments,
severity and type edits, assignments, tags) from a source project scope to a
target scope, matching findings by identity first and by similarity scoring
second. Findings touched manually by anyone other than the service account
are never overwritten. The run produces a JSON report with a per-finding
outcome.`,
	RunE: runFindingsSyncCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runFindingsSyncCommand executes the findings-sync command.
func runFindingsSyncCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-findings-sync")

	if err := validateFindingsSyncArgs(&syncOptions); err != nil {
		logger.Error("invalid findings-sync arguments", "error", err)
		return err
	}

	source, err := sonar.New(AppConfig, logger.Named("source"), sonar.Connection{
		URL:          syncOptions.SourceURL,
		Token:        syncOptions.SourceToken,
		Organization: syncOptions.SourceOrg,
	})
	if err != nil {
		return err
	}
	target, err := sonar.New(AppConfig, logger.Named("target"), sonar.Connection{
		URL:          syncOptions.TargetURL,
		Token:        syncOptions.TargetToken,
		Organization: syncOptions.TargetOrg,
	})
	if err != nil {
		return err
	}

	pair := sync.ScopePair{
		Source: sync.Scope{Project: syncOptions.Project, Branch: syncOptions.Branch},
		Target: sync.Scope{Project: syncOptions.TargetProject, Branch: syncOptions.TargetBranch},
	}
	service := sync.NewService(source, target, logger, sync.RunOptions{
		Pairs:          []sync.ScopePair{pair},
		Threads:        syncOptions.Threads,
		WithHotspots:   syncOptions.WithHotspots,
		Since:          syncOptions.Since,
		ServiceAccount: syncOptions.ServiceAccount,
		NoAttribution:  syncOptions.NoAttribution,
		NoLink:         syncOptions.NoLink,
	})

	report, runErr := service.Run(cmd.Context())
	if report != nil {
		if _, err := artifacts.WriteJSON(AppConfig, logger, "findings-sync", pair.Target.String(), syncOptions.Output, report); err != nil {
			logger.Error("failed to write report", "error", err)
			return err
		}
	}
	if runErr != nil {
		logger.Error("findings-sync command failed", "error", runErr)
		return errors.NewCommandError(syncOptions, report, runErr, 2)
	}

	totals := report.Totals()
	logger.Info("findings-sync command completed successfully",
		"synced", totals.Synced,
		"skipped", totals.Skipped,
		"unmatched", totals.Unmatched,
		"ambiguous", totals.Ambiguous,
		"failed", totals.Failed,
	)
	return nil
}

// Initialize flags for the findings-sync command.
func init() {
	FindingsSyncCmd.Flags().StringVar(&syncOptions.SourceURL, "source-url", "", "Base URL of the source instance. Defaults to the target URL for same-instance sync.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.SourceToken, "source-token", "", "Token for the source instance. Defaults to the target token.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.SourceOrg, "org", "", "Organization key of the source, required for SonarCloud sources.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.TargetURL, "url", "", "Base URL of the target instance.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.TargetToken, "token", "", "Token for the target instance. All replayed history is attributed to it.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.TargetOrg, "target-org", "", "Organization key of the target, required for SonarCloud targets.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.Project, "project", "", "Source project key.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.TargetProject, "target-project", "", "Target project key. Defaults to the source project key.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.Branch, "branch", "", "Source branch name. Empty means the default branch.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.TargetBranch, "target-branch", "", "Target branch name. Empty means the default branch.")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.Since, "since", "", "Only fetch source findings created on or after this date (yyyy-MM-dd).")
	FindingsSyncCmd.Flags().StringVar(&syncOptions.ServiceAccount, "service-account", "", "Login the replayed history is recorded under. Defaults to the target token's user.")
	FindingsSyncCmd.Flags().BoolVar(&syncOptions.NoAttribution, "no-attribution", false, "Replay comments verbatim without the original author and timestamp prefix.")
	FindingsSyncCmd.Flags().BoolVar(&syncOptions.NoLink, "no-link", false, "Do not leave a cross-reference comment on synchronized findings.")
	FindingsSyncCmd.Flags().BoolVar(&syncOptions.WithHotspots, "with-hotspots", false, "Synchronize security hotspots in addition to issues.")
	FindingsSyncCmd.Flags().IntVarP(&syncOptions.Threads, "threads", "j", 1, "Number of scope pairs processed concurrently.")
	FindingsSyncCmd.Flags().StringVarP(&syncOptions.Output, "output", "o", "", "Report destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
