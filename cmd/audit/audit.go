package audit

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	auditor "github.com/sonarkit-io/sonarkit/internal/audit"
	"github.com/sonarkit-io/sonarkit/internal/export"
	"github.com/sonarkit-io/sonarkit/internal/sonar"
	"github.com/sonarkit-io/sonarkit/pkg/shared"
	"github.com/sonarkit-io/sonarkit/pkg/shared/artifacts"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/errors"
	"github.com/sonarkit-io/sonarkit/pkg/shared/logger"
)

// RunOptionsAudit holds the arguments for the audit command.
type RunOptionsAudit struct {
	URL          string
	Token        string
	Organization string
	Projects     []string
	Properties   string
	CheckRemote  bool
	GithubToken  string
	GitlabToken  string
	GitlabURL    string
	FailOn       string
	Format       string
	Threads      int
	Output       string
}

// Global variables for configuration and command arguments
var (
	AppConfig         *config.Config
	auditOptions      RunOptionsAudit
	exampleAuditUsage = `  # Audit the whole instance with the default thresholds
  sonarkit audit --url https://sonar.example.com --token $SONAR_TOKEN

  # Audit two projects against custom thresholds and fail the pipeline on
  # anything medium or worse
  sonarkit audit --url https://sonar.example.com --token $SONAR_TOKEN \
    --project my-app --project my-lib --properties audit.properties \
    --fail-on medium

  # Verify that bound repositories still exist on their DevOps platforms
  sonarkit audit --url https://sonar.example.com --token $SONAR_TOKEN \
    --check-remote --github-token $GITHUB_TOKEN \
    --gitlab-token $GITLAB_TOKEN --gitlab-url https://gitlab.example.com`
)

// AuditCmd represents the audit command.
var AuditCmd = &cobra.Command{
	Use:                   "audit --url URL --token TOKEN [--properties FILE] [flags]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAuditUsage,
	Short:                 "Audit an instance against operational best practices",
	Long: `Checks an instance against operational best practices: aged tokens, stale
projects and branches, branch sprawl, expected setting values and broken
DevOps platform bindings. Thresholds come from a Java-style properties
file; every check reads only, nothing is modified.

With --fail-on the command exits non-zero when a problem at or above the
given severity is found, which makes it usable as a pipeline gate.`,
	RunE: runAuditCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runAuditCommand executes the audit command.
func runAuditCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-audit")

	format, failOn, err := validateAuditArgs(&auditOptions)
	if err != nil {
		logger.Error("invalid audit arguments", "error", err)
		return err
	}

	thresholds := auditor.DefaultThresholds()
	if auditOptions.Properties != "" {
		thresholds, err = auditor.LoadThresholds(auditOptions.Properties)
		if err != nil {
			logger.Error("failed to load audit properties", "path", auditOptions.Properties, "error", err)
			return err
		}
	}

	client, err := sonar.New(AppConfig, logger, sonar.Connection{
		URL:          auditOptions.URL,
		Token:        auditOptions.Token,
		Organization: auditOptions.Organization,
	})
	if err != nil {
		return err
	}

	a := auditor.NewAuditor(client, logger, thresholds)
	if auditOptions.CheckRemote {
		a.RegisterRemote("github", auditor.NewGithubChecker(cmd.Context(), auditOptions.GithubToken))
		gitlabChecker, err := auditor.NewGitlabChecker(auditOptions.GitlabToken, auditOptions.GitlabURL)
		if err != nil {
			logger.Error("failed to set up gitlab checker", "error", err)
			return err
		}
		a.RegisterRemote("gitlab", gitlabChecker)
	}

	problems, err := a.Run(cmd.Context(), auditor.Options{
		Projects:    auditOptions.Projects,
		CheckRemote: auditOptions.CheckRemote,
		Threads:     auditOptions.Threads,
	})
	if err != nil {
		logger.Error("audit command failed", "error", err)
		return err
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = auditor.WriteCSV(&buf, problems)
	case export.FormatJSON:
		err = auditor.WriteJSON(&buf, problems)
	}
	if err != nil {
		logger.Error("failed to render audit report", "format", format, "error", err)
		return err
	}

	location, err := artifacts.WriteRaw(AppConfig, logger, "audit", "audit", auditOptions.Output, string(format), buf.Bytes())
	if err != nil {
		logger.Error("failed to write audit report", "error", err)
		return err
	}

	if failOn != "" && auditor.AnyAtLeast(problems, failOn) {
		failErr := fmt.Errorf("audit found problems at or above severity %s", failOn)
		logger.Error("audit gate failed", "problems", len(problems), "fail_on", failOn, "location", location)
		return errors.NewCommandError(auditOptions, problems, failErr, 3)
	}

	logger.Info("audit command completed successfully", "problems", len(problems), "location", location)
	return nil
}

// Initialize flags for the audit command.
func init() {
	AuditCmd.Flags().StringVar(&auditOptions.URL, "url", "", "Base URL of the instance.")
	AuditCmd.Flags().StringVar(&auditOptions.Token, "token", "", "Token used for authentication.")
	AuditCmd.Flags().StringVar(&auditOptions.Organization, "org", "", "Organization key, required for SonarCloud.")
	AuditCmd.Flags().StringSliceVarP(&auditOptions.Projects, "project", "p", nil, "Project key to audit. Repeatable; empty audits every visible project.")
	AuditCmd.Flags().StringVar(&auditOptions.Properties, "properties", "", "Path to a properties file with audit thresholds.")
	AuditCmd.Flags().BoolVar(&auditOptions.CheckRemote, "check-remote", false, "Verify that bound repositories exist on their DevOps platforms.")
	AuditCmd.Flags().StringVar(&auditOptions.GithubToken, "github-token", "", "GitHub token for --check-remote. Unauthenticated calls see public repositories only.")
	AuditCmd.Flags().StringVar(&auditOptions.GitlabToken, "gitlab-token", "", "GitLab token for --check-remote.")
	AuditCmd.Flags().StringVar(&auditOptions.GitlabURL, "gitlab-url", "", "GitLab base URL for --check-remote. Empty uses gitlab.com.")
	AuditCmd.Flags().StringVar(&auditOptions.FailOn, "fail-on", "", "Exit non-zero when a problem at or above this severity is found: low, medium or high.")
	AuditCmd.Flags().StringVarP(&auditOptions.Format, "format", "f", "json", "Output format: csv or json.")
	AuditCmd.Flags().IntVarP(&auditOptions.Threads, "threads", "j", 5, "Number of projects audited concurrently.")
	AuditCmd.Flags().StringVarP(&auditOptions.Output, "output", "o", "", "Output destination: a path, '-' for stdout, or s3://bucket/key. Empty saves to the artifacts folder.")
}
