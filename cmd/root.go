package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	auditcmd "github.com/sonarkit-io/sonarkit/cmd/audit"
	configexport "github.com/sonarkit-io/sonarkit/cmd/config-export"
	findingsexport "github.com/sonarkit-io/sonarkit/cmd/findings-export"
	findingssync "github.com/sonarkit-io/sonarkit/cmd/findings-sync"
	housekeepcmd "github.com/sonarkit-io/sonarkit/cmd/housekeep"
	measuresexport "github.com/sonarkit-io/sonarkit/cmd/measures-export"
	"github.com/sonarkit-io/sonarkit/cmd/version"
	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "sonarkit [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Sonarkit is an operations toolkit for SonarQube Server and Cloud.",
		Long: `Sonarkit consolidates day-2 operations for SonarQube Server and Cloud:
	synchronizing finding history across branches and instances, exporting findings,
	measures and configuration, auditing platform settings against best practices,
	and housekeeping stale projects, branches and tokens.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the config file (default is $SONARKIT_CONFIG, then <home>/config.yml).")
	rootCmd.AddCommand(findingssync.FindingsSyncCmd)
	rootCmd.AddCommand(findingsexport.FindingsExportCmd)
	rootCmd.AddCommand(measuresexport.MeasuresExportCmd)
	rootCmd.AddCommand(configexport.ConfigExportCmd)
	rootCmd.AddCommand(auditcmd.AuditCmd)
	rootCmd.AddCommand(housekeepcmd.HousekeepCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and maps any failure to an exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return errors.ExitCodeFromError(err)
	}
	return 0
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	findingssync.Init(AppConfig)
	findingsexport.Init(AppConfig)
	measuresexport.Init(AppConfig)
	configexport.Init(AppConfig)
	auditcmd.Init(AppConfig)
	housekeepcmd.Init(AppConfig)
	version.Init(AppConfig)
}
