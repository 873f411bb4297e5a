package findingssync

import (
	"fmt"
	"time"
)

// validateFindingsSyncArgs validates the arguments provided to the
// findings-sync command and fills in the source-side defaults for
// same-instance runs.
func validateFindingsSyncArgs(options *RunOptionsFindingsSync) error {
	if options.TargetURL == "" {
		return fmt.Errorf("the 'url' flag must be specified")
	}
	if options.TargetToken == "" {
		return fmt.Errorf("the 'token' flag must be specified")
	}
	if options.Project == "" {
		return fmt.Errorf("the 'project' flag must be specified")
	}

	if options.SourceURL == "" {
		options.SourceURL = options.TargetURL
		if options.SourceToken == "" {
			options.SourceToken = options.TargetToken
		}
		if options.SourceOrg == "" {
			options.SourceOrg = options.TargetOrg
		}
	}
	if options.SourceToken == "" {
		return fmt.Errorf("the 'source-token' flag must be specified when 'source-url' is set")
	}
	if options.TargetProject == "" {
		options.TargetProject = options.Project
	}

	if options.SourceURL == options.TargetURL &&
		options.Project == options.TargetProject &&
		options.Branch == options.TargetBranch {
		return fmt.Errorf("source and target scope are identical, nothing to synchronize")
	}

	if options.Since != "" {
		if _, err := time.Parse("2006-01-02", options.Since); err != nil {
			return fmt.Errorf("the 'since' flag must be a date in yyyy-MM-dd format: %w", err)
		}
	}
	if options.Threads <= 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	return nil
}
