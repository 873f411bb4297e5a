package housekeep

import "fmt"

// validateHousekeepArgs validates the arguments of the housekeep command.
func validateHousekeepArgs(options *RunOptionsHousekeep) error {
	if len(options.URL) == 0 {
		return fmt.Errorf("the 'url' flag must be specified")
	}
	if len(options.Token) == 0 {
		return fmt.Errorf("the 'token' flag must be specified")
	}
	if options.ProjectMaxAge < 0 || options.BranchMaxAge < 0 || options.TokenMaxAge < 0 {
		return fmt.Errorf("age flags must not be negative")
	}
	if options.ProjectMaxAge == 0 && options.BranchMaxAge == 0 && options.TokenMaxAge == 0 {
		return fmt.Errorf("at least one of 'project-max-age', 'branch-max-age' or 'token-max-age' must be specified")
	}
	return nil
}
