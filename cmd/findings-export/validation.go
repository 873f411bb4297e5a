package findingsexport

import (
	"fmt"
	"time"

	"github.com/sonarkit-io/sonarkit/internal/export"
)

// validateFindingsExportArgs validates the arguments provided to the
// findings-export command and resolves the output format.
func validateFindingsExportArgs(options *RunOptionsFindingsExport) (export.Format, error) {
	if options.URL == "" {
		return "", fmt.Errorf("the 'url' flag must be specified")
	}
	if options.Token == "" {
		return "", fmt.Errorf("the 'token' flag must be specified")
	}

	format, err := export.ParseFormat(options.Format, export.FormatCSV, export.FormatJSON, export.FormatSARIF)
	if err != nil {
		return "", err
	}

	if options.Since != "" {
		if _, err := time.Parse("2006-01-02", options.Since); err != nil {
			return "", fmt.Errorf("the 'since' flag must be a date in yyyy-MM-dd format: %w", err)
		}
	}
	if options.Threads <= 0 {
		return "", fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	return format, nil
}
