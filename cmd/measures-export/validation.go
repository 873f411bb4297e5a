package measuresexport

import (
	"fmt"

	"github.com/sonarkit-io/sonarkit/internal/export"
)

// validateMeasuresExportArgs validates the arguments of the measures-export command.
func validateMeasuresExportArgs(options *RunOptionsMeasuresExport) (export.Format, error) {
	if len(options.URL) == 0 {
		return "", fmt.Errorf("the 'url' flag must be specified")
	}
	if len(options.Token) == 0 {
		return "", fmt.Errorf("the 'token' flag must be specified")
	}

	format, err := export.ParseFormat(options.Format, export.FormatCSV, export.FormatJSON)
	if err != nil {
		return "", err
	}

	if options.Threads < 1 {
		return "", fmt.Errorf("the 'threads' flag must be greater than zero")
	}
	return format, nil
}
