package configexport

import (
	"fmt"

	"github.com/sonarkit-io/sonarkit/internal/export"
)

// validateConfigExportArgs validates the arguments of the config-export command.
func validateConfigExportArgs(options *RunOptionsConfigExport) (export.Format, error) {
	if len(options.URL) == 0 {
		return "", fmt.Errorf("the 'url' flag must be specified")
	}
	if len(options.Token) == 0 {
		return "", fmt.Errorf("the 'token' flag must be specified")
	}
	return export.ParseFormat(options.Format, export.FormatYAML, export.FormatJSON)
}
