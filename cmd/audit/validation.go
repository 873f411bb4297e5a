package audit

import (
	"fmt"

	auditor "github.com/sonarkit-io/sonarkit/internal/audit"
	"github.com/sonarkit-io/sonarkit/internal/export"
)

// validateAuditArgs validates the arguments of the audit command.
func validateAuditArgs(options *RunOptionsAudit) (export.Format, auditor.Severity, error) {
	if len(options.URL) == 0 {
		return "", "", fmt.Errorf("the 'url' flag must be specified")
	}
	if len(options.Token) == 0 {
		return "", "", fmt.Errorf("the 'token' flag must be specified")
	}

	format, err := export.ParseFormat(options.Format, export.FormatCSV, export.FormatJSON)
	if err != nil {
		return "", "", err
	}

	var failOn auditor.Severity
	if options.FailOn != "" {
		failOn, err = auditor.ParseSeverity(options.FailOn)
		if err != nil {
			return "", "", err
		}
	}

	if options.Threads < 1 {
		return "", "", fmt.Errorf("the 'threads' flag must be greater than zero")
	}
	return format, failOn, nil
}
