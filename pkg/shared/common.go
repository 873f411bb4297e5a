package shared

import (
	"github.com/spf13/pflag"
)

// Versions holds build information injected through ldflags.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// HasFlags reports whether any flag of the set was changed on the command
// line.
func HasFlags(flags *pflag.FlagSet) bool {
	return flags.NFlag() > 0
}
