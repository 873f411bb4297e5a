package audit

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Threshold property keys.
const (
	keyTokenMaxAge        = "audit.tokens.maxAge"
	keyProjectMaxAge      = "audit.projects.maxLastAnalysisAge"
	keyProjectMaxBranches = "audit.projects.maxBranches"
	keyBranchMaxAge       = "audit.branches.maxLastAnalysisAge"

	settingsPrefix = "audit.settings."
)

// Defaults applied when the properties file omits a key.
const (
	defaultTokenMaxAgeDays    = 90
	defaultProjectMaxAgeDays  = 180
	defaultBranchMaxAgeDays   = 30
	defaultProjectMaxBranches = 20
)

// Thresholds carries the audit limits, read from a Java-style properties
// file. All ages are in days; zero disables the corresponding check.
type Thresholds struct {
	TokenMaxAge           int
	ProjectMaxAnalysisAge int
	ProjectMaxBranches    int
	BranchMaxAnalysisAge  int

	// ExpectedSettings maps platform setting keys to expected values. The
	// properties format lowercases keys on load, so they are matched
	// against the platform case-insensitively.
	ExpectedSettings map[string]string
}

// DefaultThresholds returns the limits used when no properties file is given.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TokenMaxAge:           defaultTokenMaxAgeDays,
		ProjectMaxAnalysisAge: defaultProjectMaxAgeDays,
		ProjectMaxBranches:    defaultProjectMaxBranches,
		BranchMaxAnalysisAge:  defaultBranchMaxAgeDays,
		ExpectedSettings:      map[string]string{},
	}
}

// LoadThresholds reads the audit limits from a Java-style properties file:
//
//	audit.tokens.maxAge = 90
//	audit.projects.maxLastAnalysisAge = 180
//	audit.projects.maxBranches = 20
//	audit.branches.maxLastAnalysisAge = 30
//	audit.settings.sonar.forceAuthentication = true
//
// Keys under audit.settings. name platform settings and their expected
// values.
func LoadThresholds(path string) (Thresholds, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	v.SetDefault(keyTokenMaxAge, defaultTokenMaxAgeDays)
	v.SetDefault(keyProjectMaxAge, defaultProjectMaxAgeDays)
	v.SetDefault(keyProjectMaxBranches, defaultProjectMaxBranches)
	v.SetDefault(keyBranchMaxAge, defaultBranchMaxAgeDays)

	if err := v.ReadInConfig(); err != nil {
		return Thresholds{}, fmt.Errorf("reading audit properties %q: %w", path, err)
	}

	t := Thresholds{
		TokenMaxAge:           v.GetInt(keyTokenMaxAge),
		ProjectMaxAnalysisAge: v.GetInt(keyProjectMaxAge),
		ProjectMaxBranches:    v.GetInt(keyProjectMaxBranches),
		BranchMaxAnalysisAge:  v.GetInt(keyBranchMaxAge),
		ExpectedSettings:      map[string]string{},
	}
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, settingsPrefix) {
			t.ExpectedSettings[strings.TrimPrefix(key, settingsPrefix)] = v.GetString(key)
		}
	}
	return t, nil
}
