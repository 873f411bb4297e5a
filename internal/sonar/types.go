package sonar

// Paging carries the pagination block present on most search responses.
type Paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// TextRange locates a finding within a file.
type TextRange struct {
	StartLine   int `json:"startLine"`
	EndLine     int `json:"endLine"`
	StartOffset int `json:"startOffset"`
	EndOffset   int `json:"endOffset"`
}

// Issue represents an issue as returned by api/issues/search.
type Issue struct {
	Key          string     `json:"key"`
	Rule         string     `json:"rule"`
	Severity     string     `json:"severity"`
	Component    string     `json:"component"`
	Project      string     `json:"project"`
	Line         *int       `json:"line,omitempty"`
	Hash         string     `json:"hash,omitempty"`
	TextRange    *TextRange `json:"textRange,omitempty"`
	Status       string     `json:"status"`
	Resolution   string     `json:"resolution,omitempty"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	Author       string     `json:"author,omitempty"`
	Assignee     string     `json:"assignee,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	CreationDate string     `json:"creationDate"`
	UpdateDate   string     `json:"updateDate,omitempty"`
	Comments     []Comment  `json:"comments,omitempty"`
}

// Comment is a single comment attached to an issue or hotspot.
type Comment struct {
	Key       string `json:"key"`
	Login     string `json:"login"`
	HTMLText  string `json:"htmlText,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// IssuesSearchResponse is the envelope of api/issues/search.
type IssuesSearchResponse struct {
	Paging Paging  `json:"paging"`
	Issues []Issue `json:"issues"`
}

// ChangelogEntry is one history entry from api/issues/changelog or a hotspot's
// changelog. Entries produced by background tasks have no user.
type ChangelogEntry struct {
	User         string `json:"user,omitempty"`
	UserName     string `json:"userName,omitempty"`
	CreationDate string `json:"creationDate"`
	Diffs        []Diff `json:"diffs"`
}

// Diff describes one changed field within a changelog entry.
type Diff struct {
	Key      string `json:"key"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`
}

// ChangelogResponse is the envelope of api/issues/changelog. Older servers
// return the whole history at once and omit the paging block.
type ChangelogResponse struct {
	Paging    *Paging          `json:"paging,omitempty"`
	Changelog []ChangelogEntry `json:"changelog"`
}

// Hotspot represents a security hotspot as returned by api/hotspots/search.
type Hotspot struct {
	Key                      string     `json:"key"`
	Component                string     `json:"component"`
	Project                  string     `json:"project"`
	RuleKey                  string     `json:"ruleKey"`
	SecurityCategory         string     `json:"securityCategory"`
	VulnerabilityProbability string     `json:"vulnerabilityProbability"`
	Status                   string     `json:"status"`
	Resolution               string     `json:"resolution,omitempty"`
	Line                     *int       `json:"line,omitempty"`
	TextRange                *TextRange `json:"textRange,omitempty"`
	Message                  string     `json:"message"`
	Author                   string     `json:"author,omitempty"`
	Assignee                 string     `json:"assignee,omitempty"`
	CreationDate             string     `json:"creationDate"`
	UpdateDate               string     `json:"updateDate,omitempty"`
}

// HotspotsSearchResponse is the envelope of api/hotspots/search.
type HotspotsSearchResponse struct {
	Paging   Paging    `json:"paging"`
	Hotspots []Hotspot `json:"hotspots"`
}

// ComponentRef is the nested component block of api/hotspots/show.
type ComponentRef struct {
	Key       string `json:"key"`
	Qualifier string `json:"qualifier"`
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
}

// HotspotRule is the nested rule block of api/hotspots/show.
type HotspotRule struct {
	Key                      string `json:"key"`
	Name                     string `json:"name"`
	SecurityCategory         string `json:"securityCategory"`
	VulnerabilityProbability string `json:"vulnerabilityProbability"`
}

// HotspotDetails is the envelope of api/hotspots/show, which is the only
// place a hotspot's hash, history and comments are available.
type HotspotDetails struct {
	Key          string           `json:"key"`
	Component    ComponentRef     `json:"component"`
	Project      ComponentRef     `json:"project"`
	Rule         HotspotRule      `json:"rule"`
	Status       string           `json:"status"`
	Resolution   string           `json:"resolution,omitempty"`
	Line         *int             `json:"line,omitempty"`
	Hash         string           `json:"hash,omitempty"`
	Message      string           `json:"message"`
	Author       string           `json:"author,omitempty"`
	Assignee     string           `json:"assignee,omitempty"`
	CreationDate string           `json:"creationDate"`
	UpdateDate   string           `json:"updateDate,omitempty"`
	Changelog    []ChangelogEntry `json:"changelog,omitempty"`
	Comment      []Comment        `json:"comment,omitempty"`
}

// Project represents a project as returned by api/projects/search.
type Project struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	Qualifier        string `json:"qualifier"`
	Visibility       string `json:"visibility,omitempty"`
	LastAnalysisDate string `json:"lastAnalysisDate,omitempty"`
	Revision         string `json:"revision,omitempty"`
}

// ProjectsSearchResponse is the envelope of api/projects/search.
type ProjectsSearchResponse struct {
	Paging     Paging    `json:"paging"`
	Components []Project `json:"components"`
}

// Branch represents a branch as returned by api/project_branches/list.
type Branch struct {
	Name              string `json:"name"`
	IsMain            bool   `json:"isMain"`
	Type              string `json:"type"`
	AnalysisDate      string `json:"analysisDate,omitempty"`
	ExcludedFromPurge bool   `json:"excludedFromPurge"`
}

// BranchesListResponse is the envelope of api/project_branches/list.
type BranchesListResponse struct {
	Branches []Branch `json:"branches"`
}

// User represents a user as returned by api/users/search.
type User struct {
	Login  string `json:"login"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`
}

// UsersSearchResponse is the envelope of api/users/search.
type UsersSearchResponse struct {
	Paging Paging `json:"paging"`
	Users  []User `json:"users"`
}

// UserToken represents one token as returned by api/user_tokens/search.
type UserToken struct {
	Name               string `json:"name"`
	CreatedAt          string `json:"createdAt"`
	LastConnectionDate string `json:"lastConnectionDate,omitempty"`
}

// TokenList is the envelope of api/user_tokens/search.
type TokenList struct {
	Login      string      `json:"login"`
	UserTokens []UserToken `json:"userTokens"`
}

// Setting represents one configuration value from api/settings/values.
type Setting struct {
	Key       string   `json:"key" yaml:"key"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	Values    []string `json:"values,omitempty" yaml:"values,omitempty"`
	Inherited bool     `json:"inherited,omitempty" yaml:"inherited,omitempty"`
}

// SettingsValuesResponse is the envelope of api/settings/values.
type SettingsValuesResponse struct {
	Settings []Setting `json:"settings"`
}

// GateCondition is one threshold of a quality gate.
type GateCondition struct {
	Metric string `json:"metric" yaml:"metric"`
	Op     string `json:"op" yaml:"op"`
	Error  string `json:"error" yaml:"error"`
}

// QualityGate represents a quality gate from api/qualitygates/list.
type QualityGate struct {
	Name       string          `json:"name" yaml:"name"`
	IsDefault  bool            `json:"isDefault" yaml:"is_default"`
	IsBuiltIn  bool            `json:"isBuiltIn" yaml:"is_built_in"`
	Conditions []GateCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// QualityGatesListResponse is the envelope of api/qualitygates/list.
type QualityGatesListResponse struct {
	QualityGates []QualityGate `json:"qualitygates"`
}

// QualityProfile represents a profile from api/qualityprofiles/search.
type QualityProfile struct {
	Key             string `json:"key" yaml:"key"`
	Name            string `json:"name" yaml:"name"`
	Language        string `json:"language" yaml:"language"`
	LanguageName    string `json:"languageName" yaml:"language_name"`
	IsDefault       bool   `json:"isDefault" yaml:"is_default"`
	IsBuiltIn       bool   `json:"isBuiltIn" yaml:"is_built_in"`
	ActiveRuleCount int    `json:"activeRuleCount" yaml:"active_rule_count"`
}

// QualityProfilesSearchResponse is the envelope of api/qualityprofiles/search.
type QualityProfilesSearchResponse struct {
	Profiles []QualityProfile `json:"profiles"`
}

// ProjectBinding represents a DevOps platform binding from
// api/alm_settings/get_binding.
type ProjectBinding struct {
	Key        string `json:"key"`
	Alm        string `json:"alm"`
	Repository string `json:"repository"`
	URL        string `json:"url,omitempty"`
	Monorepo   bool   `json:"monorepo"`
}

// Measure is one metric value from api/measures/component.
type Measure struct {
	Metric string `json:"metric"`
	Value  string `json:"value,omitempty"`
}

// ComponentMeasures is the component block of api/measures/component.
type ComponentMeasures struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Measures []Measure `json:"measures"`
}

// MeasuresComponentResponse is the envelope of api/measures/component.
type MeasuresComponentResponse struct {
	Component ComponentMeasures `json:"component"`
}

// ValidateResponse is the envelope of api/authentication/validate.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}
