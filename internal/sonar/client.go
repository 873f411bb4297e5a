package sonar

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/httpclient"
)

// service wraps a client to access different services.
type service struct {
	client *Client
}

// Client configures and manages access to the SonarQube Web API, holding
// service implementations and an HTTP client. The same client speaks to both
// Server and Cloud; Cloud connections carry an organization.
type Client struct {
	HTTPClient   *httpclient.Client
	BaseURL      string
	Organization string
	Logger       hclog.Logger

	Issues   IssuesService
	Hotspots HotspotsService
	Projects ProjectsService
	Branches BranchesService
	Users    UsersService
	Tokens   TokensService
	Settings SettingsService
	Measures MeasuresService
	System   SystemService
}

// Connection holds the coordinates of one platform instance.
type Connection struct {
	URL          string // Base URL, e.g. https://sonarqube.example.com
	Token        string // User token, sent as the basic auth username
	Organization string // Organization key, required for Cloud
}

// IssuesService defines the interface for issue-related operations.
type IssuesService interface {
	Search(ctx context.Context, opts IssueSearchOptions) ([]Issue, error)
	Changelog(ctx context.Context, issueKey string) ([]ChangelogEntry, error)
	DoTransition(ctx context.Context, issueKey, transition string) error
	AddComment(ctx context.Context, issueKey, text string) error
	Assign(ctx context.Context, issueKey, assignee string) error
	SetSeverity(ctx context.Context, issueKey, severity string) error
	SetType(ctx context.Context, issueKey, issueType string) error
	SetTags(ctx context.Context, issueKey string, tags []string) error
}

// HotspotsService defines the interface for security hotspot operations.
type HotspotsService interface {
	Search(ctx context.Context, opts HotspotSearchOptions) ([]Hotspot, error)
	Show(ctx context.Context, hotspotKey string) (*HotspotDetails, error)
	ChangeStatus(ctx context.Context, hotspotKey, status, resolution, comment string) error
	Assign(ctx context.Context, hotspotKey, assignee string) error
	AddComment(ctx context.Context, hotspotKey, text string) error
}

// ProjectsService defines the interface for project-related operations.
type ProjectsService interface {
	Search(ctx context.Context, opts ProjectSearchOptions) ([]Project, error)
	Delete(ctx context.Context, projectKey string) error
}

// BranchesService defines the interface for project branch operations.
type BranchesService interface {
	List(ctx context.Context, projectKey string) ([]Branch, error)
	Delete(ctx context.Context, projectKey, branchName string) error
}

// UsersService defines the interface for user lookups.
type UsersService interface {
	Search(ctx context.Context, query string) ([]User, error)
	Current(ctx context.Context) (*User, error)
}

// TokensService defines the interface for user token operations.
type TokensService interface {
	Search(ctx context.Context, login string) (*TokenList, error)
	Revoke(ctx context.Context, login, name string) error
}

// SettingsService defines the interface for platform configuration reads.
type SettingsService interface {
	Values(ctx context.Context, keys []string) ([]Setting, error)
	QualityGates(ctx context.Context) ([]QualityGate, error)
	QualityProfiles(ctx context.Context) ([]QualityProfile, error)
	ProjectBinding(ctx context.Context, projectKey string) (*ProjectBinding, error)
}

// MeasuresService defines the interface for metric value reads.
type MeasuresService interface {
	Component(ctx context.Context, componentKey string, metricKeys []string) (*ComponentMeasures, error)
}

// SystemService defines the interface for instance-level probes.
type SystemService interface {
	Version(ctx context.Context) (string, error)
	ValidateAuth(ctx context.Context) error
	Capabilities(ctx context.Context) (*Capabilities, error)
}

// resolveURL constructs the full URL by checking if the path is absolute or relative.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL + path
}

// headersBuilder returns a common request builder with the necessary headers.
func (c *Client) headersBuilder(ctx context.Context) *resty.Request {
	return c.HTTPClient.RestyClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
}

// get sends a GET request using the client's base URL, path, and query parameters provided.
func (c *Client) get(ctx context.Context, path string, queryParams map[string]string) (*resty.Response, error) {
	fullURL := c.resolveURL(path)
	return c.headersBuilder(ctx).
		SetQueryParams(queryParams).
		Get(fullURL)
}

// postForm sends a form-encoded POST request, the shape every write endpoint
// of the Web API expects.
func (c *Client) postForm(ctx context.Context, path string, form map[string]string) (*resty.Response, error) {
	fullURL := c.resolveURL(path)
	return c.headersBuilder(ctx).
		SetFormData(form).
		Post(fullURL)
}

// orgParams merges the connection's organization into query parameters for
// endpoints that are organization-scoped on Cloud.
func (c *Client) orgParams(params map[string]string) map[string]string {
	if c.Organization != "" {
		params["organization"] = c.Organization
	}
	return params
}

// New initializes a new API client with configured services.
func New(globalConfig *config.Config, logger hclog.Logger, conn Connection) (*Client, error) {
	httpClient, err := httpclient.New(logger, globalConfig)
	if err != nil {
		logger.Error("failed to initialize HTTP client", "error", err)
		return nil, err
	}

	// A token is used as the basic auth username with an empty password.
	httpClient.RestyClient.
		SetBasicAuth(conn.Token, "").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
		})

	client := &Client{
		HTTPClient:   httpClient,
		BaseURL:      strings.TrimRight(conn.URL, "/") + "/api",
		Organization: conn.Organization,
		Logger:       logger,
	}

	client.Issues = NewIssuesService(client, 0)
	client.Hotspots = NewHotspotsService(client, 0)
	client.Projects = NewProjectsService(client, 0)
	client.Branches = NewBranchesService(client)
	client.Users = NewUsersService(client)
	client.Tokens = NewTokensService(client)
	client.Settings = NewSettingsService(client)
	client.Measures = NewMeasuresService(client)
	client.System = NewSystemService(client)

	return client, nil
}
