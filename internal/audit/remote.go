package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/google/go-github/v47/github"
	"github.com/xanzy/go-gitlab"
	"golang.org/x/oauth2"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
)

// RemoteChecker verifies that a bound repository exists on its DevOps
// platform.
type RemoteChecker interface {
	RepositoryExists(ctx context.Context, info *vcsurl.VCS) (bool, error)
}

// checkBinding validates the shape of a DevOps platform binding and,
// when requested and a checker is registered for its platform kind, that
// the bound repository actually exists.
func (a *Auditor) checkBinding(ctx context.Context, projectKey string, binding *sonar.ProjectBinding, checkRemote bool) []Problem {
	repoURL := bindingRepoURL(binding)
	info, err := vcsurl.Parse(repoURL)
	if err != nil || info.Name == "" {
		return []Problem{{
			Severity: SeverityMedium,
			Category: CategoryBinding,
			Key:      projectKey,
			Message:  fmt.Sprintf("binding of %q points at unparseable repository %q", projectKey, repoURL),
		}}
	}
	if !checkRemote {
		return nil
	}

	checker := a.remotes[binding.Alm]
	if checker == nil {
		a.logger.Debug("no remote checker for platform kind", "alm", binding.Alm, "project", projectKey)
		return nil
	}

	exists, err := checker.RepositoryExists(ctx, info)
	if err != nil {
		return []Problem{{
			Severity: SeverityLow,
			Category: CategoryBinding,
			Key:      projectKey,
			Message:  fmt.Sprintf("could not verify repository %q: %v", repoURL, err),
		}}
	}
	if !exists {
		return []Problem{{
			Severity: SeverityHigh,
			Category: CategoryBinding,
			Key:      projectKey,
			Message:  fmt.Sprintf("repository %q bound to %q does not exist", repoURL, projectKey),
		}}
	}
	return nil
}

// bindingRepoURL builds a browsable repository URL from a binding. GitHub
// bindings store the API URL and GitLab bindings the API v4 URL, both are
// folded back to the web host before the repository path is appended.
func bindingRepoURL(b *sonar.ProjectBinding) string {
	base := strings.TrimSuffix(b.URL, "/")
	base = strings.TrimSuffix(base, "/api/v4")
	if u, err := url.Parse(base); err == nil && u.Host == "api.github.com" {
		base = "https://github.com"
	}
	return base + "/" + strings.Trim(b.Repository, "/")
}

// GithubChecker verifies repositories through the GitHub API.
type GithubChecker struct {
	client *github.Client
}

// NewGithubChecker builds a checker against github.com, authenticated when
// the token is non-empty. Unauthenticated calls work for public
// repositories only.
func NewGithubChecker(ctx context.Context, token string) *GithubChecker {
	var httpClient *http.Client
	if token != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, source)
	}
	return &GithubChecker{client: github.NewClient(httpClient)}
}

func (c *GithubChecker) RepositoryExists(ctx context.Context, info *vcsurl.VCS) (bool, error) {
	_, resp, err := c.client.Repositories.Get(ctx, info.Username, info.Name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GitlabChecker verifies repositories through the GitLab API.
type GitlabChecker struct {
	client *gitlab.Client
}

// NewGitlabChecker builds a checker, against gitlab.com when baseURL is
// empty.
func NewGitlabChecker(token, baseURL string) (*GitlabChecker, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitlabChecker{client: client}, nil
}

func (c *GitlabChecker) RepositoryExists(ctx context.Context, info *vcsurl.VCS) (bool, error) {
	_, resp, err := c.client.Projects.GetProject(info.FullName, nil, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
