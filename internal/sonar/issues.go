package sonar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// maxSearchResults is the hard ceiling the Web API enforces on paged search
// results. Pages beyond it return an error instead of data.
const maxSearchResults = 10000

// issuesService implements the IssuesService interface.
type issuesService struct {
	*service
	pageSize int
}

// NewIssuesService initializes a new issues service with a given page size.
func NewIssuesService(client *Client, pageSize int) IssuesService {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500 // API maximum
	}
	return &issuesService{
		service:  &service{client},
		pageSize: pageSize,
	}
}

// IssueSearchOptions narrows an issue search to one scope and optional filters.
type IssueSearchOptions struct {
	Project      string
	Branch       string
	CreatedAfter string
	Statuses     []string
	Severities   []string
	Types        []string
}

// Search retrieves all issues of a project scope with pagination handling,
// comments included. Results are capped by the API at 10k entries.
func (is *issuesService) Search(ctx context.Context, opts IssueSearchOptions) ([]Issue, error) {
	var result []Issue
	page := 1
	is.client.Logger.Info("fetching issues",
		"project", opts.Project,
		"branch", opts.Branch,
	)

	for {
		is.client.Logger.Debug("fetching page of issues",
			"page", page,
			"pageSize", is.pageSize,
		)
		query := map[string]string{
			"componentKeys":    opts.Project,
			"additionalFields": "comments",
			"p":                strconv.Itoa(page),
			"ps":               strconv.Itoa(is.pageSize),
		}
		if opts.Branch != "" {
			query["branch"] = opts.Branch
		}
		if opts.CreatedAfter != "" {
			query["createdAfter"] = opts.CreatedAfter
		}
		if len(opts.Statuses) > 0 {
			query["statuses"] = strings.Join(opts.Statuses, ",")
		}
		if len(opts.Severities) > 0 {
			query["severities"] = strings.Join(opts.Severities, ",")
		}
		if len(opts.Types) > 0 {
			query["types"] = strings.Join(opts.Types, ",")
		}

		response, err := is.client.get(ctx, "/issues/search", is.client.orgParams(query))
		if err != nil {
			return nil, fmt.Errorf("error fetching issues: %w", err)
		}

		var resp IssuesSearchResponse
		if err := unmarshalResponse(response, &resp); err != nil {
			return nil, err
		}

		result = append(result, resp.Issues...)
		if len(result) >= resp.Paging.Total || len(resp.Issues) == 0 {
			break
		}
		if page*is.pageSize >= maxSearchResults {
			is.client.Logger.Warn("issue search hit the API result cap, results are truncated",
				"project", opts.Project,
				"total", resp.Paging.Total,
				"cap", maxSearchResults,
			)
			break
		}
		page++
	}

	is.client.Logger.Debug("successfully fetched all issues",
		"totalIssues", len(result),
	)
	return result, nil
}

// Changelog retrieves the full history of one issue. Newer servers paginate
// the endpoint, older ones return everything at once.
func (is *issuesService) Changelog(ctx context.Context, issueKey string) ([]ChangelogEntry, error) {
	var result []ChangelogEntry
	page := 1

	for {
		query := map[string]string{
			"issue": issueKey,
			"p":     strconv.Itoa(page),
			"ps":    strconv.Itoa(is.pageSize),
		}

		response, err := is.client.get(ctx, "/issues/changelog", query)
		if err != nil {
			return nil, fmt.Errorf("error fetching issue changelog: %w", err)
		}

		var resp ChangelogResponse
		if err := unmarshalResponse(response, &resp); err != nil {
			return nil, err
		}

		result = append(result, resp.Changelog...)
		if resp.Paging == nil || len(result) >= resp.Paging.Total || len(resp.Changelog) == 0 {
			break
		}
		page++
	}

	return result, nil
}

// DoTransition applies a workflow transition to an issue.
func (is *issuesService) DoTransition(ctx context.Context, issueKey, transition string) error {
	response, err := is.client.postForm(ctx, "/issues/do_transition", map[string]string{
		"issue":      issueKey,
		"transition": transition,
	})
	if err != nil {
		return fmt.Errorf("error applying transition %q: %w", transition, err)
	}
	return checkResponse(response)
}

// AddComment attaches a markdown comment to an issue.
func (is *issuesService) AddComment(ctx context.Context, issueKey, text string) error {
	response, err := is.client.postForm(ctx, "/issues/add_comment", map[string]string{
		"issue": issueKey,
		"text":  text,
	})
	if err != nil {
		return fmt.Errorf("error adding comment: %w", err)
	}
	return checkResponse(response)
}

// Assign sets or clears the assignee of an issue.
func (is *issuesService) Assign(ctx context.Context, issueKey, assignee string) error {
	form := map[string]string{"issue": issueKey}
	if assignee != "" {
		form["assignee"] = assignee
	}
	response, err := is.client.postForm(ctx, "/issues/assign", form)
	if err != nil {
		return fmt.Errorf("error assigning issue: %w", err)
	}
	return checkResponse(response)
}

// SetSeverity changes the severity of an issue. Unavailable on Cloud and on
// servers running in MQR mode; callers gate on Capabilities first.
func (is *issuesService) SetSeverity(ctx context.Context, issueKey, severity string) error {
	response, err := is.client.postForm(ctx, "/issues/set_severity", map[string]string{
		"issue":    issueKey,
		"severity": severity,
	})
	if err != nil {
		return fmt.Errorf("error setting severity: %w", err)
	}
	return checkResponse(response)
}

// SetType changes the type of an issue. Same availability rules as SetSeverity.
func (is *issuesService) SetType(ctx context.Context, issueKey, issueType string) error {
	response, err := is.client.postForm(ctx, "/issues/set_type", map[string]string{
		"issue": issueKey,
		"type":  issueType,
	})
	if err != nil {
		return fmt.Errorf("error setting type: %w", err)
	}
	return checkResponse(response)
}

// SetTags replaces the tag list of an issue.
func (is *issuesService) SetTags(ctx context.Context, issueKey string, tags []string) error {
	response, err := is.client.postForm(ctx, "/issues/set_tags", map[string]string{
		"issue": issueKey,
		"tags":  strings.Join(tags, ","),
	})
	if err != nil {
		return fmt.Errorf("error setting tags: %w", err)
	}
	return checkResponse(response)
}
