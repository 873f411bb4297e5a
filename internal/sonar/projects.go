package sonar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// projectsService implements the ProjectsService interface.
type projectsService struct {
	*service
	pageSize int
}

// NewProjectsService initializes a new projects service with a given page size.
func NewProjectsService(client *Client, pageSize int) ProjectsService {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	return &projectsService{
		service:  &service{client},
		pageSize: pageSize,
	}
}

// ProjectSearchOptions narrows a project search.
type ProjectSearchOptions struct {
	Projects       []string // explicit project keys, empty for all
	AnalyzedBefore string   // yyyy-MM-dd, only projects last analyzed before it
	Query          string
}

// Search retrieves projects with pagination handling. Requires administer
// permission on the instance.
func (ps *projectsService) Search(ctx context.Context, opts ProjectSearchOptions) ([]Project, error) {
	var result []Project
	page := 1
	ps.client.Logger.Info("fetching projects")

	for {
		ps.client.Logger.Debug("fetching page of projects",
			"page", page,
			"pageSize", ps.pageSize,
		)
		query := map[string]string{
			"p":  strconv.Itoa(page),
			"ps": strconv.Itoa(ps.pageSize),
		}
		if len(opts.Projects) > 0 {
			query["projects"] = strings.Join(opts.Projects, ",")
		}
		if opts.AnalyzedBefore != "" {
			query["analyzedBefore"] = opts.AnalyzedBefore
		}
		if opts.Query != "" {
			query["q"] = opts.Query
		}

		response, err := ps.client.get(ctx, "/projects/search", ps.client.orgParams(query))
		if err != nil {
			return nil, fmt.Errorf("error fetching projects: %w", err)
		}

		var resp ProjectsSearchResponse
		if err := unmarshalResponse(response, &resp); err != nil {
			return nil, err
		}

		result = append(result, resp.Components...)
		if len(result) >= resp.Paging.Total || len(resp.Components) == 0 {
			break
		}
		page++
	}

	ps.client.Logger.Debug("successfully fetched all projects",
		"totalProjects", len(result),
	)
	return result, nil
}

// Delete removes a project and everything attached to it.
func (ps *projectsService) Delete(ctx context.Context, projectKey string) error {
	response, err := ps.client.postForm(ctx, "/projects/delete", map[string]string{
		"project": projectKey,
	})
	if err != nil {
		return fmt.Errorf("error deleting project %q: %w", projectKey, err)
	}
	return checkResponse(response)
}

// branchesService implements the BranchesService interface.
type branchesService struct {
	*service
}

// NewBranchesService initializes a new branches service.
func NewBranchesService(client *Client) BranchesService {
	return &branchesService{service: &service{client}}
}

// List retrieves all branches of a project. The endpoint is not paginated.
func (bs *branchesService) List(ctx context.Context, projectKey string) ([]Branch, error) {
	response, err := bs.client.get(ctx, "/project_branches/list", map[string]string{
		"project": projectKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching branches: %w", err)
	}

	var resp BranchesListResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return resp.Branches, nil
}

// Delete removes a non-main branch of a project.
func (bs *branchesService) Delete(ctx context.Context, projectKey, branchName string) error {
	response, err := bs.client.postForm(ctx, "/project_branches/delete", map[string]string{
		"project": projectKey,
		"branch":  branchName,
	})
	if err != nil {
		return fmt.Errorf("error deleting branch %q: %w", branchName, err)
	}
	return checkResponse(response)
}
