package sonar

import (
	"context"
	"fmt"
	"strconv"
)

// hotspotsService implements the HotspotsService interface.
type hotspotsService struct {
	*service
	pageSize int
}

// NewHotspotsService initializes a new hotspots service with a given page size.
func NewHotspotsService(client *Client, pageSize int) HotspotsService {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	return &hotspotsService{
		service:  &service{client},
		pageSize: pageSize,
	}
}

// HotspotSearchOptions narrows a hotspot search to one scope.
type HotspotSearchOptions struct {
	Project string
	Branch  string
	Status  string
}

// Search retrieves all security hotspots of a project scope with pagination
// handling. The search payload is shallow; Show fills in history and comments.
func (hs *hotspotsService) Search(ctx context.Context, opts HotspotSearchOptions) ([]Hotspot, error) {
	var result []Hotspot
	page := 1
	hs.client.Logger.Info("fetching hotspots",
		"project", opts.Project,
		"branch", opts.Branch,
	)

	for {
		hs.client.Logger.Debug("fetching page of hotspots",
			"page", page,
			"pageSize", hs.pageSize,
		)
		query := map[string]string{
			"projectKey": opts.Project,
			"p":          strconv.Itoa(page),
			"ps":         strconv.Itoa(hs.pageSize),
		}
		if opts.Branch != "" {
			query["branch"] = opts.Branch
		}
		if opts.Status != "" {
			query["status"] = opts.Status
		}

		response, err := hs.client.get(ctx, "/hotspots/search", query)
		if err != nil {
			return nil, fmt.Errorf("error fetching hotspots: %w", err)
		}

		var resp HotspotsSearchResponse
		if err := unmarshalResponse(response, &resp); err != nil {
			return nil, err
		}

		result = append(result, resp.Hotspots...)
		if len(result) >= resp.Paging.Total || len(resp.Hotspots) == 0 {
			break
		}
		if page*hs.pageSize >= maxSearchResults {
			hs.client.Logger.Warn("hotspot search hit the API result cap, results are truncated",
				"project", opts.Project,
				"total", resp.Paging.Total,
				"cap", maxSearchResults,
			)
			break
		}
		page++
	}

	hs.client.Logger.Debug("successfully fetched all hotspots",
		"totalHotspots", len(result),
	)
	return result, nil
}

// Show retrieves the full detail of one hotspot, including its hash, history
// and comments.
func (hs *hotspotsService) Show(ctx context.Context, hotspotKey string) (*HotspotDetails, error) {
	response, err := hs.client.get(ctx, "/hotspots/show", map[string]string{
		"hotspot": hotspotKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching hotspot details: %w", err)
	}

	var resp HotspotDetails
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangeStatus moves a hotspot between TO_REVIEW and REVIEWED. A REVIEWED
// status requires a resolution; an optional comment documents the decision.
func (hs *hotspotsService) ChangeStatus(ctx context.Context, hotspotKey, status, resolution, comment string) error {
	form := map[string]string{
		"hotspot": hotspotKey,
		"status":  status,
	}
	if resolution != "" {
		form["resolution"] = resolution
	}
	if comment != "" {
		form["comment"] = comment
	}
	response, err := hs.client.postForm(ctx, "/hotspots/change_status", form)
	if err != nil {
		return fmt.Errorf("error changing hotspot status: %w", err)
	}
	return checkResponse(response)
}

// Assign sets or clears the assignee of a hotspot.
func (hs *hotspotsService) Assign(ctx context.Context, hotspotKey, assignee string) error {
	form := map[string]string{"hotspot": hotspotKey}
	if assignee != "" {
		form["login"] = assignee
	}
	response, err := hs.client.postForm(ctx, "/hotspots/assign", form)
	if err != nil {
		return fmt.Errorf("error assigning hotspot: %w", err)
	}
	return checkResponse(response)
}

// AddComment attaches a markdown comment to a hotspot.
func (hs *hotspotsService) AddComment(ctx context.Context, hotspotKey, text string) error {
	response, err := hs.client.postForm(ctx, "/hotspots/add_comment", map[string]string{
		"hotspot": hotspotKey,
		"comment": text,
	})
	if err != nil {
		return fmt.Errorf("error adding hotspot comment: %w", err)
	}
	return checkResponse(response)
}
