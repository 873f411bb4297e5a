package sonar

import (
	"context"
	"fmt"
	"strings"
)

// settingsService implements the SettingsService interface.
type settingsService struct {
	*service
}

// NewSettingsService initializes a new settings service.
func NewSettingsService(client *Client) SettingsService {
	return &settingsService{service: &service{client}}
}

// Values retrieves global settings, optionally restricted to the given keys.
// Secured settings are never returned by the API.
func (ss *settingsService) Values(ctx context.Context, keys []string) ([]Setting, error) {
	params := map[string]string{}
	if len(keys) > 0 {
		params["keys"] = strings.Join(keys, ",")
	}

	response, err := ss.client.get(ctx, "/settings/values", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching settings: %w", err)
	}

	var resp SettingsValuesResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

// QualityGates retrieves all quality gates of the instance.
func (ss *settingsService) QualityGates(ctx context.Context) ([]QualityGate, error) {
	response, err := ss.client.get(ctx, "/qualitygates/list", ss.client.orgParams(map[string]string{}))
	if err != nil {
		return nil, fmt.Errorf("error fetching quality gates: %w", err)
	}

	var resp QualityGatesListResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return resp.QualityGates, nil
}

// QualityProfiles retrieves all quality profiles of the instance.
func (ss *settingsService) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	response, err := ss.client.get(ctx, "/qualityprofiles/search", ss.client.orgParams(map[string]string{}))
	if err != nil {
		return nil, fmt.Errorf("error fetching quality profiles: %w", err)
	}

	var resp QualityProfilesSearchResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// ProjectBinding retrieves the DevOps platform binding of a project.
// Returns a not-found API error when the project is not bound.
func (ss *settingsService) ProjectBinding(ctx context.Context, projectKey string) (*ProjectBinding, error) {
	response, err := ss.client.get(ctx, "/alm_settings/get_binding", map[string]string{
		"project": projectKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching project binding: %w", err)
	}

	var resp ProjectBinding
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
