package sonar

import (
	"context"
	"fmt"
	"strings"
)

// measuresService implements the MeasuresService interface.
type measuresService struct {
	*service
}

// NewMeasuresService initializes a new measures service.
func NewMeasuresService(client *Client) MeasuresService {
	return &measuresService{service: &service{client}}
}

// Component retrieves the current values of the given metrics for one
// component, typically a project key.
func (ms *measuresService) Component(ctx context.Context, componentKey string, metricKeys []string) (*ComponentMeasures, error) {
	response, err := ms.client.get(ctx, "/measures/component", map[string]string{
		"component":  componentKey,
		"metricKeys": strings.Join(metricKeys, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching measures for %q: %w", componentKey, err)
	}

	var resp MeasuresComponentResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return &resp.Component, nil
}
