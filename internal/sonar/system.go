package sonar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Platform identifies the kind of instance a connection points at.
type Platform string

const (
	PlatformServer Platform = "server"
	PlatformCloud  Platform = "cloud"
)

// Capabilities describes which write operations the connected instance
// accepts. Severity and type edits disappeared on Cloud and on servers from
// 10.4 on, where the multi-quality-rule mode owns those attributes.
type Capabilities struct {
	Platform        Platform `json:"platform"`
	Version         string   `json:"version,omitempty"`
	CanEditSeverity bool     `json:"can_edit_severity"`
	CanEditType     bool     `json:"can_edit_type"`
}

// systemService implements the SystemService interface.
type systemService struct {
	*service
}

// NewSystemService initializes a new system service.
func NewSystemService(client *Client) SystemService {
	return &systemService{service: &service{client}}
}

// Version retrieves the server version. The endpoint answers with a plain
// text body, not JSON.
func (sys *systemService) Version(ctx context.Context) (string, error) {
	response, err := sys.client.get(ctx, "/server/version", nil)
	if err != nil {
		return "", fmt.Errorf("error fetching server version: %w", err)
	}
	if err := checkResponse(response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.String()), nil
}

// ValidateAuth checks that the configured token authenticates. The endpoint
// answers 200 with valid=false for anonymous access, which is just as fatal.
func (sys *systemService) ValidateAuth(ctx context.Context) error {
	response, err := sys.client.get(ctx, "/authentication/validate", nil)
	if err != nil {
		return fmt.Errorf("error validating authentication: %w", err)
	}

	var resp ValidateResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		return &APIError{
			StatusCode: 401,
			Endpoint:   response.Request.URL,
			Messages:   []string{"authentication token was not accepted"},
		}
	}
	return nil
}

// Capabilities probes the instance and derives which operations it supports.
func (sys *systemService) Capabilities(ctx context.Context) (*Capabilities, error) {
	if sys.client.Organization != "" {
		return &Capabilities{
			Platform:        PlatformCloud,
			CanEditSeverity: false,
			CanEditType:     false,
		}, nil
	}

	version, err := sys.Version(ctx)
	if err != nil {
		return nil, err
	}

	major, minor := parseVersion(version)
	editable := major < 10 || (major == 10 && minor < 4)
	return &Capabilities{
		Platform:        PlatformServer,
		Version:         version,
		CanEditSeverity: editable,
		CanEditType:     editable,
	}, nil
}

// parseVersion extracts the leading major.minor pair from a version string
// such as "10.3.0.82913". Unparseable parts come back as zero.
func parseVersion(version string) (int, int) {
	parts := strings.Split(version, ".")
	var major, minor int
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major, minor
}
