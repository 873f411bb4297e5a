package sonar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrorsPayload is the error envelope the Web API returns on failed calls.
type ErrorsPayload struct {
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

// APIError describes a failed call to the platform API and keeps the status
// code so callers can classify the failure.
type APIError struct {
	StatusCode int
	Endpoint   string
	Messages   []string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("API request to %s failed with status code %d: %s",
			e.Endpoint, e.StatusCode, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("API request to %s failed with status code %d", e.Endpoint, e.StatusCode)
}

// apiError builds an APIError from a non-2xx response, extracting the
// platform's error messages when the body carries them.
func apiError(resp *resty.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Endpoint:   resp.Request.URL,
	}

	var payload ErrorsPayload
	if err := json.Unmarshal(resp.Body(), &payload); err == nil {
		for _, e := range payload.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Msg)
		}
	}
	return apiErr
}

// checkResponse validates the HTTP status of a response that carries no body
// worth decoding.
func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() >= 400 {
		return apiError(resp)
	}
	return nil
}

// unmarshalResponse is a generic function to parse JSON body from response into the provided type.
// It also checks the HTTP response code and API error messages.
func unmarshalResponse[T any](resp *resty.Response, out *T) error {
	if err := checkResponse(resp); err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsAuthError reports whether the error is an authentication or authorization
// failure. These are fatal for a whole run.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether the error is a missing-resource failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient reports whether the error is worth another attempt: server-side
// failures and rate limiting. Validation errors (4xx) are not.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	// Anything below the HTTP layer (timeouts, resets) counts as transient.
	return err != nil
}
