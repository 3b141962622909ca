package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// MinErrorStatusCode is the minimum HTTP status code considered an error.
	MinErrorStatusCode = 400

	// maxBodySnippet caps how much of an upstream error body is retained.
	maxBodySnippet = 200
)

// HTTPError represents an HTTP API error response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// ParseHTTPError parses an HTTP error response into a structured error.
// It reads the response body, truncates it, and attempts to extract a
// human-readable message from common JSON error shapes.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    fmt.Sprintf("failed to read error response body: %v", err),
		}
	}

	bodyStr := Truncate(string(bodyBytes), maxBodySnippet)

	var jsonErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(bodyBytes, &jsonErr) == nil {
		msg := jsonErr.Error
		if msg == "" {
			msg = jsonErr.Message
		}
		if msg != "" {
			return &HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       bodyStr,
				Message:    msg,
			}
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       bodyStr,
		Message:    bodyStr,
	}
}

// IsHTTPError checks if an error is an HTTPError.
func IsHTTPError(err error) bool {
	_, ok := err.(*HTTPError)
	return ok
}

// GetHTTPStatusCode extracts the HTTP status code from an error if it's an HTTPError.
func GetHTTPStatusCode(err error) (int, bool) {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// Truncate shortens s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
