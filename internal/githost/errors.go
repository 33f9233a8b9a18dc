package githost

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// APIError is a non-2xx response from the hosting API. It carries the HTTP
// status code and response body so a task result can record exactly what
// the host rejected.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError unwraps err to an *APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a hosting-API 404.
func IsNotFound(err error) bool {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsConflict reports whether err is a stale-SHA or already-exists rejection
// (409 or 422).
func IsConflict(err error) bool {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusConflict ||
			apiErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// wrapErr converts a go-github error into an *APIError. A nil err passes
// through unchanged.
func wrapErr(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	apiErr := &APIError{Op: op, Err: err}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		if ghErr.Response != nil {
			apiErr.StatusCode = ghErr.Response.StatusCode
		}
		apiErr.Body = ghErr.Message
	} else if resp != nil && resp.Response != nil {
		apiErr.StatusCode = resp.Response.StatusCode
		apiErr.Body = resp.Status
	}
	if apiErr.Body == "" {
		apiErr.Body = err.Error()
	}
	return apiErr
}
