package router

import (
	"errors"
	"net/http"

	"github.com/aelexs/cognitolocal/internal/domain"
)

// wireError is the JSON error body: {"__type": "...", "message": "..."}.
type wireError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// statusMapping pairs a domain sentinel with its HTTP status.
type statusMapping struct {
	err    error
	status int
}

// statusMappings maps domain errors to HTTP statuses. First match wins
// (via errors.Is).
var statusMappings = []statusMapping{
	{domain.ErrResourceNotFound, http.StatusBadRequest},
	{domain.ErrUserNotFound, http.StatusBadRequest},
	{domain.ErrUsernameExists, http.StatusBadRequest},
	{domain.ErrNotAuthorized, http.StatusBadRequest},
	{domain.ErrInvalidPassword, http.StatusBadRequest},
	{domain.ErrPasswordResetRequired, http.StatusBadRequest},
	{domain.ErrCodeMismatch, http.StatusBadRequest},
	{domain.ErrInvalidParameter, http.StatusBadRequest},
	{domain.ErrUserLambdaValidation, http.StatusBadRequest},

	{domain.ErrUnsupported, http.StatusInternalServerError},
	{domain.ErrUnexpectedLambdaException, http.StatusInternalServerError},
	{domain.ErrInvalidLambdaResponse, http.StatusInternalServerError},
}

// translate converts an operation error into an HTTP status and wire
// body. Errors outside the domain taxonomy never leak their details.
func translate(err error) (int, wireError) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		for _, m := range statusMappings {
			if errors.Is(err, m.err) {
				return m.status, wireError{Type: apiErr.Name, Message: apiErr.Message}
			}
		}
	}
	return http.StatusInternalServerError, wireError{
		Type:    "InternalFailure",
		Message: "Internal server error",
	}
}
