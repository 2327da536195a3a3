// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Sentinel errors for the domain layer, re-exported for handler code.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrConflict     = shared.ErrConflict
	ErrValidation   = shared.ErrValidation
	ErrForbidden    = shared.ErrForbidden
	ErrUnauthorized = shared.ErrUnauthorized
	ErrUpstream     = shared.ErrUpstream
)

// StatusFor returns the HTTP status and problem title for err.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway, "Upstream Error"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Errors outside the taxonomy are logged and reported without detail.
func RespondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, title := StatusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("unhandled error", zap.Error(err))
		}
		Problem(w, status, title, "")
		return
	}
	Problem(w, status, title, shared.UserSafeMessage(err))
}
