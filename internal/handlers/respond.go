package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seannyti/kfcweb/internal/models"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
)

// writeJSON writes a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// messageResponse is the body for operations that return only a message.
type messageResponse struct {
	Message string `json:"message"`
}

// writeServiceError maps a service error onto the HTTP response. Service
// errors carry user-facing messages; anything unmapped collapses to a
// generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrAlreadyVerified):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrAccountLocked),
		errors.Is(err, models.ErrEmailNotVerified):
		pkghttp.WriteUnauthorized(w, err.Error())
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, err.Error())
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrBackupFileMissing):
		pkghttp.WriteNotFound(w, err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
