package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
)

// APIKeyServiceInterface defines the machine-credential operations.
type APIKeyServiceInterface interface {
	Create(ctx context.Context, actor *models.User, name string, expiresAt *time.Time) (*services.CreatedAPIKey, error)
	List(ctx context.Context) ([]*models.APIKey, error)
	Toggle(ctx context.Context, actor *models.User, id string) (*models.APIKey, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// UserLookup resolves the acting user for audit attribution.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// APIKeyHandler handles API key management HTTP requests.
type APIKeyHandler struct {
	service APIKeyServiceInterface
	users   UserLookup
}

func NewAPIKeyHandler(service APIKeyServiceInterface, users UserLookup) *APIKeyHandler {
	return &APIKeyHandler{service: service, users: users}
}

// CreateAPIKeyRequest represents the request body for issuing a key
type CreateAPIKeyRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// actor resolves the acting admin from the request context. The returned
// user may be nil when attribution is unavailable; key operations still
// proceed.
func (h *APIKeyHandler) actor(r *http.Request) *models.User {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		return nil
	}
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return nil
	}
	return user
}

// List returns all keys in masked form.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"apiKeys": keys})
}

// Create issues a new key. The plaintext appears in this response only.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), h.actor(r), req.Name, req.ExpiresAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Toggle flips a key between active and revoked.
func (h *APIKeyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.Toggle(r.Context(), h.actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, key)
}

// Delete removes a key permanently.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), h.actor(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
