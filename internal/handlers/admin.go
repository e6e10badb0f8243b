package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
)

// AdminServiceInterface defines the privileged user-management operations.
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	GetStats(ctx context.Context) (*services.UserStats, error)
	LockUser(ctx context.Context, actorID, targetID string) error
	UnlockUser(ctx context.Context, actorID, targetID string) error
	DeleteUser(ctx context.Context, actorID, targetID string) error
	ChangeRole(ctx context.Context, actorID, targetID string, newRole models.Role) (*services.UserResponse, error)
	UpdateName(ctx context.Context, actorID, targetID, name string) (*services.UserResponse, error)
	ForceResetPassword(ctx context.Context, actorID, targetID, newPassword string) error
	MarkVerified(ctx context.Context, actorID, targetID string) error
	ActivityLogs(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error)
}

// AdminHandler handles the admin user-management surface.
type AdminHandler struct {
	service AdminServiceInterface
}

func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// ChangeRoleRequest represents the request body for a role change
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UpdateNameRequest represents the request body for renaming a user
type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// ResetPasswordRequest represents the request body for a forced password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// actorID pulls the acting admin's user ID from the request context.
func actorID(r *http.Request) (string, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		return "", false
	}
	return claims.UserID, true
}

// ListUsers returns a page of accounts.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GetStats returns aggregate account counts for the dashboard.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// LockUser applies an admin lock to the target account.
func (h *AdminHandler) LockUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.LockUser(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User account locked"})
}

// UnlockUser clears a lockout and resets the failure counter.
func (h *AdminHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.UnlockUser(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User account unlocked"})
}

// DeleteUser removes an account permanently.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangeRole reassigns the target's role.
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateName renames the target account.
func (h *AdminHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateName(r.Context(), actor, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ResetPassword force-sets a new password on the target account.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ForceResetPassword(r.Context(), actor, chi.URLParam(r, "id"), req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}

// MarkVerified manually flags the target account as email-verified.
func (h *AdminHandler) MarkVerified(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.MarkVerified(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Email marked as verified"})
}

// ActivityLogs returns recent site activity, optionally filtered by type.
func (h *AdminHandler) ActivityLogs(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("type")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.service.ActivityLogs(r.Context(), category, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
