package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
)

// AuthServiceInterface defines the auth business logic the handler needs.
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, name, clientIP string) (*services.UserResponse, error)
	Login(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*services.UserResponse, error)
}

// VerificationServiceInterface defines the email verification flow.
type VerificationServiceInterface interface {
	Verify(ctx context.Context, token string) error
	Resend(ctx context.Context, email string) error
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	service      AuthServiceInterface
	verification VerificationServiceInterface
	cookieConfig auth.CookieConfig
	ipConfig     *pkghttp.IPConfig
	// sessionCookieMaxAge mirrors the access token lifetime.
	sessionCookieMaxAge int
}

func NewAuthHandler(
	service AuthServiceInterface,
	verification VerificationServiceInterface,
	cookieConfig auth.CookieConfig,
	ipConfig *pkghttp.IPConfig,
	sessionCookieMaxAge int,
) *AuthHandler {
	return &AuthHandler{
		service:             service,
		verification:        verification,
		cookieConfig:        cookieConfig,
		ipConfig:            ipConfig,
		sessionCookieMaxAge: sessionCookieMaxAge,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ResendVerificationRequest represents the request body for resending the
// verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Register handles new account creation. No session is issued; the caller
// must verify their email and then log in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, clientIP)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    user,
	})
}

// Login authenticates a user, sets the session cookie, and returns the
// token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auth.SetSessionCookie(w, authResp.AccessToken, h.sessionCookieMaxAge, h.cookieConfig)
	writeJSON(w, http.StatusOK, authResp)
}

// RefreshToken exchanges a refresh token for a new pair and rotates the
// session cookie.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auth.SetSessionCookie(w, authResp.AccessToken, h.sessionCookieMaxAge, h.cookieConfig)
	writeJSON(w, http.StatusOK, authResp)
}

// Logout clears the session cookie. Tokens are short-lived; there is no
// server-side session to tear down.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// VerifyEmail confirms the account behind an emailed verification link. The
// token arrives as a query parameter because the link is clicked, not
// posted. An already-verified account reads as success to the person
// clicking a stale link twice.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if err := h.verification.Verify(r.Context(), token); err != nil {
		if errors.Is(err, models.ErrAlreadyVerified) {
			writeJSON(w, http.StatusOK, messageResponse{Message: "Email is already verified"})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully. You can now log in."})
}

// ResendVerification issues a fresh verification email.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Verification email sent. Please check your inbox."})
}
