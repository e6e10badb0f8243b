package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/settings"
)

// maintenanceResponse is the 503 payload served while the API is down for
// maintenance.
type maintenanceResponse struct {
	Error           string `json:"error"`
	Message         string `json:"message"`
	MaintenanceMode bool   `json:"maintenanceMode"`
}

// maintenanceExemptPaths always pass through so admins can authenticate and
// lift maintenance mode, and so health checks keep working.
var maintenanceExemptPaths = []string{
	"/auth/login",
	"/auth/refresh",
	"/health",
}

// Maintenance blocks non-admin traffic with 503 while maintenance mode is on
// and API access is disabled. Mount after the auth middleware so admin
// sessions are visible in the request context.
func Maintenance(settingsClient settings.Client, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.ToLower(r.URL.Path)
			for _, exempt := range maintenanceExemptPaths {
				if strings.Contains(path, exempt) {
					next.ServeHTTP(w, r)
					return
				}
			}

			snapshot := settingsClient.Get(r.Context())
			if !snapshot.MaintenanceMode || snapshot.EnableAPIAccess {
				next.ServeHTTP(w, r)
				return
			}

			if claims := auth.GetUserFromContext(r); claims != nil && claims.Role.IsPrivileged() {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("request blocked during maintenance mode",
				slog.String("path", r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(maintenanceResponse{
				Error:           "Service Unavailable",
				Message:         "The API is currently unavailable due to maintenance. Please try again later.",
				MaintenanceMode: true,
			})
		})
	}
}
