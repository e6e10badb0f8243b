package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/settings"
)

func maintenanceHandler(snapshot settings.Settings) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Maintenance(&settings.StaticClient{Snapshot: snapshot}, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
}

func maintenanceSnapshot() settings.Settings {
	snapshot := settings.Defaults()
	snapshot.MaintenanceMode = true
	snapshot.EnableAPIAccess = false
	return snapshot
}

func TestMaintenance_BlocksAnonymousRequests(t *testing.T) {
	handler := maintenanceHandler(maintenanceSnapshot())

	req := httptest.NewRequest("GET", "/api/users", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", recorder.Code)
	}

	var body struct {
		Message         string `json:"message"`
		MaintenanceMode bool   `json:"maintenanceMode"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "The API is currently unavailable due to maintenance. Please try again later." {
		t.Errorf("unexpected message: %q", body.Message)
	}
	if !body.MaintenanceMode {
		t.Error("expected maintenanceMode to be true")
	}
}

func TestMaintenance_AdminsPassThrough(t *testing.T) {
	handler := maintenanceHandler(maintenanceSnapshot())

	for _, role := range []models.Role{models.RoleAdmin, models.RoleSuperAdmin} {
		claims := &models.TokenClaims{UserID: "admin-1", Type: models.TokenTypeAccess, Role: role}
		req := httptest.NewRequest("GET", "/api/users", nil)
		req = req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Errorf("role %s: expected status 200, got %d", role, recorder.Code)
		}
	}
}

func TestMaintenance_RegularUsersBlocked(t *testing.T) {
	handler := maintenanceHandler(maintenanceSnapshot())

	claims := &models.TokenClaims{UserID: "user-1", Type: models.TokenTypeAccess, Role: models.RoleUser}
	req := httptest.NewRequest("GET", "/api/users", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for a regular user, got %d", recorder.Code)
	}
}

func TestMaintenance_ExemptPaths(t *testing.T) {
	handler := maintenanceHandler(maintenanceSnapshot())

	for _, path := range []string{"/auth/login", "/auth/refresh", "/health"} {
		req := httptest.NewRequest("POST", path, nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Errorf("path %s: expected status 200, got %d", path, recorder.Code)
		}
	}
}

func TestMaintenance_OffLetsEveryoneThrough(t *testing.T) {
	handler := maintenanceHandler(settings.Defaults())

	req := httptest.NewRequest("GET", "/api/users", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200 when maintenance is off, got %d", recorder.Code)
	}
}

func TestMaintenance_APIAccessOverride(t *testing.T) {
	snapshot := settings.Defaults()
	snapshot.MaintenanceMode = true
	snapshot.EnableAPIAccess = true

	handler := maintenanceHandler(snapshot)

	req := httptest.NewRequest("GET", "/api/users", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200 when API access stays enabled, got %d", recorder.Code)
	}
}
