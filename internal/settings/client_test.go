package settings

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settings/all", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"allowRegistration":false,"maxLoginAttempts":3,"minPasswordLength":12}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 2*time.Second, slog.Default())
	snapshot := client.Get(context.Background())

	assert.False(t, snapshot.AllowRegistration)
	assert.Equal(t, 3, snapshot.MaxLoginAttempts)
	assert.Equal(t, 12, snapshot.MinPasswordLength)
	// Fields absent from the response keep their default values.
	assert.True(t, snapshot.RequireUppercase)
}

func TestHTTPClient_Get_ServerErrorFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 2*time.Second, slog.Default())
	assert.Equal(t, Defaults(), client.Get(context.Background()))
}

func TestHTTPClient_Get_UnreachableFallsBackToDefaults(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond, slog.Default())
	assert.Equal(t, Defaults(), client.Get(context.Background()))
}

func TestHTTPClient_Get_MalformedBodyFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"allowRegistration":`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 2*time.Second, slog.Default())
	assert.Equal(t, Defaults(), client.Get(context.Background()))
}

func TestSettings_IPAllowed(t *testing.T) {
	disabled := Settings{EnableIPWhitelist: false}
	assert.True(t, disabled.IPAllowed("10.0.0.2"))

	enabled := Settings{EnableIPWhitelist: true, WhitelistedIPs: "10.0.0.1, 192.168.1.5"}
	assert.True(t, enabled.IPAllowed("10.0.0.1"))
	assert.True(t, enabled.IPAllowed("192.168.1.5"))
	assert.False(t, enabled.IPAllowed("10.0.0.2"))
	assert.False(t, enabled.IPAllowed(""))

	emptyList := Settings{EnableIPWhitelist: true, WhitelistedIPs: "  "}
	assert.True(t, emptyList.IPAllowed("10.0.0.2"))
}

func TestSettings_PasswordPolicy(t *testing.T) {
	snapshot := Settings{MinPasswordLength: 10, RequireNumbers: true}
	policy := snapshot.PasswordPolicy()
	assert.Equal(t, 10, policy.MinLength)
	assert.True(t, policy.RequireNumbers)
	assert.False(t, policy.RequireUppercase)
}
