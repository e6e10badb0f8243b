package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client fetches the current settings snapshot. Implementations never fail
// the caller: on any error they return Defaults().
type Client interface {
	Get(ctx context.Context) Settings
}

// HTTPClient is a read-through client for the settings API. No caching: each
// call hits the remote endpoint so enforcement always sees current policy.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a settings client. The timeout bounds the whole
// fetch; a timed-out fetch degrades to defaults rather than failing the
// calling request.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Get returns the current settings snapshot, or safe defaults if the
// settings API is unreachable or returns garbage.
func (c *HTTPClient) Get(ctx context.Context) Settings {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/settings/all", nil)
	if err != nil {
		c.logger.Error("failed to build settings request", slog.Any("error", err))
		return Defaults()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("settings fetch failed, using defaults", slog.Any("error", err))
		return Defaults()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("settings fetch returned non-200, using defaults",
			slog.Int("status", resp.StatusCode))
		return Defaults()
	}

	snapshot := Defaults()
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		c.logger.Warn("failed to decode settings response, using defaults", slog.Any("error", err))
		return Defaults()
	}

	return snapshot
}

// StaticClient serves a fixed snapshot. Used in tests and as an escape hatch
// when running without the settings API.
type StaticClient struct {
	Snapshot Settings
}

func (c *StaticClient) Get(ctx context.Context) Settings {
	return c.Snapshot
}

var _ Client = (*HTTPClient)(nil)
var _ Client = (*StaticClient)(nil)

// String implements fmt.Stringer for debug logging without leaking the
// whitelist contents.
func (s Settings) String() string {
	return fmt.Sprintf("settings{registration=%t maxAttempts=%d whitelist=%t maintenance=%t}",
		s.AllowRegistration, s.MaxLoginAttempts, s.EnableIPWhitelist, s.MaintenanceMode)
}
