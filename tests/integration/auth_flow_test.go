package integration

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seannyti/kfcweb/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("integration tests require docker, run without -short")
	}
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	requireDB(t)

	server, err := NewTestServer(testDB.DB)
	require.NoError(t, err)
	defer server.Close()

	email, password := TestUser("flow")

	// Register
	resp, err := server.Request("POST", "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     "Flow Tester",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	sent := server.EmailService.GetLastEmail()
	require.NotNil(t, sent, "registration must send a verification email")
	assert.Equal(t, email, sent.To)
	require.NotEmpty(t, sent.Token)

	// Login before verification is rejected
	resp, err = server.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Verify using the emailed token
	resp, err = server.Request("GET", "/auth/verify-email?token="+sent.Token, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Login now succeeds
	resp, err = server.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, refreshToken, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	// Access token works against a protected endpoint
	resp, err = server.RequestWithAuth("GET", "/auth/me", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &me))
	assert.Equal(t, email, me["email"])
}

func TestLockedAccountCannotLogin(t *testing.T) {
	requireDB(t)

	server, err := NewTestServer(testDB.DB)
	require.NoError(t, err)
	defer server.Close()

	ctx := context.Background()
	email, password := TestUser("locked")
	user, err := SeedUser(ctx, testDB.Pool, email, password, models.RoleUser, true)
	require.NoError(t, err)
	require.NoError(t, LockUser(ctx, testDB.Pool, user.ID, time.Now().Add(15*time.Minute)))

	resp, err := server.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Contains(t, msg, "Account is locked")
}

func TestAdminBackupRoundTrip(t *testing.T) {
	requireDB(t)

	server, err := NewTestServer(testDB.DB)
	require.NoError(t, err)
	defer server.Close()

	ctx := context.Background()
	email, password := TestUser("admin")
	_, err = SeedUser(ctx, testDB.Pool, email, password, models.RoleSuperAdmin, true)
	require.NoError(t, err)

	resp, err := server.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	// Create a manual backup
	resp, err = server.RequestWithAuth("POST", "/admin/backups", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Backup
	require.NoError(t, ParseJSONResponse(resp, &created))
	assert.Equal(t, models.BackupStatusCompleted, created.Status)
	assert.Equal(t, models.BackupTypeManual, created.Type)

	// The artifact is downloadable
	resp, err = server.RequestWithAuth("GET", "/admin/backups/"+created.ID+"/download", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// And appears in the listing
	resp, err = server.RequestWithAuth("GET", "/admin/backups", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing map[string][]models.Backup
	require.NoError(t, ParseJSONResponse(resp, &listing))
	require.Len(t, listing["backups"], 1)
	assert.Equal(t, created.ID, listing["backups"][0].ID)
}

func TestRegularUserCannotReachAdminRoutes(t *testing.T) {
	requireDB(t)

	server, err := NewTestServer(testDB.DB)
	require.NoError(t, err)
	defer server.Close()

	ctx := context.Background()
	email, password := TestUser("user")
	_, err = SeedUser(ctx, testDB.Pool, email, password, models.RoleUser, true)
	require.NoError(t, err)

	resp, err := server.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	resp, err = server.RequestWithAuth("GET", "/admin/users", accessToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
