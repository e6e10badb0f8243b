package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seannyti/kfcweb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-32-characters!!"

type mockUserFetcher struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *mockUserFetcher) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func testTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 1*time.Hour, 7*24*time.Hour)
}

func testUser(role models.Role) *models.User {
	return &models.User{
		ID:    "user-123",
		Email: "worker@seannyti.com",
		Role:  role,
	}
}

func runMiddleware(t *testing.T, tm *TokenManager, decorate func(*http.Request)) (*httptest.ResponseRecorder, *models.TokenClaims) {
	t.Helper()

	var captured *models.TokenClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	decorate(req)

	w := httptest.NewRecorder()
	Middleware(tm)(next).ServeHTTP(w, req)
	return w, captured
}

func TestMiddleware_AcceptsBearerToken(t *testing.T) {
	tm := testTokenManager()
	token, err := tm.GenerateAccessToken(testUser(models.RoleUser))
	require.NoError(t, err)

	w, claims := runMiddleware(t, tm, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestMiddleware_AcceptsSessionCookie(t *testing.T) {
	tm := testTokenManager()
	token, err := tm.GenerateAccessToken(testUser(models.RoleAdmin))
	require.NoError(t, err)

	w, claims := runMiddleware(t, tm, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestMiddleware_CookieWinsOverBearerHeader(t *testing.T) {
	tm := testTokenManager()
	cookieToken, err := tm.GenerateAccessToken(testUser(models.RoleUser))
	require.NoError(t, err)

	w, claims := runMiddleware(t, tm, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieToken})
		r.Header.Set("Authorization", "Bearer not-even-a-token")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestMiddleware_MissingToken(t *testing.T) {
	w, _ := runMiddleware(t, testTokenManager(), func(r *http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_GarbageToken(t *testing.T) {
	w, _ := runMiddleware(t, testTokenManager(), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RejectsRefreshTokenForAPIAccess(t *testing.T) {
	tm := testTokenManager()
	refresh, err := tm.GenerateRefreshToken(testUser(models.RoleUser))
	require.NoError(t, err)

	w, _ := runMiddleware(t, tm, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+refresh)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_HierarchyAllowsHigherRole(t *testing.T) {
	repo := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUser(models.RoleSuperAdmin), nil
		},
	}

	nextCalled := false
	handler := RequireRole(repo, models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	ctx := context.WithValue(req.Context(), UserContextKey, &models.TokenClaims{UserID: "user-123"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req.WithContext(ctx))

	assert.True(t, nextCalled)
}

func TestRequireRole_CurrentRoleOverridesTokenRole(t *testing.T) {
	// The token still says Admin but the row was demoted to User.
	repo := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testUser(models.RoleUser), nil
		},
	}

	handler := RequireRole(repo, models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for demoted user")
	}))

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	ctx := context.WithValue(req.Context(), UserContextKey, &models.TokenClaims{
		UserID: "user-123",
		Role:   models.RoleAdmin,
	})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_DeletedUserUnauthorized(t *testing.T) {
	repo := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := RequireRole(repo, models.RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for deleted user")
	}))

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	ctx := context.WithValue(req.Context(), UserContextKey, &models.TokenClaims{UserID: "gone"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_NoClaimsUnauthorized(t *testing.T) {
	repo := &mockUserFetcher{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			t.Fatal("repo should not be queried without claims")
			return nil, nil
		},
	}

	handler := RequireRole(repo, models.RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
