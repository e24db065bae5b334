package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/escrow-admin/internal/auth"
	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/server/middleware"
)

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// contextHandler captures context values set by middleware.
type contextHandler struct {
	actorID uuid.UUID
	origin  domain.Origin
	called  bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.actorID, _ = middleware.ActorIDFromContext(r.Context())
	h.origin = middleware.OriginFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func withActor(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithActorID(r.Context(), id))
}

type mockGuard struct {
	requirePermissionFunc func(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error)
}

func (m *mockGuard) RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error) {
	return m.requirePermissionFunc(ctx, actorID, perm)
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestActorIDFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		got, ok := middleware.ActorIDFromContext(middleware.WithActorID(context.Background(), want))

		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		got, ok := middleware.ActorIDFromContext(context.Background())

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), middleware.ContextKeyActorID, "not-a-uuid")
		got, ok := middleware.ActorIDFromContext(ctx)

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, got)
	})
}

// ===========================================================================
// 2. Origin middleware
// ===========================================================================

func TestOrigin_CapturesAddressAndUserAgent(t *testing.T) {
	t.Parallel()

	capture := &contextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("User-Agent", "admin-console/2.1")
	rec := httptest.NewRecorder()

	middleware.Origin()(capture).ServeHTTP(rec, req)

	require.True(t, capture.called)
	assert.Equal(t, domain.Origin{IPAddress: "203.0.113.7", UserAgent: "admin-console/2.1"}, capture.origin)
}

func TestOrigin_KeepsAddressWithoutPort(t *testing.T) {
	t.Parallel()

	capture := &contextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "2001:db8::1"

	middleware.Origin()(capture).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "2001:db8::1", capture.origin.IPAddress)
}

// ===========================================================================
// 3. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoActorInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	actorID := uuid.New()
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), actorID))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), actorID))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerActor(t *testing.T) {
	t.Parallel()

	actorA, actorB := uuid.New(), uuid.New()
	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), actorA))
	require.Equal(t, http.StatusOK, recA.Code)

	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), actorA))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), actorB))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1"))
	assert.Equal(t, http.StatusOK, send("192.0.2.2"))
}

// ===========================================================================
// 4. Auth middleware
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	actorID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, actorID, 15*time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	req := httptest.NewRequest(http.MethodPatch, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(capture).ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actorID, capture.actorID)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	expired, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), -time.Second)
	require.NoError(t, err)
	foreign, err := auth.IssueAccessToken("wrong-secret", uuid.New(), time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no credentials", ""},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(capture).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, capture.called)
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), 15*time.Minute)
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer ", "bearer ", "BEARER "} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Authorization", scheme+token)
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

		assert.Equalf(t, http.StatusOK, rec.Code, "scheme %q", scheme)
	}
}

func TestAuth_QueryTokenOnlyForGet(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), 15*time.Minute)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/audit?access_token="+token, http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/x?access_token="+token, http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ===========================================================================
// 5. RequirePermission middleware
// ===========================================================================

func TestRequirePermission(t *testing.T) {
	t.Parallel()

	allowed := uuid.New()
	guard := &mockGuard{
		requirePermissionFunc: func(_ context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error) {
			assert.Equal(t, domain.PermViewAuditLogs, perm)
			if actorID == allowed {
				return domain.Actor{ID: actorID, Role: domain.RoleModerator}, nil
			}
			return domain.Actor{}, domain.ErrForbidden
		},
	}
	handler := middleware.RequirePermission(guard, domain.PermViewAuditLogs)(okHandler)

	t.Run("no actor", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.New()))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "insufficient permissions")
	})

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/", http.NoBody), allowed))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
