package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pangents/orchestrator/config"
	"github.com/pangents/orchestrator/types"
)

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := SecurityHeaders()(inner)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRequestID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = types.RequestID(r.Context())
		})

		w := httptest.NewRecorder()
		RequestID()(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("client id preserved", func(t *testing.T) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "req-fixed")
		RequestID()(inner).ServeHTTP(w, r)

		assert.Equal(t, "req-fixed", w.Header().Get("X-Request-ID"))
	})
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/v1/workflows", "/v1/workflows"},
		{"/v1/workflows/wf_1a2b3c4d", "/v1/workflows/:id"},
		{"/v1/workflows/wf_1a2b3c4d/run", "/v1/workflows/:id/run"},
		{"/v1/capabilities/carrier_vetting/schema", "/v1/capabilities/carrier_vetting/schema"},
		{"/health", "/health"},
		{"/v1/workflows/123456", "/v1/workflows/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestIdentity_HeaderFallback(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.JWTConfig{Enabled: false}

	var tenantID, userID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ = types.TenantID(r.Context())
		userID, _ = types.UserID(r.Context())
	})

	handler := Identity(cfg, nil, logger)(inner)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
	r.Header.Set("X-Tenant-Id", "acme")
	r.Header.Set("X-User-Id", "u-1")
	handler.ServeHTTP(w, r)

	assert.Equal(t, "acme", tenantID)
	assert.Equal(t, "u-1", userID)
}

func TestIdentity_JWT(t *testing.T) {
	logger := zaptest.NewLogger(t)
	secret := "test-secret"
	cfg := config.JWTConfig{Enabled: true, Secret: secret}

	signToken := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	t.Run("valid token injects identity", func(t *testing.T) {
		var tenantID string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, _ = types.TenantID(r.Context())
		})
		handler := Identity(cfg, nil, logger)(inner)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(jwt.MapClaims{
			"tenant_id": "acme",
			"user_id":   "u-1",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}))
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "acme", tenantID)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		handler := Identity(cfg, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/workflows", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		handler := Identity(cfg, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(jwt.MapClaims{
			"tenant_id": "acme",
			"exp":       time.Now().Add(-time.Hour).Unix(),
		}))
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("skip paths bypass auth", func(t *testing.T) {
		reached := false
		handler := Identity(cfg, []string{"/health"}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.True(t, reached)
	})
}

func TestTenantRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := TenantRateLimiter(ctx, 1, 2, zaptest.NewLogger(t))(inner)

	send := func(tenant string) int {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/invoke", nil)
		if tenant != "" {
			r = r.WithContext(types.WithTenantID(r.Context(), tenant))
		}
		handler.ServeHTTP(w, r)
		return w.Code
	}

	// Burst of 2, then limited.
	assert.Equal(t, http.StatusOK, send("acme"))
	assert.Equal(t, http.StatusOK, send("acme"))
	assert.Equal(t, http.StatusTooManyRequests, send("acme"))

	// A different tenant has its own bucket.
	assert.Equal(t, http.StatusOK, send("globex"))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	Chain(inner, mw("outer"), mw("inner")).ServeHTTP(
		httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
