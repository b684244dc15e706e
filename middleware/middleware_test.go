package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth() *AdminAuth {
	a := NewAdminAuth("Me@Example.com", "/sign-in", zerolog.Nop())
	a.Verify = func(ctx context.Context, token string) (string, error) {
		switch token {
		case "admin-token":
			return "user_admin", nil
		case "other-token":
			return "user_other", nil
		}
		return "", errors.New("bad token")
	}
	a.LookupEmail = func(ctx context.Context, clerkID string) ([]string, error) {
		if clerkID == "user_admin" {
			return []string{"alt@example.com", "me@example.com"}, nil
		}
		return []string{"someone@example.com"}, nil
	}
	return a
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if IsAdmin(r.Context()) {
		w.Header().Set("X-Admin", "yes")
	}
	w.WriteHeader(http.StatusOK)
})

func TestRequireAdmin(t *testing.T) {
	h := newTestAuth().RequireAdmin(okHandler)

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantLoc  string
	}{
		{
			name:     "admin bearer token",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin-token") },
			wantCode: http.StatusOK,
		},
		{
			name: "admin session cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "__session", Value: "admin-token"})
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "other user",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer other-token") },
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no token api client",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "malformed header",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "admin-token") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no token browser",
			setup:    func(r *http.Request) { r.Header.Set("Accept", "text/html,application/xhtml+xml") },
			wantCode: http.StatusFound,
			wantLoc:  "/sign-in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "yes", rec.Header().Get("X-Admin"))
			}
		})
	}
}

func TestOptionalAdmin(t *testing.T) {
	h := newTestAuth().OptionalAdmin(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/dsa", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Admin"))

	req = httptest.NewRequest(http.MethodGet, "/dsa", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "yes", rec.Header().Get("X-Admin"))

	req = httptest.NewRequest(http.MethodGet, "/dsa", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Admin"))
}

func TestOptionalAdmin_ChecksSessionOnlyWhenAsked(t *testing.T) {
	a := newTestAuth()
	var verifies, lookups int
	verify, lookup := a.Verify, a.LookupEmail
	a.Verify = func(ctx context.Context, token string) (string, error) {
		verifies++
		return verify(ctx, token)
	}
	a.LookupEmail = func(ctx context.Context, clerkID string) ([]string, error) {
		lookups++
		return lookup(ctx, clerkID)
	}

	browse := a.OptionalAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/dsa", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: "admin-token"})
	rec := httptest.NewRecorder()
	browse.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, verifies)
	assert.Zero(t, lookups)

	var clerkID string
	syncing := a.OptionalAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, IsAdmin(r.Context()))
		assert.True(t, IsAdmin(r.Context()))
		clerkID, _ = GetClerkID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req = httptest.NewRequest(http.MethodGet, "/dsa?sync=true", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: "admin-token"})
	syncing.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, verifies)
	assert.Equal(t, 1, lookups)
	assert.Equal(t, "user_admin", clerkID)
}

func TestDisabledAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	DisabledAdmin(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMonitor_UsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(reg)

	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/dsa/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dsa/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/dsa/{id}", "GET", "403")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authRejections.WithLabelValues("403_forbidden")))
}

func TestBasicAuth(t *testing.T) {
	h := BasicAuth("prom", "secret")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	locked := BasicAuth("", "")(okHandler)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rec = httptest.NewRecorder()
	locked.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, nil)
	h := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := range 3 {
		req := httptest.NewRequest(http.MethodGet, "/dsa", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/dsa", nil)
	req.RemoteAddr = "198.51.100.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rl.evict(0)
	rl.mu.Lock()
	require.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiter_ClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("127.0.0.1/32")}
	rl := NewRateLimiter(1, 1, trusted)

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "direct client", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted peer spoofing header", remoteAddr: "203.0.113.7:5000", forwarded: "192.0.2.1", want: "203.0.113.7"},
		{name: "trusted proxy", remoteAddr: "10.0.0.5:80", forwarded: "198.51.100.9", want: "198.51.100.9"},
		{name: "client prepends fake hop", remoteAddr: "10.0.0.5:80", forwarded: "192.0.2.1, 198.51.100.9", want: "198.51.100.9"},
		{name: "proxy chain", remoteAddr: "127.0.0.1:80", forwarded: "198.51.100.9, 10.1.2.3", want: "198.51.100.9"},
		{name: "trusted proxy without header", remoteAddr: "10.0.0.5:80", want: "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dsa", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}
