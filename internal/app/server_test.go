package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
)

func startTestServer(t *testing.T, rateMax int) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zap.NewNop()))

	hasher := auth.NewHasher([]byte("pepper"))
	catalogFile := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(catalogFile,
		[]byte(`[{"name":"Foam Roller","category":"EQ","price":"15.00","stock":3}]`), 0o600))

	be, err := openMemory(ctx, zap.NewNop(), DevConfig{
		CatalogFile: catalogFile,
		APIKey:      "key-1",
		UserID:      "u1",
	}, hasher)
	require.NoError(t, err)

	cfg := &Config{
		RateLimit: RateLimitConfig{Max: rateMax, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
	srv, err := newServer(ctx, cfg, be, hasher, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	srv.start(ctx)
	t.Cleanup(func() {
		cancel()
		srv.health.Stop()
		be.close()
	})
	return srv.handler
}

func serve(h http.Handler, method, path string, prepare func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if prepare != nil {
		prepare(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func withKey(r *http.Request) { r.Header.Set("api_key", "key-1") }

func TestServer_Probes(t *testing.T) {
	h := startTestServer(t, 100)

	w := serve(h, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_API(t *testing.T) {
	h := startTestServer(t, 100)

	w := serve(h, http.MethodGet, "/api/products/", withKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"Foam Roller"`)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))

	w = serve(h, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodOptions, "/api/cart/items/1", func(r *http.Request) {
		r.Header.Set("Origin", "https://app.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "api_key")
}

func TestServer_RateLimit(t *testing.T) {
	h := startTestServer(t, 2)

	for range 2 {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/cart", withKey).Code)
	}
	w := serve(h, http.MethodGet, "/api/cart", withKey)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Request was throttled."}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other callers have their own bucket.
	w = serve(h, http.MethodGet, "/livez", func(r *http.Request) { r.RemoteAddr = "203.0.113.7:5000" })
	assert.Equal(t, http.StatusOK, w.Code)
}
