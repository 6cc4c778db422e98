package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/gate"
)

func TestEdgeRouter(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "upstream:"+r.URL.Path)
	}))
	t.Cleanup(upstream.Close)
	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	cfg := goGuard.DefaultConfig()
	cfg.Routes.LoginPath = "/admin/login"
	cfg.Routes.HomePath = "/admin/dashboard"
	cfg.Routes.Protected = []string{"/admin/**"}
	cfg.Metrics.Enabled = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, cleanup, err := buildEngine(settings{engine: cfg}, logger, gate.NoOpSink{})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	edge := httptest.NewServer(newEdgeRouter(engine, target))
	t.Cleanup(edge.Close)

	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	get := func(path string, session bool) *http.Response {
		req, err := http.NewRequest(http.MethodGet, edge.URL+path, nil)
		require.NoError(t, err)
		if session {
			req.AddCookie(&http.Cookie{Name: engine.CookieNames().Indicator, Value: "1"})
		}
		resp, err := hc.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/healthz", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get("/admin/users", false)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/login?from=%2Fadmin%2Fusers", resp.Header.Get("Location"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = get("/admin/users", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "upstream:/admin/users", string(body))

	resp = get("/metrics", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "goguard_guard_redirect_login_total 1"), string(body))
}

func TestBuildEngineStartsMiniredisForPersistence(t *testing.T) {
	cfg := goGuard.DefaultConfig()
	cfg.Persistence.Enabled = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, cleanup, err := buildEngine(settings{engine: cfg}, logger, nil)
	require.NoError(t, err)
	cleanup()
	assert.NotNil(t, engine)
}
