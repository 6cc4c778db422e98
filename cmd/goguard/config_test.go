package main

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
cookie:
  secure: false
  same_site: strict
routes:
  login_path: /admin/login
  home_path: /admin/dashboard
  protected:
    - /admin/**
identity:
  base_url: http://127.0.0.1:8081
  timeout: 3s
persistence:
  enabled: true
  redis_addr: 127.0.0.1:6379
  ttl: 24h
gate:
  roles: [CLIENT, CONTRACTOR]
  sign_in_reason: Sign in to continue.
metrics:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSettingsFromFile(t *testing.T) {
	s, err := loadSettings(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	c := s.engine
	assert.False(t, c.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.Cookie.SameSite)
	assert.Equal(t, "/admin/login", c.Routes.LoginPath)
	assert.Equal(t, []string{"/admin/**"}, c.Routes.Protected)
	assert.Equal(t, 3*time.Second, c.Identity.Timeout)
	assert.True(t, c.Persistence.Enabled)
	assert.Equal(t, 24*time.Hour, c.Persistence.TTL)
	assert.Equal(t, "127.0.0.1:6379", s.redisAddr)
	assert.Equal(t, []string{"CLIENT", "CONTRACTOR"}, c.Gate.Roles)
	assert.False(t, c.Metrics.Enabled)
	assert.NoError(t, c.Validate())
}

func TestLoadSettingsDefaultsWithoutFile(t *testing.T) {
	s, err := loadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "/login", s.engine.Routes.LoginPath)
	assert.True(t, s.engine.Metrics.Enabled)
}

func TestLoadSettingsErrors(t *testing.T) {
	_, err := loadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadSettings(writeConfig(t, "routes: [not, a, map]"))
	assert.Error(t, err)

	_, err = loadSettings(writeConfig(t, "cookie:\n  same_site: sideways\n"))
	assert.Error(t, err)
}

func TestApplyEnvOverlay(t *testing.T) {
	s, err := loadSettings("")
	require.NoError(t, err)

	env := map[string]string{
		"GOGUARD_IDENTITY_URL":  "https://id.example.com",
		"GOGUARD_PROTECTED":     "/admin/**, /account/*",
		"GOGUARD_ROLES":         "ADMIN",
		"GOGUARD_REDIS_ADDR":    "redis:6379",
		"GOGUARD_COOKIE_SECURE": "false",
		"GOGUARD_PRODUCTION":    "true",
	}
	require.NoError(t, applyEnv(&s, func(k string) string { return env[k] }))

	assert.Equal(t, "https://id.example.com", s.engine.Identity.BaseURL)
	assert.Equal(t, []string{"/admin/**", "/account/*"}, s.engine.Routes.Protected)
	assert.Equal(t, []string{"ADMIN"}, s.engine.Gate.Roles)
	assert.True(t, s.engine.Persistence.Enabled)
	assert.Equal(t, "redis:6379", s.redisAddr)
	assert.False(t, s.engine.Cookie.Secure)
	assert.True(t, s.engine.Security.ProductionMode)

	bad := map[string]string{"GOGUARD_PRODUCTION": "maybe"}
	assert.Error(t, applyEnv(&s, func(k string) string { return bad[k] }))
}
