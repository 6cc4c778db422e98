package goGuard

import (
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/guard"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "protected glob valid",
			mutate:    func(c *Config) { c.Routes.Protected = []string{"/admin/**", "/account/*"} },
			wantValid: true,
		},
		{
			name:      "protected glob malformed",
			mutate:    func(c *Config) { c.Routes.Protected = []string{"/admin/[**"} },
			wantValid: false,
		},
		{
			name:      "login equals home",
			mutate:    func(c *Config) { c.Routes.HomePath = "/login" },
			wantValid: false,
		},
		{
			name:      "cookie names blank",
			mutate:    func(c *Config) { c.Cookie.IndicatorName = "  " },
			wantValid: false,
		},
		{
			name:      "cookie names duplicated",
			mutate:    func(c *Config) { c.Cookie.RefreshName = c.Cookie.AccessName },
			wantValid: false,
		},
		{
			name: "samesite none without secure",
			mutate: func(c *Config) {
				c.Cookie.Secure = false
				c.Cookie.SameSite = http.SameSiteNoneMode
			},
			wantValid: false,
		},
		{
			name:      "cookie path relative",
			mutate:    func(c *Config) { c.Cookie.Path = "app" },
			wantValid: false,
		},
		{
			name:      "callback path relative",
			mutate:    func(c *Config) { c.Routes.CallbackPath = "auth/callback" },
			wantValid: false,
		},
		{
			name:      "identity base url valid",
			mutate:    func(c *Config) { c.Identity.BaseURL = "https://id.example.com" },
			wantValid: true,
		},
		{
			name:      "identity base url without scheme",
			mutate:    func(c *Config) { c.Identity.BaseURL = "id.example.com" },
			wantValid: false,
		},
		{
			name:      "identity timeout zero",
			mutate:    func(c *Config) { c.Identity.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "identity client key blank",
			mutate:    func(c *Config) { c.Identity.ClientKey = "" },
			wantValid: false,
		},
		{
			name: "persistence prefix blank",
			mutate: func(c *Config) {
				c.Persistence.Enabled = true
				c.Persistence.RedisPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "persistence ttl negative",
			mutate: func(c *Config) {
				c.Persistence.Enabled = true
				c.Persistence.TTL = -time.Second
			},
			wantValid: false,
		},
		{
			name:      "prompt buffer zero",
			mutate:    func(c *Config) { c.Gate.PromptBufferSize = 0 },
			wantValid: false,
		},
		{
			name:      "gate roles duplicated",
			mutate:    func(c *Config) { c.Gate.Roles = []string{"CLIENT", "CLIENT"} },
			wantValid: false,
		},
		{
			name:      "gate roles blank",
			mutate:    func(c *Config) { c.Gate.Roles = []string{""} },
			wantValid: false,
		},
		{
			name:      "frame options invalid",
			mutate:    func(c *Config) { c.Headers.FrameOptions = "ALLOWALL" },
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestConfigValidateWrapsRuleErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Routes.LoginPath = "login"
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, guard.ErrInvalidRules) {
		t.Fatalf("expected both sentinels, got %v", err)
	}
}

func TestProductionModeHardening(t *testing.T) {
	base := func() Config {
		cfg := defaultConfig()
		cfg.Security.ProductionMode = true
		cfg.Identity.BaseURL = "https://id.example.com"
		return cfg
	}

	if cfg := base(); cfg.Validate() != nil {
		t.Fatalf("hardened config should validate: %v", cfg.Validate())
	}

	mutations := map[string]func(*Config){
		"insecure cookies": func(c *Config) { c.Cookie.Secure = false },
		"no csp":           func(c *Config) { c.Headers.ContentSecurityPolicy = "" },
		"no frame options": func(c *Config) { c.Headers.FrameOptions = "" },
		"http identity":    func(c *Config) { c.Identity.BaseURL = "http://id.example.com" },
	}
	for name, mutate := range mutations {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := defaultConfig()
	cfg.Routes.Protected = []string{"/admin/**"}
	cfg.Gate.Roles = []string{"CLIENT"}

	out := cloneConfig(cfg)
	out.Routes.Protected[0] = "/other/**"
	out.Gate.Roles[0] = "ADMIN"

	if cfg.Routes.Protected[0] != "/admin/**" || cfg.Gate.Roles[0] != "CLIENT" {
		t.Fatal("clone shares slices with the original")
	}
}

func TestLintDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	codes := cfg.Lint().Codes()

	for _, want := range []string{"nothing_protected", "identity_unset"} {
		if !slices.Contains(codes, want) {
			t.Errorf("expected %s warning, got %v", want, codes)
		}
	}
	for _, unwanted := range []string{"cookies_insecure", "csp_missing"} {
		if slices.Contains(codes, unwanted) {
			t.Errorf("default config should not produce %s", unwanted)
		}
	}
}

func TestLintWarnings(t *testing.T) {
	tests := []struct {
		code   string
		mutate func(*Config)
	}{
		{"cookies_insecure", func(c *Config) { c.Cookie.Secure = false }},
		{"csp_missing", func(c *Config) { c.Headers.ContentSecurityPolicy = "" }},
		{"persistence_no_ttl", func(c *Config) {
			c.Persistence.Enabled = true
			c.Persistence.TTL = 0
		}},
		{"identity_timeout_long", func(c *Config) { c.Identity.Timeout = time.Minute }},
	}
	for _, tc := range tests {
		cfg := defaultConfig()
		tc.mutate(&cfg)
		if !slices.Contains(cfg.Lint().Codes(), tc.code) {
			t.Errorf("expected %s warning", tc.code)
		}
	}
}

func TestLintConfiguredEngineIsQuiet(t *testing.T) {
	cfg := defaultConfig()
	cfg.Identity.BaseURL = "https://id.example.com"
	cfg.Routes.Protected = []string{"/admin/**"}
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}
