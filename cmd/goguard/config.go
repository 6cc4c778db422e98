package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	goGuard "github.com/MrEthical07/goGuard"
)

// fileConfig is the YAML shape of the goguard config file. Zero values keep defaults.
type fileConfig struct {
	Cookie struct {
		AccessName    string `yaml:"access_name"`
		RefreshName   string `yaml:"refresh_name"`
		IndicatorName string `yaml:"indicator_name"`
		Domain        string `yaml:"domain"`
		Secure        *bool  `yaml:"secure"`
		SameSite      string `yaml:"same_site"`
	} `yaml:"cookie"`
	Routes struct {
		LoginPath    string   `yaml:"login_path"`
		HomePath     string   `yaml:"home_path"`
		CallbackPath string   `yaml:"callback_path"`
		Protected    []string `yaml:"protected"`
	} `yaml:"routes"`
	Identity struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		ClientKey string        `yaml:"client_key"`
	} `yaml:"identity"`
	Persistence struct {
		Enabled   bool          `yaml:"enabled"`
		RedisAddr string        `yaml:"redis_addr"`
		Prefix    string        `yaml:"prefix"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"persistence"`
	Gate struct {
		Roles        []string `yaml:"roles"`
		SignInReason string   `yaml:"sign_in_reason"`
		RetryReason  string   `yaml:"retry_reason"`
	} `yaml:"gate"`
	Headers struct {
		ContentSecurityPolicy string `yaml:"content_security_policy"`
		FrameOptions          string `yaml:"frame_options"`
		ReferrerPolicy        string `yaml:"referrer_policy"`
	} `yaml:"headers"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
		Latency bool  `yaml:"latency_histograms"`
	} `yaml:"metrics"`
	ProductionMode bool `yaml:"production_mode"`
}

// settings is the resolved CLI configuration.
type settings struct {
	engine    goGuard.Config
	redisAddr string
}

// loadSettings layers defaults, the YAML file, then GOGUARD_* environment variables.
// Command flags are applied by each command afterwards.
func loadSettings(path string) (settings, error) {
	s := settings{engine: goGuard.DefaultConfig()}
	s.engine.Metrics.Enabled = true
	s.engine.Metrics.EnableLatencyHistograms = true

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return s, fmt.Errorf("parse config: %w", err)
		}
		if err := fc.apply(&s); err != nil {
			return s, err
		}
	}

	if err := applyEnv(&s, os.Getenv); err != nil {
		return s, err
	}
	return s, nil
}

func (fc *fileConfig) apply(s *settings) error {
	c := &s.engine

	setString(&c.Cookie.AccessName, fc.Cookie.AccessName)
	setString(&c.Cookie.RefreshName, fc.Cookie.RefreshName)
	setString(&c.Cookie.IndicatorName, fc.Cookie.IndicatorName)
	setString(&c.Cookie.Domain, fc.Cookie.Domain)
	if fc.Cookie.Secure != nil {
		c.Cookie.Secure = *fc.Cookie.Secure
	}
	if fc.Cookie.SameSite != "" {
		mode, err := parseSameSite(fc.Cookie.SameSite)
		if err != nil {
			return err
		}
		c.Cookie.SameSite = mode
	}

	setString(&c.Routes.LoginPath, fc.Routes.LoginPath)
	setString(&c.Routes.HomePath, fc.Routes.HomePath)
	setString(&c.Routes.CallbackPath, fc.Routes.CallbackPath)
	if len(fc.Routes.Protected) > 0 {
		c.Routes.Protected = fc.Routes.Protected
	}

	setString(&c.Identity.BaseURL, fc.Identity.BaseURL)
	if fc.Identity.Timeout > 0 {
		c.Identity.Timeout = fc.Identity.Timeout
	}
	setString(&c.Identity.ClientKey, fc.Identity.ClientKey)

	c.Persistence.Enabled = fc.Persistence.Enabled
	setString(&s.redisAddr, fc.Persistence.RedisAddr)
	setString(&c.Persistence.RedisPrefix, fc.Persistence.Prefix)
	if fc.Persistence.TTL > 0 {
		c.Persistence.TTL = fc.Persistence.TTL
	}

	if len(fc.Gate.Roles) > 0 {
		c.Gate.Roles = fc.Gate.Roles
	}
	setString(&c.Gate.SignInReason, fc.Gate.SignInReason)
	setString(&c.Gate.RetryReason, fc.Gate.RetryReason)

	setString(&c.Headers.ContentSecurityPolicy, fc.Headers.ContentSecurityPolicy)
	setString(&c.Headers.FrameOptions, fc.Headers.FrameOptions)
	setString(&c.Headers.ReferrerPolicy, fc.Headers.ReferrerPolicy)

	if fc.Metrics.Enabled != nil {
		c.Metrics.Enabled = *fc.Metrics.Enabled
	}
	c.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && fc.Metrics.Latency

	c.Security.ProductionMode = fc.ProductionMode
	return nil
}

// applyEnv overlays GOGUARD_* variables. getenv is injected for tests.
func applyEnv(s *settings, getenv func(string) string) error {
	c := &s.engine

	setString(&c.Identity.BaseURL, getenv("GOGUARD_IDENTITY_URL"))
	setString(&c.Routes.LoginPath, getenv("GOGUARD_LOGIN_PATH"))
	setString(&c.Routes.HomePath, getenv("GOGUARD_HOME_PATH"))
	if v := getenv("GOGUARD_PROTECTED"); v != "" {
		c.Routes.Protected = splitList(v)
	}
	if v := getenv("GOGUARD_ROLES"); v != "" {
		c.Gate.Roles = splitList(v)
	}
	if v := getenv("GOGUARD_REDIS_ADDR"); v != "" {
		s.redisAddr = v
		c.Persistence.Enabled = true
	}
	if v := getenv("GOGUARD_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GOGUARD_COOKIE_SECURE: %w", err)
		}
		c.Cookie.Secure = b
	}
	if v := getenv("GOGUARD_PRODUCTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GOGUARD_PRODUCTION: %w", err)
		}
		c.Security.ProductionMode = b
	}
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, fmt.Errorf("unknown same_site %q", v)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
