package goGuard

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/cookie"
	"github.com/MrEthical07/goGuard/guard"
)

// Config is the full engine configuration. Obtain one from [DefaultConfig], adjust it,
// and pass it to [Builder.WithConfig]. It is copied at build time.
type Config struct {
	Cookie      CookieConfig
	Routes      RoutesConfig
	Identity    IdentityConfig
	Persistence PersistenceConfig
	Gate        GateConfig
	Headers     HeadersConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig is the cookie-name contract with the identity service plus the
// attributes used when clearing cookies.
type CookieConfig struct {
	AccessName    string
	RefreshName   string
	IndicatorName string
	Path          string
	Domain        string
	Secure        bool
	SameSite      http.SameSite
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig drives the route guard and the sign-in callback.
type RoutesConfig struct {
	LoginPath    string
	HomePath     string
	CallbackPath string
	// Protected holds glob patterns such as "/admin/**".
	Protected []string
}

/*
====================================
IDENTITY CONFIG
====================================
*/

// IdentityConfig locates the identity service. An empty BaseURL builds an engine that
// can guard routes but cannot fetch identities.
type IdentityConfig struct {
	BaseURL string
	Timeout time.Duration
	// ClientKey names this client's persisted profile.
	ClientKey string
}

/*
====================================
PERSISTENCE CONFIG
====================================
*/

// PersistenceConfig controls profile persistence in Redis. Tokens are never persisted.
type PersistenceConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig configures protected action gates built by [Engine.NewGate].
type GateConfig struct {
	// Roles is the closed set of role names gates may require.
	Roles        []string
	SignInReason string
	RetryReason  string
	// PromptBufferSize and DropIfFull configure asynchronous prompt delivery.
	PromptBufferSize int
	DropIfFull       bool
}

/*
====================================
HEADERS CONFIG
====================================
*/

// HeadersConfig holds the security headers written on every guarded response.
type HeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds deployment-level switches.
type SecurityConfig struct {
	// ProductionMode rejects configurations that are only acceptable in development.
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development-friendly configuration: default cookie names,
// /login and / as login and home, nothing protected, persistence off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cookie: CookieConfig{
			AccessName:    cookie.DefaultAccessName,
			RefreshName:   cookie.DefaultRefreshName,
			IndicatorName: cookie.DefaultIndicatorName,
			Path:          "/",
			Secure:        true,
			SameSite:      http.SameSiteLaxMode,
		},
		Routes: RoutesConfig{
			LoginPath:    "/login",
			HomePath:     "/",
			CallbackPath: "/auth/callback",
		},
		Identity: IdentityConfig{
			Timeout:   10 * time.Second,
			ClientKey: "default",
		},
		Persistence: PersistenceConfig{
			Enabled:     false,
			RedisPrefix: "gg",
			TTL:         7 * 24 * time.Hour,
		},
		Gate: GateConfig{
			PromptBufferSize: 64,
			DropIfFull:       true,
		},
		Headers: HeadersConfig{
			ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none'",
			FrameOptions:          "DENY",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.Protected = slices.Clone(cfg.Routes.Protected)
	out.Gate.Roles = slices.Clone(cfg.Gate.Roles)
	return out
}

func (c *Config) names() cookie.Names {
	return cookie.Names{
		Access:    c.Cookie.AccessName,
		Refresh:   c.Cookie.RefreshName,
		Indicator: c.Cookie.IndicatorName,
	}
}

func (c *Config) policy() cookie.Policy {
	return cookie.Policy{
		Path:     c.Cookie.Path,
		Domain:   c.Cookie.Domain,
		Secure:   c.Cookie.Secure,
		SameSite: c.Cookie.SameSite,
	}
}

func (c *Config) rules() guard.Rules {
	return guard.Rules{
		LoginPath: c.Routes.LoginPath,
		HomePath:  c.Routes.HomePath,
		Protected: slices.Clone(c.Routes.Protected),
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Cookie
	names := c.names()
	seen := make(map[string]struct{}, 3)
	for _, n := range names.All() {
		if strings.TrimSpace(n) == "" {
			return errors.New("Cookie names must not be empty")
		}
		if _, dup := seen[n]; dup {
			return errors.New("Cookie names must be distinct")
		}
		seen[n] = struct{}{}
	}
	if c.Cookie.Path != "" && !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with /")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Routes
	if err := c.rules().Validate(); err != nil {
		return err
	}
	if c.Routes.CallbackPath != "" && !strings.HasPrefix(c.Routes.CallbackPath, "/") {
		return errors.New("Routes CallbackPath must start with /")
	}

	// Identity
	if c.Identity.BaseURL != "" {
		u, err := url.Parse(c.Identity.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("Identity BaseURL must be an absolute http(s) URL")
		}
	}
	if c.Identity.Timeout <= 0 {
		return errors.New("Identity Timeout must be > 0")
	}
	if strings.TrimSpace(c.Identity.ClientKey) == "" {
		return errors.New("Identity ClientKey must not be empty")
	}

	// Persistence
	if c.Persistence.Enabled {
		if strings.TrimSpace(c.Persistence.RedisPrefix) == "" {
			return errors.New("Persistence RedisPrefix must not be empty")
		}
		if c.Persistence.TTL < 0 {
			return errors.New("Persistence TTL must be >= 0")
		}
	}

	// Gate
	if c.Gate.PromptBufferSize <= 0 {
		return errors.New("Gate PromptBufferSize must be > 0")
	}
	roles := make(map[string]struct{}, len(c.Gate.Roles))
	for _, r := range c.Gate.Roles {
		if strings.TrimSpace(r) == "" {
			return errors.New("Gate Roles must not contain empty names")
		}
		if _, dup := roles[r]; dup {
			return errors.New("Gate Roles must be distinct")
		}
		roles[r] = struct{}{}
	}

	// Headers
	if c.Headers.FrameOptions != "" && c.Headers.FrameOptions != "DENY" && c.Headers.FrameOptions != "SAMEORIGIN" {
		return errors.New("Headers FrameOptions must be DENY or SAMEORIGIN")
	}

	if c.Security.ProductionMode {
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires Secure cookies")
		}
		if c.Headers.ContentSecurityPolicy == "" {
			return errors.New("ProductionMode requires a Content-Security-Policy")
		}
		if c.Headers.FrameOptions == "" {
			return errors.New("ProductionMode requires X-Frame-Options")
		}
		if u, err := url.Parse(c.Identity.BaseURL); err == nil && u.Scheme == "http" {
			return errors.New("ProductionMode requires an https Identity BaseURL")
		}
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a configuration smell that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports configurations that validate but weaken the session model.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if !c.Cookie.Secure {
		add("cookies_insecure", "session cookies are cleared without the Secure attribute")
	}
	if len(c.Routes.Protected) == 0 {
		add("nothing_protected", "no protected route patterns are configured")
	}
	if c.Headers.ContentSecurityPolicy == "" {
		add("csp_missing", "no Content-Security-Policy is sent")
	}
	if c.Persistence.Enabled && c.Persistence.TTL == 0 {
		add("persistence_no_ttl", "persisted profiles never expire")
	}
	if c.Identity.BaseURL == "" {
		add("identity_unset", "engine cannot fetch identities; gates will always prompt")
	}
	if c.Identity.Timeout > 30*time.Second {
		add("identity_timeout_long", "identity fetch timeout exceeds 30s")
	}
	return ws
}
