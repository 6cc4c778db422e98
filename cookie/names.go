package cookie

import (
	"net/http"
	"time"
)

const (
	// DefaultAccessName is the HTTP-only access token cookie.
	DefaultAccessName = "access_token"
	// DefaultRefreshName is the HTTP-only refresh token cookie.
	DefaultRefreshName = "refresh_token"
	// DefaultIndicatorName is the readable cookie the route guard keys on.
	DefaultIndicatorName = "session_present"
)

// Names is the cookie-name contract shared by the backend, the route guard and the
// client. Changing one side without the other silently logs everybody out.
type Names struct {
	Access    string
	Refresh   string
	Indicator string
}

// DefaultNames returns the default cookie names.
func DefaultNames() Names {
	return Names{
		Access:    DefaultAccessName,
		Refresh:   DefaultRefreshName,
		Indicator: DefaultIndicatorName,
	}
}

// All returns every session cookie name in clear order.
func (n Names) All() []string {
	return []string{n.Access, n.Refresh, n.Indicator}
}

// Policy carries the attributes session cookies are written with. Deletion only works
// when Path and Domain match what the backend used when setting them.
type Policy struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultPolicy returns a root-path, lax same-site policy.
func DefaultPolicy() Policy {
	return Policy{
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Tokens is a pair of opaque credentials as issued by the identity service.
type Tokens struct {
	Access  string
	Refresh string
}

// Issue writes the access, refresh and indicator cookies. Only the identity service
// (and test doubles of it) call this; page code never constructs tokens.
func Issue(w http.ResponseWriter, names Names, policy Policy, tokens Tokens, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, policy.cookie(names.Access, tokens.Access, accessTTL, true))
	if tokens.Refresh != "" {
		http.SetCookie(w, policy.cookie(names.Refresh, tokens.Refresh, refreshTTL, true))
	}
	http.SetCookie(w, policy.cookie(names.Indicator, "1", refreshTTL, false))
}

func (p Policy) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     p.pathOrRoot(),
		Domain:   p.Domain,
		HttpOnly: httpOnly,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func (p Policy) expired(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     p.pathOrRoot(),
		Domain:   p.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

func (p Policy) pathOrRoot() string {
	if p.Path == "" {
		return "/"
	}
	return p.Path
}

// expiredAll returns deletion cookies for every session cookie.
func expiredAll(names Names, policy Policy) []*http.Cookie {
	return []*http.Cookie{
		policy.expired(names.Access, true),
		policy.expired(names.Refresh, true),
		policy.expired(names.Indicator, false),
	}
}
