package guard

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FromParam is the query parameter carrying the original destination.
const FromParam = "from"

var (
	// ErrInvalidRules wraps every Rules validation failure.
	ErrInvalidRules = errors.New("invalid guard rules")
)

// Outcome is the navigation decision.
type Outcome uint8

const (
	// Allow lets the request through.
	Allow Outcome = iota
	// RedirectLogin sends an unauthenticated caller to the login page.
	RedirectLogin
	// RedirectHome sends an authenticated caller away from the login page.
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Decision is the result of [Rules.Decide]. Location is empty for Allow.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Rules is the protected path set plus the login exemption.
type Rules struct {
	// LoginPath is exempt from protection and redirects away when a session exists.
	LoginPath string
	// HomePath is where an authenticated visitor of LoginPath is sent.
	HomePath string
	// Protected holds doublestar patterns, e.g. "/admin/**".
	Protected []string
}

// Validate checks that the rules can be evaluated deterministically.
func (r Rules) Validate() error {
	if !isAbsPath(r.LoginPath) {
		return fmt.Errorf("%w: login path %q must be absolute", ErrInvalidRules, r.LoginPath)
	}
	if !isAbsPath(r.HomePath) {
		return fmt.Errorf("%w: home path %q must be absolute", ErrInvalidRules, r.HomePath)
	}
	if normalize(r.LoginPath) == normalize(r.HomePath) {
		return fmt.Errorf("%w: login and home paths must differ", ErrInvalidRules)
	}
	for _, p := range r.Protected {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: protected pattern %q must be absolute", ErrInvalidRules, p)
		}
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: protected pattern %q is malformed", ErrInvalidRules, p)
		}
	}
	return nil
}

// IsLogin reports whether p is the login page.
func (r Rules) IsLogin(p string) bool {
	return normalize(p) == normalize(r.LoginPath)
}

// IsProtected reports whether p matches any protected pattern.
func (r Rules) IsProtected(p string) bool {
	p = normalize(p)
	for _, pattern := range r.Protected {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// Decide evaluates the navigation decision table. rawQuery is the original query
// string and travels inside from= so the login flow can return to the exact URL.
func (r Rules) Decide(p, rawQuery string, hasSession bool) Decision {
	if r.IsLogin(p) {
		if hasSession {
			return Decision{Outcome: RedirectHome, Location: normalize(r.HomePath)}
		}
		return Decision{Outcome: Allow}
	}

	if r.IsProtected(p) {
		if hasSession {
			return Decision{Outcome: Allow}
		}
		return Decision{Outcome: RedirectLogin, Location: r.LoginURL(originalTarget(p, rawQuery))}
	}

	return Decision{Outcome: Allow}
}

// LoginURL builds the login location carrying from=target. The target is query
// escaped, so /admin/users yields /admin/login?from=%2Fadmin%2Fusers; readers of
// the from parameter get the plain path back after decoding.
func (r Rules) LoginURL(target string) string {
	login := normalize(r.LoginPath)
	if target == "" {
		return login
	}
	q := url.Values{}
	q.Set(FromParam, target)
	return login + "?" + q.Encode()
}

// ReturnTarget resolves where a successful login should land. from is honored only
// when it is a same-origin absolute path that is not the login page itself.
func (r Rules) ReturnTarget(from string) string {
	home := normalize(r.HomePath)
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return home
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return home
	}
	if r.IsLogin(u.Path) {
		return home
	}
	return from
}

func originalTarget(p, rawQuery string) string {
	p = normalize(p)
	if rawQuery == "" {
		return p
	}
	return p + "?" + rawQuery
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func isAbsPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}
