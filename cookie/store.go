package cookie

import (
	"net/http"
	"net/url"
	"sync"
)

// TokenStore answers "is there a plausible session" and can forget it.
type TokenStore interface {
	HasSession() bool
	Clear()
}

// RequestStore is a [TokenStore] bound to one inbound request. It is not safe for
// concurrent use; create one per request.
type RequestStore struct {
	w       http.ResponseWriter
	r       *http.Request
	names   Names
	policy  Policy
	cleared bool
}

// NewRequestStore binds a store to w and r. Either may be nil: a nil request has no
// session, a nil writer makes Clear local-only.
func NewRequestStore(w http.ResponseWriter, r *http.Request, names Names, policy Policy) *RequestStore {
	return &RequestStore{w: w, r: r, names: names, policy: policy}
}

// HasSession reports whether the indicator cookie is present and non-empty.
func (s *RequestStore) HasSession() bool {
	if s == nil || s.r == nil || s.cleared {
		return false
	}
	c, err := s.r.Cookie(s.names.Indicator)
	if err != nil {
		return false
	}
	return c.Value != ""
}

// Clear writes deletion cookies once per request.
func (s *RequestStore) Clear() {
	if s == nil || s.cleared {
		return
	}
	s.cleared = true
	if s.w == nil {
		return
	}
	for _, c := range expiredAll(s.names, s.policy) {
		http.SetCookie(s.w, c)
	}
}

// JarStore is a [TokenStore] over a client cookie jar scoped to the identity service
// origin. It is safe for concurrent use when the jar is.
type JarStore struct {
	mu     sync.Mutex
	jar    http.CookieJar
	origin *url.URL
	names  Names
	policy Policy
}

// NewJarStore binds a store to jar for cookies visible at origin.
func NewJarStore(jar http.CookieJar, origin *url.URL, names Names, policy Policy) *JarStore {
	return &JarStore{jar: jar, origin: origin, names: names, policy: policy}
}

// HasSession reports whether the jar holds a non-empty indicator cookie for the origin.
func (s *JarStore) HasSession() bool {
	if s == nil || s.jar == nil || s.origin == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == s.names.Indicator && c.Value != "" {
			return true
		}
	}
	return false
}

// Clear expires every session cookie in the jar.
func (s *JarStore) Clear() {
	if s == nil || s.jar == nil || s.origin == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(s.origin, expiredAll(s.names, s.policy))
}

// Jar returns the underlying cookie jar.
func (s *JarStore) Jar() http.CookieJar {
	if s == nil {
		return nil
	}
	return s.jar
}
