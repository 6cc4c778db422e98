package identitytest

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goGuard/cookie"
	"github.com/MrEthical07/goGuard/identity"
)

// User is a seeded account.
type User struct {
	Email    string
	Password string
	Name     string
	Roles    []string
	Verified bool
	Locked   bool
}

// Option configures a [Server].
type Option func(*Server)

// WithNames overrides the cookie names.
func WithNames(n cookie.Names) Option {
	return func(s *Server) { s.names = n }
}

// WithPolicy overrides the cookie attributes.
func WithPolicy(p cookie.Policy) Option {
	return func(s *Server) { s.policy = p }
}

// WithSecret sets the HS256 signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// WithTTL sets access and refresh cookie lifetimes.
func WithTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is safe for concurrent use.
type Server struct {
	names      cookie.Names
	policy     cookie.Policy
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	byEmail  map[string]*record
	byID     map[string]*record
	sessions map[string]string

	forced   atomic.Int32
	meCalls  atomic.Int64
	logins   atomic.Int64
	logouts  atomic.Int64
	router   chi.Router
	initOnce sync.Once
}

type record struct {
	user User
	id   string
}

// NewServer creates an empty service. Cookies are not Secure by default so plain
// http test servers and cookie jars interoperate.
func NewServer(opts ...Option) *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Server{
		names:      cookie.DefaultNames(),
		policy:     cookie.Policy{Path: "/", SameSite: http.SameSiteLaxMode},
		secret:     secret,
		accessTTL:  15 * time.Minute,
		refreshTTL: 24 * time.Hour,
		now:        time.Now,
		byEmail:    make(map[string]*record),
		byID:       make(map[string]*record),
		sessions:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser seeds an account and returns its ID.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Roles = slices.Clone(u.Roles)
	if existing, ok := s.byEmail[u.Email]; ok {
		existing.user = u
		return existing.id
	}
	rec := &record{user: u, id: uuid.NewString()}
	s.byEmail[u.Email] = rec
	s.byID[rec.id] = rec
	return rec.id
}

// SetRoles replaces a user's roles. Existing sessions see the change on the next
// GET /users/me.
func (s *Server) SetRoles(email string, roles ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return false
	}
	rec.user.Roles = slices.Clone(roles)
	return true
}

// SetLocked flags a user as locked. Locked users cannot log in; existing sessions
// keep working and report isLocked.
func (s *Server) SetLocked(email string, locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return false
	}
	rec.user.Locked = locked
	return true
}

// RevokeAll ends every session server-side. Clients still hold cookies and learn
// about it from the next 401.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

// ForceStatus makes GET /users/me answer with status until reset with 0.
func (s *Server) ForceStatus(status int) {
	s.forced.Store(int32(status))
}

// MeCalls returns how many times GET /users/me was served.
func (s *Server) MeCalls() int64 { return s.meCalls.Load() }

// Logins returns the number of successful logins.
func (s *Server) Logins() int64 { return s.logins.Load() }

// Logouts returns the number of logout calls.
func (s *Server) Logouts() int64 { return s.logouts.Load() }

// Names returns the cookie names the server issues.
func (s *Server) Names() cookie.Names { return s.names }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	s.initOnce.Do(func() {
		r := chi.NewRouter()
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/users/me", s.handleMe)
		r.Get("/oauth/authorize", s.handleAuthorize)
		s.router = r
	})
	return s.router
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	rec, ok := s.authenticate(creds.Email, creds.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if rec.user.Locked {
		writeError(w, http.StatusForbidden, "account_locked")
		return
	}

	if err := s.startSession(w, rec.id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	s.logins.Add(1)
	writeJSON(w, http.StatusOK, s.profile(rec))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logouts.Add(1)
	if claims, ok := s.sessionClaims(r); ok {
		s.mu.Lock()
		delete(s.sessions, claims.SID)
		s.mu.Unlock()
	}
	cookie.NewRequestStore(w, r, s.names, s.policy).Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.meCalls.Add(1)
	if status := int(s.forced.Load()); status != 0 {
		writeError(w, status, http.StatusText(status))
		return
	}

	claims, ok := s.sessionClaims(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.RLock()
	userID, live := s.sessions[claims.SID]
	rec := s.byID[userID]
	var profile *identity.Identity
	if live && rec != nil && userID == claims.Subject {
		profile = s.profile(rec)
	}
	s.mu.RUnlock()

	if profile == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleAuthorize simulates a third-party sign-in: it signs in login_hint directly and
// redirects to redirect_uri with success=true, or with error=access_denied for unknown
// users.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || target.String() == "" {
		writeError(w, http.StatusBadRequest, "invalid_redirect_uri")
		return
	}

	s.mu.RLock()
	rec, ok := s.byEmail[strings.ToLower(q.Get("login_hint"))]
	s.mu.RUnlock()

	values := target.Query()
	if !ok || rec.user.Locked {
		values.Set("error", "access_denied")
	} else if err := s.startSession(w, rec.id); err != nil {
		values.Set("error", "server_error")
	} else {
		values.Set("success", "true")
	}
	if state := q.Get("state"); state != "" {
		values.Set("state", state)
	}
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) authenticate(email, password string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || rec.user.Password != password {
		return nil, false
	}
	return rec, true
}

func (s *Server) startSession(w http.ResponseWriter, userID string) error {
	sid := uuid.NewString()
	access, err := s.signAccess(userID, sid, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[sid] = userID
	s.mu.Unlock()

	cookie.Issue(w, s.names, s.policy, cookie.Tokens{
		Access:  access,
		Refresh: uuid.NewString(),
	}, s.accessTTL, s.refreshTTL)
	return nil
}

func (s *Server) sessionClaims(r *http.Request) (*accessClaims, bool) {
	c, err := r.Cookie(s.names.Access)
	if err != nil || c.Value == "" {
		return nil, false
	}
	claims, err := s.parseAccess(c.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (s *Server) profile(rec *record) *identity.Identity {
	roles := slices.Clone(rec.user.Roles)
	if roles == nil {
		roles = []string{}
	}
	return &identity.Identity{
		ID:         rec.id,
		Email:      rec.user.Email,
		Name:       rec.user.Name,
		Roles:      roles,
		IsVerified: rec.user.Verified,
		IsLocked:   rec.user.Locked,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
