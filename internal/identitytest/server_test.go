package identitytest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, h http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	return rec
}

func me(h http.Handler, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesCookieContract(t *testing.T) {
	s := NewServer()
	s.Seed(DefaultUsers()...)

	rec := login(t, s.Handler(), "client@example.com", DefaultPassword)
	require.Equal(t, http.StatusOK, rec.Code)

	byName := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "access_token")
	require.Contains(t, byName, "refresh_token")
	require.Contains(t, byName, "session_present")
	assert.True(t, byName["access_token"].HttpOnly)
	assert.True(t, byName["refresh_token"].HttpOnly)
	assert.False(t, byName["session_present"].HttpOnly)
	assert.Equal(t, int64(1), s.Logins())
}

func TestLoginRejectsBadPasswordAndLockedUser(t *testing.T) {
	s := NewServer()
	s.Seed(DefaultUsers()...)

	assert.Equal(t, http.StatusUnauthorized, login(t, s.Handler(), "client@example.com", "nope").Code)

	s.SetLocked("client@example.com", true)
	assert.Equal(t, http.StatusForbidden, login(t, s.Handler(), "client@example.com", DefaultPassword).Code)
}

func TestMeResolvesSessionAndSeesRoleChanges(t *testing.T) {
	s := NewServer()
	s.Seed(DefaultUsers()...)
	cookies := login(t, s.Handler(), "client@example.com", DefaultPassword).Result().Cookies()

	rec := me(s.Handler(), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "client@example.com", body["email"])
	assert.Equal(t, []any{"CLIENT"}, body["roles"])
	assert.Equal(t, true, body["isVerified"])
	assert.Equal(t, false, body["isLocked"])

	s.SetRoles("client@example.com", "CLIENT", "CONTRACTOR")
	rec = me(s.Handler(), cookies)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{"CLIENT", "CONTRACTOR"}, body["roles"])
}

func TestMeUnauthorizedCases(t *testing.T) {
	now := time.Now()
	s := NewServer(WithClock(func() time.Time { return now }))
	s.Seed(DefaultUsers()...)
	cookies := login(t, s.Handler(), "client@example.com", DefaultPassword).Result().Cookies()

	assert.Equal(t, http.StatusUnauthorized, me(s.Handler(), nil).Code)
	assert.Equal(t, http.StatusUnauthorized, me(s.Handler(), []*http.Cookie{{Name: "access_token", Value: "garbage"}}).Code)

	s.ForceStatus(http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, me(s.Handler(), cookies).Code)
	s.ForceStatus(0)

	s.RevokeAll()
	assert.Equal(t, http.StatusUnauthorized, me(s.Handler(), cookies).Code)

	cookies = login(t, s.Handler(), "client@example.com", DefaultPassword).Result().Cookies()
	now = now.Add(time.Hour)
	assert.Equal(t, http.StatusUnauthorized, me(s.Handler(), cookies).Code)
}

func TestLogoutEndsSessionAndClearsCookies(t *testing.T) {
	s := NewServer()
	s.Seed(DefaultUsers()...)
	cookies := login(t, s.Handler(), "client@example.com", DefaultPassword).Result().Cookies()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 3)
	for _, c := range cleared {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}
	assert.Equal(t, http.StatusUnauthorized, me(s.Handler(), cookies).Code)
}

func TestAuthorizeRedirects(t *testing.T) {
	s := NewServer()
	s.Seed(DefaultUsers()...)

	req := httptest.NewRequest(http.MethodGet, "/oauth/authorize?login_hint=admin@example.com&redirect_uri=http://app.local/auth/callback", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://app.local/auth/callback?success=true", rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/oauth/authorize?login_hint=ghost@example.com&redirect_uri=http://app.local/auth/callback", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://app.local/auth/callback?error=access_denied", rec.Header().Get("Location"))
}
