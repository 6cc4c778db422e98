package cookie

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Secure = false
	return p
}

func TestRequestStoreHasSession(t *testing.T) {
	names := DefaultNames()

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    bool
	}{
		{name: "no cookies", want: false},
		{name: "indicator present", cookies: []*http.Cookie{{Name: names.Indicator, Value: "1"}}, want: true},
		{name: "indicator empty", cookies: []*http.Cookie{{Name: names.Indicator, Value: ""}}, want: false},
		{name: "only http-only tokens", cookies: []*http.Cookie{{Name: names.Access, Value: "a"}, {Name: names.Refresh, Value: "r"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			store := NewRequestStore(httptest.NewRecorder(), req, names, testPolicy())
			assert.Equal(t, tt.want, store.HasSession())
		})
	}
}

func TestRequestStoreClearIsIdempotent(t *testing.T) {
	names := DefaultNames()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: names.Indicator, Value: "1"})
	rec := httptest.NewRecorder()
	store := NewRequestStore(rec, req, names, testPolicy())

	require.True(t, store.HasSession())
	store.Clear()
	assert.False(t, store.HasSession())
	store.Clear()
	assert.False(t, store.HasSession())

	set := rec.Result().Cookies()
	require.Len(t, set, 3, "second Clear must not write more headers")
	seen := map[string]*http.Cookie{}
	for _, c := range set {
		seen[c.Name] = c
		assert.Equal(t, -1, c.MaxAge)
		assert.Equal(t, "/", c.Path)
	}
	assert.True(t, seen[names.Access].HttpOnly)
	assert.True(t, seen[names.Refresh].HttpOnly)
	assert.False(t, seen[names.Indicator].HttpOnly)
}

func TestRequestStoreNilInputs(t *testing.T) {
	store := NewRequestStore(nil, nil, DefaultNames(), testPolicy())
	assert.False(t, store.HasSession())
	assert.NotPanics(t, store.Clear)

	var nilStore *RequestStore
	assert.False(t, nilStore.HasSession())
	assert.NotPanics(t, nilStore.Clear)
}

func TestJarStoreLifecycle(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	origin, err := url.Parse("http://identity.local")
	require.NoError(t, err)

	names := DefaultNames()
	policy := testPolicy()
	store := NewJarStore(jar, origin, names, policy)
	assert.False(t, store.HasSession())

	rec := httptest.NewRecorder()
	Issue(rec, names, policy, Tokens{Access: "acc", Refresh: "ref"}, time.Minute, time.Hour)
	jar.SetCookies(origin, rec.Result().Cookies())
	assert.True(t, store.HasSession())

	store.Clear()
	assert.False(t, store.HasSession())
	assert.Empty(t, jar.Cookies(origin))

	store.Clear()
	assert.False(t, store.HasSession())
}

func TestIssueWritesIndicatorReadable(t *testing.T) {
	names := DefaultNames()
	rec := httptest.NewRecorder()
	Issue(rec, names, testPolicy(), Tokens{Access: "acc"}, time.Minute, time.Hour)

	byName := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c
	}
	require.Contains(t, byName, names.Access)
	require.Contains(t, byName, names.Indicator)
	assert.NotContains(t, byName, names.Refresh)
	assert.True(t, byName[names.Access].HttpOnly)
	assert.False(t, byName[names.Indicator].HttpOnly)
	assert.Equal(t, 60, byName[names.Access].MaxAge)
}
