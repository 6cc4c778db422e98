package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/gate"
	"github.com/MrEthical07/goGuard/internal/identitytest"
)

func newWhoamiEngine(t *testing.T) (*goGuard.Engine, *identitytest.Server) {
	t.Helper()
	stub := identitytest.NewServer()
	stub.Seed(identitytest.DefaultUsers()...)
	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	cfg := goGuard.DefaultConfig()
	cfg.Cookie.Secure = false
	cfg.Identity.BaseURL = ts.URL
	cfg.Routes.Protected = []string{"/admin/**"}
	cfg.Gate.Roles = []string{"CLIENT", "CONTRACTOR", "ADMIN"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, cleanup, err := buildEngine(settings{engine: cfg}, logger, gate.NoOpSink{})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return engine, stub
}

func decodeResult(t *testing.T, out *bytes.Buffer) whoamiResult {
	t.Helper()
	var res whoamiResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	return res
}

func TestWhoamiSignedOut(t *testing.T) {
	engine, _ := newWhoamiEngine(t)
	var out bytes.Buffer

	require.NoError(t, runWhoami(context.Background(), engine, &whoamiOptions{}, &out))
	res := decodeResult(t, &out)
	assert.False(t, res.Authenticated)
	assert.Nil(t, res.Identity)
}

func TestWhoamiLoginAndLogout(t *testing.T) {
	engine, stub := newWhoamiEngine(t)
	var out bytes.Buffer

	opts := &whoamiOptions{email: "admin@example.com", password: identitytest.DefaultPassword, logout: true}
	require.NoError(t, runWhoami(context.Background(), engine, opts, &out))

	res := decodeResult(t, &out)
	require.True(t, res.Authenticated)
	assert.Equal(t, "admin@example.com", res.Identity.Email)
	assert.Equal(t, int64(1), stub.Logouts())
	assert.False(t, engine.HasSession())
}

func TestWhoamiOAuthFlow(t *testing.T) {
	engine, _ := newWhoamiEngine(t)
	var out bytes.Buffer

	opts := &whoamiOptions{oauthHint: "contractor@example.com", from: "/admin/jobs"}
	require.NoError(t, runWhoami(context.Background(), engine, opts, &out))

	res := decodeResult(t, &out)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "/admin/jobs", res.Location)
}

func TestWhoamiOAuthDenied(t *testing.T) {
	engine, _ := newWhoamiEngine(t)
	err := runWhoami(context.Background(), engine, &whoamiOptions{oauthHint: "nobody@example.com"}, io.Discard)
	assert.ErrorContains(t, err, "access_denied")
}

func TestWhoamiRequireRole(t *testing.T) {
	engine, _ := newWhoamiEngine(t)
	var out bytes.Buffer

	opts := &whoamiOptions{
		email:        "client@example.com",
		password:     identitytest.DefaultPassword,
		requireRoles: []string{"CONTRACTOR"},
	}
	err := runWhoami(context.Background(), engine, opts, &out)
	assert.True(t, errors.Is(err, errAccessDenied))
	assert.Equal(t, "prompted", decodeResult(t, &out).Gate)

	out.Reset()
	opts.email = ""
	opts.requireRoles = []string{"CLIENT"}
	require.NoError(t, runWhoami(context.Background(), engine, opts, &out))
	assert.Equal(t, "executed", decodeResult(t, &out).Gate)
}

func TestRootCommandVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "goguard")
}
