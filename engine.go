package goGuard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goGuard/client"
	"github.com/MrEthical07/goGuard/cookie"
	"github.com/MrEthical07/goGuard/gate"
	"github.com/MrEthical07/goGuard/guard"
	"github.com/MrEthical07/goGuard/identity"
	"github.com/MrEthical07/goGuard/role"
)

const fetchKey = "users/me"

// Engine is one client's session context. It is safe for concurrent use.
type Engine struct {
	config   Config
	logger   *slog.Logger
	metrics  *Metrics
	rules    guard.Rules
	names    cookie.Names
	policy   cookie.Policy
	registry *role.Registry

	tokens  cookie.TokenStore
	cache   *identity.Cache
	client  *client.Client
	prompts *gate.Dispatcher

	fetches singleflight.Group
	closed  atomic.Bool
}

// Init is the bootstrap step. It restores a persisted profile as provisional, then
// confirms it with the identity service when the session indicator is present. Every
// expected failure ends with no identity and no local session; only a contract
// violation by the identity service, or the end of ctx, is returned.
func (e *Engine) Init(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	restored, err := e.cache.Restore(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "profile restore failed", slog.Any("error", err))
	}
	if restored {
		e.metrics.Inc(MetricProfileRestored)
	}

	if !e.tokens.HasSession() {
		if e.cache.IsAuthenticated() {
			e.cache.Set(ctx, nil)
		}
		return nil
	}

	if _, err := e.Refresh(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		e.logger.InfoContext(ctx, "bootstrap ended without session", slog.Any("error", err))
		if errors.Is(err, client.ErrMalformedResponse) {
			return err
		}
	}
	return nil
}

// Refresh fetches the identity and stores it. On any failure of the fetch local
// session state is cleared before returning: a stale identity is never kept.
//
// Concurrent callers share one fetch. The fetch runs detached from every caller's
// cancellation and is bounded by the client timeout only; a caller whose ctx ends
// first gets ctx.Err() and the session is left as it was.
func (e *Engine) Refresh(ctx context.Context) (*identity.Identity, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if e.client == nil {
		e.cache.Set(ctx, nil)
		return nil, ErrIdentityServiceUnset
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := e.fetches.DoChan(fetchKey, func() (any, error) {
		start := time.Now()
		id, err := e.client.Me(fetchCtx)
		e.metrics.Observe(MetricIdentityFetchLatency, time.Since(start))
		if err != nil {
			e.metrics.Inc(MetricIdentityFetchFailure)
			e.teardown(fetchCtx, "identity fetch failed")
			if errors.Is(err, client.ErrUnauthorized) {
				return nil, fmt.Errorf("%w: %w", ErrSessionRejected, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
		e.metrics.Inc(MetricIdentityFetchSuccess)
		e.cache.Set(fetchCtx, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*identity.Identity).Clone(), nil
	}
}

// Login signs in with credentials and loads the identity.
func (e *Engine) Login(ctx context.Context, creds client.Credentials) (*identity.Identity, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if e.client == nil {
		return nil, ErrIdentityServiceUnset
	}

	if err := e.client.Login(ctx, creds); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		if errors.Is(err, client.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	e.metrics.Inc(MetricLoginSuccess)
	return e.Refresh(ctx)
}

// Logout ends the session with the identity service, then tears down local state
// regardless of the outcome. The backend error, if any, is returned for reporting.
func (e *Engine) Logout(ctx context.Context) error {
	e.metrics.Inc(MetricLogout)

	var err error
	if e.client != nil {
		if err = e.client.Logout(ctx); err != nil {
			e.logger.WarnContext(ctx, "backend logout failed", slog.Any("error", err))
		}
	}
	e.Teardown(ctx)
	return err
}

// Teardown clears tokens, the cached identity and the persisted profile.
func (e *Engine) Teardown(ctx context.Context) {
	e.teardown(ctx, "teardown")
}

// SessionRejected reacts to a rejected session reported by an authenticated call
// made outside the engine. It tears the local session down.
func (e *Engine) SessionRejected(ctx context.Context) {
	e.metrics.Inc(MetricSessionRejected)
	e.teardown(ctx, "session rejected")
}

func (e *Engine) onUnauthorized(ctx context.Context) {
	e.metrics.Inc(MetricSessionRejected)
}

func (e *Engine) teardown(ctx context.Context, reason string) {
	e.tokens.Clear()
	e.cache.Set(ctx, nil)
	e.metrics.Inc(MetricTeardown)
	e.logger.DebugContext(ctx, "session torn down", slog.String("reason", reason))
}

// SetIdentity replaces the cached identity; nil signs out locally without touching
// cookies.
func (e *Engine) SetIdentity(ctx context.Context, id *identity.Identity) {
	e.cache.Set(ctx, id)
}

// Identity returns a copy of the cached identity. It never performs I/O.
func (e *Engine) Identity() *identity.Identity {
	return e.cache.Get()
}

// IsAuthenticated reports whether an identity is cached.
func (e *Engine) IsAuthenticated() bool {
	return e.cache.IsAuthenticated()
}

// HasSession reports whether the session indicator cookie is present.
func (e *Engine) HasSession() bool {
	return e.tokens.HasSession()
}

// ResolveIdentity returns the identity gates check against. A reconciled cache is used
// as is; a provisional or missing identity with a session indicator is fetched; no
// indicator means signed out. A rejected session resolves to nil.
func (e *Engine) ResolveIdentity(ctx context.Context) (*identity.Identity, error) {
	if !e.tokens.HasSession() {
		if e.cache.IsAuthenticated() {
			e.cache.Set(ctx, nil)
		}
		return nil, nil
	}
	if id := e.cache.Get(); id != nil && !e.cache.Provisional() {
		return id, nil
	}
	return e.ResolveFreshIdentity(ctx)
}

// ResolveFreshIdentity is ResolveIdentity without the cache.
func (e *Engine) ResolveFreshIdentity(ctx context.Context) (*identity.Identity, error) {
	if !e.tokens.HasSession() {
		if e.cache.IsAuthenticated() {
			e.cache.Set(ctx, nil)
		}
		return nil, nil
	}
	id, err := e.Refresh(ctx)
	if errors.Is(err, ErrSessionRejected) {
		return nil, nil
	}
	return id, err
}

// NewGate returns a protected action gate bound to this engine's identity and prompt
// delivery. Required roles must be in Config.Gate.Roles when that list is set.
func (e *Engine) NewGate(name string, req gate.Request) (*gate.Gate, error) {
	if req.SignInReason == "" && req.Reason == "" {
		req.SignInReason = e.config.Gate.SignInReason
	}

	var registry *role.Registry
	if e.registry.Count() > 0 {
		registry = e.registry
	}

	return gate.New(name, req, gate.Options{
		Resolver:    e,
		Registry:    registry,
		Sink:        e.prompts,
		Observer:    e.observeGate,
		Logger:      e.logger,
		RetryReason: e.config.Gate.RetryReason,
	})
}

func (e *Engine) observeGate(name string, from, to gate.State) {
	switch {
	case to == gate.AwaitingAuth:
		e.metrics.Inc(MetricGatePrompted)
	case to == gate.Executing:
		e.metrics.Inc(MetricGateExecuted)
	case to == gate.Idle && from != gate.Executing:
		e.metrics.Inc(MetricGateReleased)
	}
}

// RouteDecision evaluates the navigation decision for r. Redirects are not written;
// the middleware does that.
func (e *Engine) RouteDecision(w http.ResponseWriter, r *http.Request) guard.Decision {
	store := cookie.NewRequestStore(w, r, e.names, e.policy)
	d := e.rules.Decide(r.URL.Path, r.URL.RawQuery, store.HasSession())

	switch d.Outcome {
	case guard.Allow:
		e.metrics.Inc(MetricGuardAllow)
	case guard.RedirectLogin:
		e.metrics.Inc(MetricGuardRedirectLogin)
	case guard.RedirectHome:
		e.metrics.Inc(MetricGuardRedirectHome)
	}
	e.logger.DebugContext(r.Context(), "route decision",
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("outcome", d.Outcome.String()),
	)
	return d
}

// Rules returns the route guard rules.
func (e *Engine) Rules() guard.Rules { return e.config.rules() }

// CookieNames returns the cookie-name contract.
func (e *Engine) CookieNames() cookie.Names { return e.names }

// CookiePolicy returns the cookie attributes used when clearing.
func (e *Engine) CookiePolicy() cookie.Policy { return e.policy }

// Headers returns the security header configuration.
func (e *Engine) Headers() HeadersConfig { return e.config.Headers }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Client returns the identity service client, or nil when none is configured.
func (e *Engine) Client() *client.Client { return e.client }

// Metrics returns the engine counters.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot { return e.metrics.Snapshot() }

// PromptsDropped returns prompts dropped because the delivery buffer was full.
func (e *Engine) PromptsDropped() uint64 { return e.prompts.Dropped() }

// Close drains pending prompts and stops background delivery. Safe to call more than
// once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closed.Store(true)
	e.prompts.Close()
}
