package gate

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks Resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/MrEthical07/goGuard/role"
)

const (
	DefaultSignInReason = "Sign in to continue."
	DefaultRoleReason   = "Your account does not have access to this action."
	DefaultRetryReason  = "We could not confirm your session. Try again."
)

var (
	// ErrBusy is returned by Invoke when the gate is not idle.
	ErrBusy = errors.New("gate busy")
	// ErrNotAwaiting is returned by Resume outside AwaitingAuth.
	ErrNotAwaiting = errors.New("gate not awaiting authentication")
	// ErrNilOperation is returned by Invoke for a nil operation.
	ErrNilOperation = errors.New("gate operation is nil")
	// ErrInvalidRequest wraps Request validation failures.
	ErrInvalidRequest = errors.New("invalid gate request")
)

// Operation is the protected action. It receives the ctx of the call that runs it.
type Operation func(ctx context.Context) error

// Resolver supplies the identity a check is evaluated against. Implementations decide
// whether the cached identity is fresh enough; a nil identity means signed out.
type Resolver interface {
	ResolveIdentity(ctx context.Context) (*identity.Identity, error)
}

// FreshResolver is a [Resolver] that can bypass its cache. Resume prefers it so a
// role granted while a prompt was open is seen.
type FreshResolver interface {
	Resolver
	ResolveFreshIdentity(ctx context.Context) (*identity.Identity, error)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(ctx context.Context) (*identity.Identity, error)

func (f ResolverFunc) ResolveIdentity(ctx context.Context) (*identity.Identity, error) {
	return f(ctx)
}

// Observer is told about every state change.
type Observer func(gate string, from, to State)

// Request is the requirement an operation is gated on.
type Request struct {
	// RequireAuthentication demands a signed-in identity.
	RequireAuthentication bool
	// RequiredRoles passes when the identity holds at least one of them.
	RequiredRoles []string
	// Reason is shown when the role check fails.
	Reason string
	// SignInReason is shown when authentication is missing. Falls back to Reason.
	SignInReason string
	// Action names what the user tried to do, for the prompt.
	Action string
}

// Options wires a gate to its collaborators. Resolver is required.
type Options struct {
	Resolver Resolver
	Registry *role.Registry
	Sink     PromptSink
	Observer Observer
	Logger   *slog.Logger
	// RetryReason is shown when identity could not be resolved.
	RetryReason string
	Now         func() time.Time
}

// Gate runs one protected operation at a time. Safe for concurrent use.
type Gate struct {
	name         string
	req          Request
	requiredMask role.Mask
	opts         Options

	mu         sync.Mutex
	state      State
	seq        uint64
	pending    Operation
	pendingCtx context.Context
	stopWatch  func() bool
	prompt     Prompt
	// announced is the ID of the prompt whose descriptor has reached the sink. A
	// release closes only an announced prompt; otherwise await closes it after
	// publishing, so the sink never sees a close before its prompt.
	announced string
}

// New validates req and returns an idle gate.
func New(name string, req Request, opts Options) (*Gate, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", ErrInvalidRequest)
	}
	req.RequiredRoles = slices.Clone(req.RequiredRoles)

	var mask role.Mask
	if opts.Registry != nil && len(req.RequiredRoles) > 0 {
		m, err := opts.Registry.StrictMaskOf(req.RequiredRoles)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		mask = m
	}
	for _, r := range req.RequiredRoles {
		if r == "" {
			return nil, fmt.Errorf("%w: empty role name", ErrInvalidRequest)
		}
	}

	if opts.Sink == nil {
		opts.Sink = NoOpSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RetryReason == "" {
		opts.RetryReason = DefaultRetryReason
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Gate{
		name:         name,
		req:          req,
		requiredMask: mask,
		opts:         opts,
	}, nil
}

// Name returns the gate name used in prompts and metrics.
func (g *Gate) Name() string { return g.name }

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Prompt returns the outstanding prompt while awaiting authentication.
func (g *Gate) Prompt() (Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != AwaitingAuth {
		return Prompt{}, false
	}
	return g.prompt, true
}

// Invoke checks the requirement and runs op when it passes. When it fails the gate
// keeps op, publishes a prompt, and returns Prompted. ctx scopes the whole request:
// cancelling it while awaiting authentication releases the gate.
func (g *Gate) Invoke(ctx context.Context, op Operation) (Outcome, error) {
	if op == nil {
		return Released, ErrNilOperation
	}
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.state != Idle {
		g.mu.Unlock()
		return Released, ErrBusy
	}
	g.seq++
	seq := g.seq
	g.pending = op
	g.pendingCtx = ctx
	g.stopWatch = context.AfterFunc(ctx, func() { g.release(seq, "context done") })
	g.state = Checking
	g.mu.Unlock()
	g.observe(Idle, Checking)

	return g.check(ctx, seq, false)
}

// Resume re-evaluates the stored request after the user acted on a prompt. Identity is
// resolved again so a role granted in the meantime is seen.
func (g *Gate) Resume(ctx context.Context) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.state != AwaitingAuth {
		g.mu.Unlock()
		return Released, ErrNotAwaiting
	}
	seq := g.seq
	g.state = Checking
	g.mu.Unlock()
	g.observe(AwaitingAuth, Checking)

	return g.check(ctx, seq, true)
}

// Dismiss abandons the stored request. The operation is discarded without running.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	seq := g.seq
	g.mu.Unlock()
	g.release(seq, "dismissed")
}

// Release is Dismiss for callers that tear the gate's owner down.
func (g *Gate) Release() {
	g.Dismiss()
}

func (g *Gate) check(ctx context.Context, seq uint64, fresh bool) (Outcome, error) {
	id, err := g.resolve(ctx, fresh)
	if ctxErr := ctx.Err(); ctxErr != nil {
		g.abort(seq)
		return Released, ctxErr
	}

	var kind PromptKind
	var reason string
	switch {
	case err != nil:
		g.opts.Logger.WarnContext(ctx, "gate identity resolution failed",
			slog.String("gate", g.name),
			slog.Any("error", err),
		)
		kind, reason = PromptRetry, g.opts.RetryReason
	case g.req.RequireAuthentication && id == nil:
		kind, reason = PromptSignIn, g.signInReason()
	case len(g.req.RequiredRoles) > 0 && !g.hasRequiredRole(id):
		kind, reason = PromptRole, g.roleReason()
	default:
		return g.execute(ctx, seq)
	}

	return g.await(ctx, seq, kind, reason)
}

func (g *Gate) resolve(ctx context.Context, fresh bool) (*identity.Identity, error) {
	if fr, ok := g.opts.Resolver.(FreshResolver); ok && fresh {
		return fr.ResolveFreshIdentity(ctx)
	}
	return g.opts.Resolver.ResolveIdentity(ctx)
}

func (g *Gate) execute(ctx context.Context, seq uint64) (Outcome, error) {
	g.mu.Lock()
	if g.seq != seq || g.state != Checking {
		g.mu.Unlock()
		return Released, nil
	}
	if scope := g.pendingCtx; scope != nil && scope.Err() != nil {
		g.clearLocked()
		g.mu.Unlock()
		g.observe(Checking, Idle)
		return Released, scope.Err()
	}
	op := g.pending
	g.pending = nil
	g.pendingCtx = nil
	g.stopWatchLocked()
	g.state = Executing
	g.mu.Unlock()
	g.observe(Checking, Executing)

	defer func() {
		g.mu.Lock()
		g.state = Idle
		g.mu.Unlock()
		g.observe(Executing, Idle)
	}()

	g.opts.Logger.DebugContext(ctx, "gate executing", slog.String("gate", g.name))
	return Executed, op(ctx)
}

func (g *Gate) await(ctx context.Context, seq uint64, kind PromptKind, reason string) (Outcome, error) {
	g.mu.Lock()
	if g.seq != seq || g.state != Checking {
		g.mu.Unlock()
		return Released, nil
	}
	g.state = AwaitingAuth
	g.prompt = Prompt{
		ID:            uuid.NewString(),
		Gate:          g.name,
		Kind:          kind,
		Reason:        reason,
		Action:        g.req.Action,
		RequiredRoles: slices.Clone(g.req.RequiredRoles),
		CreatedAt:     g.opts.Now(),
	}
	p := g.prompt
	scope := g.pendingCtx
	g.mu.Unlock()
	g.observe(Checking, AwaitingAuth)

	g.opts.Logger.DebugContext(ctx, "gate awaiting authentication",
		slog.String("gate", g.name),
		slog.String("prompt", kind.String()),
	)
	g.opts.Sink.Publish(context.WithoutCancel(ctx), p)

	g.mu.Lock()
	live := g.seq == seq && g.state == AwaitingAuth && g.prompt.ID == p.ID
	if live {
		g.announced = p.ID
	}
	g.mu.Unlock()

	if !live {
		g.publishClosed(p)
		if scope != nil && scope.Err() != nil {
			return Released, scope.Err()
		}
		return Released, nil
	}

	// The scope may have ended while Checking, before the watcher could release.
	if scope != nil && scope.Err() != nil {
		g.release(seq, "context done")
		return Released, scope.Err()
	}
	return Prompted, nil
}

// abort returns a Checking gate to Idle when the checking call's ctx ended.
func (g *Gate) abort(seq uint64) {
	g.mu.Lock()
	if g.seq != seq || g.state != Checking {
		g.mu.Unlock()
		return
	}
	g.clearLocked()
	g.mu.Unlock()
	g.observe(Checking, Idle)
}

func (g *Gate) release(seq uint64, cause string) {
	g.mu.Lock()
	if g.seq != seq || g.state != AwaitingAuth {
		g.mu.Unlock()
		return
	}
	closed := g.prompt
	announced := g.announced == closed.ID
	g.clearLocked()
	g.mu.Unlock()
	g.observe(AwaitingAuth, Idle)

	g.opts.Logger.Debug("gate released",
		slog.String("gate", g.name),
		slog.String("cause", cause),
	)
	if announced {
		g.publishClosed(closed)
	}
}

func (g *Gate) publishClosed(p Prompt) {
	p.Kind = PromptClosed
	p.CreatedAt = g.opts.Now()
	g.opts.Sink.Publish(context.Background(), p)
}

func (g *Gate) clearLocked() {
	g.pending = nil
	g.pendingCtx = nil
	g.prompt = Prompt{}
	g.announced = ""
	g.stopWatchLocked()
	g.state = Idle
}

func (g *Gate) stopWatchLocked() {
	if g.stopWatch != nil {
		g.stopWatch()
		g.stopWatch = nil
	}
}

func (g *Gate) hasRequiredRole(id *identity.Identity) bool {
	if id == nil {
		return false
	}
	if g.opts.Registry != nil && !g.requiredMask.Empty() {
		return id.Mask(g.opts.Registry).Intersects(g.requiredMask)
	}
	return slices.ContainsFunc(g.req.RequiredRoles, id.HasRole)
}

func (g *Gate) signInReason() string {
	if g.req.SignInReason != "" {
		return g.req.SignInReason
	}
	if g.req.Reason != "" {
		return g.req.Reason
	}
	return DefaultSignInReason
}

func (g *Gate) roleReason() string {
	if g.req.Reason != "" {
		return g.req.Reason
	}
	return DefaultRoleReason
}

func (g *Gate) observe(from, to State) {
	if g.opts.Observer != nil {
		g.opts.Observer(g.name, from, to)
	}
}
