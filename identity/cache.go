package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Cache is the process-wide record of the signed-in user. It is safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	current     *Identity
	provisional bool

	// persistMu orders writes to the persister so a later Set is never overwritten
	// by an earlier one.
	persistMu sync.Mutex
	persister Persister
	clientKey string
	logger    *slog.Logger
}

// NewCache creates an empty cache. persister may be nil.
func NewCache(persister Persister, clientKey string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clientKey == "" {
		clientKey = "default"
	}
	return &Cache{
		persister: persister,
		clientKey: clientKey,
		logger:    logger,
	}
}

// Set replaces the identity; nil clears it. The new value is reconciled. Persistence
// is best effort: failures are logged and never reported.
func (c *Cache) Set(ctx context.Context, id *Identity) {
	id = id.Clone()

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.current = id
	c.provisional = false
	c.mu.Unlock()

	if c.persister == nil {
		return
	}

	var err error
	if id == nil {
		err = c.persister.Delete(ctx, c.clientKey)
	} else {
		err = c.persister.Save(ctx, c.clientKey, id)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "identity persistence failed",
			slog.String("client_key", c.clientKey),
			slog.Bool("clear", id == nil),
			slog.Any("error", err),
		)
	}
}

// Get returns a copy of the current identity, or nil when signed out.
func (c *Cache) Get() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// IsAuthenticated reports whether an identity is present.
func (c *Cache) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Provisional reports whether the current identity came from persistence and has not
// been confirmed by the identity service since.
func (c *Cache) Provisional() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil && c.provisional
}

// Restore loads a persisted profile into an empty cache and marks it provisional.
// It reports whether a profile was loaded. A corrupt or missing profile is not an error.
func (c *Cache) Restore(ctx context.Context) (bool, error) {
	if c.persister == nil {
		return false, nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	id, err := c.persister.Load(ctx, c.clientKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case errors.Is(err, ErrCorruptProfile):
		c.logger.WarnContext(ctx, "discarding corrupt persisted identity",
			slog.String("client_key", c.clientKey),
			slog.Any("error", err),
		)
		return false, nil
	case err != nil:
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return false, nil
	}
	c.current = id
	c.provisional = true
	return true, nil
}
