package goGuard

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/client"
	"github.com/MrEthical07/goGuard/cookie"
	"github.com/MrEthical07/goGuard/gate"
	"github.com/MrEthical07/goGuard/identity"
	"github.com/MrEthical07/goGuard/role"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	logger     *slog.Logger
	httpClient *http.Client
	promptSink gate.PromptSink
	persister  identity.Persister

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for profile persistence.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPersister overrides the Redis-backed profile persister.
func (b *Builder) WithPersister(p identity.Persister) *Builder {
	b.persister = p
	return b
}

// WithLogger sets the structured logger. The default discards.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHTTPClient sets the client used to reach the identity service. Its cookie jar,
// or a fresh one, becomes the engine's token store.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithPromptSink sets where gate prompts are delivered.
func (b *Builder) WithPromptSink(sink gate.PromptSink) *Builder {
	b.promptSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the identity fetch latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready engine. It performs no I/O.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// -------- ROLE REGISTRY --------
	registry, err := role.NewRegistry(cfg.Gate.Roles...)
	if err != nil {
		return nil, err
	}
	registry.Freeze()

	// -------- PERSISTENCE --------
	persister := b.persister
	if persister == nil && cfg.Persistence.Enabled {
		if b.redis == nil {
			return nil, ErrRedisRequired
		}
		persister = identity.NewRedisStore(b.redis, cfg.Persistence.RedisPrefix, cfg.Persistence.TTL)
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		rules:    cfg.rules(),
		names:    cfg.names(),
		policy:   cfg.policy(),
		registry: registry,
		tokens:   noSession{},
	}
	engine.cache = identity.NewCache(persister, cfg.Identity.ClientKey, logger)

	// -------- IDENTITY CLIENT --------
	if cfg.Identity.BaseURL != "" {
		c, err := client.New(cfg.Identity.BaseURL,
			client.WithHTTPClient(b.httpClient),
			client.WithTimeout(cfg.Identity.Timeout),
			client.WithLogger(logger),
			client.WithOnUnauthorized(engine.onUnauthorized),
		)
		if err != nil {
			return nil, err
		}
		engine.client = c
		engine.tokens = cookie.NewJarStore(c.Jar(), c.BaseURL(), engine.names, engine.policy)
	}

	// -------- PROMPTS --------
	engine.prompts = gate.NewDispatcher(gate.DispatcherConfig{
		BufferSize: cfg.Gate.PromptBufferSize,
		DropIfFull: cfg.Gate.DropIfFull,
	}, b.promptSink)

	b.built = true

	return engine, nil
}

// noSession is the token store of an engine without an identity service.
type noSession struct{}

func (noSession) HasSession() bool { return false }
func (noSession) Clear()           {}
