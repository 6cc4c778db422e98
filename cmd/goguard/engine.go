package main

import (
	"fmt"
	"log/slog"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/gate"
)

// buildEngine builds an engine from s. With persistence enabled and no Redis address
// an in-process miniredis is started, so profiles survive only as long as the process.
func buildEngine(s settings, logger *slog.Logger, sink gate.PromptSink) (*goGuard.Engine, func(), error) {
	cleanup := func() {}

	for _, w := range s.engine.Lint() {
		logger.Warn("config lint", slog.String("code", w.Code), slog.String("message", w.Message))
	}

	b := goGuard.New().
		WithConfig(s.engine).
		WithLogger(logger).
		WithPromptSink(sink)

	if s.engine.Persistence.Enabled {
		addr := s.redisAddr
		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, cleanup, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Info("using in-process redis", slog.String("addr", addr))
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			if mr != nil {
				mr.Close()
			}
		}
		b = b.WithRedis(rdb)
	}

	engine, err := b.Build()
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	release := cleanup
	return engine, func() {
		engine.Close()
		release()
	}, nil
}
