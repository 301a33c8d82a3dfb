package app

import (
	"fmt"
	"net/http"

	"github.com/kapu/noaa-fisheries-web-go/internal/config"
	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/prefetch"
	"github.com/kapu/noaa-fisheries-web-go/internal/reveal"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/cache"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/catalog"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/fishapi"
	"github.com/kapu/noaa-fisheries-web-go/internal/session"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/kapu/noaa-fisheries-web-go/internal/web"
	"go.uber.org/zap"
)

// Container bundles the assembled services of the web front-end.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Server   *web.Server
	Sessions *session.Manager

	closers []func()
}

// Close releases infrastructure acquired by Build, in reverse order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all services and returns a container holding a ready HTTP
// server. The record cache is the only piece that talks to infrastructure at
// startup.
func Build(cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Upstream data API
	breaker := util.NewCircuitBreaker("fishapi",
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		logger,
	)
	fishClient := fishapi.NewClient(
		&http.Client{Timeout: cfg.FishAPI.Timeout},
		cfg.FishAPI.BaseURL,
		cfg.FishAPI.APIKey,
		breaker,
		logger,
	)

	// Record cache
	recordCache, err := newRecordCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() {
		_ = recordCache.Close()
	})

	cat := catalog.New(fishClient, recordCache, cfg.Cache.RecordTTL, logger)

	// Page sessions
	sessionCfg := session.Config{
		InitialCount: cfg.Reveal.InitialCount,
		Reveal: reveal.Config{
			BatchSize: cfg.Reveal.BatchSize,
			Delay:     cfg.Reveal.Delay,
		},
		ScrollThreshold: cfg.Reveal.ScrollThreshold,
		MarginPx:        cfg.Viewport.MarginPx,
		Prefetch: prefetch.Config{
			TierSize:        cfg.Prefetch.TierSize,
			TierStagger:     cfg.Prefetch.TierStagger,
			Residency:       cfg.Prefetch.Residency,
			RegionStagger:   cfg.Prefetch.RegionStagger,
			PriorityRegions: constants.PrefetchConfig.PriorityRegions,
			Debug:           cfg.Prefetch.Debug,
		},
	}
	sessions := session.NewManager(
		web.NewSessionLoader(cat),
		web.NewCardRenderer(cfg.Prefetch.TierSize),
		sessionCfg,
		logger,
	)

	server := web.NewServer(cat, sessions, fishClient, web.Options{
		Addr:         cfg.Server.Addr,
		InitialCount: cfg.Reveal.InitialCount,
		EagerCount:   cfg.Prefetch.TierSize,
	}, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Server:   server,
		Sessions: sessions,
		closers:  closers,
	}, nil
}

func newRecordCache(cfg *config.Config, logger *zap.Logger) (cache.RecordCache, error) {
	if !cfg.Redis.Enabled {
		logger.Info("Using in-memory record cache")
		return cache.NewMemoryRecordCache(), nil
	}

	redisCache, err := cache.NewRedisRecordCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis record cache: %w", err)
	}
	return redisCache, nil
}
