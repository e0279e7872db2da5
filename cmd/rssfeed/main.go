package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rssfeed/internal/cache"
	"rssfeed/internal/config"
	"rssfeed/internal/database"
	"rssfeed/internal/diagnostics"
	"rssfeed/internal/feed"
	"rssfeed/internal/ratelimiter"
	"rssfeed/internal/scheduler"
	"rssfeed/internal/server"
	"rssfeed/internal/service"
)

type cacheBackend struct {
	backend   cache.Backend
	close     func()
	uninstall func(ctx context.Context) error
}

func main() {
	uninstall := flag.Bool("uninstall", false, "remove cached feed data from the configured backend and exit")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	backend, err := initCacheBackend(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize cache backend",
			"error", err,
			"cacheBackend", cfg.CacheBackend)

		return
	}
	defer backend.close()
	log.InfoContext(ctx, "Cache backend is initialized",
		"cacheBackend", cfg.CacheBackend)

	if *uninstall {
		if err = backend.uninstall(ctx); err != nil {
			log.ErrorContext(ctx, "Failed to uninstall cache",
				"error", err,
				"cacheBackend", cfg.CacheBackend)

			return
		}
		log.InfoContext(ctx, "Cache is uninstalled",
			"cacheBackend", cfg.CacheBackend)

		return
	}

	diagLog, diagCloser := diagnostics.NewFileLogger(cfg.DiagnosticsLogPath)
	defer func() {
		if err = diagCloser.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close diagnostics log",
				"error", err,
				"diagnosticsLog", cfg.DiagnosticsLogPath)
		}
	}()
	sink := diagnostics.New(diagLog)

	var fetcher feed.Fetcher = feed.NewHTTPFetcher(cfg.FetchTimeout)
	if cfg.FetchHostInterval > 0 {
		fetcher = feed.NewLimitedFetcher(fetcher, ratelimiter.New(cfg.FetchHostInterval, log))
	}

	aggregator := feed.NewAggregator(fetcher, sink, cfg.FetchConcurrency, log)
	svc := service.New(aggregator, cache.NewStore(backend.backend), sink, log)
	aggCfg := cfg.Aggregation()

	if len(aggCfg.Sources) == 0 {
		log.WarnContext(ctx, "FEED_SOURCES is empty so the fallback message will be served",
			"envVar", "FEED_SOURCES")
	}

	sched := scheduler.New(ctx, svc, aggCfg, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.Spec(aggCfg))

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.Spec(aggCfg),
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	srv := server.New(svc, aggCfg, log)
	serverErr := make(chan error, 1)

	go func() {
		serverErr <- srv.Start(cfg.HTTPAddr)
	}()
	log.InfoContext(ctx, "Server is started",
		"httpAddr", cfg.HTTPAddr,
		"sourceCount", len(aggCfg.Sources))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-serverErr:
		if err != nil {
			log.ErrorContext(ctx, "Failed to serve",
				"error", err,
				"httpAddr", cfg.HTTPAddr)
		}
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	if err = srv.Shutdown(context.Background()); err != nil {
		log.ErrorContext(ctx, "Failed to shut down server",
			"error", err,
			"httpAddr", cfg.HTTPAddr)
	}
	log.InfoContext(ctx, "Server is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initCacheBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (cacheBackend, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		db, err := database.New(ctx, cfg.DBPath, log)
		if err != nil {
			return cacheBackend{}, err
		}

		return cacheBackend{
			backend: db,
			close: func() {
				if err := db.Close(); err != nil {
					log.ErrorContext(ctx, "Failed to close db",
						"error", err,
						"dbPath", cfg.DBPath)
				}
			},
			uninstall: db.Uninstall,
		}, nil
	case config.CacheBackendPostgres:
		pg, closePool, err := database.ConnectPostgres(ctx, cfg.PostgresURL, log)
		if err != nil {
			return cacheBackend{}, err
		}

		return cacheBackend{backend: pg, close: closePool, uninstall: pg.Uninstall}, nil
	case config.CacheBackendRedis:
		rdb, err := cache.NewRedisBackendWithURL(cfg.RedisURL)
		if err != nil {
			return cacheBackend{}, err
		}

		return cacheBackend{
			backend: rdb,
			close: func() {
				if err := rdb.Close(); err != nil {
					log.ErrorContext(ctx, "Failed to close redis client",
						"error", err)
				}
			},
			uninstall: func(ctx context.Context) error {
				deleted, err := rdb.Purge(ctx, service.CacheKeyPrefix+"*")
				if err != nil {
					return err
				}

				log.InfoContext(ctx, "Redis cache keys are purged",
					"deletedCount", deleted)

				return nil
			},
		}, nil
	case config.CacheBackendMemory:
		return cacheBackend{
			backend:   cache.NewMemoryBackend(),
			close:     func() {},
			uninstall: func(context.Context) error { return nil },
		}, nil
	default:
		return cacheBackend{}, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
