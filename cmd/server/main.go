// Command sorryboard-server serves the apology board HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/config"
	"github.com/and161185/sorryboard/internal/limiter"
	"github.com/and161185/sorryboard/internal/metrics"
	"github.com/and161185/sorryboard/internal/migrate"
	"github.com/and161185/sorryboard/internal/repository/rest"
	"github.com/and161185/sorryboard/internal/security"
	httpserver "github.com/and161185/sorryboard/internal/server/http"
	"github.com/and161185/sorryboard/internal/service"
	"github.com/and161185/sorryboard/internal/tablestore"
	"github.com/and161185/sorryboard/internal/validation"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// purgeEvery is how often stale postgres limiter rows are removed.
const purgeEvery = 10 * time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("limiter", cfg.Limiter.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules, err := cfg.Rules()
	if err != nil {
		logger.Fatal("validation rules", zap.Error(err))
	}

	m := metrics.New()
	store, err := tablestore.New(tablestore.Options{
		BaseURL:    cfg.Store.URL,
		AnonKey:    cfg.Store.AnonKey,
		Exec:       tablestore.Browser(),
		HTTPClient: &http.Client{Timeout: cfg.Store.Timeout},
		Logger:     logger,
		Observe:    m.ObserveStore,
	})
	if err != nil {
		logger.Fatal("table store", zap.Error(err))
	}
	repo := rest.NewMessageRepo(store, logger)

	lim, closeLim, err := buildLimiter(ctx, cfg.Limiter, logger)
	if err != nil {
		logger.Fatal("limiter", zap.Error(err))
	}
	defer closeLim()

	sec := security.NewLogger(logger)
	router := httpserver.NewRouter(httpserver.Deps{
		Submit: service.NewSubmissionService(service.SubmissionDeps{
			Repo:      repo,
			Validator: validation.New(rules),
			Limiter:   lim,
			Security:  sec,
			Metrics:   m,
			Logger:    logger,
		}),
		Browse:   service.NewBrowseService(repo),
		Security: sec,
		Metrics:  m,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildLimiter constructs the configured limiter backend and its cleanup.
func buildLimiter(ctx context.Context, cfg config.LimiterConfig, log *zap.Logger) (limiter.Limiter, func(), error) {
	switch cfg.Backend {
	case limiter.BackendNone:
		return limiter.Nop{}, func() {}, nil
	case limiter.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable at startup", zap.Error(err))
		}
		return limiter.NewRedis(rdb, cfg.Window), func() { _ = rdb.Close() }, nil
	case limiter.BackendPostgres:
		if err := migrate.Up(ctx, cfg.DSN, log); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := limiter.NewPG(pool, cfg.Window)
		go purgeLoop(ctx, pg, log)
		return pg, pool.Close, nil
	default:
		return limiter.NewMemory(cfg.Window, 1), func() {}, nil
	}
}

func purgeLoop(ctx context.Context, pg *limiter.PG, log *zap.Logger) {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := pg.Purge(ctx)
			if err != nil {
				log.Warn("purge limiter rows", zap.Error(err))
				continue
			}
			log.Debug("purged limiter rows", zap.Int64("rows", n))
		}
	}
}
