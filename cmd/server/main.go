// Command rewear-server runs the ReWear marketplace API.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/rewear/internal/config"
	pkgcrypto "github.com/and161185/rewear/internal/crypto"
	"github.com/and161185/rewear/internal/jobs"
	"github.com/and161185/rewear/internal/limiter"
	"github.com/and161185/rewear/internal/logging"
	"github.com/and161185/rewear/internal/migrate"
	"github.com/and161185/rewear/internal/repository"
	"github.com/and161185/rewear/internal/repository/memory"
	"github.com/and161185/rewear/internal/repository/postgres"
	"github.com/and161185/rewear/internal/revocation"
	grpcserver "github.com/and161185/rewear/internal/server/grpc"
	httpserver "github.com/and161185/rewear/internal/server/http"
	"github.com/and161185/rewear/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("health", cfg.HealthAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// purgeableLimiter is a limiter the housekeeping job can clean up.
type purgeableLimiter interface {
	limiter.Limiter
	jobs.Purger
}

// backends holds the storage-dependent collaborators chosen from config.
type backends struct {
	store   repository.Store
	lim     purgeableLimiter
	ping    func(context.Context) error
	closers []func()
}

func openBackends(ctx context.Context, cfg *config.Config, clk clock.Clock, log *zap.Logger) (*backends, error) {
	policy := limiter.Policy{Window: cfg.LimiterWindow, MaxFails: cfg.LimiterMaxFails, BlockFor: cfg.LimiterBlockFor}
	if cfg.DatabaseDSN == "" {
		log.Warn("REWEAR_DATABASE_DSN not set, using the in-memory store")
		return &backends{
			store: memory.NewStore(memory.New(clk)),
			lim:   limiter.NewMemory(policy, clk),
			ping:  func(context.Context) error { return nil },
		}, nil
	}

	if err := migrate.Up(ctx, cfg.DatabaseDSN, log); err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, cfg.DatabaseDSN, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	return &backends{
		store:   postgres.NewStore(db),
		lim:     limiter.NewPG(db.Pool, policy, clk),
		ping:    db.Ping,
		closers: []func(){db.Close},
	}, nil
}

func openRevocation(ctx context.Context, cfg *config.Config, clk clock.Clock, log *zap.Logger) (revocation.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REWEAR_REDIS_ADDR not set, revoked tokens are kept in memory")
		return revocation.NewMemory(clk), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return revocation.NewRedis(rdb, clk), func() { _ = rdb.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	clk := clock.New()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	be, err := openBackends(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range be.closers {
			c()
		}
	}()
	revoked, closeRedis, err := openRevocation(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	settle := service.NewSettlementService(be.store,
		service.RetryPolicy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}, loc, log)
	auth := service.NewAuthService(be.store, settle, pkgcrypto.NewHasher(pkgcrypto.DefaultParams), be.lim, revoked,
		service.AuthConfig{SignKey: []byte(cfg.JWTKey), AccessTTL: cfg.AccessTTL, StartingPoints: cfg.StartingPoints}, clk, log)

	router, err := httpserver.NewRouter(httpserver.Services{
		Auth:       auth,
		Settlement: settle,
		Listings:   service.NewListingService(be.store),
		Moderation: service.NewModerationService(be.store, log),
		Dashboard:  service.NewDashboardService(be.store, loc),
	}, httpserver.Options{
		CORSOrigins:  cfg.CORSOrigins,
		CookieSecure: cfg.CookieSecure,
		TokenTTL:     cfg.AccessTTL,
	}, log)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched, err := jobs.NewScheduler(cfg.LimiterPurge, be.lim, cfg.LimiterWindow+cfg.LimiterBlockFor, loc, clk, log)
	if err != nil {
		return err
	}

	health := grpcserver.NewHealth(log)
	healthLis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return health.Serve(healthLis) })
	g.Go(func() error {
		watchDependencies(gctx, be.ping, health, log)
		return nil
	})
	sched.Start()

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		health.SetServing(false)
		sched.Stop(sctx)
		err := httpSrv.Shutdown(sctx)
		health.Shutdown(sctx)
		return err
	})
	return g.Wait()
}

// watchDependencies mirrors database reachability into the health status.
func watchDependencies(ctx context.Context, ping func(context.Context) error, health *grpcserver.HealthServer, log *zap.Logger) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := ping(pctx)
			cancel()
			if ok := err == nil; ok != serving {
				serving = ok
				health.SetServing(ok)
				log.Warn("dependency status changed", zap.Bool("serving", ok), zap.Error(err))
			}
		}
	}
}
