package main

import (
	"context"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pkgcrypto "github.com/and161185/rewear/internal/crypto"
	"github.com/and161185/rewear/internal/limiter"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
	"github.com/and161185/rewear/internal/repository/postgres"
	"github.com/and161185/rewear/internal/service"
)

func openStore(ctx context.Context, dsn string) (*postgres.DB, repository.Store, error) {
	db, err := postgres.New(ctx, dsn, 2, 0)
	if err != nil {
		return nil, nil, err
	}
	return db, postgres.NewStore(db), nil
}

// bootstrapAdmin creates an admin that is approved by itself. It is the
// only way to get the first admin, since approval needs an approved admin.
func bootstrapAdmin(ctx context.Context, store repository.Store, username, email, password string, log *zap.Logger) (model.Admin, error) {
	var out model.Admin
	err := store.Atomic(ctx, func(tx repository.Store) error {
		auth := service.NewAuthService(tx, nil, pkgcrypto.NewHasher(pkgcrypto.DefaultParams), nil, nil, service.AuthConfig{}, nil, log)
		a, err := auth.RegisterAdmin(ctx, username, email, password)
		if err != nil {
			return err
		}
		if err := tx.Admins().Approve(ctx, a.ID, a.ID); err != nil {
			return err
		}
		a.Approved, a.ApprovedBy = true, &a.ID
		out = a
		return nil
	})
	return out, err
}

// purgeLimiter drops limiter rows idle for longer than older.
func purgeLimiter(ctx context.Context, pool postgres.PgxPool, older time.Duration) (int64, error) {
	clk := clock.New()
	lim := limiter.NewPG(pool, limiter.DefaultPolicy, clk)
	return lim.Purge(ctx, clk.Now().Add(-older))
}

// checkHealth calls grpc.health.v1.Health/Check and returns the status name.
func checkHealth(ctx context.Context, addr, svc string) (string, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
