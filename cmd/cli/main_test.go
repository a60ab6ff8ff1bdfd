package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"go.uber.org/zap/zaptest"

	pkgcrypto "github.com/and161185/rewear/internal/crypto"
	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/repository/memory"
	grpcserver "github.com/and161185/rewear/internal/server/grpc"
	"github.com/and161185/rewear/internal/service"
)

func Test_bootstrapAdmin(t *testing.T) {
	store := memory.NewStore(memory.New(clock.NewMock()))
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	a, err := bootstrapAdmin(ctx, store, "Root", "Root@ReWear.test", "secret1", log)
	if err != nil {
		t.Fatalf("bootstrapAdmin: %v", err)
	}
	if !a.Approved || a.ApprovedBy == nil || *a.ApprovedBy != a.ID {
		t.Fatalf("admin not self-approved: %+v", a)
	}
	got, err := store.Admins().GetByEmail(ctx, "root@rewear.test")
	if err != nil || !got.Approved || got.Username != "root" {
		t.Fatalf("stored admin mismatch: %+v, %v", got, err)
	}

	// the bootstrapped admin can approve a pending one
	auth := service.NewAuthService(store, nil, pkgcrypto.NewHasher(pkgcrypto.DefaultParams), nil, nil, service.AuthConfig{}, nil, log)
	pending, err := auth.RegisterAdmin(ctx, "pending", "pending@rewear.test", "secret1")
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}
	mod := service.NewModerationService(store, log)
	approved, err := mod.ApproveAdmin(ctx, a.ID, pending.ID)
	if err != nil || !approved.Approved {
		t.Fatalf("ApproveAdmin: %+v, %v", approved, err)
	}
	if _, err := mod.ApproveAdmin(ctx, a.ID, a.ID); !errors.Is(err, errs.ErrNotAvailable) {
		t.Fatalf("want not available for already approved admin, got %v", err)
	}

	if _, err := bootstrapAdmin(ctx, store, "root2", "root@rewear.test", "secret1", log); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want duplicate email error, got %v", err)
	}
	if _, err := bootstrapAdmin(ctx, store, "", "x@rewear.test", "secret1", log); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func Test_purgeLimiter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM auth_limiter`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := purgeLimiter(context.Background(), mock, time.Hour)
	if err != nil || n != 4 {
		t.Fatalf("purgeLimiter: n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func Test_checkHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	hs := grpcserver.NewHealth(zaptest.NewLogger(t))
	go func() { _ = hs.Serve(lis) }()
	t.Cleanup(func() { hs.Shutdown(context.Background()) })

	st, err := checkHealth(context.Background(), lis.Addr().String(), grpcserver.ServiceName)
	if err != nil || st != "SERVING" {
		t.Fatalf("checkHealth: %q, %v", st, err)
	}

	hs.SetServing(false)
	st, err = checkHealth(context.Background(), lis.Addr().String(), grpcserver.ServiceName)
	if err != nil || st != "NOT_SERVING" {
		t.Fatalf("checkHealth after toggle: %q, %v", st, err)
	}

	if _, err := checkHealth(context.Background(), lis.Addr().String(), "unknown.Service"); err == nil {
		t.Fatalf("want NotFound for unknown service")
	}
}
