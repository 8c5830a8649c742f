package main

import (
	"context"
	"os"
	"time"

	invapp "github.com/dmehra2102/storefront/internal/inventory/application"
	invgrpc "github.com/dmehra2102/storefront/internal/inventory/infrastructure/grpc"
	invmemory "github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
	invpg "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// inventory-service serves the catalog read side over gRPC so storefront
// replicas can run with CATALOG_GRPC_ADDR pointing here.
func main() {
	cfg := config.Load("inventory-service")
	log := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	var repo invapp.ProductRepository
	var steps []shutdown.Step
	if cfg.StoreDriver == "memory" {
		repo = invmemory.NewRepository()
	} else {
		pool, err := postgres.Connect(ctx, cfg.PGURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Error("pg migrate failed", "err", err)
			os.Exit(1)
		}
		repo = invpg.NewRepository(log, pool)
		steps = append(steps, shutdown.Step{Name: "postgres", Fn: func(context.Context) error { pool.Close(); return nil }})
	}

	gs, hs, err := invgrpc.Run(cfg.GRPCAddr, invgrpc.NewServer(log, invapp.NewCatalog(repo)))
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	log.Info("grpc listening", "addr", cfg.GRPCAddr)

	<-ctx.Done()

	hs.Shutdown()
	steps = append([]shutdown.Step{{Name: "grpc", Fn: func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			gs.Stop()
		}
		return nil
	}}}, steps...)
	steps = append(steps, shutdown.Step{Name: "tracing", Fn: tp.Shutdown})
	shutdown.Drain(log, 10*time.Second, steps...)
}
