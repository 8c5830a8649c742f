package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	carthttp "github.com/dmehra2102/storefront/internal/cart/infrastructure/http"
	cartmemory "github.com/dmehra2102/storefront/internal/cart/infrastructure/memory"
	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	catapp "github.com/dmehra2102/storefront/internal/category/application"
	cathttp "github.com/dmehra2102/storefront/internal/category/infrastructure/http"
	catmemory "github.com/dmehra2102/storefront/internal/category/infrastructure/memory"
	catpg "github.com/dmehra2102/storefront/internal/category/infrastructure/postgres"
	invapp "github.com/dmehra2102/storefront/internal/inventory/application"
	invgrpc "github.com/dmehra2102/storefront/internal/inventory/infrastructure/grpc"
	invhttp "github.com/dmehra2102/storefront/internal/inventory/infrastructure/http"
	invmemory "github.com/dmehra2102/storefront/internal/inventory/infrastructure/memory"
	invpg "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/storefront/internal/order/infrastructure/kafka"
	ordermemory "github.com/dmehra2102/storefront/internal/order/infrastructure/memory"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/postgres"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type stores struct {
	products   invapp.ProductRepository
	stock      invapp.StockStore
	categories catapp.Repository
	carts      cartapp.Repository
	orders     orderapp.Repository
}

func main() {
	cfg := config.Load("storefront-service")
	log := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	var (
		st    stores
		pool  *pgxpool.Pool
		rdb   *redis.Client
		steps []shutdown.Step
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("running with in-memory stores; nothing is persisted")
		st = memoryStores()
	case "postgres":
		pool, err = postgres.Connect(ctx, cfg.PGURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Error("pg migrate failed", "err", err)
			os.Exit(1)
		}
		st = pgStores(log, pool)
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable; rate limiting and consumer de-duplication degraded", "err", err)
		}
	default:
		log.Error("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
		os.Exit(1)
	}

	catalog := invapp.NewCatalog(st.products)
	ledger := invapp.NewLedger(log, st.stock)

	// Cart views and checkout snapshots read the catalog either in-process
	// or from a remote inventory-service.
	var reader orderapp.ProductReader = catalog
	if cfg.CatalogGRPC != "" {
		client, err := invgrpc.NewClient(log, cfg.CatalogGRPC)
		if err != nil {
			log.Error("catalog client failed", "addr", cfg.CatalogGRPC, "err", err)
			os.Exit(1)
		}
		reader = client
		steps = append(steps, shutdown.Step{Name: "catalog-client", Fn: func(context.Context) error { return client.Close() }})
		log.Info("using remote catalog", "addr", cfg.CatalogGRPC)
	}

	carts := cartapp.NewService(log, st.carts, reader)
	orders := orderapp.NewService(log, st.orders, ledger, reader, carts)
	categories := catapp.NewService(log, st.categories)

	var limiter redis.Cmdable
	if rdb != nil {
		limiter = rdb
	}
	checkoutLimit := httpx.RateLimit(log, limiter, "checkout", cfg.CheckoutLimit, cfg.CheckoutEvery)

	cartH := carthttp.NewHandler(log, carts, orders, checkoutLimit)
	orderH := orderhttp.NewHandler(log, orders)
	catH := cathttp.NewHandler(log, categories)
	productH := invhttp.NewHandler(log, catalog)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireUser)
		r.Mount("/cart", cartH.Routes())
		r.Mount("/orders", orderH.Routes())
	})
	r.Mount("/categories", catH.Routes())
	r.Mount("/products", productH.Routes())
	r.Mount("/admin/orders", orderH.AdminRoutes())
	r.Mount("/admin/products", productH.AdminRoutes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if pool != nil {
		dispatch, closeDispatch, err := newDispatcher(cfg, log)
		if err != nil {
			log.Error("outbox dispatcher failed", "sink", cfg.OutboxSink, "err", err)
			os.Exit(1)
		}
		steps = append(steps, shutdown.Step{Name: "outbox-dispatcher", Fn: func(context.Context) error { return closeDispatch() }})

		relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, cfg.ServiceName+"-relay")
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()

		var dedup orderkafka.Deduper
		if rdb != nil {
			dedup = idempotency.NewStore(rdb, cfg.IdemTTL)
		}
		consumer := orderkafka.NewPaymentConsumer(log,
			orderkafka.NewPaymentReader(cfg.KafkaBrokers, cfg.PaymentTopic, cfg.PaymentGroup), orders, dedup)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("payment consumer stopped", "err", err)
				cancel()
			}
		}()
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	steps = append([]shutdown.Step{{Name: "http", Fn: srv.Shutdown}}, steps...)
	if rdb != nil {
		steps = append(steps, shutdown.Step{Name: "redis", Fn: func(context.Context) error { return rdb.Close() }})
	}
	if pool != nil {
		steps = append(steps, shutdown.Step{Name: "postgres", Fn: func(context.Context) error { pool.Close(); return nil }})
	}
	steps = append(steps, shutdown.Step{Name: "tracing", Fn: tp.Shutdown})
	shutdown.Drain(log, 10*time.Second, steps...)
}

func memoryStores() stores {
	products := invmemory.NewRepository()
	return stores{
		products:   products,
		stock:      products,
		categories: catmemory.NewRepository(),
		carts:      cartmemory.NewRepository(),
		orders:     ordermemory.NewRepository(),
	}
}

func pgStores(log *slog.Logger, pool *pgxpool.Pool) stores {
	products := invpg.NewRepository(log, pool)
	return stores{
		products:   products,
		stock:      products,
		categories: catpg.NewRepository(log, pool),
		carts:      cartpg.NewRepository(log, pool),
		orders:     orderpg.NewRepository(log, pool),
	}
}

// newDispatcher picks the outbox sink named by OUTBOX_SINK.
func newDispatcher(cfg config.Config, log *slog.Logger) (outbox.Dispatcher, func() error, error) {
	switch cfg.OutboxSink {
	case "amqp":
		d, err := outbox.NewAMQPDispatcher(log, cfg.AMQPURL, cfg.OutboxTopic)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case "kafka":
		w := outbox.NewKafkaWriter(cfg.KafkaBrokers)
		return outbox.NewKafkaDispatcher(log, w, cfg.OutboxTopic), w.Close, nil
	default:
		return nil, nil, errors.New("unknown outbox sink " + cfg.OutboxSink)
	}
}
