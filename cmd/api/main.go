package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/httpx"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/postgres"
	"github.com/ariefcatur/go-shop-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Inventory: Postgres holds the catalog of record; the reservation
	// path can run against Redis for hot sales.
	pgStore := &inventory.PostgresStore{DB: db}
	var invStore inventory.Store = pgStore
	if cfg.InventoryBackend == "redis" {
		rs := &inventory.RedisStore{Client: rdb}
		products, err := pgStore.ListProducts(ctx, inventory.ProductFilter{Limit: 10000})
		if err != nil {
			logger.Fatal("load products for redis sync", zap.Error(err))
		}
		if err := rs.Sync(ctx, products); err != nil {
			logger.Fatal("redis stock sync", zap.Error(err))
		}
		logger.Info("inventory backend: redis", zap.Int("products", len(products)))
		invStore = rs
	}

	// Kafka producers, one per topic
	prodPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	prodPlaced.Start(ctx)
	prodRejected := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderRejected, 1024, logger)
	prodRejected.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	prodStatus.Start(ctx)

	repo := &orders.Repo{DB: db}
	placer := &orders.Placer{Inventory: invStore, Orders: repo, Logger: logger}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Placer:         placer,
		Store:          repo,
		Producer:       prodPlaced,
		ProducerReject: prodRejected,
		ProducerStatus: prodStatus,
		Redis:          rdb,
		Logger:         logger,
		Service:        cfg.ServiceName,
	}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Catalog: pgStore, Logger: logger}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{prodPlaced, prodRejected, prodStatus} {
		p.Close()
		p.WaitClosed()
	}
	placer.WaitReleases()
	cancel()
}
