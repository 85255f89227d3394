package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/grocart/storefront/internal/auth"
	"github.com/grocart/storefront/internal/catalog"
	"github.com/grocart/storefront/internal/config"
	"github.com/grocart/storefront/internal/httpx"
	kafkax "github.com/grocart/storefront/internal/kafka"
	"github.com/grocart/storefront/internal/logging"
	"github.com/grocart/storefront/internal/metrics"
	"github.com/grocart/storefront/internal/orders"
	"github.com/grocart/storefront/internal/postgres"
	"github.com/grocart/storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	placed.Start(ctx)
	status := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024, log)
	status.Start(ctx)

	store := &catalog.PGStore{DB: db}
	engine := &orders.Engine{
		Catalog: store,
		Repo:    &orders.Repo{DB: db},
		Sink: &orders.KafkaSink{
			Placed:  placed,
			Status:  status,
			Service: cfg.ServiceName,
			Log:     log,
		},
		Log: log,
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	oh := &httpx.OrdersHandler{Engine: engine, Redis: rdb, Log: log}
	ph := &httpx.ProductsHandler{Store: store, Log: log}

	router := httpx.NewRouter(metrics.NewServerMetrics("api"))
	ph.Register(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		oh.Register(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			oh.RegisterAdmin(r)
			ph.RegisterAdmin(r)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	placed.Close()
	status.Close()
	cancel()
	placed.WaitClosed()
	status.WaitClosed()
}
