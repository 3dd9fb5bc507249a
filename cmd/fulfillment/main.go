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

	"github.com/inkforge/studio-fulfillment/internal/appointments"
	"github.com/inkforge/studio-fulfillment/internal/config"
	"github.com/inkforge/studio-fulfillment/internal/fulfillment"
	"github.com/inkforge/studio-fulfillment/internal/httpx"
	"github.com/inkforge/studio-fulfillment/internal/inventory"
	kafkax "github.com/inkforge/studio-fulfillment/internal/kafka"
	"github.com/inkforge/studio-fulfillment/internal/ledger"
	"github.com/inkforge/studio-fulfillment/internal/orders"
	"github.com/inkforge/studio-fulfillment/internal/postgres"
	"github.com/inkforge/studio-fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: completed report & stock shortfalls
	pDone := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicFulfillmentCompleted, 1024)
	pDone.Start(ctx)
	pShort := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockInsufficient, 1024)
	pShort.Start(ctx)

	// Orchestrator wiring
	orderRepo := &orders.Repo{DB: db}
	orch := &fulfillment.Orchestrator{
		Orders:       orderRepo,
		Ledger:       &ledger.Creator{Store: &ledger.PgStore{DB: db}},
		Appointments: &appointments.Scheduler{Store: &appointments.PgStore{DB: db}},
		Inventory:    &inventory.Engine{Store: &inventory.PgStore{DB: db}},
		Cache:        &fulfillment.RedisReportCache{Client: rdb},
		Completed:    pDone,
		Short:        pShort,
		Policy: fulfillment.Policy{
			RequireStock:    cfg.RequireStock,
			ProducerTimeout: cfg.ProducerTimeout,
		},
		Service: cfg.ServiceName,
		Logger:  log,
	}

	router := httpx.NewRouter()
	fh := &httpx.FulfillmentHandler{
		Orchestrator: orch,
		Orders:       orderRepo,
		Redis:        rdb,
		Logger:       log,
	}
	fh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pDone.Close()
	pShort.Close()
	cancel() // stop producer loops
	pDone.WaitClosed()
	pShort.WaitClosed()
}
