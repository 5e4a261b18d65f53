package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "karavanCanteen/internal/api/http"
	"karavanCanteen/internal/auth"
	"karavanCanteen/internal/config"
	"karavanCanteen/internal/dashboard"
	"karavanCanteen/internal/db"
	"karavanCanteen/internal/events"
	grpcserver "karavanCanteen/internal/grpc"
	"karavanCanteen/internal/lifecycle"
	"karavanCanteen/internal/ordernum"
	"karavanCanteen/internal/receipt"
	"karavanCanteen/internal/reporting"
	"karavanCanteen/internal/telemetry"
	"karavanCanteen/repository"

	"github.com/redis/go-redis/v9"
)

func main() {
	seed := flag.Bool("seed", false, "insert demo users and menu items if missing")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := telemetry.InitLogger()
	logger.Info("configuration loaded", "config", cfg.String())

	// Open DB
	dialect := db.Dialect(cfg.Database.Driver)
	d, err := db.OpenDialect(dialect, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	users := repository.NewUserRepository(d, dialect)
	orders := repository.NewOrderRepository(d, dialect)
	menu := repository.NewMenuRepository(d, dialect)

	if *seed {
		if err := seedDemo(context.Background(), users, menu); err != nil {
			log.Fatalf("seed: %v", err)
		}
		logger.Info("demo data seeded")
	}

	var numbers lifecycle.NumberSource = ordernum.NewTimestamp()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		numbers = ordernum.NewRedisSequence(rdb, cfg.Reports.Location)
		logger.Info("order numbers from redis", "addr", cfg.Redis.Addr)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.Kafka.Broker != "" {
		w := events.NewKafkaWriter(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer w.Close()
		pub = events.NewKafkaPublisher(w)
		logger.Info("publishing order events", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
	}

	engine := lifecycle.NewEngine(orders, numbers, pub, logger)
	engine.PrepTime = cfg.Orders.PrepTime
	engine.Policy = lifecycle.Policy{OwnerCancelConfirmed: cfg.Orders.OwnerCancelConfirmed}
	engine.ServiceFee = cfg.Orders.ServiceFee

	dashboards := dashboard.NewService(orders, logger)
	reports := reporting.NewEngine(orders, menu, cfg.Reports.Location, logger)

	// Start gRPC
	shutdownGRPC, err := grpcserver.StartGRPC(cfg, &grpcserver.Server{Orders: engine, Dashboards: dashboards, Menu: menu}, users, logger)
	if err != nil {
		log.Fatalf("start grpc: %v", err)
	}
	logger.Info("gRPC server listening", "addr", cfg.GRPC.Address)

	// Start HTTP
	handler := httpapi.NewHandler(engine, dashboards, reports, menu, receipt.DefaultQRGenerator{BaseURL: cfg.HTTP.PublicBaseURL}, logger)
	router := httpapi.NewRouter(handler, auth.HTTPMiddleware(cfg.Auth.JWTSecret, users, logger, "/health"))
	httpSrv := httpapi.NewServer(cfg.HTTP.Address, router)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()
	logger.Info("HTTP server listening", "addr", cfg.HTTP.Address)

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := shutdownGRPC(ctx); err != nil {
		log.Printf("grpc shutdown error: %v", err)
	}
}
