package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/marketflow/internal/api"
	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/bootstrap"
	"github.com/example/marketflow/internal/command"
	"github.com/example/marketflow/internal/config"
	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/domain/user"
	"github.com/example/marketflow/internal/infrastructure/kafka"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/example/marketflow/internal/logging"
	"github.com/example/marketflow/internal/metrics"
	"github.com/example/marketflow/internal/query"
	"github.com/example/marketflow/internal/scheduler"
	"github.com/example/marketflow/internal/seed"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(logging.ExitCode(logger, "api stopped", run(cfg, logger)))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting marketflow api",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("kafka", cfg.Kafka.Brokers))

	repo, closeRepo, err := bootstrap.OpenRepository(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if cfg.Store.SeedDemo {
		if _, err := seed.Demo(ctx, repo, hasher, logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	var publisher store.Publisher = store.NopPublisher{}
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn("kafka disabled, events are not published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	userSvc := user.NewService(repo, publisher, hasher, logger)
	queryHandler := query.NewHandler(repo)
	cmdHandler := command.NewHandler(
		product.NewService(repo, publisher, logger),
		cart.NewService(repo, publisher, logger),
		order.NewService(repo, publisher, logger),
		invoice.NewService(repo, publisher, logger),
		userSvc,
		queryHandler,
		m,
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Location)
	if err != nil {
		return fmt.Errorf("scheduler location %q: %w", cfg.Scheduler.Location, err)
	}
	sched, err := scheduler.New(cfg.Scheduler.OverdueSweepSpec, loc, cmdHandler, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	router := api.NewRouter(
		api.NewHandlers(cmdHandler, queryHandler, logger),
		api.NewAuthHandlers(userSvc, jwtService, cfg.Auth.CookieSecure, logger),
		jwtService,
		m,
		logger,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
