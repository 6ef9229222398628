package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/idempotency"
	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/router"
	queue_publisher "github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account seeded", zap.String("email", cfg.AdminEmail))
		}
	}

	rooms := repository.NewRoomRepo(db)
	outbox := repository.NewOutboxRepo(db)
	store := repository.NewReservationRepo(db, rooms, outbox)

	m := metrics.New("hotel")
	engine := reservation.New(store,
		reservation.WithLogger(logger.Named("engine")),
		reservation.WithMetrics(m),
		reservation.WithLockTimeout(cfg.LockTimeout),
	)

	// Redis is optional: without it caching and idempotency keys are off and
	// rate limiting is per process.
	rdb := config.NewRedisClient(logger)
	var idemBackend idempotency.Backend
	if rdb != nil {
		defer rdb.Close()
		idemBackend = rdb
	}
	idem := idempotency.New(idemBackend, cfg.IdempotencyTTL)
	cacheCfg := config.LoadCacheConfig()

	publisher := queue_publisher.NewPublisher(cfg.AMQPURL, logger.Named("publisher"))
	defer publisher.Close()
	relay := worker.NewOutboxWorker(outbox, publisher, logger.Named("outbox"), m, cfg.OutboxInterval, cfg.OutboxBatch)
	go relay.Start(ctx)

	consumer := queue.NewConsumer(cfg.AMQPURL, cfg.NotifyLogDir, logger.Named("consumer"))
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(m.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	invalidate := middleware.NewCacheInvalidator(cacheCfg, rdb, logger)
	roomHandler := handler.NewRoomHandler(engine)

	router.RegisterRoutes(e, db, m)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, logger.Named("auth")), cfg.JWTSecret)
	router.RegisterPublic(e, roomHandler, middleware.NewRedisCache(cacheCfg, rdb, logger))
	router.RegisterGuest(e, handler.NewGuestHandler(engine), cfg.JWTSecret, middleware.Idempotency(idem, logger), invalidate)
	router.RegisterAdmin(e, handler.NewAdminHandler(engine), roomHandler, cfg.JWTSecret, invalidate)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
