package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/hotel-front-desk/internal/config"
	"github.com/iliyamo/hotel-front-desk/internal/database"
	"github.com/iliyamo/hotel-front-desk/internal/handler"
	"github.com/iliyamo/hotel-front-desk/internal/lock"
	"github.com/iliyamo/hotel-front-desk/internal/middleware"
	"github.com/iliyamo/hotel-front-desk/internal/observability"
	"github.com/iliyamo/hotel-front-desk/internal/queue"
	"github.com/iliyamo/hotel-front-desk/internal/repository"
	"github.com/iliyamo/hotel-front-desk/internal/router"
	"github.com/iliyamo/hotel-front-desk/internal/scheduler"
	"github.com/iliyamo/hotel-front-desk/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("dotenv")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := observability.NewLogger(cfg.Env)
	log.Logger = logger

	// Money fields go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.Open(cfg.DSNParts())
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	defer db.Close()
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		logger.Info().Msg("schema applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var locker lock.Locker = lock.NewLocal()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedis(rdb, "frontdesk:lock")
		logger.Info().Msg("redis connected: shared locks, rate limits and cache enabled")
	} else {
		logger.Warn().Msg("redis unavailable: using in-process locks and rate limits, cache off")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	reservations := repository.NewReservationRepo(db)
	bills := repository.NewBillingRepo(db)

	cacheCfg := config.LoadCacheConfig()
	purge := func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix) }

	opts := []service.Option{
		service.WithTimeout(cfg.DBTimeout),
		service.WithLogger(logger),
		service.WithRoomsChanged(purge),
	}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, service.WithEvents(queue.NewPublisher(cfg.RabbitMQURL, logger)))
	}
	engine := service.NewReservationService(reservations, rooms, bills, locker, opts...)

	var metrics http.Handler
	if cfg.MetricsEnabled {
		metrics = observability.MetricsHandler(observability.InitRegistry())
	}

	e := router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Users:        handler.NewUserHandler(users, tokens, cfg.BcryptCost),
		Reservations: handler.NewReservationHandler(engine),
		Rooms:        handler.NewRoomHandler(rooms, purge),
		Billing:      handler.NewBillingHandler(bills, reservations),
		Health:       handler.Health(db),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		RoomCache: middleware.NewRedisCache(cacheCfg, rdb),
		Metrics:   metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port
	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if cfg.SweepEnabled {
		at, err := scheduler.ParseClock(cfg.SweepAt)
		if err != nil {
			logger.Fatal().Err(err).Msg("NOSHOW_SWEEP_AT")
		}
		sweeper := scheduler.New(engine, at, locker, logger)
		g.Go(func() error { return sweeper.Run(ctx) })
	}
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EventLogDir, logger)
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
