package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/neighborhood-exchange/internal/config"
	"github.com/iliyamo/neighborhood-exchange/internal/database"
	"github.com/iliyamo/neighborhood-exchange/internal/handler"
	"github.com/iliyamo/neighborhood-exchange/internal/logging"
	"github.com/iliyamo/neighborhood-exchange/internal/middleware"
	"github.com/iliyamo/neighborhood-exchange/internal/model"
	"github.com/iliyamo/neighborhood-exchange/internal/repository"
	"github.com/iliyamo/neighborhood-exchange/internal/router"
	"github.com/iliyamo/neighborhood-exchange/internal/service"
	"github.com/iliyamo/neighborhood-exchange/internal/utils"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; real env wins
	cfg := config.Load()
	logging.Configure(cfg.LogLevel, nil)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logging.Root().Fatalf("open database: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		applied, err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logging.Root().Fatalf("migrate: %v", err)
		}
		logging.Info("migrations applied", "files", applied)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logging.Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	// Assign only a non-nil publisher so services see a nil interface when
	// publishing is disabled.
	var pub service.EventPublisher
	if p := service.NewAMQPPublisher(config.LoadAMQPConfig()); p != nil {
		pub = p
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	reservations := repository.NewReservationRepo(db)
	events := repository.NewEventRepo(db)
	attendance := repository.NewAttendanceRepo(db)

	booking := service.NewReservationService(db, pub, cfg.Location)
	attend := service.NewAttendanceService(db, pub)
	dashboards := service.NewDashboardService(db, cfg.Location)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.Root()
	e.Validator = utils.NewRequestValidator()
	e.Server.ReadTimeout = cfg.RequestTimeout
	e.Server.WriteTimeout = cfg.RequestTimeout

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			kv := []any{"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds(), "request_id", v.RequestID}
			if v.Error != nil {
				logging.Error("request", v.Error, kv...)
				return nil
			}
			logging.Info("request", kv...)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens),
		Profile:    handler.NewProfileHandler(users),
		Resources:  handler.NewListingHandler(model.KindResource, listings, reservations, booking),
		Spaces:     handler.NewListingHandler(model.KindSpace, listings, reservations, booking),
		Events:     handler.NewEventHandler(events, attendance, attend, cfg.Location),
		Reviews:    handler.NewReviewHandler(repository.NewReviewRepo(db)),
		Messages:   handler.NewMessageHandler(repository.NewMessageRepo(db)),
		Dashboards: handler.NewDashboardHandler(dashboards),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logging.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("server stopped", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown", err)
	}
}
