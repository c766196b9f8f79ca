package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/db"
	delivery "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery"
	listings "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/logger"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/metrics"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/platform/validation"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	log.Info().Str("addr", cfg.AppAddr).Msg("starting api server")

	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	if err := db.Migrate(context.Background(), pgPool); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(metrics.HTTPMiddleware())

	e.Validator = validation.New()

	deliveryReg := delivery.NewRegistrar(pgPool, redisClient, cfg)
	deliveryReg.Register(e)
	listings.NewRegistrar(pgPool, redisClient, cfg, deliveryReg.Orchestrator()).Register(e)

	// Health endpoint pings DB and Redis
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := "ok"
		start := time.Now()
		if err := pgPool.Ping(ctx); err != nil {
			dbStatus = "down"
			metrics.SetDBUp(false)
		} else {
			metrics.SetDBUp(true)
			metrics.ObserveDBPing(time.Since(start).Seconds())
		}

		cacheStatus := "ok"
		start = time.Now()
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			cacheStatus = "down"
			metrics.SetRedisUp(false)
		} else {
			metrics.SetRedisUp(true)
			metrics.ObserveRedisPing(time.Since(start).Seconds())
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
			"db":     dbStatus,
			"cache":  cacheStatus,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
