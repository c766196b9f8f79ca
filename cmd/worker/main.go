package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/config"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/db"
	delivery "github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery"
	"github.com/CMIS-TAMU/cmis-events-sub000/internal/logger"
)

// The worker drains the delivery queue on a schedule. The API can also drive
// processing on demand; both paths share the same claim semantics, so running
// them side by side is safe.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.For(cfg.AppEnv, "worker")
	log.Info().Str("cron", cfg.WorkerCronSpec).Msg("starting delivery worker")

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

	// No HTTP surface here: the registrar is used for its wired processor only.
	reg := delivery.NewRegistrar(pgPool, nil, cfg)
	processor := reg.Processor()

	c := cron.New()
	_, err = c.AddFunc(cfg.WorkerCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res := processor.ProcessQueue(ctx, cfg.DeliveryBatchSize)
		ev := log.Info()
		if len(res.Errors) > 0 {
			ev = log.Warn().Strs("errors", res.Errors)
		}
		ev.Int("processed", res.Processed).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Msg("delivery batch done")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid WORKER_CRON_SPEC")
	}
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	<-c.Stop().Done()
	log.Info().Msg("worker stopped")
}
