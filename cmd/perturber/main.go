package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/perturb"
	"github.com/cbex-demo/live-market/internal/postgres"
	"github.com/cbex-demo/live-market/internal/store"
)

const _cfgFilePath = "./configs/config.yaml"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("can't detect .env file")
	}

	cfg, err := config.LoadConfig(_cfgFilePath)
	if err != nil {
		log.Fatalf("%s: can't load config", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := postgres.NewDB(postgres.NewConfigFromEnv())
	if err != nil {
		zapLogger.Fatalf("%s: can't connect to data source", err)
	}
	defer db.Close()

	st := store.NewStore(db, zapLogger)
	perturber := perturb.NewPerturber(st, cfg.Perturb, zapLogger)

	zapLogger.Infof("perturbing prices every %s", cfg.Perturb.Interval())
	perturber.Run(ctx, cfg.Perturb.Interval())
}
