package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/dataset"
	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/postgres"
)

const _cfgFilePath = "./configs/config.yaml"

func main() {
	cleanup := flag.Bool("cleanup", false, "drop the demo tables instead of loading")
	flag.Parse()

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

	db, err := postgres.NewDB(postgres.NewConfigFromEnv())
	if err != nil {
		zapLogger.Fatalf("%s: can't connect to data source", err)
	}
	defer db.Close()

	ctx := context.Background()
	loader := dataset.NewLoader(db, zapLogger)

	if *cleanup {
		if err := loader.Cleanup(ctx); err != nil {
			zapLogger.Fatalf("%s: can't clean up", err)
		}
		zapLogger.Infof("clean up finished")
		return
	}

	if err := loader.EnsureSchema(ctx); err != nil {
		zapLogger.Fatalf("%s: can't create schema", err)
	}
	if err := loader.Load(ctx, cfg.Dataset.StocksFile, cfg.Dataset.MaxStocks); err != nil {
		zapLogger.Fatalf("%s: can't load dataset", err)
	}
}
