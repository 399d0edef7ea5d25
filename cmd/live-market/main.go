package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/market"
	"github.com/cbex-demo/live-market/internal/postgres"
	"github.com/cbex-demo/live-market/internal/server"
	"github.com/cbex-demo/live-market/internal/status"
	"github.com/cbex-demo/live-market/internal/store"
	"github.com/cbex-demo/live-market/internal/ws"
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

	// The one startup failure that should halt: a store we can't reach
	// at all.
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		pingCancel()
		zapLogger.Fatalf("%s: data source unreachable on startup", err)
	}
	pingCancel()

	cache := market.NewCache()
	ledger := market.NewLedger()
	refresher := market.NewRefresher(st, cache, ledger, cfg.Refresh.OrderBatchLimit, zapLogger)
	collector := status.NewCollector(cfg.Status, st, zapLogger)
	registry := ws.NewRegistry(zapLogger)

	go refresher.Run(ctx, cfg.Refresh.Period())
	go collector.Run(ctx, cfg.Status.PollInterval())

	handler := server.NewHandler(cfg, cache, ledger, st, collector, registry, zapLogger)
	srv := server.NewHTTPServer(ctx, cfg.Server.Port, handler.Router(zapLogger.Desugar()))

	zapLogger.Infof("live market server listening on :%s", cfg.Server.Port)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Errorf("%s: server stopped", err)
	}

	registry.CloseAll()
	zapLogger.Infof("shut down cleanly")
}
