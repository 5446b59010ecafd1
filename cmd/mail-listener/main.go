package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shipdoc/internal/config"
	"shipdoc/internal/listener"
	"shipdoc/internal/logger"
	"shipdoc/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer logger.Sync()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc, err := listener.NewService(db, cfg, log)
	must(err)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("mail listener started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
