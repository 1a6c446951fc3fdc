package main

import (
	"fmt"
	"log"

	"qualiflow/internal/config"
	"qualiflow/internal/database"
	"qualiflow/internal/logger"
	"qualiflow/internal/server"
	"qualiflow/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Init(cfg.DBDSN, zlog)
	if err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}

	store, err := storage.NewFileStore(cfg.BlobDir)
	if err != nil {
		zlog.Fatal("blob store init failed", zap.Error(err))
	}

	r := server.NewRouter(cfg, db, store, zlog)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	zlog.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
