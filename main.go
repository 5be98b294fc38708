package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"remotefs/config"
	"remotefs/logging"
	"remotefs/server"
)

func main() {
	var port uint

	flag.UintVar(&port, "port", 1234, "The port to listen on")
	flag.Parse()

	config.Load()
	logger := logging.New(logging.Config{
		Level:  config.Cfg.LogLevel,
		Format: config.Cfg.LogFormat,
		File:   config.Cfg.LogFile,
	})
	defer logger.Sync()

	srv := server.New(port, logger)
	finish := srv.Start()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-finish:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}
