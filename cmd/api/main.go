package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"market-curves/internal/api"
	"market-curves/internal/config"
	"market-curves/internal/store"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CURVES_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.API.GinMode != "" {
		gin.SetMode(cfg.API.GinMode)
	} else if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	curveStore, err := store.NewCurveStore(cfg.Store.Dir, log.StandardLogger())
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer curveStore.Close()
	if cfg.Store.Dir == "" {
		log.Warn("store.dir is empty, serving an in-memory store")
	}

	router := api.NewRouter(api.Options{
		GridStep:       cfg.Curves.GridStep,
		MaxGridPoints:  cfg.Curves.MaxGridPoints,
		Store:          curveStore,
		RegionsFile:    cfg.Data.RegionsFile,
		AllowedOrigins: cfg.API.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
