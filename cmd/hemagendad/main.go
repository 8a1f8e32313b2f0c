package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hemagenda-backend/config"
	"hemagenda-backend/internal/address"
	"hemagenda-backend/internal/api"
	"hemagenda-backend/internal/booking"
	"hemagenda-backend/internal/cep"
	"hemagenda-backend/internal/confirmation"
	"hemagenda-backend/internal/db"
	"hemagenda-backend/internal/donor"
	"hemagenda-backend/internal/location"
	"hemagenda-backend/internal/notification"
	"hemagenda-backend/internal/reference"
	"hemagenda-backend/internal/store"
	"hemagenda-backend/internal/upstream"
	"hemagenda-backend/internal/warmer"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)
	log.Info().Str("path", configPath).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := upstream.NewClient(cfg.Upstream)
	refs := reference.NewClient(remote, cfg.Cache.ReferenceTTL)
	directory := donor.NewDirectory(remote, cfg.Cache.DonorTTL)
	go warmer.NewService(cfg.Cache.RefreshInterval, refs, directory).Run(ctx)

	postal := cep.NewClient(cfg.CEP.BaseURL, &http.Client{Timeout: cfg.Upstream.Timeout})

	var notifier booking.Notifier
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.Enabled() {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, remote, webpushOptions)
		pool.SetZone(cfg.Card.Zone)
		pool.Start(ctx)
		notifier = pool
		log.Info().Int("workers", cfg.WorkerPool.Size).Msg("push notifications enabled")
	} else {
		webpushOptions = nil
		log.Warn().Msg("VAPID keys not configured, push notifications disabled")
	}

	handler := api.NewHandler(api.Deps{
		Store:     appStore,
		Locations: location.NewService(remote, refs, cfg.Locations.PageSize),
		Reference: refs,
		Address:   address.NewResolver(postal, refs),
		Donors:    directory,
		Lookup:    donor.NewLookup(directory, remote),
		Booking:   booking.NewFlow(directory, remote, appStore, notifier),
		Cards:     confirmation.NewResolver(remote, cfg.Card.Zone),
		ShareBase: cfg.Share.BaseURL,
		Webpush:   webpushOptions,
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("upstream", cfg.Upstream.BaseURL).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutdown signal received, stopping services")

	// Stop the workers before draining HTTP.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
