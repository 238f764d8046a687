package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wikibio/internal/artifact"
	"wikibio/internal/http/handlers"
	"wikibio/internal/http/httpapi"
	"wikibio/internal/infra"
	"wikibio/internal/infra/geoip"
	"wikibio/internal/pipeline"
	"wikibio/internal/providers/biography"
	"wikibio/internal/providers/wavespeed"
	"wikibio/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fallbackLogger := infra.NewLogger("development")
		fallbackLogger.Fatal().Err(err).Msg("main: invalid configuration")
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storagePath, err := filepath.Abs(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("main: resolve storage path")
	}
	store, err := artifact.NewStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("main: init artifact store")
	}

	registry := session.NewRegistry()

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("main: geoip database unavailable, country lookups disabled")
	}

	vendor := wavespeed.NewClient(wavespeed.Options{
		APIKey:  cfg.WavespeedAPIKey,
		BaseURL: cfg.WavespeedBaseURL,
		Logger:  &logger,
	})
	if !vendor.HasCredentials() {
		logger.Warn().Msg("main: WAVESPEED_API_KEY not set, media generation will fail")
	}

	templates, err := biography.LoadTemplates(cfg.PromptsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("main: prompt template overrides not loaded, using defaults")
		templates = biography.DefaultTemplates()
	}
	writer := biography.NewAnthropicWriter(biography.AnthropicOptions{
		APIKey:   cfg.AnthropicAPIKey,
		Model:    cfg.AnthropicModel,
		BaseURL:  cfg.AnthropicBaseURL,
		Fallback: biography.NewStaticWriter(),
	}, templates)

	pipe := pipeline.New(ctx, pipeline.Options{
		Sessions:     registry,
		Store:        store,
		Vendor:       vendor,
		Writer:       writer,
		Templates:    templates,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		PollMaxWait:  cfg.PollMaxWait,
	})

	sweeper := session.NewSweeper(registry, pipe, logger, cfg.SessionTTL, cfg.SweepInterval)

	app := handlers.NewApp(cfg, logger, registry, store, pipe, geo)
	router := httpapi.NewRouter(app, registry)
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("main: server listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("main: shutting down with error")
	}
	pipe.Wait()
	logger.Info().Msg("main: shutdown complete")
}
