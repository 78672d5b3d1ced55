package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/gateway"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/metrics"
	"studio/internal/pipeline"
	"studio/internal/providers/gemini"
	"studio/internal/storage"
	"studio/internal/videojob"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile, err := credentials.NewProfileKV(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open profile")
	}
	resolver := credentials.NewResolver(
		credentials.NewStore(profile),
		credentials.WithEnvironmentKey(cfg.GeminiAPIKey),
		credentials.WithLogger(logger),
	)
	if _, err := resolver.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("no credential yet; configure one through the bridge or geminikey")
	}

	collector := metrics.NewCollector("studio")
	connector := gemini.NewConnector(gemini.Options{BaseURL: cfg.GeminiBaseURL, Logger: &logger})

	gw, err := gateway.New(gateway.Options{
		Credentials:       resolver,
		Connector:         connector,
		RequestsPerMinute: cfg.RequestsPerMin,
		Metrics:           collector,
		Logger:            &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	media, err := storage.NewMediaStore(cfg.MediaDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open media store")
	}
	defer func() {
		if err := media.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close media store")
		}
	}()

	videos, err := videojob.NewManager(videojob.Options{
		Gateway:      gw,
		Store:        media,
		PollInterval: cfg.VideoPollEvery,
		MaxPolls:     cfg.VideoMaxPolls,
		Timeout:      cfg.VideoTimeout,
		Metrics:      collector,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build video manager")
	}
	defer videos.Close()

	composer, err := pipeline.New(pipeline.Options{Gateway: gw, Videos: videos, Metrics: collector, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline composer")
	}

	app := &handlers.App{
		Credentials: resolver,
		Clients:     connector,
		Gateway:     gw,
		Videos:      videos,
		Pipelines:   composer,
		Media:       media,
		Metrics:     collector,
		Log:         logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{AllowedOrigins: cfg.AllowedOrigins, DefaultLanguage: "en"})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("media", media.Root()).Msg("session bridge listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
