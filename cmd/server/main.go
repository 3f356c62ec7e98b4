package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"collections/internal/ai"
	"collections/internal/api"
	"collections/internal/cache"
	"collections/internal/collection"
	"collections/internal/config"
	"collections/internal/db"
	"collections/internal/graphflow"
	"collections/internal/met"
	"collections/internal/settings"
	"collections/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewMinioStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOSecure, cfg.MinIOBucket)
	if err != nil {
		logger.Error("minio connect failed", "error", err)
		os.Exit(1)
	}

	metCache := cache.New[[]byte](cfg.MetCacheTTL, cfg.MetCacheCleanup)
	aiCache := cache.New[string](cfg.AICacheTTL, cfg.AICacheClean)

	catalog := met.NewClient(met.Config{
		BaseURL:            cfg.MetBaseURL,
		SearchTimeout:      cfg.MetSearchTimeout,
		ObjectTimeout:      cfg.MetObjectTimeout,
		DepartmentsTimeout: cfg.MetDeptTimeout,
		Concurrency:        cfg.MetConcurrency,
		RatePerSecond:      cfg.MetRatePerSecond,
		RateBurst:          cfg.MetRateBurst,
	}, metCache, logger)

	settingsStore := settings.NewStore(gdb)
	llmClient := ai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if saved, err := settingsStore.LoadLLM(context.Background()); err != nil {
		logger.Warn("load saved llm settings failed", "error", err)
	} else {
		llmClient.Configure(saved.BaseURL, saved.APIKey, saved.Model)
	}
	if !llmClient.Enabled() {
		logger.Warn("llm not configured, enrichment will use fallback keywords")
	}

	extractor, err := graphflow.NewKeywordExtractor(llmClient)
	if err != nil {
		logger.Error("build keyword graph failed", "error", err)
		os.Exit(1)
	}

	service := collection.NewService(gdb, collection.Options{
		Catalog:       catalog,
		Keywords:      extractor,
		AICache:       aiCache,
		Images:        store,
		PublicBaseURL: cfg.BaseURL,
		ImportLimit:   cfg.MetImportLimit,
		Logger:        logger,
	})

	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	srv := &api.Server{
		Collections: service,
		Uploads:     store,
		LLM:         llmClient,
		Settings:    settingsStore,
		MetCache:    metCache,
		AICache:     aiCache,
		TempDir:     cfg.TempDir,
		Logger:      logger.With("component", "api"),
	}
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
