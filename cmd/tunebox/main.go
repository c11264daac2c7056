package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/tunebox/internal/ai"
	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/embed"
	"github.com/xxxsen/tunebox/internal/embedcache"
	"github.com/xxxsen/tunebox/internal/handler"
	"github.com/xxxsen/tunebox/internal/job"
	"github.com/xxxsen/tunebox/internal/middleware"
	"github.com/xxxsen/tunebox/internal/resultcache"
	"github.com/xxxsen/tunebox/internal/schedule"
	"github.com/xxxsen/tunebox/internal/service"
	"github.com/xxxsen/tunebox/internal/similar"
	"github.com/xxxsen/tunebox/internal/store"
	"github.com/xxxsen/tunebox/internal/upstream"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tunebox",
		Short: "tunebox music metadata server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run tunebox server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	resyncCmd := &cobra.Command{
		Use:   "resync-embeddings",
		Short: "compute embeddings for stored tracks that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return resyncEmbeddings(cmd.Context(), cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd, resyncCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

type app struct {
	backend *store.Backend
	music   *service.MusicService
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	backend, err := store.New(ctx, cfg.Store, store.Options{Dimension: cfg.Embedding.Dimension})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	embedder, err := buildEmbedder(cfg.Embedding, backend)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}
	generator := embed.NewGenerator(
		embedder,
		embed.Mode(cfg.Embedding.Mode),
		cfg.Embedding.Dimension,
		time.Duration(cfg.Embedding.Timeout)*time.Second,
	)
	engine := similar.NewEngine(backend.Tracks, similar.NewVectorIndex(backend.Tracks), similar.NewBruteForce(backend.Tracks))

	cache := backend.Cache
	if cfg.LocalCache.Size > 0 {
		cache = resultcache.WrapLRU(cache, cfg.LocalCache.Size, time.Duration(cfg.LocalCache.TTLSeconds)*time.Second, time.Now)
	}
	music := service.NewMusicService(
		cache,
		backend.Tracks,
		upstream.NewClient(cfg.RapidAPI),
		generator,
		engine,
		service.WithTTLPolicy(resultcache.NewTTLPolicy(cfg.CacheTTL)),
		service.WithPopularOptions(service.PopularOptions{
			Concurrency: cfg.Popular.Concurrency,
			Timeout:     time.Duration(cfg.Popular.TimeoutSeconds) * time.Second,
			SampleSize:  cfg.Popular.SampleSize,
		}),
	)
	return &app{backend: backend, music: music}, nil
}

// buildEmbedder caches each provider under its own model name, so a fallback
// provider never serves vectors stored for another model.
func buildEmbedder(cfg config.EmbeddingConfig, backend *store.Backend) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, len(cfg.Providers))
	for _, item := range cfg.Providers {
		provider, err := ai.NewEmbedProvider(item.Name, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedding provider %s: %w", item.Name, err)
		}
		embedder := ai.NewEmbedder(provider, item.Model)
		if cfg.DBCache && backend.EmbeddingCache != nil {
			embedder = embedcache.WrapDBCacheToEmbedder(embedder, backend.EmbeddingCache)
		}
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.LRUSize, time.Duration(cfg.LRUTTL)*time.Minute)
		entries = append(entries, ai.EmbedderEntry{Name: item.Name, Embedder: embedder})
	}
	embedder := ai.NewGroupEmbedder(entries)
	if embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	return embedder, nil
}

func runServer(cfg *config.Config) error {
	logger := logutil.GetLogger(context.Background())
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("embedding_mode", cfg.Embedding.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.backend.Close(closeCtx); err != nil {
			logger.Error("close store failed", zap.Error(err))
		}
	}()

	scheduler, err := buildScheduler(cfg, a)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if cfg.Jobs.WarmupOnStart {
		if err := scheduler.Trigger("popular_warmup"); err != nil {
			logger.Warn("popular warmup not triggered", zap.Error(err))
		}
	}

	deps := handler.RouterDeps{
		Music:          handler.NewMusicHandler(a.music),
		DownloadWindow: time.Duration(cfg.DownloadRateLimit) * time.Second,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}

func buildScheduler(cfg *config.Config, a *app) (*schedule.CronScheduler, error) {
	scheduler := schedule.NewCronScheduler()
	if spec := cfg.Jobs.EmbeddingBackfill; spec != "" {
		if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(a.music, cfg.Jobs.EmbeddingBackfillSize), spec); err != nil {
			return nil, fmt.Errorf("schedule embedding backfill: %w", err)
		}
	}
	if spec := cfg.Jobs.PopularWarmup; spec != "" && len(cfg.Popular.WarmupCountry) > 0 {
		if err := scheduler.AddJob(job.NewPopularWarmupJob(a.music, cfg.Popular.WarmupCountry), spec); err != nil {
			return nil, fmt.Errorf("schedule popular warmup: %w", err)
		}
	}
	if spec := cfg.Jobs.EmbeddingCacheCleanup; spec != "" && a.backend.EmbeddingCache != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(a.backend.EmbeddingCache, cfg.Embedding.CacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, spec); err != nil {
			return nil, fmt.Errorf("schedule embedding cache cleanup: %w", err)
		}
	}
	return scheduler, nil
}

func resyncEmbeddings(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.backend.Close(context.Background()) }()

	logger := logutil.GetLogger(ctx)
	if cfg.Embedding.Mode != string(embed.ModeMetadata) {
		logger.Warn("resync skipped: hybrid embeddings need audio", zap.String("mode", cfg.Embedding.Mode))
		return nil
	}
	total := 0
	for {
		updated, err := a.music.BackfillEmbeddings(ctx, cfg.Jobs.EmbeddingBackfillSize)
		if err != nil {
			return err
		}
		if updated == 0 {
			break
		}
		total += updated
		logger.Info("embeddings synced", zap.Int("batch", updated), zap.Int("total", total))
	}
	logger.Info("resync finished", zap.Int("total", total))
	return nil
}
