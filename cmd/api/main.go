package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mediaforge/internal/adapter/repo"
	"mediaforge/internal/cache"
	"mediaforge/internal/http/handlers"
	httpapi "mediaforge/internal/http/httpapi"
	"mediaforge/internal/infra"
	"mediaforge/internal/ledger"
	"mediaforge/internal/materialize"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/providers"
	"mediaforge/internal/reconcile"
	"mediaforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	balanceCache := cache.NewBalanceCache(redisClient, cfg.BalanceCacheTTL, logger)

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init blob store")
	}

	balances := repo.NewBalanceRepository(runner)
	generations := repo.NewGenerationRepository(runner)

	creditLedger := ledger.New(balances, balanceCache, logger)
	registry := newRegistry(cfg, store, logger)
	orch := orchestrator.New(generations, creditLedger, registry, logger)
	mat := materialize.New(store, cfg.TransferTimeout, cfg.MaxArtifactBytes, logger)
	sweeper := reconcile.New(generations, orch, registry, mat, reconcile.Config{
		StaleAfter:  cfg.StaleTimeout,
		BatchSize:   cfg.SweepBatch,
		Concurrency: cfg.SweepConcurrency,
		FailedTTL:   cfg.FailedTTL,
	}, logger)

	app := handlers.NewApp(logger, orch, creditLedger, sweeper)
	router := httpapi.NewRouter(cfg, app)
	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newBlobStore(ctx context.Context, cfg *infra.Config) (storage.BlobStore, error) {
	if cfg.MinioEndpoint != "" {
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.PublicAssetBase,
		})
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.PublicAssetBase)
}

func newRegistry(cfg *infra.Config, store storage.BlobStore, logger zerolog.Logger) providers.Registry {
	opts := func(v infra.VendorConfig) providers.ClientOptions {
		return providers.ClientOptions{
			BaseURL: v.BaseURL,
			APIKey:  v.APIKey,
			Timeout: cfg.VendorTimeout,
			Retries: cfg.RetryAttempts,
			Logger:  logger,
		}
	}
	return providers.NewRegistry(
		providers.NewSora2(opts(cfg.Sora2)),
		providers.NewVeo3(opts(cfg.Veo3)),
		providers.NewLipSync(opts(cfg.LipSync)),
		providers.NewInfiniteTalk(opts(cfg.InfiniteTalk)),
		providers.NewNanoBanana(opts(cfg.NanoBanana), store),
	)
}
