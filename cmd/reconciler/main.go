package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mediaforge/internal/adapter/repo"
	"mediaforge/internal/cache"
	"mediaforge/internal/infra"
	"mediaforge/internal/ledger"
	"mediaforge/internal/materialize"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/providers"
	"mediaforge/internal/reconcile"
	"mediaforge/internal/storage"
)

// The reconciler runs the sweep on a schedule, independent of the API
// process. Both binaries share the same repositories, so a sweep claimed
// here is invisible to a concurrent manual sweep via the API.
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

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.SweepSchedule, func() {
		report, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("sweep failed")
			return
		}
		if report.Scanned > 0 || report.Purged > 0 {
			logger.Info().
				Int("scanned", report.Scanned).
				Int("completed", report.Completed).
				Int("failed", report.Failed).
				Int("timed_out", report.TimedOut).
				Int64("purged", report.Purged).
				Msg("sweep finished")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("invalid sweep schedule")
	}

	scheduler.Start()
	logger.Info().Str("schedule", cfg.SweepSchedule).Msg("reconciler started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-scheduler.Stop().Done()
	logger.Info().Msg("reconciler stopped")
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
