package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/admin"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pagecache"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pagelock"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pagestore"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/urls"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	closeLog := logger.Setup(cfg.Logging)
	defer closeLog()
	if err := run(cfg); err != nil {
		slog.Error("indexer service failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting indexer service",
		"index", cfg.Index.Path,
		"workers", cfg.Indexer.Workers,
		"chunk_size", cfg.Indexer.ChunkSize,
	)
	m := metrics.New()
	checker := health.NewChecker(5 * time.Second)

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	checker.Critical("postgres", db)

	if _, err := os.Stat(cfg.Index.Path); errors.Is(err, os.ErrNotExist) {
		if err := pagestore.Create(cfg.Index.Path, cfg.Index.NumPages, cfg.Index.PageSize, cfg.Index.ChecksumSize); err != nil {
			return err
		}
	}
	ix, err := pagestore.Open(cfg.Index.Path, pagestore.ModeWrite)
	if err != nil {
		return err
	}
	defer func() {
		if err := ix.Close(); err != nil {
			slog.Error("closing index", "error", err)
		}
	}()

	var (
		locker pagelock.Locker
		pages  admin.PageReader = ix
		hooks  []indexer.IndexedHook
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checker.Optional("redis", rdb)
		locker = pagelock.NewRedis(rdb, "tinyindex:", cfg.Redis.LockTTL)

		cache := pagecache.New(ix, rdb, "tinyindex:", cfg.Redis.CacheTTL)
		pages = cache
		hooks = append(hooks, func(ctx context.Context, ev indexer.ChunkIndexed) {
			touched, err := ev.TouchedPages()
			if err == nil {
				err = cache.Invalidate(ctx, touched)
			}
			if err != nil {
				logger.FromContext(ctx).Error("invalidating page cache", "error", err)
			}
		})
	}

	rank := ranker.New()
	engine := indexer.NewEngine(ix, rank, tokenizer.New(), indexer.Options{
		Workers:       cfg.Indexer.Workers,
		ProgressEvery: cfg.Indexer.ProgressEvery,
		Locker:        locker,
		Metrics:       m,
	})

	if cfg.Kafka.Enabled && cfg.Kafka.Topics.IndexComplete != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		hooks = append(hooks, func(ctx context.Context, ev indexer.ChunkIndexed) {
			if err := producer.Publish(ctx, ev.RunID, ev); err != nil {
				logger.FromContext(ctx).Error("publishing chunk event", "error", err)
			}
		})
	}
	if cfg.Snapshot.Enabled {
		client, err := snapshot.NewMinIO(cfg.Snapshot)
		if err != nil {
			return err
		}
		uploader := snapshot.NewUploader(client, ix, cfg.Snapshot, m)
		if err := uploader.EnsureBucket(ctx); err != nil {
			return err
		}
		hooks = append(hooks, func(ctx context.Context, _ indexer.ChunkIndexed) {
			if _, err := uploader.ChunkCommitted(ctx); err != nil {
				logger.FromContext(ctx).Error("snapshot failed", "error", err)
			}
		})
	}

	batches := batch.NewStore(db)
	recorder := urls.NewRecorder(urls.NewPostgresStore(db), urls.DefaultScoring, nil)
	runner := pipeline.NewRunner(batches, pipeline.Options{
		ChunkSize:    cfg.Indexer.ChunkSize,
		ChunkTimeout: cfg.Indexer.ChunkTimeout,
		Retry:        resilience.RetryConfig{MaxAttempts: cfg.Indexer.CommitRetries},
		Metrics:      m,
	})
	urlStage := pipeline.Stage{
		Name:    "urls",
		From:    batch.StatusLocal,
		To:      batch.StatusURLsUpdated,
		Process: recorder.Process,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Loop(ctx, cfg.Indexer.PollInterval, urlStage, engine.Stage(hooks...))
	}()

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CrawlBatches, consumer.HandleMessage(batches, m))
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("consuming crawl batches",
				"topic", cfg.Kafka.Topics.CrawlBatches,
				"group", cfg.Kafka.ConsumerGroup,
			)
			if err := kc.Run(ctx); err != nil {
				slog.Error("consumer error", "error", err)
			}
		}()
	}

	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		stopMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	mux := http.NewServeMux()
	admin.New(pages, rank).Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	var handler http.Handler = mux
	if cfg.Server.RateLimit > 0 {
		handler = middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst))(handler)
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Metrics(m)(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("admin server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("admin server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down indexer service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin server shutdown", "error", err)
	}
	if stopMetrics != nil {
		if err := stopMetrics(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
	wg.Wait()
	slog.Info("indexer service stopped")
	return nil
}
