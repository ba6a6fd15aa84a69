package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"bist_valuation/internal/app/di"
	"bist_valuation/internal/feature/valuation/usecase"
	infradb "bist_valuation/internal/platform/db"
	infraredis "bist_valuation/internal/platform/redis"
	"bist_valuation/internal/platform/scheduler"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market, err := di.NewMarketSource()
	if err != nil {
		log.Fatal(err)
	}
	aggCfg, err := di.LoadAggregatorConfig()
	if err != nil {
		log.Fatal(err)
	}
	policy, err := di.LoadRatioPolicy()
	if err != nil {
		log.Fatal(err)
	}

	db := infradb.OpenDB()

	// 書き込み時に API 側のキャッシュを無効化するため Redis を共有します
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx); err != nil {
		if !errors.Is(err, infraredis.ErrNotConfigured) {
			slog.Warn("redis unavailable, cache will not be invalidated", "error", err)
		}
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
	}

	store := di.NewValuationStore(db, rdb)
	agg := usecase.NewAggregator(market, store, usecase.NewRatioEngine(nil, policy), aggCfg)

	spec := envOr("INGEST_SCHEDULE", "@hourly")
	sched := scheduler.New(ctx, runTimeout())
	entry, err := sched.Add(spec, "valuation-ingest", func(ctx context.Context) error {
		_, err := agg.Run(ctx)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	// 起動直後に1回実行
	entry.RunNow()
	if os.Getenv("INGEST_ONCE") == "true" {
		return
	}

	sched.Start()
	slog.Info("ingest scheduled", "schedule", spec, "next", entry.Next())

	<-ctx.Done()
	slog.Info("shutting down, waiting for running ingest")
	<-sched.Stop().Done()
	slog.Info("ingest stopped")
}

// runTimeout は INGEST_TIMEOUT（例: "50m"）を返します。既定は 50 分です。
func runTimeout() time.Duration {
	if v := os.Getenv("INGEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		slog.Warn("invalid INGEST_TIMEOUT, using default", "value", v)
	}
	return 50 * time.Minute
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
