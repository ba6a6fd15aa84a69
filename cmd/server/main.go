package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"bist_valuation/internal/app/di"
	"bist_valuation/internal/app/router"
	valuationhandler "bist_valuation/internal/feature/valuation/transport/handler"
	valuationusecase "bist_valuation/internal/feature/valuation/usecase"
	infradb "bist_valuation/internal/platform/db"
	infraredis "bist_valuation/internal/platform/redis"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db := infradb.OpenDB()
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx); err != nil {
		if errors.Is(err, infraredis.ErrNotConfigured) {
			slog.Info("redis not configured, running without cache")
		} else {
			slog.Warn("redis unavailable, running without cache", "error", err)
		}
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
	}

	// Repository（Redis があればキャッシュ経由）
	store := di.NewValuationStore(db, rdb)

	// Usecase / Handler
	companyUC := valuationusecase.NewCompanyUsecase(store)
	valuationH := valuationhandler.NewValuationHandler(companyUC)

	r := router.NewRouter(valuationH, sqlDB)

	addr := ":" + envOr("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
