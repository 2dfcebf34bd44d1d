package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/config"
	"github.com/iliyamo/book-network/internal/database"
	"github.com/iliyamo/book-network/internal/handler"
	"github.com/iliyamo/book-network/internal/logger"
	"github.com/iliyamo/book-network/internal/repository"
	"github.com/iliyamo/book-network/internal/router"
	"github.com/iliyamo/book-network/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	zl, err := logger.Init(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		zl.Warn("redis unavailable, rate limiting and cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	store := repository.NewStore(db)
	clock := service.SystemClock{}
	tokens := service.NewAccessTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.JWTIssuer, clock)
	activation := service.NewActivationManager(store, clock, rand.Reader, cfg.ActivationTTL)
	publisher := service.NewQueuePublisher(cfg.RabbitMQURL, zl.Named("publisher"))
	auth := service.NewAuthService(store, service.BcryptHasher{Cost: cfg.BcryptCost}, tokens,
		activation, publisher, cfg.ActivationURL, zl.Named("auth"))
	lending := service.NewLendingService(store, zl.Named("lending"))
	catalog := service.NewCatalogService(store)
	feedback := service.NewFeedbackService(store)
	content := service.NewContentService(store)

	deps := router.Deps{
		Log:       zl,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Resolver:  auth,
		Ready:     db,
		Auth:      handler.NewAuthHandler(auth),
		Books:     handler.NewBookHandler(catalog, lending),
		Feedback:  handler.NewFeedbackHandler(feedback),
		Content:   handler.NewContentHandler(content),
	}
	e := router.New(deps)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}
