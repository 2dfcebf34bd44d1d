// Command worker consumes notification messages and delivers the mail.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/config"
	"github.com/iliyamo/book-network/internal/logger"
	"github.com/iliyamo/book-network/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadWorker()
	zl, err := logger.Init(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	renderer, err := queue.NewRenderer()
	if err != nil {
		zl.Fatal("compile templates", zap.Error(err))
	}
	mailer, err := queue.NewLogMailer(cfg.MailLogDir)
	if err != nil {
		zl.Fatal("open mail log", zap.Error(err))
	}
	defer mailer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := queue.NewWorker(cfg.RabbitMQURL, renderer, mailer, zl.Named("worker"))
	if err := w.Run(ctx); err != nil {
		zl.Error("worker stopped", zap.Error(err))
	}
	zl.Info("worker stopped")
}
