package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/tasklist/internal/config"
	"github.com/BuzzLyutic/tasklist/internal/feed"
	"github.com/BuzzLyutic/tasklist/internal/handler"
	"github.com/BuzzLyutic/tasklist/internal/repo"
	"github.com/BuzzLyutic/tasklist/internal/service"
	"github.com/BuzzLyutic/tasklist/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем БД
	taskRepo, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open the Database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer taskRepo.Close()
	logger.Info("Successfully connected to the Database!", zap.String("driver", cfg.DBDriver))

	taskFeed := feed.New(logger.Named("feed"))
	taskService := service.NewTaskService(
		taskRepo,
		taskFeed,
		worker.NewQueue(logger.Named("queue"), cfg.QueueBacklog),
		logger.Named("service"),
	)
	// очередь мутаций живёт до явного Stop, не до сигнала
	if err := taskService.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start task service", zap.Error(err))
	}

	taskHandler := handler.NewTaskHandler(taskService, logger.Named("http"))

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(taskHandler, logger.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// SSE-клиенты отключаются раньше, чем Shutdown начнёт их ждать
	srv.RegisterOnShutdown(taskFeed.Close)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	taskService.Stop()
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
