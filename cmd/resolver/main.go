package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telegram-archivebot/internal/infra/config"
	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/shortener"
	"telegram-archivebot/internal/store"
	"telegram-archivebot/internal/store/boltstore"
	"telegram-archivebot/internal/store/mongostore"
	"telegram-archivebot/internal/web"
)

// shutdownTimeout ограничивает дожим открытых соединений при остановке.
const shutdownTimeout = 10 * time.Second

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	env := config.Env()

	logger.Init(env.LogLevel, logger.FileConfig{
		Path:       env.LogFile,
		Level:      env.LogFileLevel,
		MaxSizeMB:  env.LogFileMaxSize,
		MaxBackups: env.LogFileMaxBackups,
		MaxAgeDays: env.LogFileMaxAge,
		Compress:   env.LogFileCompress,
	})
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, env)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	srv := web.NewServer(env.ListenAddress, st, shortener.New(env), env.ArchiveChannelID)

	// Останавливаем сервер по сигналу; Start блокируется до Shutdown.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			logger.Error("resolver shutdown failed", zap.Error(errShutdown))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Fatal("resolver server failed", zap.Error(err))
	}
	logger.Info("Graceful shutdown complete")
}

// openStore выбирает бэкенд хранилища. Resolver только читает, поэтому
// bolt-файл открывается в режиме read-only; для одновременной работы с
// archivebot на общем хранилище используйте mongo-бэкенд.
func openStore(ctx context.Context, env config.EnvConfig) (store.Store, error) {
	if env.StoreDriver == "mongo" {
		return mongostore.Open(ctx, env.MongoURI, env.MongoDatabase)
	}
	return boltstore.OpenReadOnly(env.StoreFile)
}
