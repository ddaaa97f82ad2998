package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telegram-archivebot/internal/admins"
	"telegram-archivebot/internal/archive"
	"telegram-archivebot/internal/bot"
	"telegram-archivebot/internal/botapi"
	"telegram-archivebot/internal/infra/config"
	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/shortener"
	"telegram-archivebot/internal/store"
	"telegram-archivebot/internal/store/boltstore"
	"telegram-archivebot/internal/store/mongostore"
)

func main() {
	// envPath определяет расположение .env с секретами и общими настройками.
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	// config.Load загружает конфигурацию из .env.
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

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, env)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	adminList, err := admins.Load(env.AdminsFile, env.AdminIDs)
	if err != nil {
		logger.Fatal("failed to load admins", zap.Error(err))
	}

	client, err := botapi.New(env.BotToken, env.ThrottleRPS,
		time.Duration(env.HTTPTimeoutSec)*time.Second, env.LogChannelID)
	if err != nil {
		logger.Fatal("failed to create bot api client", zap.Error(err))
	}

	svc, err := archive.New(archive.Options{
		Store:          st,
		Admins:         adminList,
		Forwarder:      client,
		Messenger:      client,
		Notifier:       client,
		Shortener:      shortener.New(env),
		ArchiveChannel: env.ArchiveChannelID,
		Domain:         env.Domain,
	})
	if err != nil {
		logger.Fatal("failed to build archive service", zap.Error(err))
	}

	logger.Info("Archive bot started", zap.String("username", client.Self()))
	client.Notify(ctx, "Bot started!")

	bot.New(svc, adminList, client).Run(ctx, client)
	logger.Info("Graceful shutdown complete")
}

// openStore выбирает бэкенд хранилища по конфигурации.
func openStore(ctx context.Context, env config.EnvConfig) (store.Store, error) {
	if env.StoreDriver == "mongo" {
		return mongostore.Open(ctx, env.MongoURI, env.MongoDatabase)
	}
	return boltstore.Open(env.StoreFile)
}
