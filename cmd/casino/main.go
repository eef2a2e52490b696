// Package main — точка входа казино: Telegram-бот, HTTP API Mini-App и cron.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/duna-casino/internal/app"
	"serotonyl.ru/duna-casino/internal/config"
)

// shutdownTimeout — сколько ждём завершения текущих HTTP-запросов.
const shutdownTimeout = 15 * time.Second

func main() {
	setupLogging()

	log.Info("=== Казино запускается ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	if err := application.Scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("Не удалось запустить планировщик")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		application.Bot.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := application.ServeHTTP(); err != nil {
			log.WithError(err).Error("HTTP API остановлен с ошибкой")
			stop()
		}
	}()

	log.Info("=== Казино готово к работе ===")

	<-ctx.Done()
	log.Info("Получен сигнал остановки, завершаемся...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP API не остановился вовремя")
	}
	application.Scheduler.Stop()
	wg.Wait()

	// раздачи блэкджека живут в памяти: возвращаем ставки, пока БД и outbox открыты
	refundCtx, cancelRefund := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelRefund()
	application.AbortOpenRounds(refundCtx)

	log.Info("=== Казино остановлено ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
