// The notifier consumes registry events from kafka and mails the affected
// parties through sendgrid.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/redflag/internal/registry/config"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/notify"
	"github.com/gartstein/redflag/internal/registry/reporting"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadNotifier(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(2)
	}

	logger := initLogger(cfg.Log.Development)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if err := reporting.Init(reporting.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
	}); err != nil {
		logger.Warn("Error reporting disabled", zap.Error(err))
	}
	defer reporting.Flush(2 * time.Second)

	var mailer notify.Mailer
	if cfg.SendGrid.APIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, logger)
	} else {
		logger.Warn("sendgrid.api_key not set, mails are only logged")
		mailer = notify.NewLogMailer(logger)
	}
	notifier := notify.NewNotifier(mailer, cfg.SendGrid.AdminEmail, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, logger)
	consumer.RegisterHandler(func(ctx context.Context, ev events.Event) error {
		err := notifier.Handle(ctx, ev)
		if err != nil {
			reporting.CaptureError(err, map[string]string{"event_type": string(ev.Type)})
		}
		return err
	})
	consumer.Start(ctx)
	logger.Info("Notifier consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID),
	)

	<-ctx.Done()
	<-consumer.Done()
	consumer.Close()
	logger.Info("Notifier stopped")
}

func initLogger(development bool) *zap.Logger {
	if development {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
