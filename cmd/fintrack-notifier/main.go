package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger = logger.WithComponent(log.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting fintrack-notifier")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Notifier stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Notifier shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to consume budget alerts")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	mailer, err := backend.NewMailer(ctx, bcfg.Mail)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}

	w := worker.NewAlertWorker(client, notify.NewMailNotifier(mailer, cfg.MailFrom))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming budget alerts", "queue", cfg.AMQPQueue, "mail_backend", cfg.MailBackend)
		return w.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		return client.Close()
	})
	return g.Wait()
}
