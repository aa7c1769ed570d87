package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"filer/internal/platform/config"
	"filer/internal/platform/httpserver"
	"filer/internal/platform/kafka"
	"filer/internal/platform/kafka/consumer"
	"filer/internal/platform/logger"
	"filer/internal/platform/metrics"
	"filer/internal/queue"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume filing and payment messages and dispatch filings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	if cfg.Kafka.CreateTopics {
		err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, 1, cfg.Kafka.TopicReplicas,
			cfg.Kafka.FilerTopic, cfg.Kafka.PaymentTopic, cfg.Kafka.EventsTopic, cfg.Kafka.EmailTopic)
		if err != nil {
			return err
		}
	}

	deps, err := newDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	cm := metrics.New()
	requeue := func(h consumer.Handler) consumer.Handler {
		return queue.NewRequeue(h, deps.Producer, cfg.Worker.RequeueDelay, cfg.Worker.MaxDeliveries,
			queue.WithRequeueLogger(log), queue.WithRequeueMetrics(cm))
	}
	router := queue.NewRouter(log, nil)
	router.Register(cfg.Kafka.FilerTopic, requeue(queue.NewFilingHandler(deps.Dispatcher, log)))
	router.Register(cfg.Kafka.PaymentTopic, requeue(queue.NewPaymentHandler(deps.Payments, deps.Producer, cfg.Kafka.FilerTopic, log)))

	c, err := consumer.New(consumer.Config{
		Brokers:     cfg.Kafka.Brokers,
		Group:       cfg.Kafka.Group,
		Topics:      router.Topics(),
		Concurrency: cfg.Worker.Concurrency,
	}, router, consumer.WithLogger(log), consumer.WithMetrics(cm))
	if err != nil {
		return err
	}
	defer c.Close()

	checks := map[string]httpserver.Check{
		"postgres": deps.DB.PingContext,
		"kafka":    deps.Producer.Ping,
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis.Check
	}
	srv := httpserver.New(cfg.MetricsAddr, httpserver.NewRouter(log, checks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting operational server", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("operational server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("consuming", "topics", router.Topics(), "group", cfg.Kafka.Group, "concurrency", cfg.Worker.Concurrency)
		err := c.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("stopped", "error", err)
	return err
}
