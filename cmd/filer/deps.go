package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"filer/internal/bnhub"
	"filer/internal/events"
	filingstore "filer/internal/filing/store"
	"filer/internal/platform/config"
	"filer/internal/platform/kafka"
	"filer/internal/platform/postgres"
	"filer/internal/platform/redis"
	"filer/internal/processing"
	processingmetrics "filer/internal/processing/metrics"
	"filer/internal/tracker"
	trackermetrics "filer/internal/tracker/metrics"
	trackerstore "filer/internal/tracker/store"
	"filer/pkg/platform/circuit"
)

// Deps holds everything a command needs to dispatch filings. Close releases
// the connections in reverse order of creation.
type Deps struct {
	Config     config.Config
	Logger     *slog.Logger
	DB         *sql.DB
	Redis      *redis.Client
	Producer   *kafka.Producer
	Dispatcher *processing.Dispatcher
	Payments   *processing.Payments

	closers []func() error
}

func newDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Deps, err error) {
	d := &Deps{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	d.DB, err = postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, d.DB.Close)
	if err := postgres.Migrate(ctx, d.DB); err != nil {
		return nil, err
	}

	d.Redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if d.Redis != nil {
		d.closers = append(d.closers, d.Redis.Close)
	}

	d.Producer, err = kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() error {
		d.Producer.Close()
		return nil
	})

	breaker := circuit.New("bnhub",
		circuit.WithFailureThreshold(cfg.BNHub.BreakerThreshold),
		circuit.WithCooldown(cfg.BNHub.BreakerCooldown),
	)
	client := bnhub.NewClient(bnhub.Config{
		URL:         cfg.BNHub.URL,
		SubmitterID: cfg.BNHub.SubmitterID,
		Timeout:     cfg.BNHub.Timeout,
	}, bnhub.WithBreaker(breaker), bnhub.WithLogger(logger))
	sync := tracker.New(trackerstore.NewPostgres(d.DB), client, tracker.Config{
		MaxRetry:            cfg.BNHub.MaxRetry,
		SkipExternalRequest: cfg.BNHub.SkipExternalRequest,
	}, tracker.WithLogger(logger), tracker.WithMetrics(trackermetrics.New()))

	filings := filingstore.NewPostgres(d.DB, cfg.Database.TxTimeout)
	publisher := events.NewKafkaPublisher(d.Producer, cfg.Kafka.EventsTopic, cfg.Kafka.EmailTopic)
	pm := processingmetrics.New()

	opts := []processing.Option{processing.WithLogger(logger), processing.WithMetrics(pm)}
	if d.Redis != nil {
		claims := processing.NewRedisClaims(d.Redis.Client, cfg.Redis.ClaimTTL, processing.WithClaimsLogger(logger))
		opts = append(opts, processing.WithClaims(claims))
	}
	d.Dispatcher = processing.New(filings, sync, publisher, opts...)
	d.Payments = processing.NewPayments(filings, logger, pm)
	return d, nil
}

// Close releases every connection, returning the joined errors.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close dependencies: %w", err)
	}
	return nil
}
