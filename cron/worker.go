package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"invoicely/services/currency"
	"invoicely/services/tasks"
)

const (
	purgeSchedule    = "@hourly"
	currencySchedule = "@every 6h"
)

// Purger removes expired auth state.
type Purger interface {
	PurgeExpired(ctx context.Context) error
}

// RateRefresher reloads exchange rates into the cache.
type RateRefresher interface {
	Enabled() bool
	Refresh(ctx context.Context, base string) (*currency.Rates, error)
}

// Worker owns the asynq server that executes tasks and the scheduler that
// enqueues the periodic ones.
type Worker struct {
	server          *asynq.Server
	scheduler       *asynq.Scheduler
	mux             *asynq.ServeMux
	rates           RateRefresher
	defaultCurrency string
	logger          *zap.Logger
}

func NewWorker(redisOpts asynq.RedisClientOpt, purger Purger, rates RateRefresher, defaultCurrency string, logger *zap.Logger) *Worker {
	sugar := logger.Sugar()
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		Logger: sugar,
	})
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
		Logger:   sugar,
		Location: time.UTC,
	})

	return &Worker{
		server:          srv,
		scheduler:       scheduler,
		mux:             NewMux(purger, rates, logger),
		rates:           rates,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// NewMux routes every task type to its handler.
func NewMux(purger Purger, rates RateRefresher, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePurgeAuth, handlePurgeAuth(purger, logger))
	mux.HandleFunc(tasks.TypeCurrencyRefresh, handleCurrencyRefresh(rates, logger))
	return mux
}

// Start registers the periodic tasks and starts both components. It
// retries the server start a few times with a growing backoff.
func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.scheduler.Register(purgeSchedule, tasks.NewPurgeAuthTask()); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", tasks.TypePurgeAuth, err)
	}
	if w.rates != nil && w.rates.Enabled() {
		task, err := tasks.NewCurrencyRefreshTask(w.defaultCurrency)
		if err != nil {
			return err
		}
		if _, err := w.scheduler.Register(currencySchedule, task); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", tasks.TypeCurrencyRefresh, err)
		}
	}

	const maxAttempts = 5
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.server.Start(w.mux); err == nil {
			break
		}
		w.logger.Warn("Worker failed to start", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*2) * time.Second):
		}
	}
	if err != nil {
		return fmt.Errorf("worker did not start after %d attempts: %w", maxAttempts, err)
	}

	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	w.logger.Info("Background worker started")
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	w.logger.Info("Background worker stopped")
}

func handlePurgeAuth(purger Purger, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := purger.PurgeExpired(ctx); err != nil {
			logger.Error("Auth purge failed", zap.Error(err))
			return err
		}
		return nil
	}
}

func handleCurrencyRefresh(rates RateRefresher, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseCurrencyRefresh(task)
		if err != nil {
			logger.Error("Dropping currency refresh", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if rates == nil || !rates.Enabled() {
			logger.Debug("Currency refresh skipped, not configured")
			return nil
		}
		if _, err := rates.Refresh(ctx, p.Base); err != nil {
			logger.Warn("Currency refresh failed", zap.String("base", p.Base), zap.Error(err))
			return err
		}
		return nil
	}
}
