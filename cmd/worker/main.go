package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventdesk/internal/config"
	"eventdesk/internal/importjob"
	"eventdesk/internal/logging"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
	"eventdesk/internal/store"
)

// Worker consumes import jobs from redis and writes the participants.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Production())

	if err := run(cfg, log); err != nil {
		log.Error("worker failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	if cfg.QueueBackend != "redis" {
		return errors.New("the worker needs QUEUE_BACKEND=redis; with the memory queue the API runs imports itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.OpenDB(ctx, cfg.DatabaseURL, store.DefaultPool)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		return err
	}

	opts := []participant.Option{participant.WithLogger(log)}
	if !cfg.StrictConcurrency {
		opts = append(opts, participant.WithLastWriterWins())
	}
	svc := participant.NewService(participant.NewRepository(db.Client), opts...)
	go svc.Tracker().Reconcile(ctx, cfg.StatsReconcileInterval, log)

	q := queue.NewRedisQueue(rdb.Client, cfg.QueueKey, log)
	statuses := importjob.NewRedisStatus(rdb.Client, "", 24*time.Hour)

	runner := importjob.NewRunner(q, svc, statuses, log, 2*time.Minute)
	log.Info("worker started, waiting for jobs", "queue", cfg.QueueKey)
	return runner.Run(ctx)
}
