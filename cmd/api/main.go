package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/api"
	"eventdesk/internal/config"
	"eventdesk/internal/httpmiddleware"
	"eventdesk/internal/importjob"
	"eventdesk/internal/logging"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
	"eventdesk/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Production())

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
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

	checks := map[string]api.HealthCheck{"db": db.Healthy}
	var rdb *store.Redis
	if cfg.UsesRedis() {
		rdb = store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		checks["redis"] = rdb.Healthy
	}

	opts := []participant.Option{
		participant.WithLogger(log),
		participant.WithSearchLimit(cfg.SearchLimit),
	}
	if !cfg.StrictConcurrency {
		opts = append(opts, participant.WithLastWriterWins())
	}
	svc := participant.NewService(participant.NewRepository(db.Client), opts...)
	if _, err := svc.Tracker().Recompute(ctx); err != nil {
		log.Warn("initial stats computation failed", "err", err)
	}
	go svc.Tracker().Reconcile(ctx, cfg.StatsReconcileInterval, log)

	var (
		q        queue.Queue
		statuses importjob.StatusStore
	)
	if cfg.QueueBackend == "memory" {
		q, statuses = queue.NewInMemory(64), importjob.NewMemoryStatus()
		// No separate worker can see an in-process queue.
		runner := importjob.NewRunner(q, svc, statuses, log, 2*time.Minute)
		go func() {
			if err := runner.Run(ctx); err != nil {
				log.Error("import runner failed", "err", err)
			}
		}()
	} else {
		q = queue.NewRedisQueue(rdb.Client, cfg.QueueKey, log)
		statuses = importjob.NewRedisStatus(rdb.Client, "", 24*time.Hour)
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(rdb.Client, "", cfg.RateLimitPerMin)
	}

	h := api.NewParticipantHandler(svc, q, statuses, cfg.Location(), cfg.MaxImportBytes, log)
	r := api.NewRouter(h, api.Options{
		SigningKey:    cfg.JWTSigningKey,
		Issuer:        cfg.JWTIssuer,
		CORSOrigins:   cfg.CORSOrigins,
		Production:    cfg.Production(),
		SearchLimiter: limiter,
		Checks:        checks,
		Log:           log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
