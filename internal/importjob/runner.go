package importjob

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eventdesk/internal/auth"
	"eventdesk/internal/metrics"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
)

// Importer is the part of the participant service a Runner needs.
type Importer interface {
	Import(ctx context.Context, actor auth.Actor, rows []participant.ImportRow) (int, error)
}

// Runner consumes import jobs one at a time.
type Runner struct {
	q        queue.Queue
	importer Importer
	statuses StatusStore
	log      *slog.Logger
	timeout  time.Duration
}

// NewRunner creates a runner. Each job gets at most timeout to finish.
func NewRunner(q queue.Queue, importer Importer, statuses StatusStore, log *slog.Logger, timeout time.Duration) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{q: q, importer: importer, statuses: statuses, log: log, timeout: timeout}
}

// Run processes jobs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	messages, err := r.q.Consume(ctx)
	if err != nil {
		return err
	}
	r.log.Info("import runner started")
	for msg := range messages {
		if msg.Type != MessageType {
			r.log.Warn("skipping unknown message", "type", msg.Type, "id", msg.ID)
			continue
		}
		r.Handle(ctx, msg)
	}
	r.log.Info("import runner stopped")
	return nil
}

// Handle applies one job and records its final status.
func (r *Runner) Handle(ctx context.Context, msg queue.Message) Status {
	st := Status{ID: msg.ID}
	var job Job
	if err := msg.Decode(&job); err != nil {
		return r.finish(ctx, st, 0, err)
	}
	st.Source, st.Rows = job.Source, len(job.Rows)

	jobCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	n, err := r.importer.Import(jobCtx, job.Actor, job.Rows)
	return r.finish(ctx, st, n, err)
}

func (r *Runner) finish(ctx context.Context, st Status, n int, err error) Status {
	st.Imported = n
	st.UpdatedAt = time.Now().UTC()
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
		var ve *participant.ValidationError
		if errors.As(err, &ve) {
			st.ErrorRow = ve.Row
		}
		metrics.ImportJobs.WithLabelValues("failed").Inc()
		r.log.Warn("import failed", "job", st.ID, "source", st.Source, "err", err)
	} else {
		st.State = StateDone
		metrics.ImportJobs.WithLabelValues("done").Inc()
		r.log.Info("import finished", "job", st.ID, "source", st.Source, "imported", n)
	}
	// The status must be recorded even when the job ran out of time.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.statuses.Save(saveCtx, st); err != nil {
		r.log.Error("recording import status failed", "job", st.ID, "err", err)
	}
	return st
}
