// Package importjob moves bulk participant imports off the request path.
// The API enqueues a Job, and a Runner in the worker (or in the API itself
// with the memory queue) applies it and records its Status.
package importjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"eventdesk/internal/auth"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
)

// MessageType tags import jobs on the queue.
const MessageType = "participants.import"

// Job is one uploaded batch. Actor is the admin who uploaded it; the
// participant service re-checks the role when the job runs.
type Job struct {
	Actor  auth.Actor              `json:"actor"`
	Source string                  `json:"source"`
	Rows   []participant.ImportRow `json:"rows"`
}

// State is the lifecycle of a job.
type State string

const (
	StateQueued State = "queued"
	StateDone   State = "done"
	StateFailed State = "failed"
)

// Status is what a client polls after an upload.
type Status struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Source    string    `json:"source,omitempty"`
	Rows      int       `json:"rows"`
	Imported  int       `json:"imported"`
	Error     string    `json:"error,omitempty"`
	ErrorRow  int       `json:"error_row,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrUnknownJob is returned for ids with no recorded status.
var ErrUnknownJob = errors.New("import job not found")

// StatusStore keeps job statuses where both the API and the worker see them.
type StatusStore interface {
	Save(ctx context.Context, st Status) error
	Get(ctx context.Context, id string) (Status, error)
}

// Enqueue publishes job and records it as queued.
func Enqueue(ctx context.Context, q queue.Queue, statuses StatusStore, job Job) (Status, error) {
	msg, err := queue.NewMessage(MessageType, job)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		ID:        msg.ID,
		State:     StateQueued,
		Source:    job.Source,
		Rows:      len(job.Rows),
		UpdatedAt: msg.EnqueuedAt,
	}
	if err := statuses.Save(ctx, st); err != nil {
		return Status{}, fmt.Errorf("record import status: %w", err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		return Status{}, fmt.Errorf("publish import job: %w", err)
	}
	return st, nil
}

// MemoryStatus keeps statuses in process.
type MemoryStatus struct {
	mu sync.RWMutex
	m  map[string]Status
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{m: make(map[string]Status)}
}

func (s *MemoryStatus) Save(_ context.Context, st Status) error {
	s.mu.Lock()
	s.m[st.ID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatus) Get(_ context.Context, id string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[id]
	if !ok {
		return Status{}, ErrUnknownJob
	}
	return st, nil
}

// RedisStatus keeps statuses as JSON strings that expire after ttl.
type RedisStatus struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStatus(client *redis.Client, prefix string, ttl time.Duration) *RedisStatus {
	if prefix == "" {
		prefix = "eventdesk:import-status:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStatus{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStatus) Save(ctx context.Context, st Status) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+st.ID, raw, s.ttl).Err()
}

func (s *RedisStatus) Get(ctx context.Context, id string) (Status, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, ErrUnknownJob
	}
	if err != nil {
		return Status{}, fmt.Errorf("get import status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return Status{}, fmt.Errorf("decode import status: %w", err)
	}
	return st, nil
}
