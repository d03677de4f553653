package participant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/auth"
	"eventdesk/internal/metrics"
)

// Service coordinates the guard, the transition engine, the record store and
// the cached statistics. Every operation takes the acting caller explicitly.
type Service struct {
	store   Store
	engine  *Engine
	tracker *StatsTracker
	log     *slog.Logger
	now     func() time.Time
	newID   func() string

	searchLimit int
	strict      bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for audit lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for both the engine and new records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSearchLimit lowers the number of search results. Values above
// DefaultSearchLimit are capped to it.
func WithSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchLimit = min(n, DefaultSearchLimit)
		}
	}
}

// WithLastWriterWins turns off the updated_at check on writes.
func WithLastWriterWins() Option {
	return func(s *Service) { s.strict = false }
}

// WithIDGenerator replaces the UUID generator for new participants.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService creates a service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		log:         slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		searchLimit: DefaultSearchLimit,
		strict:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewEngine(s.now)
	s.tracker = NewStatsTracker(func(ctx context.Context) ([]Participant, error) {
		return s.store.List(ctx, OrderByName)
	}, func(st Stats) {
		metrics.ObserveAttendance(st.CheckedIn, st.NotCheckedIn, st.SnackDistributed, st.LunchDistributed)
	})
	return s
}

// Tracker exposes the statistics cache, mainly for periodic reconciliation.
func (s *Service) Tracker() *StatsTracker {
	return s.tracker
}

// Get returns a participant. Reads are open to every actor.
func (s *Service) Get(ctx context.Context, id string) (Participant, error) {
	if id == "" {
		return Participant{}, invalid("id", "must not be empty")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Participant{}, storeError("get participant", err)
	}
	return p, nil
}

// Search runs a free-text lookup over child name, parent name and email.
func (s *Service) Search(ctx context.Context, query string) ([]Participant, error) {
	q := strings.ToLower(collapseQuery(query))
	if q == "" {
		return []Participant{}, nil
	}
	start := time.Now()
	defer func() { metrics.Searches.Observe(time.Since(start).Seconds()) }()

	res, err := s.store.Search(ctx, q, s.searchLimit)
	if err != nil {
		return nil, storeError("search participants", err)
	}
	return capResults(res, s.searchLimit), nil
}

// List returns every participant for the admin dashboard.
func (s *Service) List(ctx context.Context, actor auth.Actor, order Order) ([]Participant, error) {
	if err := AuthorizeAdmin(actor, "list participants").Err(actor); err != nil {
		return nil, err
	}
	ps, err := s.store.List(ctx, order)
	if err != nil {
		return nil, storeError("list participants", err)
	}
	return ps, nil
}

// Update authorizes ch for actor, computes the next state from a fresh read
// and writes it. The returned record is the one the store confirmed.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, ch Changes) (Participant, Delta, error) {
	saved, delta, err := s.update(ctx, actor, id, ch)
	metrics.Updates.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.log.Debug("participant update rejected", "id", id, "actor", actor.String(), "err", err)
		return Participant{}, Delta{}, err
	}
	s.log.Info("participant updated",
		"id", id,
		"actor", actor.String(),
		"checked_in", delta.CheckedIn,
		"snack", delta.SnackBox,
		"lunch", delta.LunchTicket,
	)
	return saved, delta, nil
}

func (s *Service) update(ctx context.Context, actor auth.Actor, id string, ch Changes) (Participant, Delta, error) {
	if err := Authorize(actor, ch).Err(actor); err != nil {
		return Participant{}, Delta{}, err
	}
	if id == "" {
		return Participant{}, Delta{}, invalid("id", "must not be empty")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Participant{}, Delta{}, storeError("get participant", err)
	}
	next, _, err := s.engine.Apply(current, ch)
	if err != nil {
		return Participant{}, Delta{}, err
	}

	var prev time.Time
	if s.strict {
		prev = current.UpdatedAt
	}
	saved, err := s.store.Update(auth.WithActor(ctx, actor), next, prev)
	if err != nil {
		return Participant{}, Delta{}, storeError("update participant", err)
	}
	// The write has landed by now, so the cached counts can no longer be
	// trusted when the confirmed record is unusable.
	if saved.ID != id {
		s.tracker.Invalidate()
		return Participant{}, Delta{}, integrityError("store returned participant %q for %q", saved.ID, id)
	}
	if err := saved.Consistent(); err != nil {
		s.tracker.Invalidate()
		s.log.Error("stored participant is inconsistent", "id", id, "actor", actor.String(), "err", err)
		return Participant{}, Delta{}, err
	}

	delta := Diff(current, saved)
	s.tracker.Apply(delta)
	metrics.ObserveDelta(delta.CheckedIn, delta.SnackBox, delta.LunchTicket)
	return saved, delta, nil
}

// Create adds a single participant from the manual add form.
func (s *Service) Create(ctx context.Context, actor auth.Actor, row ImportRow) (Participant, error) {
	if err := AuthorizeAdmin(actor, "add participants").Err(actor); err != nil {
		return Participant{}, err
	}
	p, err := FromImport(row, s.newID(), s.now())
	if err != nil {
		return Participant{}, err
	}
	if _, err := s.store.Insert(auth.WithActor(ctx, actor), []Participant{p}); err != nil {
		return Participant{}, storeError("insert participant", err)
	}
	s.tracker.Include(p)
	s.log.Info("participant added", "id", p.ID, "actor", actor.String())
	return s.Get(ctx, p.ID)
}

// Import validates every row and inserts them together. A single invalid row
// rejects the whole batch; the error names its 1-based row number.
func (s *Service) Import(ctx context.Context, actor auth.Actor, rows []ImportRow) (int, error) {
	if err := AuthorizeAdmin(actor, "import participants").Err(actor); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, invalid("rows", "must contain at least one participant")
	}

	now := s.now()
	ps := make([]Participant, 0, len(rows))
	for i, row := range rows {
		p, err := FromImport(row, s.newID(), now)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				withRow := *ve
				withRow.Row = i + 1
				return 0, &withRow
			}
			return 0, err
		}
		ps = append(ps, p)
	}

	n, err := s.store.Insert(auth.WithActor(ctx, actor), ps)
	if err != nil {
		return 0, storeError("import participants", err)
	}
	s.tracker.Include(ps...)
	metrics.ImportedRows.Add(float64(n))
	s.log.Info("participants imported", "count", n, "actor", actor.String())
	return n, nil
}

// Delete removes a participant and drops the cached statistics.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := AuthorizeAdmin(actor, "delete participants").Err(actor); err != nil {
		return err
	}
	if id == "" {
		return invalid("id", "must not be empty")
	}
	if err := s.store.Delete(auth.WithActor(ctx, actor), id); err != nil {
		return storeError("delete participant", err)
	}
	s.tracker.Invalidate()
	s.log.Info("participant deleted", "id", id, "actor", actor.String())
	return nil
}

// Stats returns the cached dashboard counts.
func (s *Service) Stats(ctx context.Context, actor auth.Actor) (Stats, error) {
	if err := AuthorizeAdmin(actor, "view statistics").Err(actor); err != nil {
		return Stats{}, err
	}
	st, err := s.tracker.Snapshot(ctx)
	if err != nil {
		return Stats{}, storeError("compute statistics", err)
	}
	return st, nil
}

// RecomputeStats rebuilds the counts from the full collection.
func (s *Service) RecomputeStats(ctx context.Context, actor auth.Actor) (Stats, error) {
	if err := AuthorizeAdmin(actor, "recompute statistics").Err(actor); err != nil {
		return Stats{}, err
	}
	st, err := s.tracker.Recompute(ctx)
	if err != nil {
		return Stats{}, storeError("compute statistics", err)
	}
	return st, nil
}

// Export projects every participant, ordered by child name, with timestamps
// rendered in loc.
func (s *Service) Export(ctx context.Context, actor auth.Actor, loc *time.Location) ([]ExportRow, error) {
	if err := AuthorizeAdmin(actor, "export participants").Err(actor); err != nil {
		return nil, err
	}
	ps, err := s.store.List(ctx, OrderByName)
	if err != nil {
		return nil, storeError("export participants", err)
	}
	return Project(ps, loc), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "denied"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	}
	return "error"
}
