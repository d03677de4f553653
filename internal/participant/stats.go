package participant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Stats are the dashboard counts over the whole participant collection.
type Stats struct {
	CheckedIn        int `json:"checkedIn"`
	NotCheckedIn     int `json:"notCheckedIn"`
	SnackDistributed int `json:"snackDistributed"`
	LunchDistributed int `json:"lunchDistributed"`
}

// Total is the number of participants the counts cover.
func (s Stats) Total() int {
	return s.CheckedIn + s.NotCheckedIn
}

// ComputeStats counts every participant from scratch.
func ComputeStats(all []Participant) Stats {
	var s Stats
	for _, p := range all {
		s = s.Include(p)
	}
	return s
}

// Include adds a participant that was not previously counted.
func (s Stats) Include(p Participant) Stats {
	if p.Status == StatusCheckedIn {
		s.CheckedIn++
	} else {
		s.NotCheckedIn++
	}
	if p.SnackBoxReceived {
		s.SnackDistributed++
	}
	if p.LunchTicketReceived {
		s.LunchDistributed++
	}
	return s
}

// Apply adjusts the counts by a transition delta.
func (s Stats) Apply(d Delta) Stats {
	s.CheckedIn += d.CheckedIn
	s.NotCheckedIn -= d.CheckedIn
	s.SnackDistributed += d.SnackBox
	s.LunchDistributed += d.LunchTicket
	return s
}

// StatsLoader fetches the full collection for a recompute.
type StatsLoader func(ctx context.Context) ([]Participant, error)

// StatsTracker caches Stats in process. It is seeded by a full recompute and
// kept approximately right by deltas; it is never a source of truth. When a
// delta lands while a recompute is in flight the fresh result is kept but
// marked stale so the next Snapshot recomputes again.
type StatsTracker struct {
	load     StatsLoader
	onChange func(Stats)
	group    singleflight.Group

	mu    sync.RWMutex
	stats Stats
	valid bool
	gen   uint64
}

// NewStatsTracker creates an unseeded tracker. onChange, when set, is called
// with every new value.
func NewStatsTracker(load StatsLoader, onChange func(Stats)) *StatsTracker {
	return &StatsTracker{load: load, onChange: onChange}
}

// Snapshot returns the cached counts, recomputing first when they are not valid.
func (t *StatsTracker) Snapshot(ctx context.Context) (Stats, error) {
	t.mu.RLock()
	s, ok := t.stats, t.valid
	t.mu.RUnlock()
	if ok {
		return s, nil
	}
	return t.Recompute(ctx)
}

// Recompute reloads the collection and replaces the cached counts.
// Concurrent callers share one load.
func (t *StatsTracker) Recompute(ctx context.Context) (Stats, error) {
	v, err, _ := t.group.Do("recompute", func() (interface{}, error) {
		t.mu.RLock()
		gen := t.gen
		t.mu.RUnlock()

		all, err := t.load(ctx)
		if err != nil {
			return Stats{}, err
		}
		s := ComputeStats(all)

		t.mu.Lock()
		t.stats = s
		t.valid = gen == t.gen
		t.mu.Unlock()
		t.notify(s)
		return s, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

// Apply folds a transition delta into the cached counts.
func (t *StatsTracker) Apply(d Delta) {
	if d.IsZero() {
		return
	}
	t.update(func(s Stats) Stats { return s.Apply(d) })
}

// Include counts newly inserted participants.
func (t *StatsTracker) Include(ps ...Participant) {
	if len(ps) == 0 {
		return
	}
	t.update(func(s Stats) Stats {
		for _, p := range ps {
			s = s.Include(p)
		}
		return s
	})
}

// Invalidate drops the cached counts; the next Snapshot recomputes.
func (t *StatsTracker) Invalidate() {
	t.mu.Lock()
	t.valid = false
	t.gen++
	t.mu.Unlock()
}

func (t *StatsTracker) update(fn func(Stats) Stats) {
	t.mu.Lock()
	t.gen++
	if !t.valid {
		t.mu.Unlock()
		return
	}
	t.stats = fn(t.stats)
	s := t.stats
	t.mu.Unlock()
	t.notify(s)
}

func (t *StatsTracker) notify(s Stats) {
	if t.onChange != nil {
		t.onChange(s)
	}
}

// Reconcile recomputes on every tick until ctx is done. It corrects drift
// from writes made by other processes, such as the import worker.
func (t *StatsTracker) Reconcile(ctx context.Context, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := t.Recompute(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("stats reconcile failed", "err", err)
				}
				continue
			}
			log.Debug("stats reconciled",
				"checked_in", s.CheckedIn,
				"not_checked_in", s.NotCheckedIn,
				"snack", s.SnackDistributed,
				"lunch", s.LunchDistributed,
			)
		}
	}
}
