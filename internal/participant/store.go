package participant

import (
	"context"
	"time"
)

// Order selects the ordering of List.
type Order int

const (
	// OrderByName sorts by child name, as the admin dashboard shows it.
	OrderByName Order = iota
	// OrderByRecent sorts newest registrations first.
	OrderByRecent
)

// ParseOrder maps a query parameter to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "name":
		return OrderByName, nil
	case "recent":
		return OrderByRecent, nil
	}
	return 0, invalid("order", "must be name or recent")
}

// Store persists participants. Every call honours ctx cancellation, and a
// write is applied to a whole record or not at all. The acting caller travels
// in ctx (see auth.WithActor).
type Store interface {
	Get(ctx context.Context, id string) (Participant, error)
	List(ctx context.Context, order Order) ([]Participant, error)
	// Search returns up to limit records whose child name, parent name or
	// email contains query, ignoring case, ordered by child name. query is
	// trimmed and lower-cased by the caller.
	Search(ctx context.Context, query string, limit int) ([]Participant, error)
	Insert(ctx context.Context, ps []Participant) (int, error)
	// Update replaces the full record. When prevUpdatedAt is non-zero the
	// write only succeeds if the stored updated_at still equals it, otherwise
	// ErrConflict is returned.
	Update(ctx context.Context, p Participant, prevUpdatedAt time.Time) (Participant, error)
	Delete(ctx context.Context, id string) error
}
