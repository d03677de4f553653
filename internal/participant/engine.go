package participant

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Engine computes the next state of a participant from its current record and
// a sparse change. It owns every timestamp and the derived status label. It
// holds no state besides its clock and is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine. A nil clock uses time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Apply returns the full record to persist and the per-milestone count change
// it causes. The caller must pass a freshly fetched current record. Fields
// absent from ch are preserved. On error nothing should be written.
func (e *Engine) Apply(current Participant, ch Changes) (Participant, Delta, error) {
	if ch.ID != nil && *ch.ID != current.ID {
		return Participant{}, Delta{}, integrityError("participant id cannot change from %q to %q", current.ID, *ch.ID)
	}
	for _, m := range Milestones {
		if ch.milestoneTime(m) != nil {
			return Participant{}, Delta{}, invalid(timeField(m), "is derived from the milestone and cannot be set")
		}
	}

	next := current.Clone()

	for _, f := range ch.profileFields() {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if f.required && v == "" {
			return Participant{}, Delta{}, invalid(f.name, "must not be empty")
		}
		*f.target(&next) = v
	}
	if ch.Email != nil {
		if err := validateEmail(next.Email); err != nil {
			return Participant{}, Delta{}, err
		}
	}
	if ch.RepresentativeName != nil {
		next.RepresentativeName = optional(*ch.RepresentativeName)
	}
	if ch.RepresentativePhone != nil {
		next.RepresentativePhone = optional(*ch.RepresentativePhone)
	}

	stamp := e.stamp(current.UpdatedAt)
	for _, m := range Milestones {
		want := ch.Milestone(m)
		if want == nil {
			continue
		}
		done, at := next.Milestone(m)
		switch {
		case *want && (!done || at == nil):
			// a set flag with a missing timestamp is repaired here too
			ts := stamp
			next.setMilestone(m, true, &ts)
		case !*want && (done || at != nil):
			next.setMilestone(m, false, nil)
		}
	}

	next.Status = statusFor(next.CheckIn)
	if ch.Status != nil && *ch.Status != next.Status {
		return Participant{}, Delta{}, invalid("status", "must be "+string(next.Status)+" for this change")
	}
	next.UpdatedAt = stamp

	return next, Diff(current, next), nil
}

// stamp returns the audit time for a write. Times are kept at microsecond
// precision, which is what Postgres stores, and never go backwards.
func (e *Engine) stamp(prev time.Time) time.Time {
	now := e.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func timeField(m Milestone) string {
	if m == MilestoneLunchTicket {
		return "lunch_box_ticket_received_time"
	}
	return string(m) + "_time"
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := validation.Validate(email, is.Email); err != nil {
		return invalid("email", err.Error())
	}
	return nil
}

// Delta is the signed change of each aggregate caused by one transition.
type Delta struct {
	CheckedIn   int `json:"checkedIn"`
	SnackBox    int `json:"snackDistributed"`
	LunchTicket int `json:"lunchDistributed"`
}

// Diff computes the delta between two states of the same participant.
func Diff(before, after Participant) Delta {
	return Delta{
		CheckedIn:   flip(before.Status == StatusCheckedIn, after.Status == StatusCheckedIn),
		SnackBox:    flip(before.SnackBoxReceived, after.SnackBoxReceived),
		LunchTicket: flip(before.LunchTicketReceived, after.LunchTicketReceived),
	}
}

// IsZero reports whether the transition left every aggregate unchanged.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

func flip(before, after bool) int {
	switch {
	case !before && after:
		return 1
	case before && !after:
		return -1
	}
	return 0
}
