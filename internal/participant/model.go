package participant

import "time"

// Status is the check-in label persisted next to the check_in flag.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCheckedIn Status = "checked_in"
)

func statusFor(checkedIn bool) Status {
	if checkedIn {
		return StatusCheckedIn
	}
	return StatusPending
}

// Milestone is one of the fixed fulfillment steps of the event.
type Milestone string

const (
	MilestoneCheckIn     Milestone = "check_in"
	MilestoneSnackBox    Milestone = "snack_box"
	MilestoneLunchTicket Milestone = "lunch_box_ticket"
)

// Milestones lists every milestone in the order the desk works through them.
var Milestones = []Milestone{MilestoneCheckIn, MilestoneSnackBox, MilestoneLunchTicket}

// Participant is one registered attendee.
type Participant struct {
	ID string `json:"id"`

	ChildName  string `json:"child_name"`
	ParentName string `json:"parent_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	School     string `json:"school"`
	Gender     string `json:"gender"`
	NametagNo  string `json:"nametag_no"`

	RepresentativeName  *string `json:"representative_name"`
	RepresentativePhone *string `json:"representative_phone"`

	CheckIn             bool       `json:"check_in"`
	CheckInTime         *time.Time `json:"check_in_time"`
	SnackBoxReceived    bool       `json:"snack_box_received"`
	SnackBoxTime        *time.Time `json:"snack_box_time"`
	LunchTicketReceived bool       `json:"lunch_box_ticket_received"`
	LunchTicketTime     *time.Time `json:"lunch_box_ticket_received_time"`

	Status Status `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Milestone returns the flag and timestamp of m.
func (p Participant) Milestone(m Milestone) (bool, *time.Time) {
	switch m {
	case MilestoneCheckIn:
		return p.CheckIn, p.CheckInTime
	case MilestoneSnackBox:
		return p.SnackBoxReceived, p.SnackBoxTime
	case MilestoneLunchTicket:
		return p.LunchTicketReceived, p.LunchTicketTime
	}
	return false, nil
}

func (p *Participant) setMilestone(m Milestone, done bool, at *time.Time) {
	switch m {
	case MilestoneCheckIn:
		p.CheckIn, p.CheckInTime = done, at
	case MilestoneSnackBox:
		p.SnackBoxReceived, p.SnackBoxTime = done, at
	case MilestoneLunchTicket:
		p.LunchTicketReceived, p.LunchTicketTime = done, at
	}
}

// OfferedMilestones returns the milestones a desk UI should present for p.
// Snack and lunch are only offered once the participant has checked in; the
// Engine itself does not enforce this ordering.
func (p Participant) OfferedMilestones() []Milestone {
	if !p.CheckIn {
		return []Milestone{MilestoneCheckIn}
	}
	return append([]Milestone(nil), Milestones...)
}

// Clone returns a copy that shares no pointers with p.
func (p Participant) Clone() Participant {
	c := p
	c.RepresentativeName = cloneString(p.RepresentativeName)
	c.RepresentativePhone = cloneString(p.RepresentativePhone)
	c.CheckInTime = cloneTime(p.CheckInTime)
	c.SnackBoxTime = cloneTime(p.SnackBoxTime)
	c.LunchTicketTime = cloneTime(p.LunchTicketTime)
	return c
}

// Consistent verifies the stored invariants: every milestone timestamp is set
// exactly when its flag is, and status mirrors check_in.
func (p Participant) Consistent() error {
	for _, m := range Milestones {
		done, at := p.Milestone(m)
		if done != (at != nil) {
			return integrityError("participant %s: %s flag and timestamp disagree", p.ID, m)
		}
	}
	if p.Status != statusFor(p.CheckIn) {
		return integrityError("participant %s: status %q does not match check_in=%t", p.ID, p.Status, p.CheckIn)
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
