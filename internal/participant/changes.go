package participant

import "time"

// Changes is a sparse edit of a participant. A nil field is left untouched.
//
// The milestone timestamps and Status are accepted only so that a client
// echoing a full record can be checked: the Engine derives them itself and
// rejects any value that disagrees.
type Changes struct {
	ID *string `json:"id,omitempty"`

	ChildName  *string `json:"child_name,omitempty"`
	ParentName *string `json:"parent_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Address    *string `json:"address,omitempty"`
	School     *string `json:"school,omitempty"`
	Gender     *string `json:"gender,omitempty"`
	NametagNo  *string `json:"nametag_no,omitempty"`

	RepresentativeName  *string `json:"representative_name,omitempty"`
	RepresentativePhone *string `json:"representative_phone,omitempty"`

	CheckIn             *bool      `json:"check_in,omitempty"`
	CheckInTime         *time.Time `json:"check_in_time,omitempty"`
	SnackBoxReceived    *bool      `json:"snack_box_received,omitempty"`
	SnackBoxTime        *time.Time `json:"snack_box_time,omitempty"`
	LunchTicketReceived *bool      `json:"lunch_box_ticket_received,omitempty"`
	LunchTicketTime     *time.Time `json:"lunch_box_ticket_received_time,omitempty"`

	Status *Status `json:"status,omitempty"`
}

// Milestone returns the requested value of m, or nil when m is not touched.
func (c Changes) Milestone(m Milestone) *bool {
	switch m {
	case MilestoneCheckIn:
		return c.CheckIn
	case MilestoneSnackBox:
		return c.SnackBoxReceived
	case MilestoneLunchTicket:
		return c.LunchTicketReceived
	}
	return nil
}

func (c Changes) milestoneTime(m Milestone) *time.Time {
	switch m {
	case MilestoneCheckIn:
		return c.CheckInTime
	case MilestoneSnackBox:
		return c.SnackBoxTime
	case MilestoneLunchTicket:
		return c.LunchTicketTime
	}
	return nil
}

// TouchesMilestones reports whether any milestone flag, milestone timestamp
// or the status label is present.
func (c Changes) TouchesMilestones() bool {
	for _, m := range Milestones {
		if c.Milestone(m) != nil || c.milestoneTime(m) != nil {
			return true
		}
	}
	return c.Status != nil
}

// TouchesProfile reports whether any profile or representative field is present.
func (c Changes) TouchesProfile() bool {
	for _, f := range c.profileFields() {
		if f.value != nil {
			return true
		}
	}
	return c.RepresentativeName != nil || c.RepresentativePhone != nil
}

// Empty reports whether nothing at all is requested.
func (c Changes) Empty() bool {
	return c.ID == nil && !c.TouchesMilestones() && !c.TouchesProfile()
}

type profileField struct {
	name     string
	value    *string
	required bool
	target   func(*Participant) *string
}

func (c Changes) profileFields() []profileField {
	return []profileField{
		{"child_name", c.ChildName, true, func(p *Participant) *string { return &p.ChildName }},
		{"parent_name", c.ParentName, true, func(p *Participant) *string { return &p.ParentName }},
		{"email", c.Email, false, func(p *Participant) *string { return &p.Email }},
		{"address", c.Address, false, func(p *Participant) *string { return &p.Address }},
		{"school", c.School, false, func(p *Participant) *string { return &p.School }},
		{"gender", c.Gender, false, func(p *Participant) *string { return &p.Gender }},
		{"nametag_no", c.NametagNo, false, func(p *Participant) *string { return &p.NametagNo }},
	}
}

// MarkMilestone builds the change for a single milestone toggle.
func MarkMilestone(m Milestone, done bool) Changes {
	var c Changes
	switch m {
	case MilestoneCheckIn:
		c.CheckIn = &done
	case MilestoneSnackBox:
		c.SnackBoxReceived = &done
	case MilestoneLunchTicket:
		c.LunchTicketReceived = &done
	}
	return c
}
