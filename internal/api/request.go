package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"eventdesk/internal/participant"
)

const maxText = 200

// CreateParticipantRequest is the manual add form.
type CreateParticipantRequest struct {
	ChildName           string `json:"child_name"`
	ParentName          string `json:"parent_name"`
	Email               string `json:"email"`
	Address             string `json:"address"`
	School              string `json:"school"`
	Gender              string `json:"gender"`
	NametagNo           string `json:"nametag_no"`
	RepresentativeName  string `json:"representative_name"`
	RepresentativePhone string `json:"representative_phone"`
}

func (req *CreateParticipantRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ChildName, validation.Required, validation.Length(1, maxText)),
		validation.Field(&req.ParentName, validation.Required, validation.Length(1, maxText)),
		validation.Field(&req.Email, is.Email, validation.Length(0, maxText)),
		validation.Field(&req.Address, validation.Length(0, 500)),
		validation.Field(&req.School, validation.Length(0, maxText)),
		validation.Field(&req.Gender, validation.Length(0, 20)),
		validation.Field(&req.NametagNo, validation.Length(0, 50)),
		validation.Field(&req.RepresentativeName, validation.Length(0, maxText)),
		validation.Field(&req.RepresentativePhone, validation.Length(0, 30)),
	)
}

func (req *CreateParticipantRequest) Row() participant.ImportRow {
	return participant.ImportRow(*req)
}

// UpdateParticipantRequest is a sparse PATCH body.
type UpdateParticipantRequest struct {
	participant.Changes
}

// Validate checks lengths only; the participant engine owns the semantic
// rules.
func (req *UpdateParticipantRequest) Validate() error {
	if req.Empty() {
		return errors.New("request changes nothing")
	}
	ch := &req.Changes
	return validation.ValidateStruct(
		ch,
		validation.Field(&ch.ChildName, validation.Length(0, maxText)),
		validation.Field(&ch.ParentName, validation.Length(0, maxText)),
		validation.Field(&ch.Email, validation.Length(0, maxText)),
		validation.Field(&ch.Address, validation.Length(0, 500)),
		validation.Field(&ch.School, validation.Length(0, maxText)),
		validation.Field(&ch.Gender, validation.Length(0, 20)),
		validation.Field(&ch.NametagNo, validation.Length(0, 50)),
		validation.Field(&ch.RepresentativeName, validation.Length(0, maxText)),
		validation.Field(&ch.RepresentativePhone, validation.Length(0, 30)),
	)
}

// MilestoneRequest toggles one milestone from the desk view.
type MilestoneRequest struct {
	Done *bool `json:"done"`
}

func (req *MilestoneRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Done, validation.NotNil),
	)
}

func parseMilestone(s string) (participant.Milestone, bool) {
	for _, m := range participant.Milestones {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}
