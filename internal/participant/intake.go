package participant

import (
	"strings"
	"time"
)

// ImportRow is one raw registration row from a bulk import or the manual add
// form. Values are trimmed before use.
type ImportRow struct {
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

// FromImport validates a raw row and builds a participant in its initial
// state: every milestone unset and status pending.
func FromImport(row ImportRow, id string, now time.Time) (Participant, error) {
	now = now.UTC().Truncate(time.Microsecond)
	p := Participant{
		ID:                  id,
		ChildName:           strings.TrimSpace(row.ChildName),
		ParentName:          strings.TrimSpace(row.ParentName),
		Email:               strings.TrimSpace(row.Email),
		Address:             strings.TrimSpace(row.Address),
		School:              strings.TrimSpace(row.School),
		Gender:              strings.TrimSpace(row.Gender),
		NametagNo:           strings.TrimSpace(row.NametagNo),
		RepresentativeName:  optional(row.RepresentativeName),
		RepresentativePhone: optional(row.RepresentativePhone),
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if p.ID == "" {
		return Participant{}, invalid("id", "must not be empty")
	}
	if p.ChildName == "" {
		return Participant{}, invalid("child_name", "must not be empty")
	}
	if p.ParentName == "" {
		return Participant{}, invalid("parent_name", "must not be empty")
	}
	if err := validateEmail(p.Email); err != nil {
		return Participant{}, err
	}
	return p, nil
}
