package participant

import "time"

const (
	// Placeholder marks a value that is not set yet.
	Placeholder = "-"

	ExportTimeLayout = "2006-01-02 15:04:05"
)

// ExportHeader names the columns of ExportRow.Values, in order.
var ExportHeader = []string{
	"Child Name",
	"Parent Name",
	"Email",
	"Address",
	"School",
	"Gender",
	"Nametag No.",
	"Checked In",
	"Check-in Time",
	"Snack Box",
	"Snack Box Time",
	"Lunch Ticket",
	"Lunch Ticket Time",
	"Representative Name",
	"Representative Phone",
}

// ExportRow is the flat, human-readable shape of a participant.
type ExportRow struct {
	ChildName           string
	ParentName          string
	Email               string
	Address             string
	School              string
	Gender              string
	NametagNo           string
	CheckedIn           string
	CheckInTime         string
	SnackBox            string
	SnackBoxTime        string
	LunchTicket         string
	LunchTicketTime     string
	RepresentativeName  string
	RepresentativePhone string
}

// Values returns the row in ExportHeader order.
func (r ExportRow) Values() []string {
	return []string{
		r.ChildName,
		r.ParentName,
		r.Email,
		r.Address,
		r.School,
		r.Gender,
		r.NametagNo,
		r.CheckedIn,
		r.CheckInTime,
		r.SnackBox,
		r.SnackBoxTime,
		r.LunchTicket,
		r.LunchTicketTime,
		r.RepresentativeName,
		r.RepresentativePhone,
	}
}

// Project maps participants to export rows, keeping their order. Timestamps
// are rendered in loc, or UTC when loc is nil.
func Project(ps []Participant, loc *time.Location) []ExportRow {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]ExportRow, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, ExportRow{
			ChildName:           p.ChildName,
			ParentName:          p.ParentName,
			Email:               p.Email,
			Address:             p.Address,
			School:              p.School,
			Gender:              p.Gender,
			NametagNo:           orPlaceholder(p.NametagNo),
			CheckedIn:           yesNo(p.CheckIn),
			CheckInTime:         formatTime(p.CheckInTime, loc),
			SnackBox:            yesNo(p.SnackBoxReceived),
			SnackBoxTime:        formatTime(p.SnackBoxTime, loc),
			LunchTicket:         yesNo(p.LunchTicketReceived),
			LunchTicketTime:     formatTime(p.LunchTicketTime, loc),
			RepresentativeName:  orPlaceholder(deref(p.RepresentativeName)),
			RepresentativePhone: orPlaceholder(deref(p.RepresentativePhone)),
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return Placeholder
	}
	return t.In(loc).Format(ExportTimeLayout)
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
