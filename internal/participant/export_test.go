package participant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	checked := time.Date(2024, 8, 17, 1, 30, 0, 0, time.UTC)
	done := pending("1")
	done.NametagNo = "A-12"
	done.CheckIn, done.CheckInTime, done.Status = true, &checked, StatusCheckedIn
	done.RepresentativeName = ptr("Citra")

	rows := Project([]Participant{done, pending("2")}, jakarta)
	require.Len(t, rows, 2)

	assert.Equal(t, ExportRow{
		ChildName:           "Ali",
		ParentName:          "Budi",
		Email:               "budi@example.com",
		NametagNo:           "A-12",
		CheckedIn:           "Yes",
		CheckInTime:         "2024-08-17 08:30:00",
		SnackBox:            "No",
		SnackBoxTime:        Placeholder,
		LunchTicket:         "No",
		LunchTicketTime:     Placeholder,
		RepresentativeName:  "Citra",
		RepresentativePhone: Placeholder,
	}, rows[0])

	assert.Equal(t, "No", rows[1].CheckedIn)
	assert.Equal(t, Placeholder, rows[1].CheckInTime)
	assert.Equal(t, Placeholder, rows[1].NametagNo)
	assert.Len(t, rows[1].Values(), len(ExportHeader))
}

func TestProjectDefaultsToUTC(t *testing.T) {
	at := time.Date(2024, 8, 17, 1, 30, 0, 0, time.UTC)
	p := pending("1")
	p.SnackBoxReceived, p.SnackBoxTime = true, &at

	rows := Project([]Participant{p}, nil)
	assert.Equal(t, "2024-08-17 01:30:00", rows[0].SnackBoxTime)
	assert.Equal(t, "Yes", rows[0].SnackBox)
	assert.Empty(t, Project(nil, nil))
}
