package transfer

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/participant"
)

func TestReadCSVEnglishHeaders(t *testing.T) {
	in := "Child Name,Parent Name,Email,School,Representative Phone,notes\n" +
		" Ali , Budi ,budi@example.com,SD 1,0812,ignored\n" +
		"\n" +
		",,,,,\n" +
		"Citra,Dewi,,,,\n"

	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, participant.ImportRow{
		ChildName:           "Ali",
		ParentName:          "Budi",
		Email:               "budi@example.com",
		School:              "SD 1",
		RepresentativePhone: "0812",
	}, rows[0])
	assert.Equal(t, "Citra", rows[1].ChildName)
}

func TestReadCSVLegacyHeaders(t *testing.T) {
	in := "\ufeffnama_anak,nama_orang_tua,alamat,nama_sekolah,jenis_kelamin,no_nametag,nama_perwakilan,nomer_perwakilan\n" +
		"Ali,Budi,Jl. Merdeka 1,SD 2,L,A-01,Citra,0812\n"

	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, participant.ImportRow{
		ChildName:           "Ali",
		ParentName:          "Budi",
		Address:             "Jl. Merdeka 1",
		School:              "SD 2",
		Gender:              "L",
		NametagNo:           "A-01",
		RepresentativeName:  "Citra",
		RepresentativePhone: "0812",
	}, rows[0])
}

func TestReadCSVRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"missing parent": "child_name,email\nAli,a@b.c\n",
		"duplicate":      "child_name,nama_anak,parent_name\nA,B,C\n",
		"bad quoting":    "child_name,parent_name\n\"Ali,Budi\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			assert.ErrorIs(t, err, participant.ErrValidation)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []participant.ExportRow{{
		ChildName:   "Ali, Jr.",
		ParentName:  "Budi",
		CheckedIn:   "Yes",
		CheckInTime: "2024-08-17 08:30:00",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, participant.ExportHeader, recs[0])
	assert.Equal(t, "Ali, Jr.", recs[1][0])
	assert.Equal(t, "2024-08-17 08:30:00", recs[1][8])
}

func TestExportFilename(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	late := time.Date(2024, 8, 16, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "participants_2024-08-17.csv", ExportFilename(late, jakarta))
	assert.Equal(t, "participants_2024-08-16.csv", ExportFilename(late, nil))
}
