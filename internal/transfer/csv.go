// Package transfer reads participant CSV uploads and writes CSV exports.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"eventdesk/internal/participant"
)

// columnAliases maps every accepted header, after normalization, to the
// field it fills. The Indonesian names are the ones older registration
// sheets used.
var columnAliases = map[string]string{
	"child_name":           "child_name",
	"nama_anak":            "child_name",
	"parent_name":          "parent_name",
	"nama_orang_tua":       "parent_name",
	"email":                "email",
	"address":              "address",
	"alamat":               "address",
	"school":               "school",
	"nama_sekolah":         "school",
	"sekolah":              "school",
	"gender":               "gender",
	"jenis_kelamin":        "gender",
	"nametag_no":           "nametag_no",
	"no_nametag":           "nametag_no",
	"representative_name":  "representative_name",
	"nama_perwakilan":      "representative_name",
	"representative_phone": "representative_phone",
	"nomer_perwakilan":     "representative_phone",
	"nomor_perwakilan":     "representative_phone",
}

func setField(row *participant.ImportRow, field, v string) {
	switch field {
	case "child_name":
		row.ChildName = v
	case "parent_name":
		row.ParentName = v
	case "email":
		row.Email = v
	case "address":
		row.Address = v
	case "school":
		row.School = v
	case "gender":
		row.Gender = v
	case "nametag_no":
		row.NametagNo = v
	case "representative_name":
		row.RepresentativeName = v
	case "representative_phone":
		row.RepresentativePhone = v
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}

// ReadCSV parses an upload with a header row. Unknown columns are ignored and
// blank lines skipped. Values are trimmed. Validation of the values themselves
// is left to the participant service.
func ReadCSV(r io.Reader) ([]participant.ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &participant.ValidationError{Field: "file", Reason: "is empty"}
	}
	if err != nil {
		return nil, parseError(err)
	}

	fields := make([]string, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		f, ok := columnAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if seen[f] {
			return nil, &participant.ValidationError{Field: "header", Reason: fmt.Sprintf("has more than one %s column", f)}
		}
		seen[f] = true
		fields[i] = f
	}
	for _, required := range []string{"child_name", "parent_name"} {
		if !seen[required] {
			return nil, &participant.ValidationError{Field: "header", Reason: "is missing the " + required + " column"}
		}
	}

	rows := []participant.ImportRow{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		var row participant.ImportRow
		blank := true
		for i, v := range rec {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			setField(&row, fields[i], v)
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		// csv counts the header as line 1; data rows start at 1 after it.
		return &participant.ValidationError{Field: "csv", Reason: pe.Err.Error(), Row: max(pe.Line-1, 1)}
	}
	return fmt.Errorf("read csv: %w", err)
}

// WriteCSV writes the export header followed by rows.
func WriteCSV(w io.Writer, rows []participant.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(participant.ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export taken at now, by the event's calendar day.
func ExportFilename(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return "participants_" + now.In(loc).Format("2006-01-02") + ".csv"
}
