package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/participant"
)

const (
	AttendanceSheet = "Attendance"
	SummarySheet    = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	attendanceHeader = []interface{}{"Date", "Status", "Check-in", "Check-out", "Note"}

	statusLabels = map[string]string{
		attendance.StatusPresent: "Present",
		attendance.StatusExcused: "Excused",
		attendance.StatusSick:    "Sick",
		attendance.StatusAbsent:  "Absent",
	}
)

func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// WriteAttendanceXLSX writes the participant's attendance history and its summary
// as an XLSX workbook.
func WriteAttendanceXLSX(w io.Writer, profile participant.Profile, records []attendance.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), AttendanceSheet); err != nil {
		return errors.Wrap(err, "naming attendance sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	if err := writeRow(f, AttendanceSheet, 1, attendanceHeader); err != nil {
		return err
	}
	for i, rec := range records {
		row := []interface{}{rec.Date, StatusLabel(rec.Status), rec.CheckIn.String, rec.CheckOut.String, rec.Note}
		if err := writeRow(f, AttendanceSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(AttendanceSheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	if err := f.SetColWidth(AttendanceSheet, "A", "D", 14); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	if err := f.SetColWidth(AttendanceSheet, "E", "E", 40); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}
	stats := attendance.ComputeStats(records)
	summary := [][]interface{}{
		{"Participant", profile.FullName},
		{"Email", profile.Email},
		{"Institution", profile.Institution},
		{"Present", stats.Present},
		{"Excused", stats.Excused},
		{"Sick", stats.Sick},
		{"Absent", stats.Absent},
		{"Present %", stats.PresentPercent},
	}
	for i, row := range summary {
		if err := writeRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColStyle(SummarySheet, "A", bold); err != nil {
		return errors.Wrap(err, "styling summary")
	}
	if err := f.SetColWidth(SummarySheet, "A", "B", 20); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "locating row")
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &values), "writing %s row %d", sheet, row)
}
