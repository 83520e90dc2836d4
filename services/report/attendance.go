// Package reportsvc exports dashboard data to spreadsheets.
package reportsvc

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/tripsync/core/attendance"
)

const (
	attendanceSheet = "Attendance"
	summarySheet    = "Summary"
)

var attendanceHeaders = []string{"Date", "Time", "Roll No", "Name", "Status", "Bus", "Route", "Boarding Point"}

// WriteAttendance writes records as an XLSX workbook to w: one row per record on the
// Attendance sheet, and the totals on the Summary sheet.
func WriteAttendance(w io.Writer, rollNo string, records []attendance.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return errors.Wrap(err, "naming attendance sheet")
	}
	if err := f.SetSheetRow(attendanceSheet, "A1", &attendanceHeaders); err != nil {
		return errors.Wrap(err, "writing headers")
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Date, r.Time, r.RollNo, r.Name, r.Status, r.BusNumber, r.Route, r.Boarding}
		if err := f.SetSheetRow(attendanceSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing record %d", i)
		}
	}
	_ = f.SetColWidth(attendanceSheet, "A", "B", 12)
	_ = f.SetColWidth(attendanceSheet, "C", "H", 20)

	sum := attendance.Summarize(records)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}
	summary := [][]interface{}{
		{"Roll No", strings.TrimSpace(rollNo)},
		{"Total Days", sum.TotalDays},
		{"Present Days", sum.PresentDays},
		{"Attendance %", sum.Percentage},
	}
	for i, row := range summary {
		row := row
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing summary")
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 15)

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
