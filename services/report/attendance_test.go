package reportsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/tripsync/core/attendance"
)

func TestWriteAttendance(t *testing.T) {
	records := []attendance.Record{
		{Date: "2024-03-02", Time: "08:10", RollNo: "21BCE7", Name: "Asha", Status: "Boarded", BusNumber: "KA-01", Route: "North", Boarding: "Gate 2"},
		{Date: "2024-03-01", RollNo: "21BCE7", Name: "Asha", Status: "Absent"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, "21BCE7", records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{attendanceSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(attendanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, attendanceHeaders, rows[0])
	assert.Equal(t, []string{"2024-03-02", "08:10", "21BCE7", "Asha", "Boarded", "KA-01", "North", "Gate 2"}, rows[1])
	assert.Equal(t, "Absent", rows[2][4])

	sum, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Roll No", "21BCE7"}, sum[0])
	assert.Equal(t, []string{"Total Days", "2"}, sum[1])
	assert.Equal(t, []string{"Present Days", "1"}, sum[2])
	assert.Equal(t, []string{"Attendance %", "50"}, sum[3])
}

func TestWriteAttendance_NoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, "21BCE7", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(attendanceSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	pct, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "0", pct)
}
