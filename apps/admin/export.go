package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	reportsvc "github.com/trezcool/tripsync/services/report"
)

// export writes the attendance history of rollNo to an XLSX workbook at path.
func (cli *commandLine) export(rollNo, path string) error {
	svc, err := cli.adminService()
	if err != nil {
		return err
	}
	records, notice := svc.FetchAttendanceHistory(context.Background(), rollNo)
	if notice != "" {
		return errors.New(notice)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := reportsvc.WriteAttendance(f, rollNo, records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Exported %d records to %s\n", len(records), path)
	return nil
}
