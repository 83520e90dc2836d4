package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core/admin"
	"github.com/trezcool/tripsync/core/attendance"
)

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) dashboard() error {
	svc, err := cli.adminService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	report := svc.FetchDashboard(ctx)
	s := svc.Store()

	st := s.Stats()
	fmt.Fprintf(cli.out, "Buses: %d (%d running)  Students: %d  Drivers: %d  Routes: %d\n",
		st.TotalBuses, st.RunningBuses, st.TotalStudents, st.TotalDrivers, st.TotalRoutes)
	fmt.Fprintf(cli.out, "Pending leaves: %d  Pending complaints: %d\n\n", st.PendingLeaves, st.PendingComplaints)

	w := cli.table()
	fmt.Fprintln(w, "BUS\tROUTE\tDRIVER\tSTUDENTS\tSTATUS")
	for _, b := range s.Buses() {
		driver := "-"
		if b.Driver != nil {
			driver = b.Driver.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", b.Number, b.Route, driver, b.StudentCount, b.Status)
	}
	_ = w.Flush()

	if complaints := s.Complaints(); len(complaints) > 0 {
		fmt.Fprintln(cli.out)
		w = cli.table()
		fmt.Fprintln(w, "COMPLAINT\tCATEGORY\tSTATUS\tSTUDENT\tDESCRIPTION")
		for _, c := range complaints {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Category, c.Status, c.RollNo, c.Description)
		}
		_ = w.Flush()
	}

	if !report.OK() {
		for _, name := range report.Failed() {
			cli.app.HandleError(ctx, report.Errors[name], "")
		}
		return errors.New(report.String())
	}
	return nil
}

func (cli *commandLine) listOps() {
	w := cli.table()
	fmt.Fprintln(w, "TAG\tTITLE\tFIELDS (* required)")
	for _, tag := range admin.Ops() {
		op, _ := admin.Lookup(tag)
		fields := make([]string, 0, len(op.Fields))
		for _, f := range op.Fields {
			if f.Required {
				fields = append(fields, f.Name+"*")
			} else {
				fields = append(fields, f.Name)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", tag, op.Title, strings.Join(fields, " "))
	}
	_ = w.Flush()
}

// runOp opens the operation tag with form and submits it. Read-only operations only print.
func (cli *commandLine) runOp(tag admin.OpTag, form admin.Form) error {
	svc, err := cli.adminService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	// edits look up the current values in the dashboard
	if report := svc.FetchDashboard(ctx); !report.OK() {
		fmt.Fprintln(cli.out, report.String())
	}

	m, err := svc.Open(ctx, tag, form)
	if err != nil {
		return err
	}
	if m.Notice != "" {
		fmt.Fprintln(cli.out, m.Notice)
	}
	if tag == admin.OpViewAttendance {
		cli.printRecords(svc.Store().AttendanceRecords())
		return nil
	}

	res := svc.Submit(ctx, m)
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(cli.out, res.Message)
	for _, note := range res.Notes {
		fmt.Fprintln(cli.out, "  - "+note)
	}
	return nil
}

func (cli *commandLine) printRecords(records []attendance.Record) {
	w := cli.table()
	fmt.Fprintln(w, "DATE\tTIME\tSTATUS\tBUS\tBOARDING")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Date, r.Time, r.Status, r.BusNumber, r.Boarding)
	}
	_ = w.Flush()
	sum := attendance.Summarize(records)
	fmt.Fprintf(cli.out, "%d/%d days present (%.2f%%)\n", sum.PresentDays, sum.TotalDays, sum.Percentage)
}

func (cli *commandLine) leaves(status string) error {
	svc, err := cli.adminService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	leaves, err := svc.FetchLeaves(ctx, status)
	if err != nil {
		return errors.New(cli.app.HandleError(ctx, err, "Failed to load leave requests"))
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tDATE\tDRIVER\tBUS\tSTATUS\tREASON")
	for _, l := range leaves {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Date, l.DriverName, l.BusNumber, l.Status, l.Reason)
	}
	return w.Flush()
}
