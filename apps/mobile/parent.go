package main

import (
	"context"
	"fmt"

	"github.com/trezcool/tripsync/core/parent"
)

// ensureChild loads the parent's profile when the child's roll number is not known yet.
func ensureChild(ctx context.Context, svc *parent.Service) error {
	if p := svc.Store().Profile(); p != nil && p.ChildRollNo != "" {
		return nil
	}
	_, err := svc.FetchProfile(ctx)
	return err
}

func (cli *commandLine) parentScreen(screen string, args []string) error {
	svc, err := cli.app.Parent()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := ensureChild(ctx, svc); err != nil {
		return cli.fail(err, "Failed to load profile")
	}

	switch screen {
	case "profile":
		p := svc.Store().Profile()
		fmt.Fprintf(cli.out, "%s  %s  %s\n", p.Name, p.Email, orDash(p.Phone))
		fmt.Fprintf(cli.out, "Child: %s (%s)\n", orDash(p.Child), orDash(p.ChildRollNo))
	case "child":
		d, err := svc.FetchChild(ctx, "")
		if err != nil {
			return cli.fail(err, "Failed to load child profile")
		}
		if d.Student != nil {
			s := d.Student
			fmt.Fprintf(cli.out, "%s (%s)\n", s.Name, s.RollNo)
			fmt.Fprintf(cli.out, "Boarding: %s  Bus: %s\n", orDash(s.BoardingPoint), orDash(s.AssignedBus))
		}
		if d.Driver != nil {
			fmt.Fprintf(cli.out, "Driver: %s  %s\n", d.Driver.Name, orDash(d.Driver.Phone))
		}
		if d.Route != nil {
			cli.printRoute(d.Route)
		}
		fmt.Fprintf(cli.out, "%d/%d days present (%.2f%%)\n",
			d.Attendance.PresentDays, d.Attendance.TotalDays, d.Attendance.Percentage)
	case "attendance":
		fs := cli.newFlagSet("attendance")
		from := fs.String("from", "", "First day (YYYY-MM-DD).")
		to := fs.String("to", "", "Last day (YYYY-MM-DD).")
		if err := fs.Parse(args); err != nil {
			return err
		}
		rs, err := svc.FetchChildAttendance(ctx, "", *from, *to)
		if err != nil {
			return cli.fail(err, "Failed to load attendance")
		}
		cli.printAttendance(rs.Records)
		fmt.Fprintf(cli.out, "%s to %s: %d/%d days present (%.2f%%)\n", rs.Period.From, rs.Period.To,
			rs.Summary.PresentCount, rs.Summary.TotalEntries, rs.Summary.Percentage)
	case "bus":
		if _, err := svc.FetchChild(ctx, ""); err != nil {
			return cli.fail(err, "Failed to load child profile")
		}
		b, err := svc.FetchChildBus(ctx, "")
		if err != nil {
			return cli.fail(err, "Failed to load bus")
		}
		if b == nil {
			fmt.Fprintln(cli.out, "Bus not found")
			return nil
		}
		cli.printBus(b, b.CoveragePoints)
	case "routes":
		routes, err := svc.FetchRoutes(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load routes")
		}
		for i := range routes {
			cli.printRoute(&routes[i])
		}
	case "messages":
		msgs, err := svc.FetchMessages(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load messages")
		}
		cli.printMessages(msgs)
	default:
		return errUnknownScreen
	}
	return nil
}
