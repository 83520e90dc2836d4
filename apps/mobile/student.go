package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
)

func (cli *commandLine) studentScreen(screen string, args []string) error {
	svc, err := cli.app.Student()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch screen {
	case "profile":
		p, err := svc.FetchProfile(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load profile")
		}
		fmt.Fprintf(cli.out, "%s (%s)\n", p.Name, p.RollNo)
		fmt.Fprintf(cli.out, "Email:    %s\n", p.Email)
		fmt.Fprintf(cli.out, "Route:    %s\n", orDash(p.Route))
		fmt.Fprintf(cli.out, "Boarding: %s\n", orDash(p.BoardingPoint))
		fmt.Fprintf(cli.out, "Bus:      %s\n", orDash(p.AssignedBus))
	case "bus":
		if _, err := svc.FetchRoute(ctx); err != nil {
			return cli.fail(err, "Failed to load route")
		}
		if _, err := svc.FetchBus(ctx); err != nil {
			return cli.fail(err, "Failed to load bus")
		}
		b, points, err := svc.Locate()
		if err != nil {
			return err
		}
		cli.printBus(b, points)
	case "route":
		r, err := svc.FetchRoute(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load route")
		}
		if r == nil {
			fmt.Fprintln(cli.out, "No route assigned")
			return nil
		}
		cli.printRoute(r)
	case "driver":
		d, err := svc.FetchDriver(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load driver")
		}
		if d == nil {
			fmt.Fprintln(cli.out, "No driver assigned")
			return nil
		}
		fmt.Fprintf(cli.out, "%s  %s  %s\n", d.Name, orDash(d.Phone), orDash(d.Email))
	case "attendance":
		sum, err := svc.FetchAttendance(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load attendance")
		}
		cli.printAttendance(sum.History)
		fmt.Fprintf(cli.out, "%d/%d days present (%.2f%%)\n", sum.PresentDays, sum.TotalDays, sum.Percentage)
	case "complaints":
		cs, err := svc.FetchComplaints(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load complaints")
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tCATEGORY\tSTATUS\tDESCRIPTION\tRESPONSE")
		for _, c := range cs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Category, c.Status, c.Description, orDash(c.AdminResponse))
		}
		return w.Flush()
	case "complain":
		fs := cli.newFlagSet("complain")
		category := fs.String("category", messaging.CategoryOther,
			"One of "+strings.Join(messaging.Categories, ", ")+".")
		if err := fs.Parse(args); err != nil {
			return err
		}
		c, err := svc.SubmitComplaint(ctx, messaging.NewComplaint{Category: *category, Description: text(fs.Args())})
		if err != nil {
			return cli.fail(err, "Failed to submit complaint")
		}
		fmt.Fprintf(cli.out, "Complaint %s submitted (%s)\n", c.ID, c.Status)
	case "messages":
		limit, skip, err := cli.pageFlags("messages", args)
		if err != nil {
			return err
		}
		msgs, err := svc.FetchDriverMessages(ctx, limit, skip)
		if err != nil {
			return cli.fail(err, "Failed to load messages")
		}
		cli.printMessages(msgs)
	case "chat":
		limit, skip, err := cli.pageFlags("chat", args)
		if err != nil {
			return err
		}
		msgs, err := svc.FetchBusChat(ctx, limit, skip)
		if err != nil {
			return cli.fail(err, "Failed to load bus chat")
		}
		cli.printMessages(msgs)
	case "say":
		if _, err := svc.SendBusMessage(ctx, text(args)); err != nil {
			return cli.fail(err, "Failed to send message")
		}
		fmt.Fprintln(cli.out, "Message sent")
	default:
		return errUnknownScreen
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (cli *commandLine) printBus(b *bus.Bus, points []bus.CoveragePoint) {
	driver := "-"
	if b.Driver != nil {
		driver = b.Driver.Name
	}
	fmt.Fprintf(cli.out, "Bus %s (%s), driver %s\n", b.Number, orDash(b.Status), driver)
	if b.CurrentLocation.Valid() {
		fmt.Fprintf(cli.out, "Location: %.5f,%.5f\n", b.CurrentLocation.Lat, b.CurrentLocation.Long)
	} else {
		fmt.Fprintln(cli.out, "Location: unknown")
	}
	w := cli.table()
	for _, p := range points {
		fmt.Fprintf(w, "  %d\t%s\t%s\n", p.Order, p.Name, orDash(p.Status))
	}
	_ = w.Flush()
}

func (cli *commandLine) printRoute(r *bus.Route) {
	fmt.Fprintln(cli.out, r.Name)
	for i, s := range r.Stops {
		if s.HasCoordinates() {
			fmt.Fprintf(cli.out, "  %d. %s (%.4f,%.4f)\n", i+1, s.Name, *s.Lat, *s.Long)
		} else {
			fmt.Fprintf(cli.out, "  %d. %s\n", i+1, s.Name)
		}
	}
}

func (cli *commandLine) printAttendance(records []attendance.Record) {
	w := cli.table()
	fmt.Fprintln(w, "DATE\tTIME\tSTATUS\tBUS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Date, orDash(r.Time), r.Status, orDash(r.BusNumber))
	}
	_ = w.Flush()
}
