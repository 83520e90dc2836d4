package main

import (
	"context"
	"fmt"

	"github.com/trezcool/tripsync/core/messaging"
)

func (cli *commandLine) driverScreen(screen string, args []string) error {
	svc, err := cli.app.Driver()
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
		fmt.Fprintf(cli.out, "%s  %s  %s\n", p.Name, p.Email, orDash(p.Phone))
		fmt.Fprintf(cli.out, "Bus: %s (%d students)\n", orDash(p.AssignedBus), p.StudentCount)
		if p.Route != nil {
			cli.printRoute(p.Route)
		}
	case "students":
		students, err := svc.FetchStudents(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load students")
		}
		w := cli.table()
		fmt.Fprintln(w, "ROLL NO\tNAME\tBOARDING\tPHONE")
		for _, s := range students {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.RollNo, s.Name, orDash(s.BoardingPoint), orDash(s.Phone))
		}
		return w.Flush()
	case "bus":
		b, err := svc.FetchBus(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load bus")
		}
		if b == nil {
			fmt.Fprintln(cli.out, "No bus assigned")
			return nil
		}
		cli.printBus(b, b.CoveragePoints)
	case "schedule":
		sc, err := svc.FetchSchedule(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load schedule")
		}
		if sc.Bus == nil {
			fmt.Fprintln(cli.out, orDash(sc.Message))
			return nil
		}
		fmt.Fprintf(cli.out, "Bus %s\n", sc.Bus.Number)
		if sc.Route != nil {
			cli.printRoute(sc.Route)
		}
		fmt.Fprintln(cli.out, "Upcoming leaves:")
		cli.printLeaves(sc.UpcomingLeaves)
	case "groups":
		groups, err := svc.FetchGroups(ctx)
		if err != nil {
			return cli.fail(err, "Failed to load groups")
		}
		w := cli.table()
		fmt.Fprintln(w, "GROUP\tNAME\tLAST MESSAGE")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%s\n", g.GroupID, g.GroupName, orDash(g.LastMessage))
		}
		return w.Flush()
	case "leaves":
		fs := cli.newFlagSet("leaves")
		status := fs.String("status", "", "Filter by status: pending, approved or rejected.")
		if err := fs.Parse(args); err != nil {
			return err
		}
		leaves, err := svc.FetchLeaves(ctx, *status)
		if err != nil {
			return cli.fail(err, "Failed to load leave requests")
		}
		cli.printLeaves(leaves)
	case "leave":
		fs := cli.newFlagSet("leave")
		date := fs.String("date", "", "Leave date (YYYY-MM-DD).")
		if err := fs.Parse(args); err != nil {
			return err
		}
		l, err := svc.RequestLeave(ctx, messaging.NewLeave{Date: *date, Reason: text(fs.Args())})
		if err != nil {
			return cli.fail(err, "Failed to submit leave request")
		}
		fmt.Fprintf(cli.out, "Leave %s for %s submitted (%s)\n", orDash(l.ID), l.Date, l.Status)
	case "cancel-leave":
		if len(args) != 1 {
			return errUnknownScreen
		}
		if err := svc.CancelLeave(ctx, args[0]); err != nil {
			return cli.fail(err, "Failed to cancel leave request")
		}
		fmt.Fprintln(cli.out, "Leave cancelled")
	case "notify":
		if err := svc.NotifyStudents(ctx, text(args)); err != nil {
			return cli.fail(err, "Failed to send message")
		}
		fmt.Fprintln(cli.out, "Message sent to your students")
	case "location":
		fs := cli.newFlagSet("location")
		lat := fs.Float64("lat", 0, "Latitude.")
		long := fs.Float64("long", 0, "Longitude.")
		number := fs.String("bus", "", "Bus number (defaults to your assigned bus).")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *number == "" {
			// the assigned bus comes from the profile
			if _, err := svc.FetchProfile(ctx); err != nil {
				return cli.fail(err, "Failed to load profile")
			}
		}
		if err := svc.UpdateLocation(ctx, *number, *lat, *long); err != nil {
			return cli.fail(err, "Failed to update location")
		}
		fmt.Fprintf(cli.out, "Location updated: %.5f,%.5f\n", *lat, *long)
	default:
		return errUnknownScreen
	}
	return nil
}

func (cli *commandLine) printLeaves(leaves []messaging.Leave) {
	if len(leaves) == 0 {
		fmt.Fprintln(cli.out, "No leave requests")
		return
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tDATE\tSTATUS\tREASON\tNOTES")
	for _, l := range leaves {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Date, l.Status, l.Reason, orDash(l.AdminNotes))
	}
	_ = w.Flush()
}
