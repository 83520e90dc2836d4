package main

import (
	"context"
	"fmt"

	"github.com/trezcool/tripsync/core/bus"
)

// track polls the buses n times and prints their positions after each refresh.
func (cli *commandLine) track(n int) error {
	svc, err := cli.adminService()
	if err != nil {
		return err
	}
	ticks := make(chan error)
	p, err := cli.app.Poll(func(ctx context.Context) error {
		err := svc.FetchBuses(ctx)
		select {
		case ticks <- err:
		case <-ctx.Done():
		}
		return err
	})
	if err != nil {
		return err
	}
	defer p.Stop()

	for i := 1; i <= n; i++ {
		if err := <-ticks; err != nil {
			fmt.Fprintf(cli.out, "#%d: %s\n", i, cli.app.HandleError(context.Background(), err, "Failed to load buses"))
			if !cli.app.Session().IsAuthenticated() {
				return errNotLoggedIn
			}
			continue
		}
		buses := svc.Store().Buses()
		center := bus.MapCenter(buses)
		fmt.Fprintf(cli.out, "#%d: %d buses, map center %.4f,%.4f\n", i, len(buses), center.Lat, center.Long)
		w := cli.table()
		for _, b := range buses {
			loc := "-"
			if b.CurrentLocation.Valid() {
				loc = fmt.Sprintf("%.5f,%.5f", b.CurrentLocation.Lat, b.CurrentLocation.Long)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\tstop %d\n", b.Number, b.Status, loc, b.CurrentStopIndex)
		}
		_ = w.Flush()
	}
	return nil
}
