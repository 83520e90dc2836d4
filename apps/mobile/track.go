package main

import (
	"context"
	"fmt"

	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/session"
)

// busTracker returns the fetch re-run by the poller and the getter of the bus it stores.
func (cli *commandLine) busTracker(ctx context.Context, role session.Role) (func(context.Context) error, func() *bus.Bus, error) {
	switch role {
	case session.RoleStudent:
		svc, err := cli.app.Student()
		if err != nil {
			return nil, nil, err
		}
		fetch := func(ctx context.Context) error { _, err := svc.FetchBus(ctx); return err }
		return fetch, svc.Store().Bus, nil
	case session.RoleDriver:
		svc, err := cli.app.Driver()
		if err != nil {
			return nil, nil, err
		}
		fetch := func(ctx context.Context) error { _, err := svc.FetchBus(ctx); return err }
		return fetch, svc.Store().Bus, nil
	case session.RoleParent:
		svc, err := cli.app.Parent()
		if err != nil {
			return nil, nil, err
		}
		if err := ensureChild(ctx, svc); err != nil {
			return nil, nil, err
		}
		// the child's bus number comes from the child's profile
		if _, err := svc.FetchChild(ctx, ""); err != nil {
			return nil, nil, err
		}
		fetch := func(ctx context.Context) error { _, err := svc.FetchChildBus(ctx, ""); return err }
		return fetch, svc.Store().ChildBus, nil
	}
	return nil, nil, fmt.Errorf("no bus to track for %s", role)
}

// track polls the bus of the current role n times and prints its position after each refresh.
func (cli *commandLine) track(n int) error {
	role, err := cli.role()
	if err != nil {
		return err
	}
	ctx := context.Background()
	fetch, current, err := cli.busTracker(ctx, role)
	if err != nil {
		return cli.fail(err, "Failed to load bus")
	}

	ticks := make(chan error)
	p, err := cli.app.Poll(func(ctx context.Context) error {
		err := fetch(ctx)
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
			fmt.Fprintf(cli.out, "#%d: %s\n", i, cli.app.HandleError(ctx, err, "Failed to load bus"))
			if !cli.app.Session().IsAuthenticated() {
				return errNotLoggedIn
			}
			continue
		}
		b := current()
		switch {
		case b == nil:
			fmt.Fprintf(cli.out, "#%d: no bus\n", i)
		case b.CurrentLocation.Valid():
			fmt.Fprintf(cli.out, "#%d: %s at %.5f,%.5f (stop %d)\n", i, b.Number,
				b.CurrentLocation.Lat, b.CurrentLocation.Long, b.CurrentStopIndex)
		default:
			fmt.Fprintf(cli.out, "#%d: %s location unknown\n", i, b.Number)
		}
	}
	return nil
}
