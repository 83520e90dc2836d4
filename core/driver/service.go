package driver

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
	apisvc "github.com/trezcool/tripsync/services/api"
)

var ErrNoBusAssigned = errors.New("no bus assigned")

type Service struct {
	api    core.API
	store  *Store
	logger core.Logger
}

func NewService(api core.API, s *Store, logger core.Logger) *Service {
	return &Service{api: api, store: s, logger: logger}
}

func (svc *Service) Store() *Store { return svc.store }

// Refresh fetches the driver home screen data concurrently.
func (svc *Service) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := svc.FetchProfile(ctx); return err })
	g.Go(func() error { _, err := svc.FetchBus(ctx); return err })
	g.Go(func() error { _, err := svc.FetchStudents(ctx); return err })
	g.Go(func() error { _, err := svc.FetchLeaves(ctx, ""); return err })
	return g.Wait()
}

// FetchProfile loads the driver's profile; the embedded route replaces the stored route.
func (svc *Service) FetchProfile(ctx context.Context) (*Profile, error) {
	p, err := store.Fetch(svc.store.profile, func() (*Profile, error) {
		var resp struct {
			Driver *Profile `json:"driver"`
		}
		err := svc.api.Get(ctx, "/api/drivers/me", &resp)
		return resp.Driver, err
	})
	if err == nil && p != nil && p.Route != nil {
		svc.store.SetRoute(p.Route)
	}
	return p, err
}

func (svc *Service) FetchStudents(ctx context.Context) ([]student.Profile, error) {
	return store.Fetch(svc.store.students, func() ([]student.Profile, error) {
		roster := Roster{Students: []student.Profile{}}
		err := svc.api.Get(ctx, "/api/drivers/me/students", &roster)
		return roster.Students, err
	})
}

// FetchBus is the path re-run by the bus location poller.
func (svc *Service) FetchBus(ctx context.Context) (*bus.Bus, error) {
	return store.Fetch(svc.store.bus, func() (*bus.Bus, error) {
		var resp struct {
			Bus *bus.Bus `json:"bus"`
		}
		err := svc.api.Get(ctx, "/api/drivers/me/bus-location", &resp)
		return resp.Bus, err
	})
}

// FetchLeaves loads the driver's leave requests, optionally filtered by status.
func (svc *Service) FetchLeaves(ctx context.Context, status string) ([]messaging.Leave, error) {
	return store.Fetch(svc.store.leaves, func() ([]messaging.Leave, error) {
		resp := struct {
			Leaves []messaging.Leave `json:"leaves"`
		}{Leaves: []messaging.Leave{}}
		path := apisvc.PathWithQuery("/api/drivers/me/leaves", url.Values{"status": {status}})
		err := svc.api.Get(ctx, path, &resp)
		return resp.Leaves, err
	})
}

// RequestLeave validates nl, submits it and prepends the created leave.
func (svc *Service) RequestLeave(ctx context.Context, nl messaging.NewLeave) (*messaging.Leave, error) {
	nl.Reason = core.CleanString(nl.Reason)
	if err := nl.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		LeaveRequest *messaging.Leave `json:"leaveRequest"`
	}
	if err := svc.api.Post(ctx, "/api/drivers/me/leave", nl, &resp); err != nil {
		return nil, err
	}
	l := resp.LeaveRequest
	if l == nil {
		l = &messaging.Leave{Date: nl.Date, Reason: nl.Reason, Status: messaging.LeavePending}
	}
	svc.store.AddLeave(*l)
	return l, nil
}

// CancelLeave cancels a pending leave and removes it from the store.
func (svc *Service) CancelLeave(ctx context.Context, id string) error {
	if core.CleanString(id) == "" {
		return core.NewValidationError(errors.New("leave id is required"))
	}
	if err := svc.api.Delete(ctx, "/api/drivers/me/leave/"+apisvc.Escape(id), nil); err != nil {
		return err
	}
	svc.store.RemoveLeave(id)
	return nil
}

func (svc *Service) FetchSchedule(ctx context.Context) (*Schedule, error) {
	return store.Fetch(svc.store.schedule, func() (*Schedule, error) {
		sc := new(Schedule)
		if err := svc.api.Get(ctx, "/api/drivers/me/schedule", sc); err != nil {
			return nil, err
		}
		if sc.UpcomingLeaves == nil {
			sc.UpcomingLeaves = []messaging.Leave{}
		}
		return sc, nil
	})
}

func (svc *Service) FetchGroups(ctx context.Context) ([]messaging.Group, error) {
	return store.Fetch(svc.store.messageGroups, func() ([]messaging.Group, error) {
		resp := struct {
			Groups []messaging.Group `json:"groups"`
		}{Groups: []messaging.Group{}}
		err := svc.api.Get(ctx, "/api/messages/driver/my-groups", &resp)
		return resp.Groups, err
	})
}

// NotifyStudents sends content to every student of the driver's bus.
func (svc *Service) NotifyStudents(ctx context.Context, content string) error {
	nm := messaging.NewMessage{Content: core.CleanString(content)}
	if err := nm.Validate(); err != nil {
		return err
	}
	return svc.api.Post(ctx, "/api/messages/driver/send-to-students", nm, nil)
}

// UpdateLocation reports the bus position; the bus number defaults to the driver's assigned bus.
func (svc *Service) UpdateLocation(ctx context.Context, busNumber string, lat, long float64) error {
	if busNumber == "" {
		if p := svc.store.Profile(); p != nil {
			busNumber = p.AssignedBus
		}
	}
	if busNumber == "" {
		return core.NewValidationError(ErrNoBusAssigned)
	}
	lu := bus.LocationUpdate{BusNumber: busNumber, Lat: lat, Long: long}
	if err := lu.Validate(); err != nil {
		return err
	}
	return svc.api.Post(ctx, "/api/buses/location", lu, nil)
}

func (svc *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return session.ChangePassword(ctx, svc.api, oldPassword, newPassword)
}
