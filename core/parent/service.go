package parent

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
	apisvc "github.com/trezcool/tripsync/services/api"
)

var ErrNoChild = errors.New("child roll number is required")

type dateRange struct {
	From string `json:"from_date" validate:"omitempty,ymd"`
	To   string `json:"to_date" validate:"omitempty,ymd"`
}

type Service struct {
	api    core.API
	store  *Store
	logger core.Logger
}

func NewService(api core.API, s *Store, logger core.Logger) *Service {
	return &Service{api: api, store: s, logger: logger}
}

func (svc *Service) Store() *Store { return svc.store }

// FetchProfile loads the parent's profile; the API may nest it under `student` or `parent`.
func (svc *Service) FetchProfile(ctx context.Context) (*Profile, error) {
	return store.Fetch(svc.store.profile, func() (*Profile, error) {
		var resp struct {
			Student *Profile `json:"student"`
			Parent  *Profile `json:"parent"`
		}
		if err := svc.api.Get(ctx, "/api/students/me", &resp); err != nil {
			return nil, err
		}
		if resp.Student != nil {
			return resp.Student, nil
		}
		return resp.Parent, nil
	})
}

// childRollNo resolves the child's roll number: rollNo if set, else the profile's, else the loaded child's.
func (svc *Service) childRollNo(rollNo string) (string, error) {
	if rollNo = core.CleanString(rollNo); rollNo != "" {
		return rollNo, nil
	}
	if p := svc.store.Profile(); p != nil && p.ChildRollNo != "" {
		return p.ChildRollNo, nil
	}
	if d := svc.store.ChildProfile(); d != nil && d.Student != nil && d.Student.RollNo != "" {
		return d.Student.RollNo, nil
	}
	return "", core.NewValidationError(ErrNoChild)
}

func (svc *Service) FetchChild(ctx context.Context, rollNo string) (*student.Details, error) {
	roll, err := svc.childRollNo(rollNo)
	if err != nil {
		return nil, err
	}
	return store.Fetch(svc.store.childProfile, func() (*student.Details, error) {
		d := new(student.Details)
		path := apisvc.PathWithQuery("/api/students/profile", url.Values{"roll_no": {roll}})
		if err := svc.api.Get(ctx, path, d); err != nil {
			return nil, err
		}
		return d, nil
	})
}

// FetchChildAttendance loads the child's attendance summary; from and to (YYYY-MM-DD) are optional.
func (svc *Service) FetchChildAttendance(ctx context.Context, rollNo, from, to string) (*attendance.RangeSummary, error) {
	roll, err := svc.childRollNo(rollNo)
	if err != nil {
		return nil, err
	}
	dr := dateRange{From: core.CleanString(from), To: core.CleanString(to)}
	if err := core.Validate.Struct(dr); err != nil {
		return nil, err
	}
	return store.Fetch(svc.store.childAttendance, func() (*attendance.RangeSummary, error) {
		rs := new(attendance.RangeSummary)
		path := apisvc.PathWithQuery(
			"/api/students/"+apisvc.Escape(roll)+"/attendance-summary",
			url.Values{"from_date": {dr.From}, "to_date": {dr.To}},
		)
		if err := svc.api.Get(ctx, path, rs); err != nil {
			return nil, err
		}
		return rs, nil
	})
}

// FetchChildBus finds the child's bus among all buses. busNumber defaults to the loaded child's bus.
// The stored bus is nil when no bus matches.
func (svc *Service) FetchChildBus(ctx context.Context, busNumber string) (*bus.Bus, error) {
	if busNumber == "" {
		if d := svc.store.ChildProfile(); d != nil && d.Student != nil {
			busNumber = d.Student.AssignedBus
		}
	}
	if busNumber == "" {
		return nil, core.NewValidationError(errors.New("bus number is required"))
	}
	return store.Fetch(svc.store.childBus, func() (*bus.Bus, error) {
		buses := make([]bus.Bus, 0)
		if err := svc.api.Get(ctx, "/api/buses", &buses); err != nil {
			return nil, err
		}
		for i := range buses {
			if buses[i].Number == busNumber {
				return &buses[i], nil
			}
		}
		return nil, nil
	})
}

func (svc *Service) FetchRoutes(ctx context.Context) ([]bus.Route, error) {
	return store.Fetch(svc.store.routes, func() ([]bus.Route, error) {
		routes := make([]bus.Route, 0)
		err := svc.api.Get(ctx, "/api/routes", &routes)
		return routes, err
	})
}

func (svc *Service) FetchMessages(ctx context.Context) ([]messaging.Message, error) {
	return store.Fetch(svc.store.messages, func() ([]messaging.Message, error) {
		resp := struct {
			Messages []messaging.Message `json:"messages"`
		}{Messages: []messaging.Message{}}
		err := svc.api.Get(ctx, "/api/messages/parent/groups", &resp)
		return resp.Messages, err
	})
}

func (svc *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return session.ChangePassword(ctx, svc.api, oldPassword, newPassword)
}
