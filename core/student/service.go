package student

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/core/store"
)

// DefaultPageSize is the number of chat messages fetched per page.
const DefaultPageSize = 50

// Service runs the student screens' fetches and actions against the API.
type Service struct {
	api    core.API
	store  *Store
	logger core.Logger
}

func NewService(api core.API, s *Store, logger core.Logger) *Service {
	return &Service{api: api, store: s, logger: logger}
}

func (svc *Service) Store() *Store { return svc.store }

// Refresh fetches the home screen data concurrently; each field keeps its last good value on failure.
func (svc *Service) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := svc.FetchProfile(ctx); return err })
	g.Go(func() error { _, err := svc.FetchBus(ctx); return err })
	g.Go(func() error { _, err := svc.FetchRoute(ctx); return err })
	g.Go(func() error { _, err := svc.FetchDriver(ctx); return err })
	g.Go(func() error { _, err := svc.FetchAttendance(ctx); return err })
	return g.Wait()
}

func (svc *Service) FetchProfile(ctx context.Context) (*Profile, error) {
	return store.Fetch(svc.store.profile, func() (*Profile, error) {
		var resp struct {
			Student *Profile `json:"student"`
		}
		err := svc.api.Get(ctx, "/api/students/me", &resp)
		return resp.Student, err
	})
}

func (svc *Service) FetchRoute(ctx context.Context) (*bus.Route, error) {
	return store.Fetch(svc.store.route, func() (*bus.Route, error) {
		var resp struct {
			Route *bus.Route `json:"route"`
		}
		err := svc.api.Get(ctx, "/api/students/me/route", &resp)
		return resp.Route, err
	})
}

// FetchBus is the path re-run by the bus location poller.
func (svc *Service) FetchBus(ctx context.Context) (*bus.Bus, error) {
	return store.Fetch(svc.store.bus, func() (*bus.Bus, error) {
		var resp struct {
			Bus *bus.Bus `json:"bus"`
		}
		err := svc.api.Get(ctx, "/api/students/me/bus", &resp)
		return resp.Bus, err
	})
}

func (svc *Service) FetchDriver(ctx context.Context) (*bus.DriverInfo, error) {
	return store.Fetch(svc.store.driver, func() (*bus.DriverInfo, error) {
		var resp struct {
			Driver *bus.DriverInfo `json:"driver"`
		}
		err := svc.api.Get(ctx, "/api/students/me/driver", &resp)
		return resp.Driver, err
	})
}

func (svc *Service) FetchAttendance(ctx context.Context) (*attendance.Summary, error) {
	return store.Fetch(svc.store.attendance, func() (*attendance.Summary, error) {
		var resp struct {
			Attendance *attendance.Summary `json:"attendance"`
		}
		err := svc.api.Get(ctx, "/api/students/me/attendance", &resp)
		return resp.Attendance, err
	})
}

func (svc *Service) FetchComplaints(ctx context.Context) ([]messaging.Complaint, error) {
	return store.Fetch(svc.store.complaints, func() ([]messaging.Complaint, error) {
		resp := struct {
			Complaints []messaging.Complaint `json:"complaints"`
		}{Complaints: []messaging.Complaint{}}
		err := svc.api.Get(ctx, "/api/messages/student/my-complaints", &resp)
		return resp.Complaints, err
	})
}

// SubmitComplaint validates nc locally, submits it and prepends the created complaint.
func (svc *Service) SubmitComplaint(ctx context.Context, nc messaging.NewComplaint) (*messaging.Complaint, error) {
	nc.Description = core.CleanString(nc.Description)
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		Complaint *messaging.Complaint `json:"complaint"`
	}
	if err := svc.api.Post(ctx, "/api/messages/student/complaint", nc, &resp); err != nil {
		return nil, err
	}
	c := resp.Complaint
	if c == nil {
		c = &messaging.Complaint{
			Category:    nc.Category,
			Description: nc.Description,
			BusNumber:   nc.BusNumber,
			Status:      messaging.StatusPending,
			SubmittedAt: core.NewTimestamp(time.Now()),
		}
	}
	svc.store.AddComplaint(*c)
	return c, nil
}

// FetchDriverMessages loads the driver's announcements to the student's bus.
func (svc *Service) FetchDriverMessages(ctx context.Context, limit, skip int) ([]messaging.Message, error) {
	return store.Fetch(svc.store.messages, func() ([]messaging.Message, error) {
		return svc.fetchThread(ctx, "/api/messages/student/driver-messages", limit, skip)
	})
}

// FetchBusChat loads the student-to-student chat of the student's bus.
func (svc *Service) FetchBusChat(ctx context.Context, limit, skip int) ([]messaging.Message, error) {
	return store.Fetch(svc.store.busChatMessages, func() ([]messaging.Message, error) {
		return svc.fetchThread(ctx, "/api/messages/student/bus-chat", limit, skip)
	})
}

func (svc *Service) fetchThread(ctx context.Context, path string, limit, skip int) ([]messaging.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}, "skip": {strconv.Itoa(skip)}}
	var thread messaging.Thread
	if err := svc.api.Get(ctx, path+"?"+q.Encode(), &thread); err != nil {
		return nil, err
	}
	// the API pages newest first
	msgs := make([]messaging.Message, len(thread.Messages))
	for i, m := range thread.Messages {
		msgs[len(msgs)-1-i] = m
	}
	return msgs, nil
}

// SendBusMessage posts content to the bus chat and appends it locally.
func (svc *Service) SendBusMessage(ctx context.Context, content string) (*messaging.Message, error) {
	nm := messaging.NewMessage{Content: core.CleanString(content)}
	if err := nm.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		GroupID   string `json:"groupId"`
		MessageID string `json:"messageId"`
	}
	if err := svc.api.Post(ctx, "/api/messages/student/send-message", nm, &resp); err != nil {
		return nil, err
	}

	msg := messaging.Message{
		ID:        resp.MessageID,
		GroupID:   resp.GroupID,
		Content:   nm.Content,
		Timestamp: core.NewTimestamp(time.Now()),
		Sender:    messaging.Sender{Role: string(session.RoleStudent)},
	}
	if p := svc.store.Profile(); p != nil {
		msg.Sender.ID, msg.Sender.Name, msg.Sender.RollNo = p.ID, p.Name, p.RollNo
		msg.BusNumber = p.AssignedBus
	}
	svc.store.AddBusChatMessage(msg)
	return &msg, nil
}

func (svc *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return session.ChangePassword(ctx, svc.api, oldPassword, newPassword)
}

// Locate returns where the student's bus is relative to its route: the bus, its
// coverage points (annotated) and the index of the current stop.
func (svc *Service) Locate() (*bus.Bus, []bus.CoveragePoint, error) {
	b := svc.store.Bus()
	if b == nil {
		return nil, nil, errors.New("no bus loaded")
	}
	points := b.CoveragePoints
	if len(points) == 0 {
		points = bus.CoveragePoints(svc.store.Route(), b.CurrentStopIndex)
	}
	return b, points, nil
}
