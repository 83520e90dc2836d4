package driver

import (
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/student"
)

type Profile struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Role         string     `json:"role,omitempty"`
	AssignedBus  string     `json:"assignedBus"`
	BusDetails   *bus.Bus   `json:"busDetails,omitempty"`
	Route        *bus.Route `json:"route,omitempty"`
	StudentCount int        `json:"studentCount"`
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.BusDetails = p.BusDetails.Clone()
	cp.Route = p.Route.Clone()
	return &cp
}

// Roster is the list of students riding the driver's bus.
type Roster struct {
	BusNumber    string            `json:"busNumber"`
	Route        string            `json:"route"`
	StudentCount int               `json:"studentCount"`
	Students     []student.Profile `json:"students"`
}

// Schedule is the driver's bus, route and upcoming approved leaves. Bus is nil when none is assigned.
type Schedule struct {
	Message        string            `json:"message,omitempty"`
	Bus            *bus.Bus          `json:"bus"`
	Route          *bus.Route        `json:"route"`
	UpcomingLeaves []messaging.Leave `json:"upcomingLeaves"`
}

func (sc *Schedule) Clone() *Schedule {
	if sc == nil {
		return nil
	}
	cp := *sc
	cp.Bus = sc.Bus.Clone()
	cp.Route = sc.Route.Clone()
	if sc.UpcomingLeaves != nil {
		cp.UpcomingLeaves = append([]messaging.Leave{}, sc.UpcomingLeaves...)
	}
	return &cp
}

// Summary is the admin's view of a driver (GET /api/drivers/list).
type Summary struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	AssignedBus string `json:"assignedBus,omitempty"`
	Route       string `json:"route,omitempty"`
}
