package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/driver"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/student"
)

type contactUpdate struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

func (s *server) registerDriverAPI(g *echo.Group, driverOnly, admin echo.MiddlewareFunc) {
	dg := g.Group("/drivers")
	dg.GET("/me", s.driverProfile, driverOnly)
	dg.GET("/me/students", s.driverStudents, driverOnly)
	dg.GET("/me/bus-location", s.driverBus, driverOnly)
	dg.GET("/me/leaves", s.driverLeaves, driverOnly)
	dg.POST("/me/leave", s.requestLeave, driverOnly)
	dg.DELETE("/me/leave/:id", s.cancelLeave, driverOnly)
	dg.GET("/me/schedule", s.driverSchedule, driverOnly)
	dg.GET("/list", s.listDrivers, admin)
	dg.PATCH("/:id", s.updateDriver, admin)
}

func (s *server) driverProfile(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	p := driver.Profile{ID: acc.ID, Name: acc.Name, Email: acc.Email, Phone: acc.Phone, Role: acc.Role}
	if b, ok := s.db.driverBus(acc.ID); ok {
		p.AssignedBus = b.Number
		p.BusDetails = &b
		p.StudentCount = b.StudentCount
		if r, ok := s.db.getRoute(b.Route); ok {
			p.Route = &r
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"driver": p})
}

func (s *server) driverStudents(ctx echo.Context) error {
	roster := driver.Roster{Students: []student.Profile{}}
	if b, ok := s.db.driverBus(getContextAccount(ctx).ID); ok {
		roster.BusNumber, roster.Route = b.Number, b.Route
		for _, acc := range s.db.listAccounts(RoleStudent, func(a account) bool { return a.AssignedBus == b.Number }) {
			roster.Students = append(roster.Students, studentProfile(acc))
		}
	}
	roster.StudentCount = len(roster.Students)
	return ctx.JSON(http.StatusOK, roster)
}

func (s *server) driverBus(ctx echo.Context) error {
	b, ok := s.db.driverBus(getContextAccount(ctx).ID)
	if !ok {
		return errNoBusAssigned
	}
	return ctx.JSON(http.StatusOK, echo.Map{"bus": b})
}

func (s *server) driverLeaves(ctx echo.Context) error {
	id, status := getContextAccount(ctx).ID, ctx.QueryParam("status")
	leaves := s.db.listLeaves(func(l messaging.Leave) bool {
		return l.DriverID == id && (status == "" || l.Status == status)
	})
	return ctx.JSON(http.StatusOK, echo.Map{"leaves": leaves})
}

func (s *server) requestLeave(ctx echo.Context) error {
	var data messaging.NewLeave
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc := getContextAccount(ctx)
	l := messaging.Leave{DriverID: acc.ID, DriverName: acc.Name, Date: data.Date, Reason: core.CleanString(data.Reason)}
	if b, ok := s.db.driverBus(acc.ID); ok {
		l.BusNumber, l.Route = b.Number, b.Route
	}
	l = s.db.addLeave(l)
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Leave request submitted", "leaveRequest": l})
}

func (s *server) cancelLeave(ctx echo.Context) error {
	if err := s.db.cancelLeave(getContextAccount(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "message": "Leave request cancelled"})
}

func (s *server) driverSchedule(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	today := time.Now().Format("2006-01-02")
	sc := driver.Schedule{
		UpcomingLeaves: s.db.listLeaves(func(l messaging.Leave) bool {
			return l.DriverID == acc.ID && l.Status == messaging.LeaveApproved && l.Date >= today
		}),
	}
	b, ok := s.db.driverBus(acc.ID)
	if !ok {
		sc.Message = "No bus assigned"
		return ctx.JSON(http.StatusOK, sc)
	}
	sc.Bus = &b
	if r, ok := s.db.getRoute(b.Route); ok {
		sc.Route = &r
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (s *server) listDrivers(ctx echo.Context) error {
	drivers := make([]driver.Summary, 0)
	for _, acc := range s.db.listAccounts(RoleDriver) {
		d := driver.Summary{ID: acc.ID, Name: acc.Name, Email: acc.Email, Phone: acc.Phone, AssignedBus: acc.AssignedBus}
		if b, ok := s.db.getBus(acc.AssignedBus); ok {
			d.Route = b.Route
		}
		drivers = append(drivers, d)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"drivers": drivers})
}

func (s *server) updateDriver(ctx echo.Context) error {
	var data contactUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	err := s.db.updateAccount(ctx.Param("id"), func(a *account) error {
		if a.Role != RoleDriver {
			return errNotFound("Driver")
		}
		a.Name, a.Email, a.Phone = core.CleanString(data.Name), data.Email, core.CleanString(data.Phone)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Driver updated successfully"})
}

func (s *server) registerBusAPI(g *echo.Group, anyone, driverOnly echo.MiddlewareFunc) {
	g.GET("/buses", s.allBuses, anyone)
	g.POST("/buses/location", s.updateLocation, driverOnly)
	g.GET("/routes", s.allRoutes, anyone)
}

func (s *server) allBuses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.db.listBuses())
}

func (s *server) allRoutes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.db.listRoutes())
}

// updateLocation moves the bus and derives its current stop from the route.
func (s *server) updateLocation(ctx echo.Context) error {
	var data bus.LocationUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	route, hasRoute := bus.Route{}, false
	if b, ok := s.db.getBus(data.BusNumber); ok {
		route, hasRoute = s.db.getRoute(b.Route)
	}
	err := s.db.updateBus(data.BusNumber, func(b *bus.Bus) error {
		b.CurrentLocation = &bus.Location{Lat: data.Lat, Long: data.Long, Timestamp: now()}
		b.Status = "running"
		if hasRoute {
			b.CurrentStopIndex = bus.NearestStopIndex(b.CurrentLocation, &route)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Bus location updated"})
}
