package echoapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/admin"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/student"
)

type (
	newBus struct {
		Number   string  `json:"number" validate:"notblank"`
		DriverID *string `json:"driverId"`
		Route    *string `json:"route"`
	}

	busUpdate struct {
		DriverID  *string `json:"driverId"`
		Route     *string `json:"route"`
		NewNumber string  `json:"newNumber"`
	}

	newStudent struct {
		RollNo      string  `json:"roll_no" validate:"notblank"`
		Name        string  `json:"name" validate:"notblank"`
		Email       string  `json:"email" validate:"required,email"`
		Route       *string `json:"route"`
		Boarding    *string `json:"boarding"`
		AssignedBus *string `json:"assignedBus"`
	}

	studentUpdate struct {
		Name          string  `json:"name" validate:"notblank"`
		Email         string  `json:"email" validate:"required,email"`
		Route         *string `json:"route"`
		BoardingPoint *string `json:"boardingPoint"`
		AssignedBus   *string `json:"assignedBus"`
	}

	parentUpdate struct {
		Name  string `json:"name" validate:"notblank"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone"`
		Child string `json:"child"`
	}

	routePayload struct {
		Name          string     `json:"name"`
		Stops         []bus.Stop `json:"stops"`
		CoverageAreas []string   `json:"coverageAreas"`
	}

	leaveReview struct {
		Approved           bool    `json:"approved"`
		AdminNotes         string  `json:"adminNotes"`
		SubstituteDriverID *string `json:"substituteDriverId"`
	}
)

func str(p *string) string {
	if p == nil {
		return ""
	}
	return core.CleanString(*p)
}

func (s *server) registerAdminAPI(g *echo.Group, adminOnly echo.MiddlewareFunc) {
	ag := g.Group("/admin", adminOnly)
	ag.GET("/dashboard", s.dashboard)

	ag.GET("/buses", s.adminBuses)
	ag.POST("/buses", s.createBus)
	ag.PATCH("/buses/:number", s.updateBus)
	ag.DELETE("/buses/:number", s.deleteBus)

	ag.GET("/students", s.adminStudents)
	ag.POST("/students", s.createStudent)
	ag.PATCH("/students/:roll", s.updateStudent)
	ag.DELETE("/students/:roll", s.deleteStudent)

	ag.GET("/parents", s.adminParents)
	ag.PATCH("/parents/:id", s.updateParent)
	ag.DELETE("/parents/:id", s.deleteParent)

	ag.GET("/routes", s.adminRoutes)
	ag.POST("/routes", s.createRoute)
	ag.PATCH("/routes/:name", s.updateRoute)
	ag.DELETE("/routes/:name", s.deleteRoute)

	ag.GET("/leaves", s.adminLeaves)
	ag.PATCH("/leaves/:id", s.reviewLeave)

	g.GET("/attendance", s.attendanceRecords, adminOnly)
	g.POST("/face/enroll", s.enrollFace, adminOnly)
}

func (s *server) dashboard(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"statistics": s.db.Stats()})
}

// buses

func (s *server) adminBuses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"buses": s.db.listBuses()})
}

func (s *server) createBus(ctx echo.Context) error {
	var data newBus
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	b, err := s.db.createBus(bus.Bus{Number: core.CleanString(data.Number), DriverID: str(data.DriverID), Route: str(data.Route)})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Bus added successfully", "bus": b})
}

func (s *server) updateBus(ctx echo.Context) error {
	var data busUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	err := s.db.updateBus(ctx.Param("number"), func(b *bus.Bus) error {
		b.DriverID, b.Route = str(data.DriverID), str(data.Route)
		if n := core.CleanString(data.NewNumber); n != "" {
			b.Number = n
		}
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Bus updated successfully"})
}

func (s *server) deleteBus(ctx echo.Context) error {
	if !s.db.deleteBus(ctx.Param("number")) {
		return errNotFound("Bus")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Bus deleted successfully"})
}

// students

func (s *server) adminStudents(ctx echo.Context) error {
	students := make([]student.Profile, 0)
	for _, acc := range s.db.listAccounts(RoleStudent) {
		students = append(students, studentProfile(acc))
	}
	return ctx.JSON(http.StatusOK, echo.Map{"students": students})
}

// createStudent registers the student with a generated password. The dev server sends no email.
func (s *server) createStudent(ctx echo.Context) error {
	var data newStudent
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	pwd := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	acc, err := s.db.createAccount(account{
		Name:          core.CleanString(data.Name),
		Email:         data.Email,
		Role:          RoleStudent,
		RollNo:        core.CleanString(data.RollNo),
		Route:         str(data.Route),
		BoardingPoint: str(data.Boarding),
		AssignedBus:   str(data.AssignedBus),
	}, pwd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, admin.StudentCredentials{
		Message:         "Student added successfully",
		RollNo:          acc.RollNo,
		Email:           acc.Email,
		DefaultPassword: pwd,
		EmailSent:       false,
	})
}

func (s *server) updateStudent(ctx echo.Context) error {
	var data studentUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc, ok := s.db.studentByRollNo(ctx.Param("roll"))
	if !ok {
		return errNotFound("Student")
	}
	err := s.db.updateAccount(acc.ID, func(a *account) error {
		a.Name, a.Email = core.CleanString(data.Name), data.Email
		a.Route, a.BoardingPoint, a.AssignedBus = str(data.Route), str(data.BoardingPoint), str(data.AssignedBus)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Student updated successfully"})
}

func (s *server) deleteStudent(ctx echo.Context) error {
	acc, ok := s.db.studentByRollNo(ctx.Param("roll"))
	if !ok || !s.db.deleteAccount(acc.ID) {
		return errNotFound("Student")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Student deleted successfully"})
}

// parents

func (s *server) adminParents(ctx echo.Context) error {
	parents := make([]admin.ParentSummary, 0)
	for _, acc := range s.db.listAccounts(RoleParent) {
		parents = append(parents, admin.ParentSummary{ID: acc.ID, Name: acc.Name, Email: acc.Email, Phone: acc.Phone, Child: acc.Child})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"parents": parents})
}

func (s *server) updateParent(ctx echo.Context) error {
	var data parentUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	err := s.db.updateAccount(ctx.Param("id"), func(a *account) error {
		if a.Role != RoleParent {
			return errNotFound("Parent")
		}
		a.Name, a.Email, a.Phone, a.Child = core.CleanString(data.Name), data.Email, core.CleanString(data.Phone), core.CleanString(data.Child)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Parent updated successfully"})
}

func (s *server) deleteParent(ctx echo.Context) error {
	acc, ok := s.db.accountByID(ctx.Param("id"))
	if !ok || acc.Role != RoleParent || !s.db.deleteAccount(acc.ID) {
		return errNotFound("Parent")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Parent deleted successfully"})
}

// routes

func (s *server) adminRoutes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"routes": s.db.listRoutes()})
}

func (s *server) createRoute(ctx echo.Context) error {
	var data routePayload
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	r := bus.Route{Name: core.CleanString(data.Name), Stops: data.Stops, CoverageAreas: data.CoverageAreas}
	if r.Name == "" {
		return core.NewValidationError(errNameRequired)
	}
	if err := s.db.saveRoute(r, true); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Route added successfully"})
}

func (s *server) updateRoute(ctx echo.Context) error {
	var data routePayload
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	r := bus.Route{Name: ctx.Param("name"), Stops: data.Stops, CoverageAreas: data.CoverageAreas}
	if err := s.db.saveRoute(r, false); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Route updated successfully"})
}

func (s *server) deleteRoute(ctx echo.Context) error {
	if !s.db.deleteRoute(ctx.Param("name")) {
		return errNotFound("Route")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Route deleted successfully"})
}

// leaves & attendance

func (s *server) adminLeaves(ctx echo.Context) error {
	status := ctx.QueryParam("status")
	leaves := s.db.listLeaves(func(l messaging.Leave) bool { return status == "" || l.Status == status })
	return ctx.JSON(http.StatusOK, echo.Map{"leaves": leaves})
}

// reviewLeave approves or rejects a leave; an approved leave may hand the bus to a substitute driver.
func (s *server) reviewLeave(ctx echo.Context) error {
	var data leaveReview
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	var busNumber string
	err := s.db.updateLeave(ctx.Param("id"), func(l *messaging.Leave) error {
		l.Status = messaging.LeaveRejected
		if data.Approved {
			l.Status = messaging.LeaveApproved
		}
		l.AdminNotes = core.CleanString(data.AdminNotes)
		busNumber = l.BusNumber
		return nil
	})
	if err != nil {
		return err
	}
	if sub := str(data.SubstituteDriverID); data.Approved && sub != "" && busNumber != "" {
		if err := s.db.updateBus(busNumber, func(b *bus.Bus) error { b.DriverID = sub; return nil }); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Leave request reviewed"})
}

func (s *server) attendanceRecords(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"records": s.db.attendanceOf(ctx.QueryParam("roll_no"))})
}
