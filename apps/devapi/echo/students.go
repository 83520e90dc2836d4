package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/parent"
	"github.com/trezcool/tripsync/core/student"
)

func (s *server) registerStudentAPI(g *echo.Group, anyone, studentOnly echo.MiddlewareFunc) {
	sg := g.Group("/students")
	sg.GET("/me", s.me, anyone)
	sg.GET("/me/route", s.myRoute, studentOnly)
	sg.GET("/me/bus", s.myBus, studentOnly)
	sg.GET("/me/driver", s.myDriver, studentOnly)
	sg.GET("/me/attendance", s.myAttendance, studentOnly)
	sg.GET("/profile", s.studentDetails, anyone)
	sg.GET("/:roll/attendance-summary", s.attendanceSummary, anyone)
}

func studentProfile(acc account) student.Profile {
	return student.Profile{
		ID:            acc.ID,
		RollNo:        acc.RollNo,
		Name:          acc.Name,
		Email:         acc.Email,
		Phone:         acc.Phone,
		Role:          acc.Role,
		Route:         acc.Route,
		BoardingPoint: acc.BoardingPoint,
		AssignedBus:   acc.AssignedBus,
	}
}

// me returns the profile of a student (under `student`) or of a parent (under `parent`).
func (s *server) me(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	switch acc.Role {
	case RoleStudent:
		return ctx.JSON(http.StatusOK, echo.Map{"student": studentProfile(acc)})
	case RoleParent:
		p := parent.Profile{ID: acc.ID, Name: acc.Name, Email: acc.Email, Phone: acc.Phone, Role: acc.Role, ChildRollNo: acc.Child}
		if child, ok := s.db.studentByRollNo(acc.Child); ok {
			p.Child = child.Name
		}
		return ctx.JSON(http.StatusOK, echo.Map{"parent": p})
	}
	return errForbidden
}

func (s *server) myRoute(ctx echo.Context) error {
	var route *bus.Route
	if r, ok := s.db.getRoute(getContextAccount(ctx).Route); ok {
		route = &r
	}
	return ctx.JSON(http.StatusOK, echo.Map{"route": route})
}

func (s *server) myBus(ctx echo.Context) error {
	b, ok := s.db.getBus(getContextAccount(ctx).AssignedBus)
	if !ok {
		return errNoBusAssigned
	}
	return ctx.JSON(http.StatusOK, echo.Map{"bus": b})
}

func (s *server) myDriver(ctx echo.Context) error {
	b, ok := s.db.getBus(getContextAccount(ctx).AssignedBus)
	if !ok || b.Driver == nil {
		return errNotFound("Driver")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"driver": b.Driver})
}

func (s *server) myAttendance(ctx echo.Context) error {
	sum := attendance.Summarize(s.db.attendanceOf(getContextAccount(ctx).RollNo))
	return ctx.JSON(http.StatusOK, echo.Map{"attendance": sum})
}

// canSee reports whether acc may read the data of the student rollNo.
func canSee(acc account, rollNo string) bool {
	switch acc.Role {
	case RoleAdmin:
		return true
	case RoleParent:
		return acc.Child != "" && acc.Child == rollNo
	case RoleStudent:
		return acc.RollNo == rollNo
	}
	return false
}

func (s *server) studentDetails(ctx echo.Context) error {
	rollNo := ctx.QueryParam("roll_no")
	if !canSee(getContextAccount(ctx), rollNo) {
		return errForbidden
	}
	acc, ok := s.db.studentByRollNo(rollNo)
	if !ok {
		return errNotFound("Student")
	}

	p := studentProfile(acc)
	d := student.Details{Student: &p, Attendance: attendance.Summarize(s.db.attendanceOf(rollNo))}
	if r, ok := s.db.getRoute(acc.Route); ok {
		d.Route = &r
	}
	if b, ok := s.db.getBus(acc.AssignedBus); ok {
		d.Bus = &b
		d.Driver = b.Driver
	}
	return ctx.JSON(http.StatusOK, d)
}

func (s *server) attendanceSummary(ctx echo.Context) error {
	rollNo := ctx.Param("roll")
	if !canSee(getContextAccount(ctx), rollNo) {
		return errForbidden
	}
	if _, ok := s.db.studentByRollNo(rollNo); !ok {
		return errNotFound("Student")
	}
	rs := attendance.SummarizeRange(rollNo, ctx.QueryParam("from_date"), ctx.QueryParam("to_date"), s.db.attendanceOf(rollNo))
	return ctx.JSON(http.StatusOK, rs)
}
