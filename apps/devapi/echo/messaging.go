package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/messaging"
)

const defaultPageSize = 50

// Message groups.
const (
	groupAllStudents = "broadcast-students"
	groupAllDrivers  = "broadcast-drivers"
)

func driverGroup(busNumber string) string { return "driver-" + busNumber }
func chatGroup(busNumber string) string   { return "chat-" + busNumber }

func routeGroup(route, recipients string) string { return "route-" + route + "-" + recipients }

func (s *server) registerMessagingAPI(g *echo.Group, studentOnly, driverOnly, parentOnly, adminOnly echo.MiddlewareFunc) {
	mg := g.Group("/messages")

	mg.GET("/student/my-complaints", s.myComplaints, studentOnly)
	mg.POST("/student/complaint", s.submitComplaint, studentOnly)
	mg.GET("/student/driver-messages", s.driverMessages, studentOnly)
	mg.GET("/student/bus-chat", s.busChat, studentOnly)
	mg.POST("/student/send-message", s.sendBusMessage, studentOnly)

	mg.GET("/driver/my-groups", s.driverGroups, driverOnly)
	mg.POST("/driver/send-to-students", s.sendToStudents, driverOnly)

	mg.GET("/parent/groups", s.parentMessages, parentOnly)

	mg.GET("/admin/complaints", s.allComplaints, adminOnly)
	mg.PATCH("/admin/complaints/:id", s.updateComplaint, adminOnly)
	mg.POST("/admin/broadcast/all-students", s.broadcastTo(groupAllStudents, messaging.RecipientStudents), adminOnly)
	mg.POST("/admin/broadcast/all-drivers", s.broadcastTo(groupAllDrivers, messaging.RecipientDrivers), adminOnly)
	mg.POST("/admin/broadcast/route", s.broadcastRoute, adminOnly)
}

func sender(acc account) messaging.Sender {
	return messaging.Sender{ID: acc.ID, Name: acc.Name, RollNo: acc.RollNo, Role: acc.Role}
}

// page applies the limit and skip query params to msgs.
func page(ctx echo.Context, msgs []messaging.Message) []messaging.Message {
	limit, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	skip, _ := strconv.Atoi(ctx.QueryParam("skip"))
	if skip < 0 || skip >= len(msgs) {
		return []messaging.Message{}
	}
	msgs = msgs[skip:]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs
}

// complaints

func (s *server) myComplaints(ctx echo.Context) error {
	id := getContextAccount(ctx).ID
	complaints := s.db.listComplaints(func(c messaging.Complaint) bool { return c.StudentID == id })
	return ctx.JSON(http.StatusOK, echo.Map{"complaints": complaints})
}

func (s *server) submitComplaint(ctx echo.Context) error {
	var data messaging.NewComplaint
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc := getContextAccount(ctx)
	c := messaging.Complaint{
		StudentID:   acc.ID,
		StudentName: acc.Name,
		RollNo:      acc.RollNo,
		Category:    data.Category,
		Description: core.CleanString(data.Description),
		BusNumber:   core.CleanString(data.BusNumber),
		Route:       acc.Route,
	}
	if c.BusNumber == "" {
		c.BusNumber = acc.AssignedBus
	}
	c = s.db.addComplaint(c)
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Complaint submitted successfully", "complaint": c})
}

func (s *server) allComplaints(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"complaints": s.db.listComplaints(nil)})
}

func (s *server) updateComplaint(ctx echo.Context) error {
	var data messaging.ComplaintUpdate
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	data.AdminResponse = core.CleanString(data.AdminResponse)
	if err := s.db.updateComplaint(ctx.Param("id"), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Complaint updated successfully"})
}

// student threads

// driverMessages pages the announcements reaching a student: the bus driver's, the
// route's and the admin's.
func (s *server) driverMessages(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	th := messaging.Thread{GroupID: driverGroup(acc.AssignedBus), BusNumber: acc.AssignedBus, Route: acc.Route}
	if b, ok := s.db.getBus(acc.AssignedBus); ok && b.Driver != nil {
		th.DriverName = b.Driver.Name
	}
	th.Messages = page(ctx, s.db.listMessages(
		th.GroupID,
		groupAllStudents,
		routeGroup(acc.Route, messaging.RecipientStudents),
		routeGroup(acc.Route, messaging.RecipientAll),
	))
	return ctx.JSON(http.StatusOK, th)
}

func (s *server) busChat(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	if acc.AssignedBus == "" {
		return errNoBusAssigned
	}
	members := s.db.listAccounts(RoleStudent, func(a account) bool { return a.AssignedBus == acc.AssignedBus })
	th := messaging.Thread{
		GroupID:     chatGroup(acc.AssignedBus),
		BusNumber:   acc.AssignedBus,
		Route:       acc.Route,
		MemberCount: len(members),
	}
	th.Messages = page(ctx, s.db.listMessages(th.GroupID))
	return ctx.JSON(http.StatusOK, th)
}

func (s *server) sendBusMessage(ctx echo.Context) error {
	var data messaging.NewMessage
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc := getContextAccount(ctx)
	if acc.AssignedBus == "" {
		return errNoBusAssigned
	}
	m := s.db.addMessage(messaging.Message{
		GroupID:   chatGroup(acc.AssignedBus),
		GroupName: "Bus " + acc.AssignedBus + " Chat",
		Sender:    sender(acc),
		Content:   core.CleanString(data.Content),
		BusNumber: acc.AssignedBus,
		Route:     acc.Route,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"groupId": m.GroupID, "messageId": m.ID})
}

// driver groups

func (s *server) driverGroups(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	groups := make([]messaging.Group, 0)
	if b, ok := s.db.driverBus(acc.ID); ok {
		grp := messaging.Group{
			GroupID:   driverGroup(b.Number),
			GroupName: "Bus " + b.Number + " Students",
			Type:      "driver_students",
			BusNumber: b.Number,
			Route:     b.Route,
		}
		if msgs := s.db.listMessages(grp.GroupID); len(msgs) > 0 {
			grp.LastMessage, grp.LastMessageTime, grp.LastSender = msgs[0].Content, msgs[0].Timestamp, msgs[0].Sender.Name
		}
		groups = append(groups, grp)
	}
	if msgs := s.db.listMessages(groupAllDrivers); len(msgs) > 0 {
		groups = append(groups, messaging.Group{
			GroupID:         groupAllDrivers,
			GroupName:       "Admin Announcements",
			Type:            "broadcast",
			LastMessage:     msgs[0].Content,
			LastMessageTime: msgs[0].Timestamp,
			LastSender:      msgs[0].Sender.Name,
		})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"groups": groups})
}

func (s *server) sendToStudents(ctx echo.Context) error {
	var data messaging.NewMessage
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc := getContextAccount(ctx)
	b, ok := s.db.driverBus(acc.ID)
	if !ok {
		return errNoBusAssigned
	}
	m := s.db.addMessage(messaging.Message{
		GroupID:       driverGroup(b.Number),
		GroupName:     "Bus " + b.Number + " Students",
		Sender:        sender(acc),
		Content:       core.CleanString(data.Content),
		BusNumber:     b.Number,
		Route:         b.Route,
		RecipientType: messaging.RecipientStudents,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Message sent to students", "messageId": m.ID})
}

// parentMessages returns what reaches a parent: the child's driver announcements and
// the broadcasts to parents of the child's route.
func (s *server) parentMessages(ctx echo.Context) error {
	acc := getContextAccount(ctx)
	child, ok := s.db.studentByRollNo(acc.Child)
	if !ok {
		return errNoChild
	}
	msgs := s.db.listMessages(
		driverGroup(child.AssignedBus),
		routeGroup(child.Route, messaging.RecipientParents),
		routeGroup(child.Route, messaging.RecipientAll),
	)
	return ctx.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// broadcasts

func (s *server) broadcastTo(groupID, recipients string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data messaging.NewMessage
		if err := bindValid(ctx, &data); err != nil {
			return err
		}
		m := s.db.addMessage(messaging.Message{
			GroupID:       groupID,
			GroupName:     "Admin Announcements",
			Sender:        sender(getContextAccount(ctx)),
			Content:       core.CleanString(data.Content),
			RecipientType: recipients,
		})
		return ctx.JSON(http.StatusOK, echo.Map{"message": "Broadcast sent to all " + recipients, "messageId": m.ID})
	}
}

func (s *server) broadcastRoute(ctx echo.Context) error {
	var data messaging.RouteBroadcast
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	route, ok := s.db.getRoute(core.CleanString(data.RouteName))
	if !ok {
		return errNotFound("Route")
	}
	m := s.db.addMessage(messaging.Message{
		GroupID:       routeGroup(route.Name, data.RecipientType),
		GroupName:     route.Name + " Announcements",
		Sender:        sender(getContextAccount(ctx)),
		Content:       core.CleanString(data.Content),
		Route:         route.Name,
		RecipientType: data.RecipientType,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Broadcast sent to route " + route.Name, "messageId": m.ID})
}
