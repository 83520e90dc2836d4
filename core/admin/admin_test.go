package admin

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/internal/apitest"
	logsvc "github.com/trezcool/tripsync/services/logger"
)

type mailbox struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailbox) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		_ = msg.Render()
		m.sent = append(m.sent, msg)
	}
}

func newTestService(t *testing.T, mail core.EmailService) (*Service, *apitest.Server) {
	srv := apitest.NewServer(t)
	return NewService(srv.Client("tok"), NewStore(), logsvc.NewDiscardLogger(), mail), srv
}

func serveDashboard(srv *apitest.Server) {
	srv.JSON(http.MethodGet, "/api/admin/buses", 200, map[string]interface{}{
		"count": 1, "buses": []map[string]interface{}{{"number": "AP-1", "route": "R1"}},
	})
	srv.JSON(http.MethodGet, "/api/drivers/list", 200, map[string]interface{}{
		"drivers": []map[string]string{{"_id": "d1", "name": "Ramu"}},
	})
	srv.JSON(http.MethodGet, "/api/admin/students", 200, map[string]interface{}{
		"students": []map[string]string{{"roll_no": "21BCE7", "name": "Ravi", "boarding": "Gate"}},
	})
	srv.JSON(http.MethodGet, "/api/admin/parents", 200, map[string]interface{}{
		"parents": []map[string]string{{"_id": "p1", "name": "Lakshmi", "child": "21BCE7"}},
	})
	srv.JSON(http.MethodGet, "/api/admin/routes", 200, map[string]interface{}{
		"routes": []map[string]interface{}{{"name": "R1", "stops": []string{"Gate"}}},
	})
	srv.JSON(http.MethodGet, "/api/admin/dashboard", 200, map[string]interface{}{
		"statistics": map[string]int{"totalBuses": 1, "totalStudents": 1},
	})
	srv.JSON(http.MethodGet, "/api/messages/admin/complaints", 200, map[string]interface{}{
		"complaints": []map[string]string{{"_id": "c1", "category": "other", "status": "pending"}},
	})
}

func TestService_FetchDashboard(t *testing.T) {
	svc, srv := newTestService(t, nil)
	serveDashboard(srv)

	report := svc.FetchDashboard(context.Background())
	require.True(t, report.OK(), report.String())

	s := svc.Store()
	assert.Len(t, s.Buses(), 1)
	assert.Len(t, s.Drivers(), 1)
	require.Len(t, s.Students(), 1)
	assert.Equal(t, "Gate", s.Students()[0].BoardingPoint)
	assert.Len(t, s.Parents(), 1)
	assert.Len(t, s.Routes(), 1)
	assert.Equal(t, 1, s.Stats().TotalBuses)
	assert.Len(t, s.Complaints(), 1)
	assert.False(t, s.Loading().Dashboard)
}

func TestService_FetchDashboard_PartialFailure(t *testing.T) {
	svc, srv := newTestService(t, nil)
	serveDashboard(srv)
	srv.JSON(http.MethodGet, "/api/admin/routes", 500, nil)
	svc.Store().SetRoutes([]bus.Route{{Name: "stale"}})

	report := svc.FetchDashboard(context.Background())

	assert.Equal(t, []string{CollectionRoutes}, report.Failed())
	assert.Equal(t, []bus.Route{}, svc.Store().Routes())
	assert.Len(t, svc.Store().Buses(), 1)
	assert.Len(t, svc.Store().Drivers(), 1)
	assert.Len(t, svc.Store().Students(), 1)
	assert.Len(t, svc.Store().Parents(), 1)
	assert.Equal(t, 1, svc.Store().Stats().TotalStudents)
	assert.Len(t, svc.Store().Complaints(), 1)
}

func TestService_FetchDashboard_MissingEnvelope(t *testing.T) {
	svc, srv := newTestService(t, nil)
	serveDashboard(srv)
	srv.JSON(http.MethodGet, "/api/admin/buses", 200, map[string]interface{}{"count": 0})

	report := svc.FetchDashboard(context.Background())
	assert.True(t, report.OK())
	assert.NotNil(t, svc.Store().Buses())
	assert.Empty(t, svc.Store().Buses())
}

func TestLookup_UnknownTag(t *testing.T) {
	tests := []struct {
		tag     OpTag
		suggest string
	}{
		{tag: "adBus", suggest: `"addBus"`},
		{tag: "editstudent", suggest: `"editStudent"`},
		{tag: "zzz"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			_, err := Lookup(tt.tag)
			require.Error(t, err)
			assert.Equal(t, ErrUnknownOp, errors.Cause(err))
			if tt.suggest != "" {
				assert.Contains(t, err.Error(), "did you mean "+tt.suggest)
			} else {
				assert.NotContains(t, err.Error(), "did you mean")
			}
		})
	}
}

func TestOps_AllBuild(t *testing.T) {
	for _, tag := range Ops() {
		op, err := Lookup(tag)
		require.NoError(t, err)
		assert.NotEmpty(t, op.Title, tag)
		assert.NotEmpty(t, op.Fields, tag)
		if tag != OpViewAttendance {
			assert.NotNil(t, op.Build, tag)
		}
	}
}

func TestService_Submit_Payloads(t *testing.T) {
	tests := []struct {
		name     string
		tag      OpTag
		data     Form
		method   string
		path     string
		wantBody string
	}{
		{
			name: "add bus without driver", tag: OpAddBus,
			data:   Form{"number": " AP-9 "},
			method: http.MethodPost, path: "/api/admin/buses",
			wantBody: `{"number":"AP-9","driverId":null,"route":null}`,
		},
		{
			name: "edit bus keeps number", tag: OpEditBus,
			data:   Form{"number": "AP-1", "route": "R2"},
			method: http.MethodPatch, path: "/api/admin/buses/AP-1",
			wantBody: `{"driverId":null,"route":"R2"}`,
		},
		{
			name: "edit bus renames", tag: OpEditBus,
			data:   Form{"originalNumber": "AP-1", "number": "AP-2", "driverId": "d1"},
			method: http.MethodPatch, path: "/api/admin/buses/AP-1",
			wantBody: `{"driverId":"d1","route":null,"newNumber":"AP-2"}`,
		},
		{
			name: "add driver defaults password", tag: OpAddDriver,
			data:   Form{"name": "Ramu", "email": "Ramu@X.com"},
			method: http.MethodPost, path: "/api/auth/register",
			wantBody: `{"name":"Ramu","email":"ramu@x.com","password":"default","phone":"","role":"driver"}`,
		},
		{
			name: "add parent", tag: OpAddParent,
			data:   Form{"name": "Lakshmi", "email": "l@x.com", "password": "secret"},
			method: http.MethodPost, path: "/api/auth/register",
			wantBody: `{"name":"Lakshmi","email":"l@x.com","password":"secret","phone":"","role":"parent","child":null}`,
		},
		{
			name: "edit student uses boarding alias", tag: OpEditStudent,
			data:   Form{"roll_no": "21BCE7", "name": "Ravi", "email": "r@x.com", "boarding": "Gate"},
			method: http.MethodPatch, path: "/api/admin/students/21BCE7",
			wantBody: `{"name":"Ravi","email":"r@x.com","route":null,"boardingPoint":"Gate","assignedBus":null}`,
		},
		{
			name: "add route splits lists", tag: OpAddRoute,
			data:   Form{"name": "R3", "stops": "Gate, Benz Circle,, ", "coverageAreas": ""},
			method: http.MethodPost, path: "/api/admin/routes",
			wantBody: `{"name":"R3","stops":["Gate","Benz Circle"],"coverageAreas":[]}`,
		},
		{
			name: "delete student", tag: OpDeleteStudent,
			data:   Form{"roll_no": "21BCE7"},
			method: http.MethodDelete, path: "/api/admin/students/21BCE7",
		},
		{
			name: "route broadcast defaults recipients", tag: OpBroadcastRoute,
			data:   Form{"routeName": "R1", "content": "Late today"},
			method: http.MethodPost, path: "/api/messages/admin/broadcast/route",
			wantBody: `{"routeName":"R1","content":"Late today","recipientType":"students"}`,
		},
		{
			name: "update complaint", tag: OpUpdateComplaint,
			data:   Form{"_id": "c1", "status": "resolved", "adminResponse": "Found it"},
			method: http.MethodPatch, path: "/api/messages/admin/complaints/c1",
			wantBody: `{"status":"resolved","adminResponse":"Found it"}`,
		},
		{
			name: "reject leave drops substitute", tag: OpReviewLeave,
			data:   Form{"_id": "l1", "approved": "false", "substituteDriverId": "d2"},
			method: http.MethodPatch, path: "/api/admin/leaves/l1",
			wantBody: `{"approved":false,"substituteDriverId":null}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, srv := newTestService(t, nil)
			serveDashboard(srv)
			srv.JSON(tt.method, tt.path, 200, map[string]interface{}{"success": true})

			m, err := svc.Open(context.Background(), tt.tag, tt.data)
			require.NoError(t, err)
			res := svc.Submit(context.Background(), m)
			require.True(t, res.Success, res.Message)
			assert.Equal(t, SuccessMessage, res.Message)
			assert.Empty(t, res.Notes)

			calls := srv.CallsTo(tt.method, tt.path)
			require.Len(t, calls, 1)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(calls[0].Body))
			}
			// the dashboard is refreshed after a successful operation
			assert.Len(t, srv.CallsTo(http.MethodGet, "/api/admin/buses"), 1)
			assert.False(t, svc.Store().Loading().Submitting)
		})
	}
}

func TestDeleteOp_EscapesKey(t *testing.T) {
	op, err := Lookup(OpDeleteRoute)
	require.NoError(t, err)
	req, err := op.Build(Form{"name": "Route 1"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/admin/routes/Route%201", req.Path)
	assert.Nil(t, req.Body)
}

func TestService_Submit_InvalidSendsNothing(t *testing.T) {
	tests := []struct {
		tag  OpTag
		data Form
		want string
	}{
		{tag: OpAddBus, data: Form{"number": "  "}, want: "number"},
		{tag: OpEditDriver, data: Form{"name": "Ramu", "email": "r@x.com"}, want: "_id is required"},
		{tag: OpAddStudent, data: Form{"roll_no": "1", "name": "Ravi", "email": "not-an-email"}, want: "email"},
		{tag: OpBroadcastAll, data: Form{"content": ""}, want: "content"},
		{tag: OpUpdateComplaint, data: Form{"_id": "c1", "status": "closed"}, want: "status"},
		{tag: OpReviewLeave, data: Form{"_id": "l1", "approved": "maybe"}, want: "approved must be true or false"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			svc, srv := newTestService(t, nil)
			m, err := svc.Open(context.Background(), tt.tag, tt.data)
			require.NoError(t, err)

			res := svc.Submit(context.Background(), m)
			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.want)
			assert.Empty(t, srv.Calls())
		})
	}
}

func TestService_Submit_ServerFailure(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{name: "detail", body: map[string]string{"detail": "Bus AP-1 already exists"}, want: "Bus AP-1 already exists"},
		{name: "no detail", body: nil, want: FailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, srv := newTestService(t, nil)
			srv.JSON(http.MethodPost, "/api/admin/buses", 400, tt.body)
			m, err := svc.Open(context.Background(), OpAddBus, Form{"number": "AP-1"})
			require.NoError(t, err)

			res := svc.Submit(context.Background(), m)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
			assert.Empty(t, srv.CallsTo(http.MethodGet, "/api/admin/buses"), "no refresh on failure")
		})
	}
}

func TestService_Open_DoesNotModifyData(t *testing.T) {
	svc, _ := newTestService(t, nil)
	data := Form{"number": "AP-1"}
	m, err := svc.Open(context.Background(), OpEditBus, data)
	require.NoError(t, err)
	assert.Equal(t, "AP-1", m.Data["originalNumber"])
	assert.Equal(t, "Edit Bus", m.Title)
	assert.NotContains(t, data, "originalNumber")
}

func TestService_ViewAttendance(t *testing.T) {
	t.Run("loads records", func(t *testing.T) {
		svc, srv := newTestService(t, nil)
		srv.JSON(http.MethodGet, "/api/attendance", 200, map[string]interface{}{
			"count":   1,
			"records": []attendance.Record{{RollNo: "21BCE7", Date: "2024-03-01", Status: attendance.StatusBoarded}},
		})
		m, err := svc.Open(context.Background(), OpViewAttendance, Form{"roll_no": "21BCE7"})
		require.NoError(t, err)
		assert.Empty(t, m.Notice)
		assert.Len(t, svc.Store().AttendanceRecords(), 1)
		assert.Equal(t, "/api/attendance?roll_no=21BCE7", srv.Calls()[0].Path)

		res := svc.Submit(context.Background(), m)
		assert.False(t, res.Success)
		assert.Len(t, srv.Calls(), 1)
	})

	t.Run("failure empties records", func(t *testing.T) {
		svc, srv := newTestService(t, nil)
		srv.JSON(http.MethodGet, "/api/attendance", 500, map[string]string{"detail": "boom"})
		svc.Store().SetAttendanceRecords([]attendance.Record{{RollNo: "old"}})

		m, err := svc.Open(context.Background(), OpViewAttendance, Form{"roll_no": "21BCE7"})
		require.NoError(t, err)
		assert.Equal(t, attendanceFailedMsg, m.Notice)
		assert.Empty(t, svc.Store().AttendanceRecords())
		assert.False(t, svc.Store().Loading().Attendance)
	})
}

func TestService_AddStudentCredentials(t *testing.T) {
	form := Form{"roll_no": "21BCE7", "name": "Ravi", "email": "ravi@x.com"}
	reply := func(sent bool) map[string]interface{} {
		return map[string]interface{}{
			"message": "Student created", "rollNo": "21BCE7", "email": "ravi@x.com",
			"defaultPassword": "Welcome@123", "emailSent": sent,
		}
	}

	tests := []struct {
		name      string
		mail      *mailbox
		emailSent bool
		wantNote  string
		wantMails int
	}{
		{name: "server emailed", mail: &mailbox{}, emailSent: true, wantNote: NoteEmailedByServer},
		{name: "we email", mail: &mailbox{}, wantNote: NoteEmailed, wantMails: 1},
		{name: "withheld", wantNote: NoteWithheld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mail core.EmailService
			if tt.mail != nil {
				mail = tt.mail
			}
			svc, srv := newTestService(t, mail)
			serveDashboard(srv)
			srv.JSON(http.MethodPost, "/api/admin/students", 200, reply(tt.emailSent))

			m, err := svc.Open(context.Background(), OpAddStudent, form)
			require.NoError(t, err)
			res := svc.Submit(context.Background(), m)
			require.True(t, res.Success, res.Message)
			assert.Equal(t, []string{tt.wantNote}, res.Notes)
			for _, note := range append(res.Notes, res.Message) {
				assert.False(t, strings.Contains(note, "Welcome@123"), "password must never be displayed")
			}

			if tt.mail != nil {
				require.Len(t, tt.mail.sent, tt.wantMails)
				if tt.wantMails > 0 {
					msg := tt.mail.sent[0]
					assert.Equal(t, "ravi@x.com", msg.To[0].Address)
					assert.Contains(t, msg.TextContent, "Welcome@123")
					assert.Contains(t, msg.HTMLContent, "21BCE7")
				}
			}
		})
	}
}

func TestService_FetchLeaves(t *testing.T) {
	svc, srv := newTestService(t, nil)
	srv.JSON(http.MethodGet, "/api/admin/leaves", 200, map[string]interface{}{
		"count": 1, "leaves": []map[string]string{{"_id": "l1", "date": "2024-03-04", "status": "pending"}},
	})

	leaves, err := svc.FetchLeaves(context.Background(), "pending")
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
	assert.Equal(t, "/api/admin/leaves?status=pending", srv.Calls()[0].Path)

	_, err = svc.FetchLeaves(context.Background(), "later")
	assert.True(t, core.IsValidation(err))
	assert.Len(t, srv.Calls(), 1)
}

func TestStore_ClearAdminData(t *testing.T) {
	s := NewStore()
	s.SetBuses([]bus.Bus{{Number: "AP-1", CurrentLocation: &bus.Location{Lat: 1, Long: 2}}})
	s.SetStats(bus.Stats{TotalBuses: 1})
	s.SetAttendanceRecords([]attendance.Record{{RollNo: "x"}})
	s.setSubmitting(true)
	assert.Equal(t, 1.0, s.MapCenter().Lat)

	s.ClearAdminData()

	assert.Empty(t, s.Buses())
	assert.Equal(t, bus.Stats{}, s.Stats())
	assert.Empty(t, s.AttendanceRecords())
	assert.Equal(t, Loading{}, s.Loading())
	assert.Equal(t, bus.DefaultMapCenter, s.MapCenter())
}
