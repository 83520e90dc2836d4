package student

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/internal/apitest"
	logsvc "github.com/trezcool/tripsync/services/logger"
)

func newTestService(t *testing.T) (*Service, *apitest.Server) {
	srv := apitest.NewServer(t)
	return NewService(srv.Client("tok"), NewStore(), logsvc.NewDiscardLogger()), srv
}

func TestProfile_BoardingAliases(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{name: "boarding", json: `{"roll_no": "1", "boarding": " Benz Circle "}`, want: "Benz Circle"},
		{name: "boardingPoint", json: `{"roll_no": "1", "boardingPoint": "Gate"}`, want: "Gate"},
		{name: "both prefers boardingPoint", json: `{"boarding": "Old", "boardingPoint": "New"}`, want: "New"},
		{name: "null boarding", json: `{"boarding": null}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Profile
			require.NoError(t, json.Unmarshal([]byte(tt.json), &p))
			assert.Equal(t, tt.want, p.BoardingPoint)
		})
	}
}

func TestStore_SetIsIdempotent(t *testing.T) {
	s := NewStore()
	cs := []messaging.Complaint{{ID: "1"}, {ID: "2"}}
	s.SetComplaints(cs)
	first := s.Complaints()
	s.SetComplaints(cs)
	assert.Equal(t, first, s.Complaints())
	assert.Len(t, s.Complaints(), 2)

	s.AddComplaint(messaging.Complaint{ID: "3"})
	got := s.Complaints()
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].ID)
	s.AddComplaint(messaging.Complaint{ID: "4"})
	assert.Len(t, s.Complaints(), 4)
}

func TestStore_GettersReturnCopies(t *testing.T) {
	s := NewStore()
	s.SetComplaints([]messaging.Complaint{{ID: "1"}})
	got := s.Complaints()
	got[0].ID = "mutated"
	assert.Equal(t, "1", s.Complaints()[0].ID)

	s.SetProfile(&Profile{Name: "Ravi"})
	p := s.Profile()
	p.Name = "mutated"
	assert.Equal(t, "Ravi", s.Profile().Name)

	lat := 16.5
	s.SetBus(&bus.Bus{
		Number:          "AP-1",
		Driver:          &bus.DriverInfo{Name: "Ramu"},
		CurrentLocation: &bus.Location{Lat: 16.5, Long: 80.6},
		CoveragePoints:  []bus.CoveragePoint{{Name: "Gate", Lat: &lat}},
	})
	b := s.Bus()
	b.Driver.Name = "mutated"
	b.CurrentLocation.Lat = 99
	b.CoveragePoints[0].Name = "mutated"
	*b.CoveragePoints[0].Lat = 99
	stored := s.Bus()
	assert.Equal(t, "Ramu", stored.Driver.Name)
	assert.Equal(t, 16.5, stored.CurrentLocation.Lat)
	assert.Equal(t, "Gate", stored.CoveragePoints[0].Name)
	assert.Equal(t, 16.5, *stored.CoveragePoints[0].Lat)

	s.SetRoute(&bus.Route{Name: "R1", Stops: []bus.Stop{{Name: "Gate"}}, CoverageAreas: []string{"Benz Circle"}})
	r := s.Route()
	r.Stops[0].Name = "mutated"
	r.CoverageAreas[0] = "mutated"
	assert.Equal(t, "Gate", s.Route().Stops[0].Name)
	assert.Equal(t, "Benz Circle", s.Route().CoverageAreas[0])

	s.SetAttendance(&attendance.Summary{History: []attendance.Record{{Date: "2024-01-01", Location: &bus.Location{Lat: 1}}}})
	a := s.Attendance()
	a.History[0].Date = "mutated"
	a.History[0].Location.Lat = 99
	assert.Equal(t, "2024-01-01", s.Attendance().History[0].Date)
	assert.Equal(t, 1.0, s.Attendance().History[0].Location.Lat)
}

func TestDetails_Clone(t *testing.T) {
	d := &Details{
		Student: &Profile{Name: "Ravi"},
		Route:   &bus.Route{Stops: []bus.Stop{{Name: "Gate"}}},
		Bus:     &bus.Bus{CurrentLocation: &bus.Location{Lat: 16.5}},
		Driver:  &bus.DriverInfo{Name: "Ramu"},
	}
	cp := d.Clone()
	cp.Student.Name = "mutated"
	cp.Route.Stops[0].Name = "mutated"
	cp.Bus.CurrentLocation.Lat = 99
	cp.Driver.Name = "mutated"

	assert.Equal(t, "Ravi", d.Student.Name)
	assert.Equal(t, "Gate", d.Route.Stops[0].Name)
	assert.Equal(t, 16.5, d.Bus.CurrentLocation.Lat)
	assert.Equal(t, "Ramu", d.Driver.Name)
	assert.Nil(t, (*Details)(nil).Clone())
}

func TestStore_ClearStudentData(t *testing.T) {
	s := NewStore()
	s.SetProfile(&Profile{Name: "Ravi"})
	s.SetBus(&bus.Bus{Number: "AP-1"})
	s.SetRoute(&bus.Route{Name: "R1"})
	s.SetDriver(&bus.DriverInfo{Name: "Kumar"})
	s.AddComplaint(messaging.Complaint{ID: "1"})
	s.SetMessages([]messaging.Message{{Content: "hi"}})
	s.AddBusChatMessage(messaging.Message{Content: "yo"})

	s.ClearStudentData()

	assert.Nil(t, s.Profile())
	assert.Nil(t, s.Bus())
	assert.Nil(t, s.Route())
	assert.Nil(t, s.Driver())
	assert.Nil(t, s.Attendance())
	assert.Empty(t, s.Complaints())
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.BusChatMessages())
	assert.Equal(t, Loading{}, s.Loading())
}

func TestService_FetchProfile(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodGet, "/api/students/me", 200, map[string]interface{}{
		"student": map[string]interface{}{"name": "Ravi", "roll_no": "21BCE7", "boarding": "Gate", "assignedBus": "AP-1"},
	})

	p, err := svc.FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Gate", p.BoardingPoint)
	assert.Equal(t, "21BCE7", svc.Store().Profile().RollNo)
	assert.Equal(t, "Bearer tok", srv.Calls()[0].Header.Get("Authorization"))
}

func TestService_FailedFetchKeepsLastGood(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodGet, "/api/students/me/bus", 200, map[string]interface{}{"bus": map[string]interface{}{"number": "AP-1"}})
	_, err := svc.FetchBus(context.Background())
	require.NoError(t, err)

	srv.JSON(http.MethodGet, "/api/students/me/bus", 500, map[string]string{"detail": "db down"})
	_, err = svc.FetchBus(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Equal(t, "AP-1", svc.Store().Bus().Number)
	assert.False(t, svc.Store().Loading().Bus)
}

func TestService_SubmitComplaint(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodPost, "/api/messages/student/complaint", 200, map[string]interface{}{
		"success":   true,
		"complaint": map[string]interface{}{"_id": "c9", "category": "lost_found", "description": "bag", "status": "pending"},
	})
	svc.Store().SetComplaints([]messaging.Complaint{{ID: "c1"}})

	c, err := svc.SubmitComplaint(context.Background(), messaging.NewComplaint{Category: "lost_found", Description: " bag "})
	require.NoError(t, err)
	assert.Equal(t, "c9", c.ID)

	var sent messaging.NewComplaint
	require.NoError(t, srv.CallsTo(http.MethodPost, "/api/messages/student/complaint")[0].Decode(&sent))
	assert.Equal(t, "bag", sent.Description)

	got := svc.Store().Complaints()
	require.Len(t, got, 2)
	assert.Equal(t, "c9", got[0].ID)
}

func TestService_SubmitComplaint_InvalidNoNetwork(t *testing.T) {
	svc, srv := newTestService(t)
	_, err := svc.SubmitComplaint(context.Background(), messaging.NewComplaint{Category: "gossip", Description: "x"})
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, srv.Calls())
	assert.Empty(t, svc.Store().Complaints())
}

func TestService_BusChat(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodGet, "/api/messages/student/bus-chat", 200, map[string]interface{}{
		"groupId": "bus_AP-1_students",
		"messages": []map[string]interface{}{
			{"content": "newest", "sender": map[string]string{"name": "B"}},
			{"content": "oldest", "sender": map[string]string{"name": "A"}},
		},
	})
	srv.JSON(http.MethodPost, "/api/messages/student/send-message", 200, map[string]interface{}{
		"success": true, "groupId": "bus_AP-1_students", "messageId": "m3",
	})
	svc.Store().SetProfile(&Profile{ID: "s1", Name: "Ravi", RollNo: "21BCE7", AssignedBus: "AP-1"})

	msgs, err := svc.FetchBusChat(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "oldest", msgs[0].Content)
	assert.Equal(t, "/api/messages/student/bus-chat?limit=50&skip=0", srv.Calls()[0].Path)

	_, err = svc.SendBusMessage(context.Background(), "  hello  ")
	require.NoError(t, err)
	chat := svc.Store().BusChatMessages()
	require.Len(t, chat, 3)
	assert.Equal(t, "hello", chat[2].Content)
	assert.Equal(t, "Ravi", chat[2].Sender.Name)

	_, err = svc.SendBusMessage(context.Background(), "   ")
	assert.True(t, core.IsValidation(err))
	assert.Len(t, svc.Store().BusChatMessages(), 3)
}

func TestService_Locate(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Locate()
	assert.Error(t, err)

	svc.Store().SetBus(&bus.Bus{Number: "AP-1", CurrentStopIndex: 1})
	svc.Store().SetRoute(&bus.Route{Name: "R1", CoverageAreas: []string{"A", "B", "C"}})
	b, points, err := svc.Locate()
	require.NoError(t, err)
	assert.Equal(t, "AP-1", b.Number)
	require.Len(t, points, 3)
	assert.Equal(t, bus.PointCurrent, points[1].Status)
}
