package parent

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/student"
	"github.com/trezcool/tripsync/internal/apitest"
	logsvc "github.com/trezcool/tripsync/services/logger"
)

func newTestService(t *testing.T) (*Service, *apitest.Server) {
	srv := apitest.NewServer(t)
	return NewService(srv.Client("tok"), NewStore(), logsvc.NewDiscardLogger()), srv
}

func TestService_FetchProfile(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{name: "parent key", body: map[string]interface{}{"parent": map[string]string{"name": "Lakshmi", "child": "Ravi"}}, want: "Lakshmi"},
		{name: "student key wins", body: map[string]interface{}{
			"student": map[string]string{"name": "S"}, "parent": map[string]string{"name": "P"},
		}, want: "S"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, srv := newTestService(t)
			srv.JSON(http.MethodGet, "/api/students/me", 200, tt.body)
			p, err := svc.FetchProfile(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestService_ChildRequiresRollNo(t *testing.T) {
	svc, srv := newTestService(t)
	_, err := svc.FetchChild(context.Background(), "")
	assert.True(t, core.IsValidation(err))
	_, err = svc.FetchChildAttendance(context.Background(), "", "", "")
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, srv.Calls())
}

func TestService_FetchChildAndAttendance(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodGet, "/api/students/profile", 200, map[string]interface{}{
		"student":    map[string]string{"name": "Ravi", "roll_no": "21BCE7", "assignedBus": "AP-1", "boarding": "Gate"},
		"attendance": map[string]interface{}{"total_days": 2, "present_days": 1, "attendance_percentage": 50.0, "history": []interface{}{}},
	})
	srv.JSON(http.MethodGet, "/api/students/21BCE7/attendance-summary", 200, attendance.SummarizeRange("21BCE7", "2024-01-01", "", []attendance.Record{
		{Date: "2024-01-02", Status: attendance.StatusBoarded},
	}))
	ctx := context.Background()
	svc.Store().SetProfile(&Profile{Name: "Lakshmi", ChildRollNo: "21BCE7"})

	d, err := svc.FetchChild(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Gate", d.Student.BoardingPoint)
	assert.Equal(t, 50.0, d.Attendance.Percentage)
	assert.Equal(t, "/api/students/profile?roll_no=21BCE7", srv.Calls()[0].Path)

	rs, err := svc.FetchChildAttendance(ctx, "", "2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Summary.PresentCount)
	assert.Equal(t, "/api/students/21BCE7/attendance-summary?from_date=2024-01-01", srv.Calls()[1].Path)

	_, err = svc.FetchChildAttendance(ctx, "", "01-01-2024", "")
	assert.True(t, core.IsValidation(err))
	assert.Len(t, srv.Calls(), 2)
}

func TestService_FetchChildBus(t *testing.T) {
	svc, srv := newTestService(t)
	srv.JSON(http.MethodGet, "/api/buses", 200, []map[string]interface{}{
		{"number": "AP-1", "currentLocation": map[string]float64{"lat": 16.5, "long": 80.6}},
		{"number": "AP-2"},
	})
	svc.Store().SetChildProfile(&student.Details{Student: &student.Profile{AssignedBus: "AP-1"}})

	b, err := svc.FetchChildBus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "AP-1", b.Number)
	assert.True(t, svc.Store().ChildBus().CurrentLocation.Valid())

	b, err = svc.FetchChildBus(context.Background(), "AP-9")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Nil(t, svc.Store().ChildBus())
}

func TestStore_ClearParentData(t *testing.T) {
	s := NewStore()
	s.SetProfile(&Profile{Name: "Lakshmi"})
	s.SetChildProfile(&student.Details{})
	s.SetChildAttendance(&attendance.RangeSummary{})
	s.SetChildBus(&bus.Bus{Number: "AP-1"})
	s.SetRoutes([]bus.Route{{Name: "R1"}})
	s.SetMessages([]messaging.Message{{Content: "hi"}})

	s.ClearParentData()

	assert.Nil(t, s.Profile())
	assert.Nil(t, s.ChildProfile())
	assert.Nil(t, s.ChildAttendance())
	assert.Nil(t, s.ChildBus())
	assert.Empty(t, s.Routes())
	assert.Empty(t, s.Messages())
	assert.Equal(t, Loading{}, s.Loading())
}
