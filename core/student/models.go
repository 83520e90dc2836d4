package student

import (
	"encoding/json"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
)

// Profile is a student as returned by the API. The API names the boarding point either
// `boarding` or `boardingPoint`; both decode into BoardingPoint.
type Profile struct {
	ID            string `json:"_id,omitempty"`
	RollNo        string `json:"roll_no"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role,omitempty"`
	Route         string `json:"route"`
	BoardingPoint string `json:"boardingPoint"`
	AssignedBus   string `json:"assignedBus"`
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var raw struct {
		plain
		Boarding *string `json:"boarding"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Profile(raw.plain)
	if p.BoardingPoint == "" && raw.Boarding != nil {
		p.BoardingPoint = *raw.Boarding
	}
	p.BoardingPoint = core.CleanString(p.BoardingPoint)
	return nil
}

// Details is the complete profile of a student (GET /api/students/profile).
type Details struct {
	Student    *Profile           `json:"student"`
	Route      *bus.Route         `json:"route"`
	Bus        *bus.Bus           `json:"bus"`
	Driver     *bus.DriverInfo    `json:"driver"`
	Attendance attendance.Summary `json:"attendance"`
}

// Clone returns a deep copy of d, or nil.
func (d *Details) Clone() *Details {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Student != nil {
		p := *d.Student
		cp.Student = &p
	}
	cp.Route = d.Route.Clone()
	cp.Bus = d.Bus.Clone()
	cp.Driver = d.Driver.Clone()
	cp.Attendance = *d.Attendance.Clone()
	return &cp
}
