package bus

import (
	"bytes"
	"encoding/json"

	"github.com/trezcool/tripsync/core"
)

// Coverage point statuses relative to the bus' current stop.
const (
	PointPassed   = "passed"
	PointCurrent  = "current"
	PointUpcoming = "upcoming"
)

type Location struct {
	Lat       float64        `json:"lat"`
	Long      float64        `json:"long"`
	Timestamp core.Timestamp `json:"timestamp"`
}

// Valid reports whether the location carries usable (non-zero) coordinates.
func (l *Location) Valid() bool {
	return l != nil && l.Lat != 0 && l.Long != 0
}

func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// CoveragePoint is a named stop along a bus route.
type CoveragePoint struct {
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Long   *float64 `json:"long"`
	Order  int      `json:"order"`
	Status string   `json:"status,omitempty"`
}

type DriverInfo struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (d *DriverInfo) Clone() *DriverInfo {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

type Bus struct {
	Number           string          `json:"number"`
	Route            string          `json:"route,omitempty"`
	DriverID         string          `json:"driverId,omitempty"`
	Driver           *DriverInfo     `json:"driver,omitempty"`
	StudentCount     int             `json:"studentCount,omitempty"`
	Status           string          `json:"status,omitempty"`
	CurrentLocation  *Location       `json:"currentLocation,omitempty"`
	CurrentStopIndex int             `json:"currentStopIndex"`
	CoveragePoints   []CoveragePoint `json:"coveragePoints"`
}

// Clone returns a deep copy of b, or nil.
func (b *Bus) Clone() *Bus {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Driver = b.Driver.Clone()
	cp.CurrentLocation = b.CurrentLocation.Clone()
	if b.CoveragePoints != nil {
		cp.CoveragePoints = make([]CoveragePoint, len(b.CoveragePoints))
		for i, p := range b.CoveragePoints {
			p.Lat, p.Long = cloneFloat(p.Lat), cloneFloat(p.Long)
			cp.CoveragePoints[i] = p
		}
	}
	return &cp
}

// Stop is a route stop. The API sends either a bare name or {name, lat, long};
// both decode into this single shape.
type Stop struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Long *float64 `json:"long,omitempty"`
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = Stop{Name: core.CleanString(name)}
		return nil
	}
	type plain Stop
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Stop(p)
	s.Name = core.CleanString(s.Name)
	return nil
}

// HasCoordinates reports whether the stop can be placed on a map.
func (s Stop) HasCoordinates() bool {
	return s.Lat != nil && s.Long != nil
}

type Route struct {
	Name          string   `json:"name"`
	Stops         []Stop   `json:"stops"`
	CoverageAreas []string `json:"coverageAreas"`
	BusCount      int      `json:"busCount,omitempty"`
}

// Clone returns a deep copy of r, or nil.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Stops != nil {
		cp.Stops = make([]Stop, len(r.Stops))
		for i, s := range r.Stops {
			s.Lat, s.Long = cloneFloat(s.Lat), cloneFloat(s.Long)
			cp.Stops[i] = s
		}
	}
	if r.CoverageAreas != nil {
		cp.CoverageAreas = append([]string{}, r.CoverageAreas...)
	}
	return &cp
}

// StopNames returns the names of the route's stops, in order.
func (r Route) StopNames() []string {
	names := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		names = append(names, s.Name)
	}
	return names
}

// Stats is the admin dashboard's aggregate statistics.
type Stats struct {
	TotalBuses        int `json:"totalBuses"`
	TotalStudents     int `json:"totalStudents"`
	TotalDrivers      int `json:"totalDrivers"`
	TotalRoutes       int `json:"totalRoutes"`
	RunningBuses      int `json:"runningBuses"`
	PendingLeaves     int `json:"pendingLeaves"`
	PendingComplaints int `json:"pendingComplaints"`
}

// LocationUpdate is the body of POST /api/buses/location.
type LocationUpdate struct {
	BusNumber string  `json:"busNumber" validate:"required"`
	Lat       float64 `json:"lat" validate:"min=-90,max=90"`
	Long      float64 `json:"long" validate:"min=-180,max=180"`
}

func (lu LocationUpdate) Validate() error { return core.Validate.Struct(lu) }
