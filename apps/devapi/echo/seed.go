package echoapi

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
)

// Demo accounts created by Seed; they all share the seed password.
const (
	DemoAdminEmail   = "admin@tripsync.dev"
	DemoDriverEmail  = "driver@tripsync.dev"
	DemoStudentEmail = "student@tripsync.dev"
	DemoParentEmail  = "parent@tripsync.dev"
	DemoRollNo       = "21BCE7001"
	DemoBusNumber    = "AP-39-TS-1001"
	DemoRoute        = "Campus - City Center"
)

func coord(f float64) *float64 { return &f }

// Seed fills db with a small demo campus: one route, one bus and an account per role.
func Seed(db *DB, password string) error {
	err := db.saveRoute(bus.Route{
		Name: DemoRoute,
		Stops: []bus.Stop{
			{Name: "Main Gate", Lat: coord(16.4963), Long: coord(80.4994)},
			{Name: "Bus Stand", Lat: coord(16.5062), Long: coord(80.6480)},
			{Name: "Benz Circle", Lat: coord(16.4995), Long: coord(80.6560)},
			{Name: "City Center"},
		},
		CoverageAreas: []string{"Main Gate", "Bus Stand", "Benz Circle", "City Center"},
	}, true)
	if err != nil {
		return errors.Wrap(err, "seeding route")
	}

	accounts := []account{
		{Name: "Admin", Email: DemoAdminEmail, Role: RoleAdmin},
		{Name: "Ramu", Email: DemoDriverEmail, Phone: "+919000000001", Role: RoleDriver},
		{
			Name:          "Ravi Kumar",
			Email:         DemoStudentEmail,
			Role:          RoleStudent,
			RollNo:        DemoRollNo,
			Route:         DemoRoute,
			BoardingPoint: "Benz Circle",
			AssignedBus:   DemoBusNumber,
		},
		{Name: "Lakshmi", Email: DemoParentEmail, Phone: "+919000000002", Role: RoleParent, Child: DemoRollNo},
	}
	var driverID string
	for _, acc := range accounts {
		created, err := db.createAccount(acc, password)
		if err != nil {
			return errors.Wrapf(err, "seeding %s", acc.Role)
		}
		if created.Role == RoleDriver {
			driverID = created.ID
		}
	}

	if _, err := db.createBus(bus.Bus{Number: DemoBusNumber, Route: DemoRoute, DriverID: driverID, Status: "idle"}); err != nil {
		return errors.Wrap(err, "seeding bus")
	}

	day := time.Now().AddDate(0, 0, -5)
	for i := 0; i < 5; i++ {
		status := attendance.StatusBoarded
		if i == 2 {
			status = "Absent"
		}
		db.addRecord(attendance.Record{
			Name:      "Ravi Kumar",
			RollNo:    DemoRollNo,
			Route:     DemoRoute,
			Boarding:  "Benz Circle",
			BusNumber: DemoBusNumber,
			Date:      day.Format("2006-01-02"),
			Time:      "07:45",
			Status:    status,
			Timestamp: core.NewTimestamp(day),
		})
		day = day.AddDate(0, 0, 1)
	}
	return nil
}
