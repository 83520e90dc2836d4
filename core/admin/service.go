package admin

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/driver"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
	apisvc "github.com/trezcool/tripsync/services/api"
)

// Dashboard collections.
const (
	CollectionBuses      = "buses"
	CollectionDrivers    = "drivers"
	CollectionStudents   = "students"
	CollectionParents    = "parents"
	CollectionRoutes     = "routes"
	CollectionStats      = "statistics"
	CollectionComplaints = "complaints"
)

const attendanceFailedMsg = "Failed to load attendance history"

// Service runs the admin dashboard: its fetches and the operation table.
type Service struct {
	api    core.API
	store  *Store
	logger core.Logger
	mail   core.EmailService // optional
}

func NewService(api core.API, s *Store, logger core.Logger, mail core.EmailService) *Service {
	return &Service{api: api, store: s, logger: logger, mail: mail}
}

func (svc *Service) Store() *Store { return svc.store }

// Report lists the collections that failed to load; they were reset to their empty value.
type Report struct {
	Errors map[string]error
}

func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Failed returns the names of the failed collections, sorted.
func (r *Report) Failed() []string {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Report) String() string {
	if r.OK() {
		return "dashboard loaded"
	}
	return "failed to load: " + strings.Join(r.Failed(), ", ")
}

// FetchDashboard loads the 7 dashboard collections concurrently.
// A failing collection resolves to its empty value; the others keep their payloads.
func (svc *Service) FetchDashboard(ctx context.Context) *Report {
	svc.store.setLoading(true)
	defer svc.store.setLoading(false)

	report := &Report{Errors: make(map[string]error)}
	var mu sync.Mutex
	fetch := func(name string, fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(ctx); err != nil {
				svc.logger.Warn("admin: fetching "+name, err)
				mu.Lock()
				report.Errors[name] = err
				mu.Unlock()
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(fetch(CollectionBuses, svc.FetchBuses))
	g.Go(fetch(CollectionDrivers, svc.FetchDrivers))
	g.Go(fetch(CollectionStudents, svc.FetchStudents))
	g.Go(fetch(CollectionParents, svc.FetchParents))
	g.Go(fetch(CollectionRoutes, svc.FetchRoutes))
	g.Go(fetch(CollectionStats, svc.FetchStats))
	g.Go(fetch(CollectionComplaints, svc.FetchComplaints))
	_ = g.Wait()
	return report
}

// fetchList GETs path and replaces s with the list found under key (empty on failure).
func fetchList[E any](ctx context.Context, api core.API, s *store.Slice[[]E], path, key string) error {
	_, err := store.FetchOr(s, emptyOf[E], func() ([]E, error) {
		var resp map[string]json.RawMessage
		if err := api.Get(ctx, path, &resp); err != nil {
			return nil, err
		}
		items := make([]E, 0)
		if raw, ok := resp[key]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
		}
		if items == nil {
			items = make([]E, 0)
		}
		return items, nil
	})
	return err
}

// FetchBuses is also the path re-run by the live map poller.
func (svc *Service) FetchBuses(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.buses, "/api/admin/buses", "buses")
}

func (svc *Service) FetchDrivers(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.drivers, "/api/drivers/list", "drivers")
}

// FetchStudents loads all students; boarding and boardingPoint are normalised on decode.
func (svc *Service) FetchStudents(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.students, "/api/admin/students", "students")
}

func (svc *Service) FetchParents(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.parents, "/api/admin/parents", "parents")
}

func (svc *Service) FetchRoutes(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.routes, "/api/admin/routes", "routes")
}

func (svc *Service) FetchComplaints(ctx context.Context) error {
	return fetchList(ctx, svc.api, svc.store.complaints, "/api/messages/admin/complaints", "complaints")
}

func (svc *Service) FetchStats(ctx context.Context) error {
	_, err := store.FetchOr(svc.store.stats, func() bus.Stats { return bus.Stats{} }, func() (bus.Stats, error) {
		var resp struct {
			Statistics bus.Stats `json:"statistics"`
		}
		err := svc.api.Get(ctx, "/api/admin/dashboard", &resp)
		return resp.Statistics, err
	})
	return err
}

// FetchLeaves loads the drivers' leave requests, optionally filtered by status.
func (svc *Service) FetchLeaves(ctx context.Context, status string) ([]messaging.Leave, error) {
	status = core.CleanString(status)
	if status != "" {
		if err := core.Validate.Var(status, "leave_status"); err != nil {
			return nil, err
		}
	}
	path := apisvc.PathWithQuery("/api/admin/leaves", url.Values{"status": {status}})
	if err := fetchList(ctx, svc.api, svc.store.leaves, path, "leaves"); err != nil {
		return nil, err
	}
	return svc.store.Leaves(), nil
}

// FetchAttendanceHistory loads a student's attendance records.
// On failure the records are emptied and the returned notice is set.
func (svc *Service) FetchAttendanceHistory(ctx context.Context, rollNo string) (records []attendance.Record, notice string) {
	path := apisvc.PathWithQuery("/api/attendance", url.Values{"roll_no": {core.CleanString(rollNo)}})
	if err := fetchList(ctx, svc.api, svc.store.attendanceRecords, path, "records"); err != nil {
		svc.logger.Warn("admin: fetching attendance of "+rollNo, err)
		return svc.store.AttendanceRecords(), attendanceFailedMsg
	}
	return svc.store.AttendanceRecords(), ""
}

// FindStudent returns the loaded student with rollNo.
func (svc *Service) FindStudent(rollNo string) (student.Profile, bool) {
	for _, s := range svc.store.Students() {
		if s.RollNo == rollNo {
			return s, true
		}
	}
	return student.Profile{}, false
}

// FindDriver returns the loaded driver with id.
func (svc *Service) FindDriver(id string) (driver.Summary, bool) {
	for _, d := range svc.store.Drivers() {
		if d.ID == id {
			return d, true
		}
	}
	return driver.Summary{}, false
}

func (svc *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return session.ChangePassword(ctx, svc.api, oldPassword, newPassword)
}
