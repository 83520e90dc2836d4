package admin

import (
	"sync"

	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/driver"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
)

type Loading struct {
	Dashboard  bool
	Submitting bool
	Attendance bool
}

// Store holds the admin dashboard state.
type Store struct {
	buses             *store.Slice[[]bus.Bus]
	drivers           *store.Slice[[]driver.Summary]
	students          *store.Slice[[]student.Profile]
	parents           *store.Slice[[]ParentSummary]
	routes            *store.Slice[[]bus.Route]
	stats             *store.Slice[bus.Stats]
	complaints        *store.Slice[[]messaging.Complaint]
	leaves            *store.Slice[[]messaging.Leave]
	attendanceRecords *store.Slice[[]attendance.Record]

	mu         sync.RWMutex
	loading    bool
	submitting bool
}

func emptyOf[E any]() []E { return []E{} }

func NewStore() *Store {
	return &Store{
		buses:             store.NewSlice(emptyOf[bus.Bus]),
		drivers:           store.NewSlice(emptyOf[driver.Summary]),
		students:          store.NewSlice(emptyOf[student.Profile]),
		parents:           store.NewSlice(emptyOf[ParentSummary]),
		routes:            store.NewSlice(emptyOf[bus.Route]),
		stats:             store.NewSlice[bus.Stats](nil),
		complaints:        store.NewSlice(emptyOf[messaging.Complaint]),
		leaves:            store.NewSlice(emptyOf[messaging.Leave]),
		attendanceRecords: store.NewSlice(emptyOf[attendance.Record]),
	}
}

func (s *Store) Buses() []bus.Bus                       { return store.CopyOf(s.buses.Get()) }
func (s *Store) Drivers() []driver.Summary              { return store.CopyOf(s.drivers.Get()) }
func (s *Store) Students() []student.Profile            { return store.CopyOf(s.students.Get()) }
func (s *Store) Parents() []ParentSummary               { return store.CopyOf(s.parents.Get()) }
func (s *Store) Routes() []bus.Route                    { return store.CopyOf(s.routes.Get()) }
func (s *Store) Stats() bus.Stats                       { return s.stats.Get() }
func (s *Store) Complaints() []messaging.Complaint      { return store.CopyOf(s.complaints.Get()) }
func (s *Store) Leaves() []messaging.Leave              { return store.CopyOf(s.leaves.Get()) }
func (s *Store) AttendanceRecords() []attendance.Record { return store.CopyOf(s.attendanceRecords.Get()) }

func (s *Store) SetBuses(v []bus.Bus)                       { s.buses.Set(store.CopyOf(v)) }
func (s *Store) SetDrivers(v []driver.Summary)              { s.drivers.Set(store.CopyOf(v)) }
func (s *Store) SetStudents(v []student.Profile)            { s.students.Set(store.CopyOf(v)) }
func (s *Store) SetParents(v []ParentSummary)               { s.parents.Set(store.CopyOf(v)) }
func (s *Store) SetRoutes(v []bus.Route)                    { s.routes.Set(store.CopyOf(v)) }
func (s *Store) SetStats(v bus.Stats)                       { s.stats.Set(v) }
func (s *Store) SetComplaints(v []messaging.Complaint)      { s.complaints.Set(store.CopyOf(v)) }
func (s *Store) SetLeaves(v []messaging.Leave)              { s.leaves.Set(store.CopyOf(v)) }
func (s *Store) SetAttendanceRecords(v []attendance.Record) { s.attendanceRecords.Set(store.CopyOf(v)) }

// MapCenter is where the live map is centred: the first bus with a usable location.
func (s *Store) MapCenter() bus.Location { return bus.MapCenter(s.buses.Get()) }

func (s *Store) Loading() Loading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Loading{
		Dashboard:  s.loading,
		Submitting: s.submitting,
		Attendance: s.attendanceRecords.Loading(),
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) setSubmitting(v bool) {
	s.mu.Lock()
	s.submitting = v
	s.mu.Unlock()
}

func (s *Store) ClearAdminData() {
	s.buses.Reset()
	s.drivers.Reset()
	s.students.Reset()
	s.parents.Reset()
	s.routes.Reset()
	s.stats.Reset()
	s.complaints.Reset()
	s.leaves.Reset()
	s.attendanceRecords.Reset()

	s.mu.Lock()
	s.loading = false
	s.submitting = false
	s.mu.Unlock()
}
