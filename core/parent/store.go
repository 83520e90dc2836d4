package parent

import (
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
)

type Loading struct {
	Profile    bool
	Child      bool
	Attendance bool
	Bus        bool
}

// Store holds the data fetched for the logged in parent and their child.
type Store struct {
	profile         *store.Slice[*Profile]
	childProfile    *store.Slice[*student.Details]
	childAttendance *store.Slice[*attendance.RangeSummary]
	childBus        *store.Slice[*bus.Bus]
	routes          *store.Slice[[]bus.Route]
	messages        *store.Slice[[]messaging.Message]
}

func NewStore() *Store {
	return &Store{
		profile:         store.NewSlice[*Profile](nil),
		childProfile:    store.NewSlice[*student.Details](nil),
		childAttendance: store.NewSlice[*attendance.RangeSummary](nil),
		childBus:        store.NewSlice[*bus.Bus](nil),
		routes:          store.NewSlice(func() []bus.Route { return []bus.Route{} }),
		messages:        store.NewSlice(func() []messaging.Message { return []messaging.Message{} }),
	}
}

func (s *Store) Profile() *Profile                         { return store.Clone(s.profile.Get()) }
func (s *Store) ChildProfile() *student.Details            { return store.Clone(s.childProfile.Get()) }
func (s *Store) ChildAttendance() *attendance.RangeSummary { return store.Clone(s.childAttendance.Get()) }
func (s *Store) ChildBus() *bus.Bus                        { return store.Clone(s.childBus.Get()) }
func (s *Store) Routes() []bus.Route                       { return store.CopyOf(s.routes.Get()) }
func (s *Store) Messages() []messaging.Message             { return store.CopyOf(s.messages.Get()) }

func (s *Store) SetProfile(p *Profile)                         { s.profile.Set(store.Clone(p)) }
func (s *Store) SetChildProfile(d *student.Details)            { s.childProfile.Set(store.Clone(d)) }
func (s *Store) SetChildAttendance(a *attendance.RangeSummary) { s.childAttendance.Set(store.Clone(a)) }
func (s *Store) SetChildBus(b *bus.Bus)                        { s.childBus.Set(store.Clone(b)) }
func (s *Store) SetRoutes(rs []bus.Route)                      { s.routes.Set(store.CopyOf(rs)) }
func (s *Store) SetMessages(ms []messaging.Message)            { s.messages.Set(store.CopyOf(ms)) }

func (s *Store) Loading() Loading {
	return Loading{
		Profile:    s.profile.Loading(),
		Child:      s.childProfile.Loading(),
		Attendance: s.childAttendance.Loading(),
		Bus:        s.childBus.Loading(),
	}
}

func (s *Store) ClearParentData() {
	s.profile.Reset()
	s.childProfile.Reset()
	s.childAttendance.Reset()
	s.childBus.Reset()
	s.routes.Reset()
	s.messages.Reset()
}
