package driver

import (
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/store"
	"github.com/trezcool/tripsync/core/student"
)

type Loading struct {
	Profile  bool
	Students bool
	Leaves   bool
	Schedule bool
}

// Store holds the data fetched for the logged in driver.
type Store struct {
	profile       *store.Slice[*Profile]
	bus           *store.Slice[*bus.Bus]
	route         *store.Slice[*bus.Route]
	students      *store.Slice[[]student.Profile]
	leaves        *store.Slice[[]messaging.Leave]
	schedule      *store.Slice[*Schedule]
	messageGroups *store.Slice[[]messaging.Group]
}

func NewStore() *Store {
	return &Store{
		profile:       store.NewSlice[*Profile](nil),
		bus:           store.NewSlice[*bus.Bus](nil),
		route:         store.NewSlice[*bus.Route](nil),
		students:      store.NewSlice(func() []student.Profile { return []student.Profile{} }),
		leaves:        store.NewSlice(func() []messaging.Leave { return []messaging.Leave{} }),
		schedule:      store.NewSlice[*Schedule](nil),
		messageGroups: store.NewSlice(func() []messaging.Group { return []messaging.Group{} }),
	}
}

func (s *Store) Profile() *Profile                { return store.Clone(s.profile.Get()) }
func (s *Store) Bus() *bus.Bus                    { return store.Clone(s.bus.Get()) }
func (s *Store) Route() *bus.Route                { return store.Clone(s.route.Get()) }
func (s *Store) Students() []student.Profile      { return store.CopyOf(s.students.Get()) }
func (s *Store) Leaves() []messaging.Leave        { return store.CopyOf(s.leaves.Get()) }
func (s *Store) Schedule() *Schedule              { return store.Clone(s.schedule.Get()) }
func (s *Store) MessageGroups() []messaging.Group { return store.CopyOf(s.messageGroups.Get()) }

func (s *Store) SetProfile(p *Profile)                 { s.profile.Set(store.Clone(p)) }
func (s *Store) SetBus(b *bus.Bus)                     { s.bus.Set(store.Clone(b)) }
func (s *Store) SetRoute(r *bus.Route)                 { s.route.Set(store.Clone(r)) }
func (s *Store) SetStudents(ps []student.Profile)      { s.students.Set(store.CopyOf(ps)) }
func (s *Store) SetLeaves(ls []messaging.Leave)        { s.leaves.Set(store.CopyOf(ls)) }
func (s *Store) SetSchedule(sc *Schedule)              { s.schedule.Set(store.Clone(sc)) }
func (s *Store) SetMessageGroups(gs []messaging.Group) { s.messageGroups.Set(store.CopyOf(gs)) }

// AddLeave prepends l to the leaves.
func (s *Store) AddLeave(l messaging.Leave) {
	s.leaves.Update(func(ls []messaging.Leave) []messaging.Leave {
		return append([]messaging.Leave{l}, ls...)
	})
}

// RemoveLeave drops the leave with the given id.
func (s *Store) RemoveLeave(id string) {
	s.leaves.Update(func(ls []messaging.Leave) []messaging.Leave {
		kept := make([]messaging.Leave, 0, len(ls))
		for _, l := range ls {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		return kept
	})
}

func (s *Store) Loading() Loading {
	return Loading{
		Profile:  s.profile.Loading(),
		Students: s.students.Loading(),
		Leaves:   s.leaves.Loading(),
		Schedule: s.schedule.Loading(),
	}
}

func (s *Store) ClearDriverData() {
	s.profile.Reset()
	s.bus.Reset()
	s.route.Reset()
	s.students.Reset()
	s.leaves.Reset()
	s.schedule.Reset()
	s.messageGroups.Reset()
}
