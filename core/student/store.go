package student

import (
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/store"
)

// Loading reports which student fields have a fetch in flight.
type Loading struct {
	Profile    bool
	Bus        bool
	Attendance bool
	Complaints bool
	Messages   bool
}

// Store holds the data fetched for the logged in student.
// Chat messages are kept oldest first.
type Store struct {
	profile         *store.Slice[*Profile]
	bus             *store.Slice[*bus.Bus]
	route           *store.Slice[*bus.Route]
	driver          *store.Slice[*bus.DriverInfo]
	attendance      *store.Slice[*attendance.Summary]
	complaints      *store.Slice[[]messaging.Complaint]
	messages        *store.Slice[[]messaging.Message]
	busChatMessages *store.Slice[[]messaging.Message]
}

func NewStore() *Store {
	return &Store{
		profile:         store.NewSlice[*Profile](nil),
		bus:             store.NewSlice[*bus.Bus](nil),
		route:           store.NewSlice[*bus.Route](nil),
		driver:          store.NewSlice[*bus.DriverInfo](nil),
		attendance:      store.NewSlice[*attendance.Summary](nil),
		complaints:      store.NewSlice(func() []messaging.Complaint { return []messaging.Complaint{} }),
		messages:        store.NewSlice(func() []messaging.Message { return []messaging.Message{} }),
		busChatMessages: store.NewSlice(func() []messaging.Message { return []messaging.Message{} }),
	}
}

func (s *Store) Profile() *Profile                    { return store.Clone(s.profile.Get()) }
func (s *Store) Bus() *bus.Bus                        { return store.Clone(s.bus.Get()) }
func (s *Store) Route() *bus.Route                    { return store.Clone(s.route.Get()) }
func (s *Store) Driver() *bus.DriverInfo              { return store.Clone(s.driver.Get()) }
func (s *Store) Attendance() *attendance.Summary      { return store.Clone(s.attendance.Get()) }
func (s *Store) Complaints() []messaging.Complaint    { return store.CopyOf(s.complaints.Get()) }
func (s *Store) Messages() []messaging.Message        { return store.CopyOf(s.messages.Get()) }
func (s *Store) BusChatMessages() []messaging.Message { return store.CopyOf(s.busChatMessages.Get()) }

func (s *Store) SetProfile(p *Profile)                     { s.profile.Set(store.Clone(p)) }
func (s *Store) SetBus(b *bus.Bus)                         { s.bus.Set(store.Clone(b)) }
func (s *Store) SetRoute(r *bus.Route)                     { s.route.Set(store.Clone(r)) }
func (s *Store) SetDriver(d *bus.DriverInfo)               { s.driver.Set(store.Clone(d)) }
func (s *Store) SetAttendance(a *attendance.Summary)       { s.attendance.Set(store.Clone(a)) }
func (s *Store) SetComplaints(cs []messaging.Complaint)    { s.complaints.Set(store.CopyOf(cs)) }
func (s *Store) SetMessages(ms []messaging.Message)        { s.messages.Set(store.CopyOf(ms)) }
func (s *Store) SetBusChatMessages(ms []messaging.Message) { s.busChatMessages.Set(store.CopyOf(ms)) }

// AddComplaint prepends c to the complaints (newest first).
func (s *Store) AddComplaint(c messaging.Complaint) {
	s.complaints.Update(func(cs []messaging.Complaint) []messaging.Complaint {
		return append([]messaging.Complaint{c}, cs...)
	})
}

// AddBusChatMessage appends m to the bus chat.
func (s *Store) AddBusChatMessage(m messaging.Message) {
	s.busChatMessages.Update(func(ms []messaging.Message) []messaging.Message {
		return append(store.CopyOf(ms), m)
	})
}

func (s *Store) Loading() Loading {
	return Loading{
		Profile:    s.profile.Loading(),
		Bus:        s.bus.Loading(),
		Attendance: s.attendance.Loading(),
		Complaints: s.complaints.Loading(),
		Messages:   s.messages.Loading() || s.busChatMessages.Loading(),
	}
}

// ClearStudentData resets every field to its initial empty value and drops in-flight fetches.
func (s *Store) ClearStudentData() {
	s.profile.Reset()
	s.bus.Reset()
	s.route.Reset()
	s.driver.Reset()
	s.attendance.Reset()
	s.complaints.Reset()
	s.messages.Reset()
	s.busChatMessages.Reset()
}
