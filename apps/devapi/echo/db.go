package echoapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/attendance"
	"github.com/trezcool/tripsync/core/bus"
	"github.com/trezcool/tripsync/core/messaging"
)

// Account roles.
const (
	RoleStudent = "student"
	RoleDriver  = "driver"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

// account is any user of the API. Student, driver and parent fields are only set for their role.
type account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         string
	PasswordHash []byte

	RollNo        string
	Route         string
	BoardingPoint string
	AssignedBus   string
	Child         string // roll number of the parent's child
}

func (a *account) setPassword(pwd string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *account) checkPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// faceEnrollment is what the dev server keeps of an enrollment: the views it received.
type faceEnrollment struct {
	RollNo     string
	Views      []string
	EnrolledAt time.Time
}

// DB is the in-memory data of the dev server. Every method locks; returned values are copies.
type DB struct {
	mu         sync.RWMutex
	bcryptCost int

	accounts   map[string]*account
	buses      map[string]*bus.Bus
	routes     map[string]*bus.Route
	records    []attendance.Record
	complaints []*messaging.Complaint
	leaves     []*messaging.Leave
	messages   []messaging.Message
	faces      map[string]faceEnrollment
}

func NewDB(bcryptCost int) *DB {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &DB{
		bcryptCost: bcryptCost,
		accounts:   make(map[string]*account),
		buses:      make(map[string]*bus.Bus),
		routes:     make(map[string]*bus.Route),
		faces:      make(map[string]faceEnrollment),
	}
}

func newID() string { return strings.ReplaceAll(uuid.New().String(), "-", "")[:24] }

func now() core.Timestamp { return core.NewTimestamp(time.Now()) }

// accounts

func (db *DB) createAccount(acc account, pwd string) (account, error) {
	acc.Email = core.CleanString(acc.Email, true)
	if err := acc.setPassword(pwd, db.bcryptCost); err != nil {
		return account{}, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	for _, a := range db.accounts {
		if a.Email == acc.Email {
			return account{}, errEmailTaken
		}
		if acc.RollNo != "" && a.RollNo == acc.RollNo {
			return account{}, errRollNoTaken
		}
	}
	acc.ID = newID()
	db.accounts[acc.ID] = &acc
	return acc, nil
}

func (db *DB) accountByEmail(email string) (account, bool) {
	email = core.CleanString(email, true)
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, a := range db.accounts {
		if a.Email == email {
			return *a, true
		}
	}
	return account{}, false
}

func (db *DB) accountByID(id string) (account, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if a, ok := db.accounts[id]; ok {
		return *a, true
	}
	return account{}, false
}

func (db *DB) studentByRollNo(rollNo string) (account, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.studentLocked(rollNo)
}

func (db *DB) studentLocked(rollNo string) (account, bool) {
	for _, a := range db.accounts {
		if a.Role == RoleStudent && a.RollNo == rollNo {
			return *a, true
		}
	}
	return account{}, false
}

// listAccounts returns the accounts of role, sorted by name then id.
func (db *DB) listAccounts(role string, keep ...func(account) bool) []account {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]account, 0)
	for _, a := range db.accounts {
		if a.Role != role {
			continue
		}
		ok := true
		for _, k := range keep {
			ok = ok && k(*a)
		}
		if ok {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// updateAccount applies fn to the account id; fn may return an error to abort.
func (db *DB) updateAccount(id string, fn func(a *account) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return errNotFound("Account")
	}
	cp := *a
	if err := fn(&cp); err != nil {
		return err
	}
	cp.Email = core.CleanString(cp.Email, true)
	for _, other := range db.accounts {
		if other.ID != id && other.Email == cp.Email {
			return errEmailTaken
		}
	}
	*a = cp
	return nil
}

func (db *DB) deleteAccount(id string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.accounts[id]; !ok {
		return false
	}
	delete(db.accounts, id)
	return true
}

func (db *DB) changePassword(id, oldPwd, newPwd string) error {
	acc, ok := db.accountByID(id)
	if !ok {
		return errNotFound("Account")
	}
	if err := acc.checkPassword(oldPwd); err != nil {
		return errWrongPassword
	}
	var hashed account
	if err := hashed.setPassword(newPwd, db.bcryptCost); err != nil {
		return err
	}
	return db.updateAccount(id, func(a *account) error {
		a.PasswordHash = hashed.PasswordHash
		return nil
	})
}

// buses

// busView returns a copy of b with its driver and student count resolved. Callers hold db.mu.
func (db *DB) busView(b *bus.Bus) bus.Bus {
	out := *b
	out.CoveragePoints = append([]bus.CoveragePoint(nil), b.CoveragePoints...)
	if b.CurrentLocation != nil {
		loc := *b.CurrentLocation
		out.CurrentLocation = &loc
	}
	out.Driver = nil
	if d, ok := db.accounts[b.DriverID]; ok {
		out.Driver = &bus.DriverInfo{ID: d.ID, Name: d.Name, Email: d.Email, Phone: d.Phone}
	}
	out.StudentCount = 0
	for _, a := range db.accounts {
		if a.Role == RoleStudent && a.AssignedBus == b.Number {
			out.StudentCount++
		}
	}
	if r, ok := db.routes[b.Route]; ok && len(out.CoveragePoints) == 0 {
		out.CoveragePoints = bus.CoveragePoints(r, b.CurrentStopIndex)
	}
	return out
}

func (db *DB) listBuses() []bus.Bus {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]bus.Bus, 0, len(db.buses))
	for _, b := range db.buses {
		out = append(out, db.busView(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (db *DB) getBus(number string) (bus.Bus, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	b, ok := db.buses[number]
	if !ok {
		return bus.Bus{}, false
	}
	return db.busView(b), true
}

// driverBus returns the bus driven by driverID.
func (db *DB) driverBus(driverID string) (bus.Bus, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, b := range db.buses {
		if b.DriverID == driverID {
			return db.busView(b), true
		}
	}
	return bus.Bus{}, false
}

func (db *DB) createBus(b bus.Bus) (bus.Bus, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.buses[b.Number]; ok {
		return bus.Bus{}, errBusTaken
	}
	if b.Status == "" {
		b.Status = "inactive"
	}
	db.buses[b.Number] = &b
	db.assignDriverLocked(b.DriverID, b.Number)
	return db.busView(&b), nil
}

// assignDriverLocked makes number the assigned bus of driverID and of nobody else.
func (db *DB) assignDriverLocked(driverID, number string) {
	for _, a := range db.accounts {
		if a.Role != RoleDriver {
			continue
		}
		if a.ID == driverID {
			a.AssignedBus = number
		} else if a.AssignedBus == number {
			a.AssignedBus = ""
		}
	}
}

// updateBus applies fn to the bus number; a changed number re-keys the bus and its riders.
func (db *DB) updateBus(number string, fn func(b *bus.Bus) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.buses[number]
	if !ok {
		return errNotFound("Bus")
	}
	cp := *b
	if err := fn(&cp); err != nil {
		return err
	}
	if cp.Number != number {
		if _, taken := db.buses[cp.Number]; taken {
			return errBusTaken
		}
		delete(db.buses, number)
		for _, a := range db.accounts {
			if a.AssignedBus == number {
				a.AssignedBus = cp.Number
			}
		}
	}
	db.buses[cp.Number] = &cp
	if cp.DriverID != b.DriverID || cp.Number != number {
		db.assignDriverLocked(cp.DriverID, cp.Number)
	}
	return nil
}

func (db *DB) deleteBus(number string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.buses[number]; !ok {
		return false
	}
	delete(db.buses, number)
	for _, a := range db.accounts {
		if a.AssignedBus == number {
			a.AssignedBus = ""
		}
	}
	return true
}

// routes

func (db *DB) routeView(r *bus.Route) bus.Route {
	out := *r
	out.Stops = append([]bus.Stop(nil), r.Stops...)
	out.CoverageAreas = append([]string{}, r.CoverageAreas...)
	out.BusCount = 0
	for _, b := range db.buses {
		if b.Route == r.Name {
			out.BusCount++
		}
	}
	return out
}

func (db *DB) listRoutes() []bus.Route {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]bus.Route, 0, len(db.routes))
	for _, r := range db.routes {
		out = append(out, db.routeView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (db *DB) getRoute(name string) (bus.Route, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.routes[name]
	if !ok {
		return bus.Route{}, false
	}
	return db.routeView(r), true
}

func (db *DB) saveRoute(r bus.Route, create bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, exists := db.routes[r.Name]
	switch {
	case create && exists:
		return errRouteTaken
	case !create && !exists:
		return errNotFound("Route")
	}
	db.routes[r.Name] = &r
	return nil
}

func (db *DB) deleteRoute(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.routes[name]; !ok {
		return false
	}
	delete(db.routes, name)
	return true
}

// attendance

func (db *DB) addRecord(r attendance.Record) {
	db.mu.Lock()
	db.records = append(db.records, r)
	db.mu.Unlock()
}

// attendanceOf returns the records of rollNo, newest first.
func (db *DB) attendanceOf(rollNo string) []attendance.Record {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]attendance.Record, 0)
	for _, r := range db.records {
		if r.RollNo == rollNo {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// complaints

func (db *DB) addComplaint(c messaging.Complaint) messaging.Complaint {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = newID()
	c.Status = messaging.StatusPending
	c.SubmittedAt = now()
	db.complaints = append(db.complaints, &c)
	return c
}

// listComplaints returns the complaints kept by keep, newest first.
func (db *DB) listComplaints(keep func(messaging.Complaint) bool) []messaging.Complaint {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]messaging.Complaint, 0)
	for i := len(db.complaints) - 1; i >= 0; i-- {
		if c := db.complaints[i]; keep == nil || keep(*c) {
			out = append(out, *c)
		}
	}
	return out
}

func (db *DB) updateComplaint(id string, cu messaging.ComplaintUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.complaints {
		if c.ID == id {
			c.Status = cu.Status
			if cu.AdminResponse != "" {
				c.AdminResponse = cu.AdminResponse
			}
			return nil
		}
	}
	return errNotFound("Complaint")
}

// leaves

func (db *DB) addLeave(l messaging.Leave) messaging.Leave {
	db.mu.Lock()
	defer db.mu.Unlock()
	l.ID = newID()
	l.Status = messaging.LeavePending
	l.SubmittedAt = now()
	db.leaves = append(db.leaves, &l)
	return l
}

// listLeaves returns the leaves kept by keep, newest first.
func (db *DB) listLeaves(keep func(messaging.Leave) bool) []messaging.Leave {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]messaging.Leave, 0)
	for i := len(db.leaves) - 1; i >= 0; i-- {
		if l := db.leaves[i]; keep == nil || keep(*l) {
			out = append(out, *l)
		}
	}
	return out
}

// updateLeave applies fn to the leave id.
func (db *DB) updateLeave(id string, fn func(l *messaging.Leave) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, l := range db.leaves {
		if l.ID == id {
			return fn(l)
		}
	}
	return errNotFound("Leave request")
}

// cancelLeave removes a pending leave of driverID.
func (db *DB) cancelLeave(driverID, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, l := range db.leaves {
		if l.ID != id || l.DriverID != driverID {
			continue
		}
		if l.Status != messaging.LeavePending {
			return errLeaveReviewed
		}
		db.leaves = append(db.leaves[:i], db.leaves[i+1:]...)
		return nil
	}
	return errNotFound("Leave request")
}

// messages

func (db *DB) addMessage(m messaging.Message) messaging.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	m.ID = newID()
	m.Timestamp = now()
	db.messages = append(db.messages, m)
	return m
}

// listMessages returns the messages of the groups, newest first.
func (db *DB) listMessages(groupIDs ...string) []messaging.Message {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]messaging.Message, 0)
	for i := len(db.messages) - 1; i >= 0; i-- {
		m := db.messages[i]
		for _, id := range groupIDs {
			if m.GroupID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// face enrollments

func (db *DB) enrollFace(rollNo string, views []string) {
	db.mu.Lock()
	db.faces[rollNo] = faceEnrollment{RollNo: rollNo, Views: views, EnrolledAt: time.Now()}
	db.mu.Unlock()
}

func (db *DB) faceEnrolled(rollNo string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.faces[rollNo]
	return ok
}

// Stats computes the admin dashboard statistics.
func (db *DB) Stats() bus.Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s := bus.Stats{TotalBuses: len(db.buses), TotalRoutes: len(db.routes)}
	for _, a := range db.accounts {
		switch a.Role {
		case RoleStudent:
			s.TotalStudents++
		case RoleDriver:
			s.TotalDrivers++
		}
	}
	for _, b := range db.buses {
		if b.Status == "running" {
			s.RunningBuses++
		}
	}
	for _, l := range db.leaves {
		if l.Status == messaging.LeavePending {
			s.PendingLeaves++
		}
	}
	for _, c := range db.complaints {
		if c.Status == messaging.StatusPending {
			s.PendingComplaints++
		}
	}
	return s
}
