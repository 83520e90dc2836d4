package messaging

import (
	"github.com/trezcool/tripsync/core"
)

// Complaint categories.
const (
	CategoryRashDriving = "rash_driving"
	CategoryLostFound   = "lost_found"
	CategoryBusIssue    = "bus_issue"
	CategoryOther       = "other"
)

// Complaint statuses. A complaint starts pending and only an admin moves it forward.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Leave statuses.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// Broadcast recipient types.
const (
	RecipientStudents = "students"
	RecipientDrivers  = "drivers"
	RecipientParents  = "parents"
	RecipientAll      = "all"
)

var (
	Categories     = []string{CategoryRashDriving, CategoryLostFound, CategoryBusIssue, CategoryOther}
	Statuses       = []string{StatusPending, StatusInProgress, StatusResolved}
	LeaveStatuses  = []string{LeavePending, LeaveApproved, LeaveRejected}
	RecipientTypes = []string{RecipientStudents, RecipientDrivers, RecipientParents, RecipientAll}
)

func init() {
	_ = core.Validate.RegisterValidation("complaint_category", core.OneOf(Categories...))
	core.RegisterCustomTranslation("complaint_category", "{0} must be one of rash_driving, lost_found, bus_issue or other")

	_ = core.Validate.RegisterValidation("complaint_status", core.OneOf(Statuses...))
	core.RegisterCustomTranslation("complaint_status", "{0} must be one of pending, in_progress or resolved")

	_ = core.Validate.RegisterValidation("recipient_type", core.OneOf(RecipientTypes...))
	core.RegisterCustomTranslation("recipient_type", "{0} must be one of students, drivers, parents or all")

	_ = core.Validate.RegisterValidation("leave_status", core.OneOf(LeaveStatuses...))
	core.RegisterCustomTranslation("leave_status", "{0} must be one of pending, approved or rejected")
}

type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RollNo string `json:"rollNo,omitempty"`
	Role   string `json:"role"`
}

// Message is append-only within a conversation; it is never edited or deleted.
type Message struct {
	ID            string         `json:"_id,omitempty"`
	GroupID       string         `json:"groupId,omitempty"`
	GroupName     string         `json:"groupName,omitempty"`
	Sender        Sender         `json:"sender"`
	Content       string         `json:"content"`
	Timestamp     core.Timestamp `json:"timestamp"`
	BusNumber     string         `json:"busNumber,omitempty"`
	Route         string         `json:"route,omitempty"`
	RecipientType string         `json:"recipientType,omitempty"`
}

// Thread is a page of messages of one group (driver announcements or bus chat).
type Thread struct {
	GroupID     string    `json:"groupId"`
	BusNumber   string    `json:"busNumber"`
	Route       string    `json:"route,omitempty"`
	DriverName  string    `json:"driverName,omitempty"`
	MemberCount int       `json:"memberCount,omitempty"`
	Messages    []Message `json:"messages"`
}

type Group struct {
	GroupID         string         `json:"groupId"`
	GroupName       string         `json:"groupName"`
	Type            string         `json:"type,omitempty"`
	BusNumber       string         `json:"busNumber,omitempty"`
	Route           string         `json:"route,omitempty"`
	LastMessage     string         `json:"lastMessage,omitempty"`
	LastMessageTime core.Timestamp `json:"lastMessageTime"`
	LastSender      string         `json:"lastSender,omitempty"`
}

type Complaint struct {
	ID            string         `json:"_id"`
	StudentID     string         `json:"studentId,omitempty"`
	StudentName   string         `json:"studentName,omitempty"`
	RollNo        string         `json:"rollNo,omitempty"`
	Category      string         `json:"category"`
	Description   string         `json:"description"`
	BusNumber     string         `json:"busNumber,omitempty"`
	Route         string         `json:"route,omitempty"`
	Status        string         `json:"status"`
	AdminResponse string         `json:"adminResponse,omitempty"`
	SubmittedAt   core.Timestamp `json:"submittedAt"`
}

type Leave struct {
	ID          string         `json:"_id"`
	DriverID    string         `json:"driverId,omitempty"`
	DriverName  string         `json:"driverName,omitempty"`
	BusNumber   string         `json:"busNumber,omitempty"`
	Route       string         `json:"route,omitempty"`
	Date        string         `json:"date"`
	Reason      string         `json:"reason"`
	Status      string         `json:"status"`
	AdminNotes  string         `json:"adminNotes,omitempty"`
	SubmittedAt core.Timestamp `json:"submittedAt"`
}

// Request payloads.
type (
	NewComplaint struct {
		Category    string `json:"category" validate:"complaint_category"`
		Description string `json:"description" validate:"notblank"`
		BusNumber   string `json:"busNumber,omitempty"`
	}

	ComplaintUpdate struct {
		Status        string `json:"status" validate:"complaint_status"`
		AdminResponse string `json:"adminResponse,omitempty"`
	}

	NewLeave struct {
		Date   string `json:"date" validate:"ymd"`
		Reason string `json:"reason" validate:"notblank"`
	}

	// NewMessage is a driver announcement, a bus chat line or an admin broadcast.
	NewMessage struct {
		Content string `json:"content" validate:"notblank"`
	}

	RouteBroadcast struct {
		RouteName     string `json:"routeName" validate:"notblank"`
		Content       string `json:"content" validate:"notblank"`
		RecipientType string `json:"recipientType" validate:"recipient_type"`
	}
)

func (nc NewComplaint) Validate() error    { return core.Validate.Struct(nc) }
func (cu ComplaintUpdate) Validate() error { return core.Validate.Struct(cu) }
func (nl NewLeave) Validate() error        { return core.Validate.Struct(nl) }
func (nm NewMessage) Validate() error      { return core.Validate.Struct(nm) }

// Validate defaults an empty recipient type to students before validating.
func (rb *RouteBroadcast) Validate() error {
	if rb.RecipientType == "" {
		rb.RecipientType = RecipientStudents
	}
	return core.Validate.Struct(rb)
}
