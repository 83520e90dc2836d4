package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/messaging"
	apisvc "github.com/trezcool/tripsync/services/api"
)

const (
	SuccessMessage = "Operation successful!"
	FailureMessage = "Operation failed"

	defaultPassword = "default"
	suggestCutoff   = 0.6
)

type OpTag string

const (
	OpAddBus           OpTag = "addBus"
	OpEditBus          OpTag = "editBus"
	OpDeleteBus        OpTag = "deleteBus"
	OpAddDriver        OpTag = "addDriver"
	OpEditDriver       OpTag = "editDriver"
	OpAddStudent       OpTag = "addStudent"
	OpEditStudent      OpTag = "editStudent"
	OpDeleteStudent    OpTag = "deleteStudent"
	OpViewAttendance   OpTag = "viewAttendance"
	OpAddParent        OpTag = "addParent"
	OpEditParent       OpTag = "editParent"
	OpDeleteParent     OpTag = "deleteParent"
	OpAddRoute         OpTag = "addRoute"
	OpEditRoute        OpTag = "editRoute"
	OpDeleteRoute      OpTag = "deleteRoute"
	OpBroadcastAll     OpTag = "broadcastAll"
	OpBroadcastDrivers OpTag = "broadcastDrivers"
	OpBroadcastRoute   OpTag = "broadcastRoute"
	OpUpdateComplaint  OpTag = "updateComplaint"
	OpReviewLeave      OpTag = "reviewLeave"
)

// ErrUnknownOp is returned (wrapped with a suggestion) for tags missing from the operation table.
var ErrUnknownOp = errors.New("unknown operation")

// Form is the raw, string-valued content of an operation modal.
type Form map[string]string

// Get returns the trimmed value of key.
func (f Form) Get(key string) string { return core.CleanString(f[key]) }

// Null returns the value of key, or JSON null when it is empty.
func (f Form) Null(key string) null.String {
	v := f.Get(key)
	return null.NewString(v, v != "")
}

// List splits a comma separated value, dropping blank items.
func (f Form) List(key string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(f[key], ",") {
		if item = core.CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (f Form) require(key string) (string, error) {
	v := f.Get(key)
	if v == "" {
		msg := key + " is required"
		return "", core.NewValidationError(errors.New(msg), core.FieldError{Field: key, Error: msg})
	}
	return v, nil
}

func (f Form) clone() Form {
	cp := make(Form, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// Request is the API call an operation submits.
type Request struct {
	Method string
	Path   string
	Body   interface{}
}

type Field struct {
	Name     string
	Required bool
}

// Operation is one entry of the dispatcher table.
type Operation struct {
	Title  string
	Fields []Field

	// Prepare normalises the modal data on open.
	Prepare func(f Form) Form
	// Load runs on open and returns a notice to show in the modal ("" when none).
	Load func(ctx context.Context, svc *Service, f Form) string
	// Build validates the form locally and returns the request to send.
	// Read-only operations have no Build.
	Build func(f Form) (*Request, error)
	// After runs on success with the decoded response and returns extra notes.
	After func(ctx context.Context, svc *Service, f Form, resp json.RawMessage) []string
}

func validated(body interface{ Validate() error }, method, path string) (*Request, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	return &Request{Method: method, Path: path, Body: body}, nil
}

func deleteOp(title, key, prefix string) Operation {
	return Operation{
		Title:  title,
		Fields: []Field{{Name: key, Required: true}},
		Build: func(f Form) (*Request, error) {
			v, err := f.require(key)
			if err != nil {
				return nil, err
			}
			return &Request{Method: http.MethodDelete, Path: prefix + apisvc.Escape(v)}, nil
		},
	}
}

// Modal is an open operation.
type Modal struct {
	Tag    OpTag
	Title  string
	Data   Form
	Notice string
}

type Result struct {
	Success bool
	Message string
	Notes   []string
}

// Ops returns the operation table's tags, sorted.
func Ops() []OpTag {
	tags := make([]OpTag, 0, len(operations))
	for tag := range operations {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Lookup returns the operation registered under tag.
func Lookup(tag OpTag) (Operation, error) {
	op, ok := operations[tag]
	if !ok {
		if s := suggest(string(tag)); s != "" {
			return Operation{}, errors.Wrapf(ErrUnknownOp, "%q (did you mean %q?)", tag, s)
		}
		return Operation{}, errors.Wrapf(ErrUnknownOp, "%q", tag)
	}
	return op, nil
}

// suggest returns the closest known tag, or "".
func suggest(tag string) string {
	var (
		best      string
		bestRatio float64
	)
	chars := strings.Split(strings.ToLower(tag), "")
	for known := range operations {
		m := difflib.NewMatcher(chars, strings.Split(strings.ToLower(string(known)), ""))
		if r := m.Ratio(); r > bestRatio || (r == bestRatio && string(known) < best) {
			best, bestRatio = string(known), r
		}
	}
	if bestRatio < suggestCutoff {
		return ""
	}
	return best
}

// Open prepares the modal of tag with data (not modified).
func (svc *Service) Open(ctx context.Context, tag OpTag, data Form) (*Modal, error) {
	op, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	form := data.clone()
	if op.Prepare != nil {
		form = op.Prepare(form)
	}
	m := &Modal{Tag: tag, Title: op.Title, Data: form}
	if op.Load != nil {
		m.Notice = op.Load(ctx, svc, form)
	}
	return m, nil
}

// Submit validates the modal locally, sends its request and refreshes the dashboard.
// Nothing is sent when validation fails.
func (svc *Service) Submit(ctx context.Context, m *Modal) Result {
	op, err := Lookup(m.Tag)
	if err != nil {
		return Result{Message: err.Error()}
	}
	if op.Build == nil {
		return Result{Message: fmt.Sprintf("%s has nothing to submit", m.Tag)}
	}

	svc.store.setSubmitting(true)
	defer svc.store.setSubmitting(false)

	req, err := op.Build(m.Data)
	if err != nil {
		return Result{Message: core.UserMessage(err, FailureMessage)}
	}

	var resp json.RawMessage
	switch req.Method {
	case http.MethodPost:
		err = svc.api.Post(ctx, req.Path, req.Body, &resp)
	case http.MethodPatch:
		err = svc.api.Patch(ctx, req.Path, req.Body, &resp)
	case http.MethodDelete:
		err = svc.api.Delete(ctx, req.Path, &resp)
	default:
		err = errors.Errorf("unsupported method %s", req.Method)
	}
	if err != nil {
		svc.logger.Error("admin: "+string(m.Tag), err)
		return Result{Message: core.UserMessage(err, FailureMessage)}
	}

	res := Result{Success: true, Message: SuccessMessage}
	if op.After != nil {
		res.Notes = op.After(ctx, svc, m.Data, resp)
	}
	if report := svc.FetchDashboard(ctx); !report.OK() {
		res.Notes = append(res.Notes, report.String())
	}
	return res
}

type (
	busPayload struct {
		Number   string      `json:"number" validate:"notblank"`
		DriverID null.String `json:"driverId"`
		Route    null.String `json:"route"`
	}

	busUpdate struct {
		DriverID  null.String `json:"driverId"`
		Route     null.String `json:"route"`
		NewNumber string      `json:"newNumber,omitempty"`
	}

	registration struct {
		Name     string       `json:"name" validate:"notblank"`
		Email    string       `json:"email" validate:"required,email"`
		Password string       `json:"password" validate:"required"`
		Phone    string       `json:"phone"`
		Role     string       `json:"role"`
		Child    *null.String `json:"child,omitempty"`
	}

	contactUpdate struct {
		Name  string `json:"name" validate:"notblank"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone"`
	}

	parentUpdate struct {
		Name  string `json:"name" validate:"notblank"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone"`
		Child string `json:"child"`
	}

	newStudent struct {
		RollNo      string      `json:"roll_no" validate:"notblank"`
		Name        string      `json:"name" validate:"notblank"`
		Email       string      `json:"email" validate:"required,email"`
		Route       null.String `json:"route"`
		Boarding    null.String `json:"boarding"`
		AssignedBus null.String `json:"assignedBus"`
	}

	studentUpdate struct {
		Name          string      `json:"name" validate:"notblank"`
		Email         string      `json:"email" validate:"required,email"`
		Route         null.String `json:"route"`
		BoardingPoint null.String `json:"boardingPoint"`
		AssignedBus   null.String `json:"assignedBus"`
	}

	routePayload struct {
		Name          string   `json:"name,omitempty"`
		Stops         []string `json:"stops"`
		CoverageAreas []string `json:"coverageAreas"`
	}

	leaveReview struct {
		Approved           bool        `json:"approved"`
		AdminNotes         string      `json:"adminNotes,omitempty"`
		SubstituteDriverID null.String `json:"substituteDriverId"`
	}
)

func (p busPayload) Validate() error    { return core.Validate.Struct(p) }
func (p busUpdate) Validate() error     { return core.Validate.Struct(p) }
func (p registration) Validate() error  { return core.Validate.Struct(p) }
func (p contactUpdate) Validate() error { return core.Validate.Struct(p) }
func (p parentUpdate) Validate() error  { return core.Validate.Struct(p) }
func (p newStudent) Validate() error    { return core.Validate.Struct(p) }
func (p studentUpdate) Validate() error { return core.Validate.Struct(p) }
func (p routePayload) Validate() error  { return core.Validate.Struct(p) }
func (p leaveReview) Validate() error   { return core.Validate.Struct(p) }

func register(role string) func(f Form) (*Request, error) {
	return func(f Form) (*Request, error) {
		pwd := f.Get("password")
		if pwd == "" {
			pwd = defaultPassword
		}
		reg := registration{
			Name:     f.Get("name"),
			Email:    strings.ToLower(f.Get("email")),
			Password: pwd,
			Phone:    f.Get("phone"),
			Role:     role,
		}
		if role == "parent" {
			child := f.Null("child")
			reg.Child = &child
		}
		return validated(reg, http.MethodPost, "/api/auth/register")
	}
}

func broadcast(path string) func(f Form) (*Request, error) {
	return func(f Form) (*Request, error) {
		return validated(messaging.NewMessage{Content: f.Get("content")}, http.MethodPost, path)
	}
}

var operations = map[OpTag]Operation{
	OpAddBus: {
		Title:  "Add Bus",
		Fields: []Field{{Name: "number", Required: true}, {Name: "driverId"}, {Name: "route"}},
		Build: func(f Form) (*Request, error) {
			p := busPayload{Number: f.Get("number"), DriverID: f.Null("driverId"), Route: f.Null("route")}
			return validated(p, http.MethodPost, "/api/admin/buses")
		},
	},
	OpEditBus: {
		Title:  "Edit Bus",
		Fields: []Field{{Name: "originalNumber", Required: true}, {Name: "number"}, {Name: "driverId"}, {Name: "route"}},
		Prepare: func(f Form) Form {
			if f["originalNumber"] == "" {
				f["originalNumber"] = f["number"]
			}
			return f
		},
		Build: func(f Form) (*Request, error) {
			orig, err := f.require("originalNumber")
			if err != nil {
				return nil, err
			}
			p := busUpdate{DriverID: f.Null("driverId"), Route: f.Null("route")}
			if n := f.Get("number"); n != "" && n != orig {
				p.NewNumber = n
			}
			return validated(p, http.MethodPatch, "/api/admin/buses/"+apisvc.Escape(orig))
		},
	},
	OpDeleteBus: deleteOp("Delete Bus", "number", "/api/admin/buses/"),

	OpAddDriver: {
		Title:  "Add Driver",
		Fields: []Field{{Name: "name", Required: true}, {Name: "email", Required: true}, {Name: "phone"}, {Name: "password"}},
		Build:  register("driver"),
	},
	OpEditDriver: {
		Title:  "Edit Driver",
		Fields: []Field{{Name: "_id", Required: true}, {Name: "name", Required: true}, {Name: "email", Required: true}, {Name: "phone"}},
		Build: func(f Form) (*Request, error) {
			id, err := f.require("_id")
			if err != nil {
				return nil, err
			}
			p := contactUpdate{Name: f.Get("name"), Email: strings.ToLower(f.Get("email")), Phone: f.Get("phone")}
			return validated(p, http.MethodPatch, "/api/drivers/"+apisvc.Escape(id))
		},
	},

	OpAddStudent: {
		Title: "Add Student",
		Fields: []Field{
			{Name: "roll_no", Required: true}, {Name: "name", Required: true}, {Name: "email", Required: true},
			{Name: "route"}, {Name: "boarding"}, {Name: "assignedBus"},
		},
		Build: func(f Form) (*Request, error) {
			p := newStudent{
				RollNo:      f.Get("roll_no"),
				Name:        f.Get("name"),
				Email:       strings.ToLower(f.Get("email")),
				Route:       f.Null("route"),
				Boarding:    f.Null("boarding"),
				AssignedBus: f.Null("assignedBus"),
			}
			return validated(p, http.MethodPost, "/api/admin/students")
		},
		After: deliverCredentials,
	},
	OpEditStudent: {
		Title: "Edit Student",
		Fields: []Field{
			{Name: "roll_no", Required: true}, {Name: "name", Required: true}, {Name: "email", Required: true},
			{Name: "route"}, {Name: "boardingPoint"}, {Name: "assignedBus"},
		},
		Prepare: func(f Form) Form {
			if f["boardingPoint"] == "" {
				f["boardingPoint"] = f["boarding"]
			}
			delete(f, "boarding")
			return f
		},
		Build: func(f Form) (*Request, error) {
			roll, err := f.require("roll_no")
			if err != nil {
				return nil, err
			}
			p := studentUpdate{
				Name:          f.Get("name"),
				Email:         strings.ToLower(f.Get("email")),
				Route:         f.Null("route"),
				BoardingPoint: f.Null("boardingPoint"),
				AssignedBus:   f.Null("assignedBus"),
			}
			return validated(p, http.MethodPatch, "/api/admin/students/"+apisvc.Escape(roll))
		},
	},
	OpDeleteStudent: deleteOp("Delete Student", "roll_no", "/api/admin/students/"),
	OpViewAttendance: {
		Title:  "Attendance History",
		Fields: []Field{{Name: "roll_no", Required: true}},
		Load: func(ctx context.Context, svc *Service, f Form) string {
			_, notice := svc.FetchAttendanceHistory(ctx, f.Get("roll_no"))
			return notice
		},
	},

	OpAddParent: {
		Title:  "Add Parent",
		Fields: []Field{{Name: "name", Required: true}, {Name: "email", Required: true}, {Name: "phone"}, {Name: "password"}, {Name: "child"}},
		Build:  register("parent"),
	},
	OpEditParent: {
		Title:  "Edit Parent",
		Fields: []Field{{Name: "_id", Required: true}, {Name: "name", Required: true}, {Name: "email", Required: true}, {Name: "phone"}, {Name: "child"}},
		Build: func(f Form) (*Request, error) {
			id, err := f.require("_id")
			if err != nil {
				return nil, err
			}
			p := parentUpdate{Name: f.Get("name"), Email: strings.ToLower(f.Get("email")), Phone: f.Get("phone"), Child: f.Get("child")}
			return validated(p, http.MethodPatch, "/api/admin/parents/"+apisvc.Escape(id))
		},
	},
	OpDeleteParent: deleteOp("Delete Parent", "_id", "/api/admin/parents/"),

	OpAddRoute: {
		Title:  "Add Route",
		Fields: []Field{{Name: "name", Required: true}, {Name: "stops"}, {Name: "coverageAreas"}},
		Build: func(f Form) (*Request, error) {
			name, err := f.require("name")
			if err != nil {
				return nil, err
			}
			p := routePayload{Name: name, Stops: f.List("stops"), CoverageAreas: f.List("coverageAreas")}
			return validated(p, http.MethodPost, "/api/admin/routes")
		},
	},
	OpEditRoute: {
		Title:  "Edit Route",
		Fields: []Field{{Name: "name", Required: true}, {Name: "stops"}, {Name: "coverageAreas"}},
		Build: func(f Form) (*Request, error) {
			name, err := f.require("name")
			if err != nil {
				return nil, err
			}
			p := routePayload{Stops: f.List("stops"), CoverageAreas: f.List("coverageAreas")}
			return validated(p, http.MethodPatch, "/api/admin/routes/"+apisvc.Escape(name))
		},
	},
	OpDeleteRoute: deleteOp("Delete Route", "name", "/api/admin/routes/"),

	OpBroadcastAll: {
		Title:  "Broadcast to All Students",
		Fields: []Field{{Name: "content", Required: true}},
		Build:  broadcast("/api/messages/admin/broadcast/all-students"),
	},
	OpBroadcastDrivers: {
		Title:  "Broadcast to All Drivers",
		Fields: []Field{{Name: "content", Required: true}},
		Build:  broadcast("/api/messages/admin/broadcast/all-drivers"),
	},
	OpBroadcastRoute: {
		Title:  "Broadcast to Route",
		Fields: []Field{{Name: "routeName", Required: true}, {Name: "content", Required: true}, {Name: "recipientType"}},
		Build: func(f Form) (*Request, error) {
			rb := &messaging.RouteBroadcast{
				RouteName:     f.Get("routeName"),
				Content:       f.Get("content"),
				RecipientType: f.Get("recipientType"),
			}
			return validated(rb, http.MethodPost, "/api/messages/admin/broadcast/route")
		},
	},

	OpUpdateComplaint: {
		Title:  "Update Complaint",
		Fields: []Field{{Name: "_id", Required: true}, {Name: "status", Required: true}, {Name: "adminResponse"}},
		Build: func(f Form) (*Request, error) {
			id, err := f.require("_id")
			if err != nil {
				return nil, err
			}
			cu := messaging.ComplaintUpdate{Status: f.Get("status"), AdminResponse: f.Get("adminResponse")}
			return validated(cu, http.MethodPatch, "/api/messages/admin/complaints/"+apisvc.Escape(id))
		},
	},
	OpReviewLeave: {
		Title:  "Review Leave Request",
		Fields: []Field{{Name: "_id", Required: true}, {Name: "approved", Required: true}, {Name: "adminNotes"}, {Name: "substituteDriverId"}},
		Build: func(f Form) (*Request, error) {
			id, err := f.require("_id")
			if err != nil {
				return nil, err
			}
			raw, err := f.require("approved")
			if err != nil {
				return nil, err
			}
			approved, err := strconv.ParseBool(raw)
			if err != nil {
				msg := "approved must be true or false"
				return nil, core.NewValidationError(errors.New(msg), core.FieldError{Field: "approved", Error: msg})
			}
			p := leaveReview{Approved: approved, AdminNotes: f.Get("adminNotes")}
			if approved {
				p.SubstituteDriverID = f.Null("substituteDriverId")
			}
			return validated(p, http.MethodPatch, "/api/admin/leaves/"+apisvc.Escape(id))
		},
	},
}
