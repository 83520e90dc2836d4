// Package face stages the three face views of a student and enrolls them in one upload.
package face

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	apisvc "github.com/trezcool/tripsync/services/api"
)

const (
	// MaxImageSize is the largest accepted image, in bytes (5MB).
	MaxImageSize = 5 * 1024 * 1024

	FallbackMessage = "Failed to enroll face. Please try again."

	enrollPath = "/api/face/enroll"
)

var (
	ErrMissingViews = errors.New("please capture all three face views (front, left, right)")
	ErrInvalidImage = errors.New("please select a valid image file")
	ErrImageTooBig  = errors.New("image size must be less than 5MB")
	ErrUnknownView  = errors.New("unknown face view")
	ErrUploading    = errors.New("an enrollment is already uploading")
	ErrEnrolled     = errors.New("face already enrolled")
	ErrClosed       = errors.New("enrollment closed")
)

type View string

const (
	Front View = "front"
	Left  View = "left"
	Right View = "right"
)

var Views = []View{Front, Left, Right}

func ParseView(s string) (View, error) {
	v := View(strings.ToLower(core.CleanString(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", core.NewValidationError(errors.Wrap(ErrUnknownView, s))
}

type State int

const (
	Empty State = iota
	PartiallyCaptured
	ReadyToSubmit
	Uploading
	Success
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case PartiallyCaptured:
		return "partially captured"
	case ReadyToSubmit:
		return "ready to submit"
	case Uploading:
		return "uploading"
	case Success:
		return "success"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func init() {
	_ = core.Validate.RegisterValidation("image_mime", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(strings.ToLower(fl.Field().String()), "image/")
	})
	core.RegisterCustomTranslation("image_mime", "{0} must be an image")
}

// Image is a selected picture of one view.
type Image struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType" validate:"image_mime"`
	Data        []byte `json:"data"`
}

// Validate checks the MIME type then the size; it reports the first failure only.
func (img Image) Validate() error {
	if err := core.Validate.Struct(img); err != nil {
		return core.NewValidationError(ErrInvalidImage, core.FieldError{Field: "contentType", Error: ErrInvalidImage.Error()})
	}
	if len(img.Data) > MaxImageSize {
		return core.NewValidationError(ErrImageTooBig, core.FieldError{Field: "data", Error: ErrImageTooBig.Error()})
	}
	return nil
}

// DataURL is the inline preview of the image.
func (img Image) DataURL() string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Uploader sends multipart forms; *apisvc.Client is one.
type Uploader interface {
	PostMultipart(ctx context.Context, path string, form *apisvc.Form, out interface{}) error
}

// Response is the server reply to a successful enrollment.
type Response struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	EncodedViews []string `json:"encoded_views"`
}

// Enrollment is the staging area of one enrollment session.
//
// Empty -> PartiallyCaptured -> ReadyToSubmit -> Uploading -> Success | ReadyToSubmit.
// A failed upload keeps the images, records LastError and returns to ReadyToSubmit.
// Success is terminal and fires the success callback after the configured delay.
type Enrollment struct {
	api       Uploader
	rollNo    string
	delay     time.Duration
	onSuccess func()
	logger    core.Logger

	mu       sync.Mutex
	images   map[View]Image
	previews map[View]string
	state    State
	errMsg   string
	notice   string
	timer    *time.Timer
	closed   bool
}

// New starts an enrollment session for the student rollNo. onSuccess may be nil.
func New(api Uploader, rollNo string, delay time.Duration, onSuccess func(), logger core.Logger) *Enrollment {
	return &Enrollment{
		api:       api,
		rollNo:    core.CleanString(rollNo),
		delay:     delay,
		onSuccess: onSuccess,
		logger:    logger,
		images:    make(map[View]Image),
		previews:  make(map[View]string),
	}
}

func (e *Enrollment) editable() error {
	switch {
	case e.closed:
		return ErrClosed
	case e.state == Uploading:
		return ErrUploading
	case e.state == Success:
		return ErrEnrolled
	}
	return nil
}

// recompute derives the capture state from the staged images.
func (e *Enrollment) recompute() {
	switch len(e.images) {
	case 0:
		e.state = Empty
	case len(Views):
		e.state = ReadyToSubmit
	default:
		e.state = PartiallyCaptured
	}
}

// Select stages img as view. An invalid image is rejected and the staged images are left untouched.
func (e *Enrollment) Select(view View, img Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.editable(); err != nil {
		return err
	}
	if _, err := ParseView(string(view)); err != nil {
		return err
	}
	if err := img.Validate(); err != nil {
		e.errMsg = core.UserMessage(err, ErrInvalidImage.Error())
		return err
	}
	e.images[view] = img
	e.previews[view] = img.DataURL()
	e.errMsg = ""
	e.recompute()
	return nil
}

func (e *Enrollment) Remove(view View) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.editable(); err != nil {
		return err
	}
	delete(e.images, view)
	delete(e.previews, view)
	e.recompute()
	return nil
}

// Enroll uploads the three views in a single multipart request.
// Nothing is sent unless front, left and right are all staged.
func (e *Enrollment) Enroll(ctx context.Context) (*Response, error) {
	e.mu.Lock()
	if err := e.editable(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if len(e.images) != len(Views) {
		e.errMsg = ErrMissingViews.Error()
		e.mu.Unlock()
		return nil, core.NewValidationError(ErrMissingViews)
	}
	form := &apisvc.Form{}
	form.AddField("roll_no", e.rollNo)
	for _, view := range Views {
		img := e.images[view]
		form.AddFile(apisvc.File{
			Field:       string(view) + "_image",
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Data:        img.Data,
		})
	}
	e.state = Uploading
	e.errMsg, e.notice = "", ""
	e.mu.Unlock()

	resp := new(Response)
	err := e.api.PostMultipart(ctx, enrollPath, form, resp)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.logger.Error("face: enrolling "+e.rollNo, err)
		e.recompute()
		e.errMsg = core.UserMessage(err, FallbackMessage)
		return nil, err
	}
	e.state = Success
	e.notice = fmt.Sprintf("Face enrollment successful! %d views encoded.", len(resp.EncodedViews))
	if e.onSuccess != nil && !e.closed {
		e.timer = time.AfterFunc(e.delay, e.onSuccess)
	}
	return resp, nil
}

// Close ends the session and cancels a pending success callback.
func (e *Enrollment) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
}

func (e *Enrollment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Captured reports which views are staged.
func (e *Enrollment) Captured() map[View]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[View]bool, len(Views))
	for _, v := range Views {
		_, out[v] = e.images[v]
	}
	return out
}

// Preview returns the data URL of view ("" when not staged).
func (e *Enrollment) Preview(view View) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previews[view]
}

// LastError is the message of the last failure ("" when none).
func (e *Enrollment) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg
}

// Notice is the success message.
func (e *Enrollment) Notice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notice
}
