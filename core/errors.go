package core

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FallbackAPIMessage is surfaced when a failed response carries neither `message` nor `detail`.
const FallbackAPIMessage = "API error!"

var ErrNotAuthenticated = errors.New("not authenticated: no token found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a local validation failure; it is always raised before any network call.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// APIError is the normalized shape of every non-success API response.
type APIError struct {
	Status    int
	Message   string
	Method    string
	Path      string
	RequestID string
}

func (err *APIError) Error() string {
	return err.Message
}

// IsUnauthorized reports whether err is an API authorization failure.
func IsUnauthorized(err error) bool {
	if apiErr, ok := errors.Cause(err).(*APIError); ok {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	switch errors.Cause(err).(type) {
	case *ValidationError, validator.ValidationErrors:
		return true
	}
	return false
}

// UserMessage converts any error into the text shown to the user: the server's message,
// the validation message, otherwise fallback. It never returns an empty string.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var msg string
	switch origErr := errors.Cause(err).(type) {
	case *APIError:
		if origErr.Message != FallbackAPIMessage {
			msg = origErr.Message
		}
	case *ValidationError:
		msg = origErr.Error()
		if len(origErr.Fields) > 0 && msg == "" {
			msg = origErr.Fields[0].Error
		}
	case validator.ValidationErrors:
		msg = strings.Join(TranslateValidationErrors(origErr), "; ")
	}
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	if strings.TrimSpace(fallback) == "" {
		return FallbackAPIMessage
	}
	return fallback
}

// TranslateValidationErrors returns the translated messages of errs, sorted by field.
func TranslateValidationErrors(errs validator.ValidationErrors) []string {
	flds := FieldErrors(errs)
	msgs := make([]string, 0, len(flds))
	for _, fe := range flds {
		msgs = append(msgs, fe.Field+": "+fe.Error)
	}
	return msgs
}

// FieldErrors converts validator errors into FieldErrors, sorted by field.
func FieldErrors(errs validator.ValidationErrors) []FieldError {
	flds := make([]FieldError, 0, len(errs))
	for _, vErr := range errs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(Translator)})
	}
	sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
	return flds
}
