package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
)

var (
	errNotAuthenticated  = echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	errInvalidToken      = echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
	errLoginFailed       = echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	errForbidden         = echo.NewHTTPError(http.StatusForbidden, "Not enough permissions")
	errEmailTaken        = echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	errRollNoTaken       = echo.NewHTTPError(http.StatusBadRequest, "Roll number already exists")
	errBusTaken          = echo.NewHTTPError(http.StatusBadRequest, "Bus number already exists")
	errRouteTaken        = echo.NewHTTPError(http.StatusBadRequest, "Route already exists")
	errWrongPassword     = echo.NewHTTPError(http.StatusBadRequest, "Current password is incorrect")
	errLeaveReviewed     = echo.NewHTTPError(http.StatusBadRequest, "Only pending leave requests can be cancelled")
	errNoBusAssigned     = echo.NewHTTPError(http.StatusNotFound, "No bus assigned")
	errNoChild           = echo.NewHTTPError(http.StatusNotFound, "No child linked to this parent")
	errMissingFaceImages = echo.NewHTTPError(http.StatusBadRequest, "front_image, left_image and right_image are required")

	errNameRequired = errors.New("name is required")
)

func errNotFound(what string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, what+" not found")
}

// detailItem is one entry of a validation error list.
type detailItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// newHTTPErrorHandler returns an echo.HTTPErrorHandler replying `{"detail": ...}`:
// a message for HTTP errors, a list of {loc, msg} for validation errors.
func newHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code   int
			detail interface{}
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			switch {
			case origErr == middleware.ErrJWTMissing:
				origErr = errNotAuthenticated
			case origErr.Code == http.StatusUnauthorized && origErr.Internal != nil:
				origErr = errInvalidToken
			case origErr.Internal != nil:
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			detail = origErr.Message
		case validator.ValidationErrors:
			items := make([]detailItem, 0, len(origErr))
			for _, fe := range core.FieldErrors(origErr) {
				items = append(items, detailItem{Loc: []string{"body", fe.Field}, Msg: fe.Error, Type: "value_error"})
			}
			code = http.StatusUnprocessableEntity
			detail = items
		case *core.ValidationError:
			code = http.StatusBadRequest
			detail = core.UserMessage(origErr, "Invalid request")
		default: // any other error is a server error
			code = http.StatusInternalServerError
			detail = http.StatusText(http.StatusInternalServerError)
			logger.Error("devapi: "+ctx.Request().Method+" "+ctx.Path(), errors.WithStack(err))
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, echo.Map{"detail": detail})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
