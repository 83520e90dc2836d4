package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/face"
)

// enrollFace accepts the front, left and right images of a student. The dev server
// checks the uploads and records the views; it does not encode faces.
func (s *server) enrollFace(ctx echo.Context) error {
	rollNo := core.CleanString(ctx.FormValue("roll_no"))
	if _, ok := s.db.studentByRollNo(rollNo); !ok {
		return errNotFound("Student")
	}

	views := make([]string, 0, len(face.Views))
	for _, view := range face.Views {
		fh, err := ctx.FormFile(string(view) + "_image")
		if err != nil {
			return errMissingFaceImages
		}
		if !strings.HasPrefix(fh.Header.Get(echo.HeaderContentType), "image/") {
			return echo.NewHTTPError(http.StatusBadRequest, string(view)+"_image must be an image")
		}
		if fh.Size > face.MaxImageSize {
			return echo.NewHTTPError(http.StatusBadRequest, string(view)+"_image is too large")
		}
		views = append(views, string(view))
	}
	s.db.enrollFace(rollNo, views)

	return ctx.JSON(http.StatusOK, face.Response{
		Status:       "success",
		Message:      "Face enrolled for " + rollNo,
		EncodedViews: views,
	})
}
