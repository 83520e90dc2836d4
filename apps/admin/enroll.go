package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/face"
)

// readImage loads an image file; its content type is sniffed from the data.
func readImage(path string) (face.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return face.Image{}, err
	}
	return face.Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func (cli *commandLine) enroll(rollNo, front, left, right string) error {
	done := make(chan struct{})
	e, err := cli.app.Enrollment(rollNo, func() { close(done) })
	if errors.Cause(err) == core.ErrNotAuthenticated {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	defer e.Close()

	paths := map[face.View]string{face.Front: front, face.Left: left, face.Right: right}
	for _, view := range face.Views {
		if paths[view] == "" {
			continue
		}
		img, err := readImage(paths[view])
		if err != nil {
			return errors.Wrapf(err, "reading %s view", view)
		}
		if err := e.Select(view, img); err != nil {
			return errors.Wrapf(err, "%s view", view)
		}
	}
	fmt.Fprintf(cli.out, "Captured: %s\n", e.State())

	ctx := context.Background()
	if _, err := e.Enroll(ctx); err != nil {
		cli.app.HandleError(ctx, err, face.FallbackMessage)
		return errors.New(e.LastError())
	}
	fmt.Fprintln(cli.out, e.Notice())
	<-done
	return nil
}
