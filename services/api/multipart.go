package apisvc

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/pkg/errors"
)

// File is one file part of a multipart form.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Form is a multipart/form-data body; fields and files are written in order.
type Form struct {
	Fields [][2]string
	Files  []File
}

func (f *Form) AddField(name, value string) { f.Fields = append(f.Fields, [2]string{name, value}) }
func (f *Form) AddFile(file File)          { f.Files = append(f.Files, file) }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *Form) encode() (body []byte, contentType string, err error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for _, fld := range f.Fields {
		if err := w.WriteField(fld[0], fld[1]); err != nil {
			return nil, "", errors.Wrapf(err, "writing field %s", fld[0])
		}
	}
	for _, file := range f.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.Filename)))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrapf(err, "creating part %s", file.Field)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", errors.Wrapf(err, "writing part %s", file.Field)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart writer")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// PostMultipart sends form as one multipart/form-data POST request.
func (c *Client) PostMultipart(ctx context.Context, path string, form *Form, out interface{}) error {
	body, contentType, err := form.encode()
	if err != nil {
		return err
	}
	req := c.newRequest(http.MethodPost, path)
	req.Headers["Content-Type"] = contentType
	req.Body = body
	return c.send(ctx, req, out)
}
