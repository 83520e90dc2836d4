// Package apisvc is the client of the TripSync REST API.
//
// Every call is a single attempt: no retry, no backoff and no timeout other than the
// transport's default. Failed responses are normalized into *core.APIError.
package apisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/tripsync/core"
)

const requestIDHeader = "X-Request-ID"

// TokenSource provides the bearer token of the current session ("" when logged out).
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	tokens  TokenSource
	rest    *rest.Client
	logger  core.Logger
}

// NewClient returns a client of the API hosted at baseURL.
// tokens may be nil for unauthenticated use; httpClient defaults to http.DefaultClient.
func NewClient(baseURL string, tokens TokenSource, logger core.Logger, httpClient ...*http.Client) *Client {
	hc := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		rest:    &rest.Client{HTTPClient: hc},
		logger:  logger,
	}
}

// Do sends a JSON request and decodes the JSON response into out (when not nil).
// An empty or malformed success body is treated as `{}` and leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.newRequest(method, path)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Headers["Content-Type"] = "application/json"
		req.Body = data
	}
	return c.send(ctx, req, out)
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) newRequest(method, path string) rest.Request {
	headers := map[string]string{
		"Accept":        "application/json",
		requestIDHeader: uuid.New().String(),
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}
	return rest.Request{
		Method:  rest.Method(method),
		BaseURL: c.baseURL + path,
		Headers: headers,
	}
}

func (c *Client) send(ctx context.Context, req rest.Request, out interface{}) error {
	method, path := string(req.Method), strings.TrimPrefix(req.BaseURL, c.baseURL)
	reqID := req.Headers[requestIDHeader]

	res, err := c.do(ctx, req)
	if err != nil {
		err = errors.Wrapf(err, "%s %s", method, path)
		if ctx.Err() == nil {
			c.logger.Error("API Request Failed: "+err.Error(), map[string]interface{}{"requestId": reqID})
		}
		return err
	}

	data, ok := parseBody(res.Body)
	if !ok {
		c.logger.Warn(fmt.Sprintf("Failed to parse JSON: %s %s", method, path), map[string]interface{}{"requestId": reqID})
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		apiErr := &core.APIError{
			Status:    res.StatusCode,
			Message:   errorMessage(data),
			Method:    method,
			Path:      path,
			RequestID: reqID,
		}
		c.logger.Error(
			fmt.Sprintf("API Error: %s %s - %d %s", method, path, res.StatusCode, apiErr.Message),
			map[string]interface{}{"requestId": reqID},
		)
		return apiErr
	}

	if out == nil || data == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

// do sends req bound to ctx, so cancelling ctx aborts the request in flight.
func (c *Client) do(ctx context.Context, req rest.Request) (*rest.Response, error) {
	hreq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	hres, err := c.rest.MakeRequest(hreq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(hres)
}

// parseBody returns the raw JSON body, or nil for an empty or malformed body (ok is false when malformed).
func parseBody(body string) (data json.RawMessage, ok bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, true
	}
	if !json.Valid([]byte(body)) {
		return nil, false
	}
	return json.RawMessage(body), true
}

// errorMessage extracts the server message: `message`, else `detail`, else the fixed fallback.
// `detail` may be a string or a list of validation errors ({msg}), which are joined.
func errorMessage(data json.RawMessage) string {
	var body struct {
		Message interface{}     `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if data == nil || json.Unmarshal(data, &body) != nil {
		return core.FallbackAPIMessage
	}
	if msg, ok := body.Message.(string); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	if msg := detailMessage(body.Detail); msg != "" {
		return msg
	}
	return core.FallbackAPIMessage
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// PathWithQuery appends the non-empty values of q to path.
func PathWithQuery(path string, q url.Values) string {
	for k, vs := range q {
		if len(vs) == 0 || (len(vs) == 1 && vs[0] == "") {
			delete(q, k)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Escape escapes a path segment.
func Escape(segment string) string {
	return url.PathEscape(segment)
}
