// Package apitest provides a scripted API server for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apisvc "github.com/trezcool/tripsync/services/api"
	logsvc "github.com/trezcool/tripsync/services/logger"
)

// Call is a request received by the Server.
type Call struct {
	Method string
	Path   string // with query
	Body   []byte
	Header http.Header
}

// Decode unmarshals the call's JSON body into v.
func (c Call) Decode(v interface{}) error { return json.Unmarshal(c.Body, v) }

// Server answers requests keyed by "METHOD /path" (path without the query string).
// Unknown routes respond 404 {"detail": "Not Found"}.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method and path, replacing any previous handler.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	s.routes[method+" "+path] = h
	s.mu.Unlock()
}

// JSON registers a handler replying status with body encoded as JSON.
func (s *Server) JSON(method, path string, status int, body interface{}) {
	s.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		Reply(w, status, body)
	})
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the requests received for method and path.
func (s *Server) CallsTo(method, path string) []Call {
	out := make([]Call, 0)
	for _, c := range s.Calls() {
		if c.Method == method && (c.Path == path || len(c.Path) > len(path) && c.Path[:len(path)+1] == path+"?") {
			out = append(out, c)
		}
	}
	return out
}

// Client returns an API client of the server authenticated with token.
func (s *Server) Client(token string) *apisvc.Client {
	return apisvc.NewClient(s.URL, staticToken(token), logsvc.NewDiscardLogger())
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.RequestURI(), Body: body, Header: r.Header.Clone()})
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !ok {
		Reply(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(w, r)
}

func Reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type staticToken string

func (t staticToken) Token() string { return string(t) }
