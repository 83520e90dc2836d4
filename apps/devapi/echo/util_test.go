package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	logsvc "github.com/trezcool/tripsync/services/logger"
)

const seedPassword = "s3cret!"

type httpTest struct {
	name       string
	method     string
	path       string
	body       interface{}
	token      string
	wantCode   int
	wantDetail interface{}
}

func setup(t *testing.T) (*server, *DB) {
	db := NewDB(bcrypt.MinCost)
	require.NoError(t, Seed(db, seedPassword))
	srv := NewServer(&Options{
		AppName:        "tripsync-test",
		SecretKey:      "test-secret",
		DisableReqLogs: true,
		Logger:         logsvc.NewDiscardLogger(),
		DB:             db,
	})
	return srv.(*server), db
}

func newAuthRequest(method, path, token string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func do(t *testing.T, h http.Handler, method, path, token string, body, out interface{}) int {
	req, rec := newAuthRequest(method, path, token, body)
	h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func login(t *testing.T, h http.Handler, email, pwd string) string {
	var resp LoginResponse
	code := do(t, h, http.MethodPost, "/api/login", "", LoginRequest{Email: email, Password: pwd}, &resp)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func runHTTPTests(t *testing.T, h http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp struct {
				Detail interface{} `json:"detail"`
			}
			code := do(t, h, tt.method, tt.path, tt.token, tt.body, &resp)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantDetail != nil {
				assert.Equal(t, tt.wantDetail, resp.Detail)
			}
		})
	}
}
