package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/internal/apitest"
	logsvc "github.com/trezcool/tripsync/services/logger"
	memorykv "github.com/trezcool/tripsync/storage/keyvalue/memory"
)

func newTestApp(t *testing.T, kv core.KeyValueStore) (*App, *apitest.Server) {
	srv := apitest.NewServer(t)
	conf := &core.Config{
		APIBaseURL:         srv.URL,
		PollInterval:       5 * time.Millisecond,
		EnrollSuccessDelay: time.Millisecond,
	}
	a := New(conf, kv, logsvc.NewDiscardLogger(), nil)
	t.Cleanup(func() { a.Logout(context.Background()) })
	return a, srv
}

func loginAs(t *testing.T, a *App, srv *apitest.Server, role string) {
	srv.JSON(http.MethodPost, "/api/login", 200, map[string]string{"token": "tok-" + role, "role": role})
	got, err := a.Login(context.Background(), "someone@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, session.Role(role), got)
}

func TestApp_LoginBuildsRoleScope(t *testing.T) {
	tests := []struct {
		role    string
		student bool
		driver  bool
		parent  bool
		admin   bool
	}{
		{role: "student", student: true},
		{role: "driver", driver: true},
		{role: "parent", parent: true},
		{role: "admin", admin: true},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			a, srv := newTestApp(t, memorykv.Open())
			loginAs(t, a, srv, tt.role)

			_, err := a.Student()
			assert.Equal(t, tt.student, err == nil)
			_, err = a.Driver()
			assert.Equal(t, tt.driver, err == nil)
			_, err = a.Parent()
			assert.Equal(t, tt.parent, err == nil)
			_, err = a.Admin()
			assert.Equal(t, tt.admin, err == nil)
			if !tt.admin {
				assert.Equal(t, ErrWrongRole, errors.Cause(err))
			}
		})
	}
}

func TestApp_LoginFailure(t *testing.T) {
	a, srv := newTestApp(t, memorykv.Open())
	srv.JSON(http.MethodPost, "/api/login", 401, map[string]string{"detail": "Invalid credentials"})

	_, err := a.Login(context.Background(), "someone@x.com", "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", core.UserMessage(err, "Login failed"))
	assert.False(t, a.Session().IsAuthenticated())
	_, err = a.Student()
	assert.Equal(t, core.ErrNotAuthenticated, err)

	srv.JSON(http.MethodPost, "/api/login", 200, map[string]string{"token": "tok", "role": "janitor"})
	_, err = a.Login(context.Background(), "someone@x.com", "pw")
	assert.Error(t, err)
	assert.False(t, a.Session().IsAuthenticated())
}

func TestApp_LogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	a, srv := newTestApp(t, memorykv.Open())
	srv.JSON(http.MethodGet, "/api/students/me/bus", 200, map[string]interface{}{"bus": map[string]string{"number": "KA-01"}})
	loginAs(t, a, srv, "student")

	svc, err := a.Student()
	require.NoError(t, err)
	_, err = svc.FetchBus(ctx)
	require.NoError(t, err)
	require.NotNil(t, svc.Store().Bus())

	bound, cancel, err := a.Bind(ctx)
	require.NoError(t, err)
	defer cancel()

	a.Logout(ctx)
	assert.False(t, a.Session().IsAuthenticated())
	assert.Empty(t, a.Session().Token())
	assert.Nil(t, svc.Store().Bus(), "role store is cleared")
	assert.Error(t, bound.Err(), "bound contexts are cancelled")

	_, err = a.Student()
	assert.Equal(t, core.ErrNotAuthenticated, err)
	_, err = a.TrackBus()
	assert.Equal(t, core.ErrNotAuthenticated, err)
}

func TestApp_ReloginStartsFresh(t *testing.T) {
	a, srv := newTestApp(t, memorykv.Open())
	srv.JSON(http.MethodGet, "/api/students/me/bus", 200, map[string]interface{}{"bus": map[string]string{"number": "KA-01"}})
	loginAs(t, a, srv, "student")
	first, err := a.Student()
	require.NoError(t, err)
	_, err = first.FetchBus(context.Background())
	require.NoError(t, err)

	loginAs(t, a, srv, "student")
	second, err := a.Student()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Nil(t, second.Store().Bus())
	assert.Nil(t, first.Store().Bus())
}

func TestApp_TrackBusStopsAtLogout(t *testing.T) {
	var calls int32
	a, srv := newTestApp(t, memorykv.Open())
	srv.Handle(http.MethodGet, "/api/students/me/bus", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		apitest.Reply(w, 200, map[string]interface{}{"bus": map[string]string{"number": "KA-01"}})
	})
	loginAs(t, a, srv, "student")

	_, err := a.TrackBus()
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, time.Millisecond)

	a.Logout(context.Background())
	after := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no poll after logout")
}

func TestApp_InitializeRestoresSession(t *testing.T) {
	kv := memorykv.Open()
	a, srv := newTestApp(t, kv)
	loginAs(t, a, srv, "driver")

	restored := New(&core.Config{APIBaseURL: srv.URL, PollInterval: time.Second}, kv, logsvc.NewDiscardLogger(), nil)
	restored.Initialize(context.Background())
	role, err := restored.Role()
	require.NoError(t, err)
	assert.Equal(t, session.RoleDriver, role)
	_, err = restored.Driver()
	assert.NoError(t, err)
	restored.Logout(context.Background())
}

func TestApp_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantLogout bool
	}{
		{name: "unauthorized", err: &core.APIError{Status: 401, Message: "Token expired"}, wantMsg: "Token expired", wantLogout: true},
		{name: "forbidden", err: &core.APIError{Status: 403, Message: core.FallbackAPIMessage}, wantMsg: "Could not load", wantLogout: true},
		{name: "server error", err: &core.APIError{Status: 500, Message: "Database down"}, wantMsg: "Database down"},
		{name: "plain error", err: errors.New("dial tcp: refused"), wantMsg: "Could not load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, srv := newTestApp(t, memorykv.Open())
			loginAs(t, a, srv, "parent")

			assert.Equal(t, tt.wantMsg, a.HandleError(context.Background(), tt.err, "Could not load"))
			assert.Equal(t, !tt.wantLogout, a.Session().IsAuthenticated())
		})
	}
}

func TestApp_HandleErrorInsidePoll(t *testing.T) {
	a, srv := newTestApp(t, memorykv.Open())
	srv.JSON(http.MethodGet, "/api/admin/buses", 401, map[string]string{"detail": "Token expired"})
	loginAs(t, a, srv, "admin")
	svc, err := a.Admin()
	require.NoError(t, err)

	msgs := make(chan string, 1)
	_, err = a.Poll(func(ctx context.Context) error {
		err := svc.FetchBuses(ctx)
		select {
		case msgs <- a.HandleError(ctx, err, "Could not load"):
		default:
		}
		return err
	})
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, "Token expired", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("forced logout from a poll tick did not return")
	}
	assert.False(t, a.Session().IsAuthenticated())
	_, err = a.Role()
	assert.Equal(t, core.ErrNotAuthenticated, err)
}

// failingKV fails every Set once fail is raised.
type failingKV struct {
	core.KeyValueStore
	fail atomic.Bool
}

func (kv *failingKV) Set(ctx context.Context, key, value string) error {
	if kv.fail.Load() {
		return errors.New("disk full")
	}
	return kv.KeyValueStore.Set(ctx, key, value)
}

func TestApp_LoginPersistFailureDropsPreviousSession(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KeyValueStore: memorykv.Open()}
	a, srv := newTestApp(t, kv)
	loginAs(t, a, srv, "student")
	require.Equal(t, "tok-student", a.Session().Token())

	kv.fail.Store(true)
	srv.JSON(http.MethodPost, "/api/login", 200, map[string]string{"token": "tok-admin", "role": "admin"})
	_, err := a.Login(ctx, "admin@x.com", "pw")
	require.Error(t, err)

	assert.False(t, a.Session().IsAuthenticated())
	assert.Empty(t, a.Session().Token())
	_, err = a.Role()
	assert.Equal(t, core.ErrNotAuthenticated, err)
	_, err = kv.Get(ctx, "token")
	assert.Error(t, err, "persisted token is cleared")
}

func TestApp_EnrollmentIsAdminOnly(t *testing.T) {
	a, srv := newTestApp(t, memorykv.Open())
	loginAs(t, a, srv, "driver")
	_, err := a.Enrollment("21BCE7", nil)
	assert.Equal(t, ErrWrongRole, errors.Cause(err))

	loginAs(t, a, srv, "admin")
	e, err := a.Enrollment("21BCE7", nil)
	require.NoError(t, err)
	e.Close()
}
