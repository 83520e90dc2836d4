// Package app wires a login to its role: the session scope, the role's store and service,
// and the pollers bound to them. Logging out discards the whole scope.
package app

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/admin"
	"github.com/trezcool/tripsync/core/driver"
	"github.com/trezcool/tripsync/core/face"
	"github.com/trezcool/tripsync/core/parent"
	"github.com/trezcool/tripsync/core/poller"
	"github.com/trezcool/tripsync/core/session"
	"github.com/trezcool/tripsync/core/student"
	apisvc "github.com/trezcool/tripsync/services/api"
)

var ErrWrongRole = errors.New("not available for this role")

// scope is everything built for one login.
type scope struct {
	session *session.Scope

	student *student.Service
	driver  *driver.Service
	parent  *parent.Service
	admin   *admin.Service

	mu      sync.Mutex
	pollers []*poller.Poller
}

func (sc *scope) role() session.Role { return sc.session.Role }

// close stops the pollers and clears the role store.
// Without wait, in-flight fetches are cancelled but not awaited.
func (sc *scope) close(wait bool) {
	sc.mu.Lock()
	pollers := sc.pollers
	sc.pollers = nil
	sc.mu.Unlock()
	for _, p := range pollers {
		if wait {
			p.Stop()
		} else {
			p.Cancel()
		}
	}

	switch {
	case sc.student != nil:
		sc.student.Store().ClearStudentData()
	case sc.driver != nil:
		sc.driver.Store().ClearDriverData()
	case sc.parent != nil:
		sc.parent.Store().ClearParentData()
	case sc.admin != nil:
		sc.admin.Store().ClearAdminData()
	}
}

type App struct {
	conf    *core.Config
	logger  core.Logger
	mail    core.EmailService
	session *session.Store
	api     *apisvc.Client

	mu    sync.RWMutex
	scope *scope
}

// New builds the app; the API client authenticates with the session's token.
// mail may be nil, in which case undelivered student credentials are withheld.
func New(conf *core.Config, kv core.KeyValueStore, logger core.Logger, mail core.EmailService) *App {
	sess := session.NewStore(kv, logger)
	return &App{
		conf:    conf,
		logger:  logger,
		mail:    mail,
		session: sess,
		api:     apisvc.NewClient(conf.APIBaseURL, sess, logger),
	}
}

func (a *App) Session() *session.Store { return a.session }
func (a *App) API() *apisvc.Client     { return a.api }

// Initialize rehydrates a persisted session and rebuilds its role scope.
func (a *App) Initialize(ctx context.Context) {
	a.session.Initialize(ctx)
	if sc := a.session.Scope(); sc != nil {
		a.activate(sc)
	}
}

// Login authenticates against the API and builds the scope of the returned role.
// A previous login is logged out first.
func (a *App) Login(ctx context.Context, email, password string) (session.Role, error) {
	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	role, err := session.ParseRole(res.Role)
	if err != nil {
		return "", err
	}

	a.closeScope(true)
	sc, err := a.session.Login(ctx, res.Token, role)
	if err != nil {
		// the previous login is gone; do not leave its token behind
		a.session.Logout(ctx)
		return "", err
	}
	a.activate(sc)
	a.logger.Info("app: logged in as " + string(role))
	return role, nil
}

func (a *App) activate(sc *session.Scope) {
	s := &scope{session: sc}
	switch sc.Role {
	case session.RoleStudent:
		s.student = student.NewService(a.api, student.NewStore(), a.logger)
	case session.RoleDriver:
		s.driver = driver.NewService(a.api, driver.NewStore(), a.logger)
	case session.RoleParent:
		s.parent = parent.NewService(a.api, parent.NewStore(), a.logger)
	case session.RoleAdmin:
		s.admin = admin.NewService(a.api, admin.NewStore(), a.logger, a.mail)
	}

	a.mu.Lock()
	old := a.scope
	a.scope = s
	a.mu.Unlock()
	if old != nil {
		old.close(true)
	}
}

func (a *App) closeScope(wait bool) {
	a.mu.Lock()
	sc := a.scope
	a.scope = nil
	a.mu.Unlock()
	if sc != nil {
		sc.close(wait)
	}
}

// Logout stops the pollers, clears the role store, discards the scope and clears the session.
func (a *App) Logout(ctx context.Context) {
	a.closeScope(true)
	a.session.Logout(ctx)
}

func (a *App) current() (*scope, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.scope == nil || !a.scope.session.Active() {
		return nil, core.ErrNotAuthenticated
	}
	return a.scope, nil
}

// Role returns the role of the current login.
func (a *App) Role() (session.Role, error) {
	sc, err := a.current()
	if err != nil {
		return "", err
	}
	return sc.role(), nil
}

func (a *App) Student() (*student.Service, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	if sc.student == nil {
		return nil, errors.Wrapf(ErrWrongRole, "student screens (logged in as %s)", sc.role())
	}
	return sc.student, nil
}

func (a *App) Driver() (*driver.Service, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	if sc.driver == nil {
		return nil, errors.Wrapf(ErrWrongRole, "driver screens (logged in as %s)", sc.role())
	}
	return sc.driver, nil
}

func (a *App) Parent() (*parent.Service, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	if sc.parent == nil {
		return nil, errors.Wrapf(ErrWrongRole, "parent screens (logged in as %s)", sc.role())
	}
	return sc.parent, nil
}

func (a *App) Admin() (*admin.Service, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	if sc.admin == nil {
		return nil, errors.Wrapf(ErrWrongRole, "admin dashboard (logged in as %s)", sc.role())
	}
	return sc.admin, nil
}

// Bind returns a context that is cancelled at logout.
func (a *App) Bind(ctx context.Context) (context.Context, context.CancelFunc, error) {
	sc, err := a.current()
	if err != nil {
		return nil, nil, err
	}
	bound, cancel := sc.session.Bind(ctx)
	return bound, cancel, nil
}

// Poll starts a poller of fetch bound to the current scope; it is stopped at logout.
func (a *App) Poll(fetch func(ctx context.Context) error) (*poller.Poller, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	p := poller.New(a.conf.PollInterval, fetch, a.logger)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.session.Active() {
		return nil, core.ErrNotAuthenticated
	}
	sc.pollers = append(sc.pollers, p)
	p.Start(sc.session.Context())
	return p, nil
}

// TrackBus polls the bus location path of the current role.
func (a *App) TrackBus() (*poller.Poller, error) {
	sc, err := a.current()
	if err != nil {
		return nil, err
	}
	var fetch func(ctx context.Context) error
	switch {
	case sc.student != nil:
		fetch = func(ctx context.Context) error { _, err := sc.student.FetchBus(ctx); return err }
	case sc.driver != nil:
		fetch = func(ctx context.Context) error { _, err := sc.driver.FetchBus(ctx); return err }
	case sc.parent != nil:
		fetch = func(ctx context.Context) error { _, err := sc.parent.FetchChildBus(ctx, ""); return err }
	case sc.admin != nil:
		fetch = sc.admin.FetchBuses
	}
	return a.Poll(fetch)
}

// Enrollment starts a face enrollment session for rollNo (admin only).
func (a *App) Enrollment(rollNo string, onSuccess func()) (*face.Enrollment, error) {
	if _, err := a.Admin(); err != nil {
		return nil, err
	}
	return face.New(a.api, rollNo, a.conf.EnrollSuccessDelay, onSuccess, a.logger), nil
}

// HandleError maps err to the message shown to the user.
// An authorization failure forces a logout.
func (a *App) HandleError(ctx context.Context, err error, fallback string) string {
	if err == nil {
		return ""
	}
	if core.IsUnauthorized(err) && a.session.IsAuthenticated() {
		a.logger.Warn("app: authorization failed, logging out", err)
		// HandleError may run inside a poller fetch, which Stop would wait on forever
		a.closeScope(false)
		a.session.Logout(context.WithoutCancel(ctx))
	}
	return core.UserMessage(err, fallback)
}
