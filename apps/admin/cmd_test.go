package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/tripsync/apps/devapi/echo"
	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/app"
	logsvc "github.com/trezcool/tripsync/services/logger"
	memorykv "github.com/trezcool/tripsync/storage/keyvalue/memory"
)

const seedPassword = "s3cret!"

type mailbox struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailbox) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *mailbox) {
	db := echoapi.NewDB(bcrypt.MinCost)
	require.NoError(t, echoapi.Seed(db, seedPassword))
	srv := httptest.NewServer(echoapi.NewServer(&echoapi.Options{
		SecretKey:      "test-secret",
		DisableReqLogs: true,
		Logger:         logsvc.NewDiscardLogger(),
		DB:             db,
	}))
	t.Cleanup(srv.Close)

	conf := &core.Config{APIBaseURL: srv.URL, PollInterval: 5 * time.Millisecond, EnrollSuccessDelay: time.Millisecond}
	mail := new(mailbox)
	a := app.New(conf, memorykv.Open(), logsvc.NewDiscardLogger(), mail)
	t.Cleanup(func() { a.Logout(context.Background()) })

	out := new(bytes.Buffer)
	return &commandLine{app: a, conf: conf, out: out}, out, mail
}

func withPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func loginAdmin(t *testing.T, cli *commandLine) {
	withPassword(seedPassword)
	require.NoError(t, cli.run([]string{"admin", "login", "-email", echoapi.DemoAdminEmail}))
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_login(t *testing.T) {
	cli, _, _ := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"login"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"login", "-email", "lol@x.com"}, wantErr: errHelp},
		{name: "wrong password", args: []string{"login", "-email", echoapi.DemoAdminEmail}, extra: extra{pwd: "lol"}, wantErrStr: "Invalid email or password"},
		{name: "not an admin", args: []string{"login", "-email", echoapi.DemoDriverEmail}, extra: extra{pwd: seedPassword}, wantErr: app.ErrWrongRole},
		{name: "not logged in", args: []string{"dashboard"}, wantErr: errNotLoggedIn},
		{name: "admin", args: []string{"login", "-email", "  " + echoapi.DemoAdminEmail}, extra: extra{pwd: seedPassword}},
	}
	for i := range tests {
		pwd := ""
		if e, ok := tests[i].extra.(extra); ok {
			pwd = e.pwd
		}
		withPassword(pwd)
		runCLITests(t, cli, tests[i:i+1])
	}
	assert.True(t, cli.app.Session().IsAuthenticated())

	require.NoError(t, cli.run([]string{"admin", "logout"}))
	assert.False(t, cli.app.Session().IsAuthenticated())
}

func Test_commandLine_op(t *testing.T) {
	cli, out, mail := setup(t)
	loginAdmin(t, cli)

	runCLITests(t, cli, []cliTest{
		{name: "no tag", args: []string{"op"}, wantErr: errHelp},
		{name: "typo", args: []string{"op", "adBus"}, wantErrStr: `did you mean "addBus"`},
		{name: "bad field", args: []string{"op", "addBus", "number"}, wantErrStr: "expected key=value"},
		{name: "missing number", args: []string{"op", "addBus"}, wantErrStr: "number"},
		{name: "add bus", args: []string{"op", "addBus", "number=AP-9", "route=" + echoapi.DemoRoute}},
		{name: "duplicate bus", args: []string{"op", "addBus", "number=AP-9"}, wantErrStr: "Bus number already exists"},
		{
			name: "add student",
			args: []string{"op", "addStudent", "roll_no=21BCE7100", "name=Sita", "email=sita@tripsync.dev", "assignedBus=AP-9"},
		},
		{name: "dashboard", args: []string{"dashboard"}},
	})

	assert.Contains(t, out.String(), "AP-9")
	assert.Contains(t, out.String(), "credentials emailed")
	assert.NotContains(t, out.String(), "defaultPassword")
	assert.Len(t, mail.sent, 1)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "op", "viewAttendance", "roll_no=" + echoapi.DemoRollNo}))
	assert.Contains(t, out.String(), "4/5 days present (80.00%)")
}

func Test_commandLine_export(t *testing.T) {
	cli, _, _ := setup(t)
	loginAdmin(t, cli)
	path := filepath.Join(t.TempDir(), "attendance.xlsx")

	runCLITests(t, cli, []cliTest{
		{name: "no roll", args: []string{"export", "-out", path}, wantErr: errHelp},
		{name: "export", args: []string{"export", "-roll", echoapi.DemoRollNo, "-out", path}},
	})

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	assert.Len(t, rows, 6) // header + 5 records
}

func Test_commandLine_enroll(t *testing.T) {
	cli, out, _ := setup(t)
	dir := t.TempDir()
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	for _, name := range []string{"front.jpg", "left.jpg", "right.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), jpeg, 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))
	img := func(name string) string { return filepath.Join(dir, name) }

	runCLITests(t, cli, []cliTest{
		{name: "not logged in", args: []string{"enroll", "-roll", echoapi.DemoRollNo}, wantErr: errNotLoggedIn},
	})
	loginAdmin(t, cli)
	runCLITests(t, cli, []cliTest{
		{name: "no roll", args: []string{"enroll"}, wantErr: errHelp},
		{name: "missing views", args: []string{"enroll", "-roll", echoapi.DemoRollNo, "-front", img("front.jpg")}, wantErrStr: "all three face views"},
		{name: "not an image", args: []string{"enroll", "-roll", echoapi.DemoRollNo, "-front", img("notes.txt")}, wantErrStr: "valid image"},
		{
			name: "unknown student",
			args: []string{"enroll", "-roll", "nobody", "-front", img("front.jpg"), "-left", img("left.jpg"), "-right", img("right.jpg")},
			wantErrStr: "Student not found",
		},
		{
			name: "enroll",
			args: []string{"enroll", "-roll", echoapi.DemoRollNo, "-front", img("front.jpg"), "-left", img("left.jpg"), "-right", img("right.jpg")},
		},
	})
	assert.Contains(t, out.String(), "3 views encoded")
}

func Test_commandLine_track(t *testing.T) {
	cli, out, _ := setup(t)
	loginAdmin(t, cli)

	runCLITests(t, cli, []cliTest{
		{name: "zero", args: []string{"track", "-n", "0"}, wantErr: errHelp},
		{name: "track", args: []string{"track", "-n", "2"}},
	})
	assert.Contains(t, out.String(), "#2: 1 buses")
	assert.Contains(t, out.String(), echoapi.DemoBusNumber)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	openDBFunc = func(ctx context.Context, url string) (*sqlx.DB, error) {
		return sqlx.Open("postgres", "postgres://localhost/tripsync_test?sslmode=disable")
	}
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "sessions", "sql"}},
	})
}
