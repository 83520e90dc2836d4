package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/app"
	"github.com/trezcool/tripsync/core/messaging"
	"github.com/trezcool/tripsync/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in: run `mobile login -email EMAIL` first")
)

type commandLine struct {
	app *app.App
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL     - log in (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout                 - log out and forget the session")
	fmt.Fprintln(cli.out, "  whoami                 - print the role of the current session")
	fmt.Fprintln(cli.out, "  password               - change your password")
	fmt.Fprintln(cli.out, "  track [-n N]           - poll your bus location N times")
	fmt.Fprintln(cli.out, "  SCREEN [ARGS]          - open a screen of your role:")
	fmt.Fprintln(cli.out, "    student: profile bus route driver attendance complaints")
	fmt.Fprintln(cli.out, "             complain -category C TEXT, messages, chat, say TEXT")
	fmt.Fprintln(cli.out, "    driver:  profile students bus schedule groups leaves [-status S]")
	fmt.Fprintln(cli.out, "             leave -date YYYY-MM-DD REASON, cancel-leave ID, notify TEXT,")
	fmt.Fprintln(cli.out, "             location -lat LAT -long LONG [-bus NUMBER]")
	fmt.Fprintln(cli.out, "    parent:  profile child attendance [-from D] [-to D] bus routes messages")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := cli.newFlagSet("login")
	loginEmail := loginCmd.String("email", "", "Your email. The password will be prompted next.")

	trackCmd := cli.newFlagSet("track")
	trackTimes := trackCmd.Int("n", 3, "Number of refreshes.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginEmail, pwd)
	case "logout":
		cli.app.Logout(context.Background())
		fmt.Fprintln(cli.out, "Logged out")
		return nil
	case "whoami":
		role, err := cli.role()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Logged in as %s\n", role)
		return nil
	case "password":
		return cli.changePassword()
	case "track":
		if err := trackCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *trackTimes < 1 {
			trackCmd.Usage()
			return errHelp
		}
		return cli.track(*trackTimes)
	case "-h", "-help", "--help", "help":
		cli.printUsage()
		return errHelp
	}

	role, err := cli.role()
	if err != nil {
		return err
	}
	switch role {
	case session.RoleStudent:
		err = cli.studentScreen(args[1], args[2:])
	case session.RoleDriver:
		err = cli.driverScreen(args[1], args[2:])
	case session.RoleParent:
		err = cli.parentScreen(args[1], args[2:])
	default:
		err = errors.Wrapf(app.ErrWrongRole, "use the admin command (logged in as %s)", role)
	}
	if errors.Cause(err) == errUnknownScreen {
		cli.printUsage()
		return errHelp
	}
	return err
}

var errUnknownScreen = errors.New("unknown screen")

func (cli *commandLine) role() (session.Role, error) {
	role, err := cli.app.Role()
	if errors.Cause(err) == core.ErrNotAuthenticated {
		return "", errNotLoggedIn
	}
	return role, err
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// fail turns err into the message shown to the user; an authorization failure logs out.
func (cli *commandLine) fail(err error, fallback string) error {
	return errors.New(cli.app.HandleError(context.Background(), err, fallback))
}

func (cli *commandLine) login(email, pwd string) error {
	ctx := context.Background()
	role, err := cli.app.Login(ctx, core.CleanString(email, true /* lower */), pwd)
	if err != nil {
		return errors.New(core.UserMessage(err, "Login failed"))
	}
	if role == session.RoleAdmin {
		cli.app.Logout(ctx)
		return errors.Wrapf(app.ErrWrongRole, "%s is an admin account: use the admin command", email)
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s)\n", email, role)
	return nil
}

type passwordChanger interface {
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

func (cli *commandLine) changePassword() error {
	role, err := cli.role()
	if err != nil {
		return err
	}
	var svc passwordChanger
	switch role {
	case session.RoleStudent:
		svc, err = cli.app.Student()
	case session.RoleDriver:
		svc, err = cli.app.Driver()
	case session.RoleParent:
		svc, err = cli.app.Parent()
	default:
		err = errors.Wrapf(app.ErrWrongRole, "use the admin command (logged in as %s)", role)
	}
	if err != nil {
		return err
	}

	oldPwd, err := cli.promptPassword("Current password:")
	if err != nil {
		return err
	}
	newPwd, err := cli.promptPassword("New password:")
	if err != nil {
		return err
	}
	if err := svc.ChangePassword(context.Background(), oldPwd, newPwd); err != nil {
		return cli.fail(err, "Failed to change password")
	}
	fmt.Fprintln(cli.out, "Password changed")
	return nil
}

// text joins the remaining arguments into a message body.
func text(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (cli *commandLine) printMessages(msgs []messaging.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(cli.out, "No messages yet")
		return
	}
	for _, m := range msgs {
		sender := m.Sender.Name
		if sender == "" {
			sender = m.Sender.Role
		}
		fmt.Fprintf(cli.out, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), sender, m.Content)
	}
}

// pageFlags parses -limit and -skip.
func (cli *commandLine) pageFlags(name string, args []string) (limit, skip int, err error) {
	fs := cli.newFlagSet(name)
	l := fs.Int("limit", 0, "Number of messages (default 50).")
	s := fs.Int("skip", 0, "Number of newest messages to skip.")
	if err := fs.Parse(args); err != nil {
		return 0, 0, err
	}
	return *l, *s, nil
}
