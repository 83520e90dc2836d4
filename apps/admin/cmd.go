package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/admin"
	"github.com/trezcool/tripsync/core/app"
	postgreskv "github.com/trezcool/tripsync/storage/keyvalue/postgres"
)

var (
	readPasswordFunc = term.ReadPassword  // mockable
	migrateFunc      = postgreskv.Migrate // mockable
	openDBFunc       = postgreskv.Open    // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in: run `admin login -email EMAIL` first")
)

type commandLine struct {
	app  *app.App
	conf *core.Config
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                  - log in (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout                              - log out and forget the session")
	fmt.Fprintln(cli.out, "  dashboard                           - load and print the dashboard")
	fmt.Fprintln(cli.out, "  ops                                 - list the operations and their fields")
	fmt.Fprintln(cli.out, "  op TAG [key=value ...]              - run an operation, eg. op addBus number=AP-1")
	fmt.Fprintln(cli.out, "  leaves [-status STATUS]             - list leave requests")
	fmt.Fprintln(cli.out, "  enroll -roll R -front F -left L -right R - enroll a student's face")
	fmt.Fprintln(cli.out, "  track [-n N]                        - poll bus locations N times")
	fmt.Fprintln(cli.out, "  export -roll R -out FILE.xlsx       - export a student's attendance")
	fmt.Fprintln(cli.out, "  password                            - change your password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]              - run the session database migrations")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := cli.newFlagSet("login")
	loginEmail := loginCmd.String("email", "", "The admin's email. The password will be prompted next.")

	leavesCmd := cli.newFlagSet("leaves")
	leavesStatus := leavesCmd.String("status", "", "Filter by status: pending, approved or rejected.")

	enrollCmd := cli.newFlagSet("enroll")
	enrollRoll := enrollCmd.String("roll", "", "The student's roll number.")
	enrollFront := enrollCmd.String("front", "", "Path of the front view image.")
	enrollLeft := enrollCmd.String("left", "", "Path of the left view image.")
	enrollRight := enrollCmd.String("right", "", "Path of the right view image.")

	trackCmd := cli.newFlagSet("track")
	trackTimes := trackCmd.Int("n", 3, "Number of refreshes.")

	exportCmd := cli.newFlagSet("export")
	exportRoll := exportCmd.String("roll", "", "The student's roll number.")
	exportOut := exportCmd.String("out", "", "Path of the XLSX file to write.")

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
		return cli.logout()
	case "dashboard":
		return cli.dashboard()
	case "ops":
		cli.listOps()
		return nil
	case "op":
		if len(args) < 3 {
			cli.listOps()
			return errHelp
		}
		form, err := parseForm(args[3:])
		if err != nil {
			return err
		}
		return cli.runOp(admin.OpTag(args[2]), form)
	case "leaves":
		if err := leavesCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.leaves(*leavesStatus)
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollRoll == "" {
			enrollCmd.Usage()
			return errHelp
		}
		return cli.enroll(*enrollRoll, *enrollFront, *enrollLeft, *enrollRight)
	case "track":
		if err := trackCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *trackTimes < 1 {
			trackCmd.Usage()
			return errHelp
		}
		return cli.track(*trackTimes)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportRoll == "" || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportRoll, *exportOut)
	case "password":
		return cli.changePassword()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
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

// parseForm reads key=value arguments into an operation form.
func parseForm(args []string) (admin.Form, error) {
	form := make(admin.Form, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid field %q: expected key=value", arg)
		}
		form[key] = value
	}
	return form, nil
}

// adminService returns the admin service of the current session.
func (cli *commandLine) adminService() (*admin.Service, error) {
	svc, err := cli.app.Admin()
	if errors.Cause(err) == core.ErrNotAuthenticated {
		return nil, errNotLoggedIn
	}
	return svc, err
}
