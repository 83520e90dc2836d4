package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/app"
	"github.com/trezcool/tripsync/core/session"
)

// login opens an admin session; any other role is logged out again.
func (cli *commandLine) login(email, pwd string) error {
	ctx := context.Background()
	role, err := cli.app.Login(ctx, core.CleanString(email, true /* lower */), pwd)
	if err != nil {
		return errors.New(core.UserMessage(err, "Login failed"))
	}
	if role != session.RoleAdmin {
		cli.app.Logout(ctx)
		return errors.Wrapf(app.ErrWrongRole, "%s is a %s account", email, role)
	}
	fmt.Fprintf(cli.out, "Logged in as %s\n", email)
	return nil
}

func (cli *commandLine) logout() error {
	cli.app.Logout(context.Background())
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}

func (cli *commandLine) changePassword() error {
	svc, err := cli.adminService()
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
	ctx := context.Background()
	if err := svc.ChangePassword(ctx, oldPwd, newPwd); err != nil {
		return errors.New(cli.app.HandleError(ctx, err, "Failed to change password"))
	}
	fmt.Fprintln(cli.out, "Password changed")
	return nil
}
