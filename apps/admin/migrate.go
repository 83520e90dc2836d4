package main

import (
	"context"
)

// migrate runs a goose command against the Postgres session backend.
func (cli *commandLine) migrate(args []string) error {
	db, err := openDBFunc(context.Background(), cli.conf.Session.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrateFunc(db.DB, args[0], args[1:]...)
}
