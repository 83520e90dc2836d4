// Command mobile is the terminal client for students, drivers and parents.
package main

import (
	"context"
	"os"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/app"
	logsvc "github.com/trezcool/tripsync/services/logger"
	"github.com/trezcool/tripsync/storage/keyvalue"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(logsvc.NewStdLogger("MOBILE"), conf)

	if err := run(conf, os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		os.Exit(1)
	}
}

func run(conf *core.Config, args []string) error {
	ctx := context.Background()
	kv, err := keyvalue.Open(ctx, conf.Session)
	if err != nil {
		return err
	}
	defer kv.Close()

	// only admins send credential emails
	a := app.New(conf, kv, logger, nil)
	a.Initialize(ctx)

	cli := commandLine{app: a, out: os.Stdout}
	return cli.run(args)
}
