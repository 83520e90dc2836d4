// Command admin is the TripSync admin dashboard for the terminal.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/app"
	emailsvc "github.com/trezcool/tripsync/services/email"
	logsvc "github.com/trezcool/tripsync/services/logger"
	"github.com/trezcool/tripsync/storage/keyvalue"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN"), conf)

	if err := run(conf, os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		os.Exit(1)
	}
}

func run(conf *core.Config, args []string) error {
	// the migrate command only needs the database
	if len(args) > 1 && args[1] == "migrate" {
		cli := commandLine{conf: conf, out: os.Stdout}
		return cli.run(args)
	}

	ctx := context.Background()
	kv, err := keyvalue.Open(ctx, conf.Session)
	if err != nil {
		return err
	}
	defer kv.Close()

	mail, closeMail := mailService(conf)
	defer closeMail()

	a := app.New(conf, kv, logger, mail)
	a.Initialize(ctx)

	// start CLI
	cli := commandLine{app: a, conf: conf, out: os.Stdout}
	return cli.run(args)
}

// mailService picks SendGrid when a key is set, else a console writer to a file in debug mode.
func mailService(conf *core.Config) (core.EmailService, func()) {
	if conf.SendgridApiKey != "" {
		svc := emailsvc.NewSendgridService(conf, logger)
		return svc, svc.Wait
	}
	if !conf.Debug {
		return nil, func() {}
	}
	path := filepath.Join(filepath.Dir(conf.Session.File), "outbox.eml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Warn("admin: creating outbox dir", err)
		return nil, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger.Warn("admin: opening outbox", err)
		return nil, func() {}
	}
	svc := emailsvc.NewConsoleService(conf, f, logger)
	return svc, func() {
		svc.Wait()
		_ = f.Close()
	}
}
