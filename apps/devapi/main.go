// Command devapi serves an in-memory TripSync API for local development.
package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/tripsync/apps/devapi/echo"
	"github.com/trezcool/tripsync/core"
	logsvc "github.com/trezcool/tripsync/services/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	seedPwd := flag.String("seed", "", "seed the demo accounts with this password")
	flag.Parse()

	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DEVAPI"), conf)

	db := echoapi.NewDB(0)
	if *seedPwd != "" {
		if err := echoapi.Seed(db, *seedPwd); err != nil {
			logger.Fatal(fmt.Sprintf("seeding: %v", err), err)
		}
		logger.Info("seeded demo accounts: " + echoapi.DemoAdminEmail + ", " + echoapi.DemoDriverEmail +
			", " + echoapi.DemoStudentEmail + ", " + echoapi.DemoParentEmail)
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:   conf.DevServer.Host,
		AppName:   conf.AppName,
		SecretKey: conf.DevServer.SecretKey,
		TokenTTL:  conf.DevServer.JWTExpirationDelta,
		Debug:     conf.Debug,
		Logger:    logger,
		DB:        db,
	})

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
