package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	"github.com/trezcool/sanaa/apps/api/di"
	echoapi "github.com/trezcool/sanaa/apps/api/echo"
	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/services/tracing"
)

type app struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	DB       *sqlx.DB
	Server   *echoapi.Server
}

func main() {
	c := di.New()
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(a app) {
	conf, logger := a.Conf, a.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	core.ParseEmailTemplates(logger, !conf.Debug)

	shutdownTracing, err := tracing.Setup(context.Background(), conf, "sanaa-api")
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up tracing: %v", err), err)
	}

	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Error("Failed to close", err)
		}
	}()
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
		serverErrors <- a.Server.Start()
	}()

	// =========================================================================
	// Shutdown

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-signals:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		shutdown(a)

	case <-a.Server.ShutdownRequested():
		logger.Info("integrity issue: Start shutdown...")
		shutdown(a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn(fmt.Sprintf("flushing traces: %v", err), err)
	}
}

func shutdown(a app) {
	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), a.Conf.Server.ShutdownTimeout)
	defer cancel()

	// asking listener to shut down and shed load
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
