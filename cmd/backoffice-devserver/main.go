// Command backoffice-devserver serves the in-process fake API on a fixed port so
// the CLI can be tried out without a real backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/backoffice/internal/apitest"
	"github.com/tansive/backoffice/internal/common/logtrace"
)

type cmdoptions struct {
	addr        string
	username    string
	password    string
	displayName string
	logLevel    string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.addr, "addr", ":8000", "listen address")
	flag.StringVar(&opt.username, "username", "admin", "username accepted by /auth/login")
	flag.StringVar(&opt.password, "password", "admin", "password accepted by /auth/login")
	flag.StringVar(&opt.displayName, "display-name", "Administrator", "display name returned on login")
	flag.StringVar(&opt.logLevel, "log-level", "info", "log level")
	flag.Parse()
	return opt
}

func run(ctx context.Context) error {
	opt := parseFlags()
	logtrace.InitLogger(opt.logLevel)
	slog := log.With().Str("state", "init").Logger()

	backend := apitest.NewBackend()
	backend.AddUser(opt.username, opt.password, opt.displayName)

	srv := &http.Server{
		Addr:              opt.addr,
		Handler:           backend.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info().Str("addr", opt.addr).Str("username", opt.username).Msg("dev server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	// Give outstanding requests 5 seconds to complete.
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error().Err(err).Msg("could not stop server gracefully")
		if err := srv.Close(); err != nil {
			slog.Error().Err(err).Msg("could not stop server")
		}
	}
	slog.Info().Msg("server stopped")
	return nil
}
