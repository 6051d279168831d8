/*
main.go - Server entry point

PURPOSE:
  Starts the financial planning engine API server: loads configuration from
  the environment, opens the SQLite store, wires the handlers, and serves
  HTTP with graceful shutdown.

USAGE:
  finance-server [-port 8080] [-db ./data/finance.db]

  Flags override the PORT and DB_PATH environment variables.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/studiobooks/finance-engine/api"
	"github.com/studiobooks/finance-engine/config"
	"github.com/studiobooks/finance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger isn't configured yet; write plainly and exit.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP listen port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	log := newLogger(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open store")
	}
	defer store.Close()

	handler, err := api.NewHandler(store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire handlers")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(handler, log, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("db", cfg.DBPath).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
