package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/fittrack/internal/client"
	"github.com/2beens/fittrack/internal/logging"

	"github.com/spf13/cobra"
)

const (
	defaultServer = "http://127.0.0.1:3001"
	flushTimeout  = 30 * time.Second
)

type app struct {
	server      string
	sessionPath string
	logLevel    string
	api         *client.API
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fittrack", "session.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (a *app) setup(*cobra.Command, []string) error {
	logging.Setup(logging.Params{
		Level:  a.logLevel,
		Output: os.Stderr,
	})

	api, err := client.NewAPI(a.server, nil)
	if err != nil {
		return err
	}
	if err := api.LoadSession(a.sessionPath); err != nil {
		return err
	}
	a.api = api
	return nil
}

// withState loads the snapshot, runs fn against the state store and waits for its
// queued changes to reach the server.
func (a *app) withState(ctx context.Context, fn func(st *client.State) error) error {
	st := client.NewState(a.api)
	defer st.Close()

	if err := st.Load(ctx); err != nil {
		return explain(err)
	}
	if err := fn(st); err != nil {
		return err
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := st.Flush(flushCtx); err != nil {
		return fmt.Errorf("waiting for the server: %w", err)
	}

	var errs []error
	for len(st.Errors()) > 0 {
		errs = append(errs, explain(<-st.Errors()))
	}
	return errors.Join(errs...)
}

func explain(err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("not logged in, run: fitctl login")
	case errors.Is(err, client.ErrSessionExpired):
		return errors.New("session expired, please log in again")
	default:
		return err
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}
