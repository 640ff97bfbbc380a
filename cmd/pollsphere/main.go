// Package main is the PollSphere terminal client.
//
// Usage:
//
//	pollsphere [-backend URL] [-state DIR] <command> [flags]
//
// Commands: login, register, logout, whoami, polls, create, vote,
// leaderboard, profile, achievements, shell.
//
// Settings come from the environment first (POLLSPHERE_BACKEND_URL,
// POLLSPHERE_STATE_DIR, LOG_LEVEL, optionally via a .env file); the global
// flags override them. The signed-in user is kept in <state>/state.json, so
// commands run one after another share a session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pollsphere/pollsphere/internal/app"
	"github.com/pollsphere/pollsphere/internal/client"
	"github.com/pollsphere/pollsphere/internal/config"
	"github.com/pollsphere/pollsphere/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

// cli bundles the wiring every command needs.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	api   *client.Client
	store *session.Store
	app   *app.App
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(stderr, "pollsphere:", err)
		return 1
	}

	fs := flag.NewFlagSet("pollsphere", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "backend origin, e.g. http://localhost:8080")
	fs.StringVar(&cfg.StateDir, "state", cfg.StateDir, "directory holding the saved session")
	verbose := fs.Bool("v", false, "log debug output to stderr")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if *verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	api := client.New(cfg.BackendURL, client.WithLogger(logger))
	store := session.New(api, session.NewFileStorage(cfg.StateDir), logger)
	c := &cli{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
		api:    api,
		store:  store,
		app:    app.New(store, api, logger),
	}

	if err := store.Restore(); err != nil {
		fmt.Fprintln(stderr, "pollsphere:", err)
		return 1
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "pollsphere: unknown command %q\n", name)
		fs.Usage()
		return 2
	}

	if err := cmd.run(ctx, c, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "pollsphere:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: pollsphere [flags] <command> [command flags]")
	fmt.Fprintln(out, "\ncommands:")
	for _, name := range commandOrder {
		fmt.Fprintf(out, "  %-13s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}
