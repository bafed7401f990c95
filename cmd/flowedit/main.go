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

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/auth"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/events"
	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/palette"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// command is one flowedit subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"palette", "list node templates", runPalette},
	{"list", "list workflows", runList},
	{"show", "render a workflow", runShow},
	{"apply", "apply a YAML edit script", runApply},
	{"execute", "start a run of a workflow", runExecute},
	{"execution", "inspect (or cancel) a run", runExecution},
	{"ai", "test an AI node", runAI},
	{"suggest", "draft a workflow from a description", runSuggest},
	{"login", "log in and store the token", runLogin},
	{"mcp", "serve the editing tools over MCP stdio", runMCP},
	{"version", "print the version", nil},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: flowedit [flags] <command> [command flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// run parses global flags and dispatches to a subcommand. It returns the
// process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	cfg := loadConfig(getenv)

	fs := flag.NewFlagSet("flowedit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.bindFlags(fs)
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return 2
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", fs.Arg(0))
		usage(stderr, fs)
		return 2
	}
	if cmd.run == nil {
		printVersion(stdout)
		return 0
	}

	a, err := newApp(cfg, getenv, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app is the wiring shared by subcommands.
type app struct {
	cfg     Config
	getenv  func(string) string
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	creds   *auth.Credentials
	client  *api.Client
	hub     *events.MemoryHub
	palette *palette.Palette
	jq      *expressions.GoJQEngine
}

func newApp(cfg Config, getenv func(string) string, stdout, stderr io.Writer) (*app, error) {
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)

	p := palette.Default()
	if cfg.Catalog != "" {
		loaded, err := palette.LoadCatalog(cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("palette catalog: %w", err)
		}
		p = loaded
	}

	hub := events.NewMemoryHub()
	creds := auth.New(cfg.effectiveToken())
	creds.OnInvalidate(func(reason string) {
		logger.Warn("credentials invalidated", "reason", reason)
		_ = hub.Publish(context.Background(), events.Event{Type: events.TypeInvalidated, Payload: reason})
	})

	return &app{
		cfg:     cfg,
		getenv:  getenv,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
		creds:   creds,
		client:  api.New(cfg.APIURL, creds, api.WithLogger(logger)),
		hub:     hub,
		palette: p,
		jq:      expressions.NewGoJQEngine(),
	}, nil
}

func (a *app) deps() editor.Deps {
	return editor.Deps{
		Backend: a.client,
		Palette: a.palette,
		Hub:     a.hub,
		Logger:  a.logger,
	}
}

// flagSet creates a subcommand flag set that reports errors instead of
// exiting.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("flowedit "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}
