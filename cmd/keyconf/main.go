// Package main is the entry point for keyconf, a tool that resolves,
// checks and inspects layered editor configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/dshills/keyconf/internal/config/loader"
	"github.com/dshills/keyconf/internal/config/watcher"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errProblems reports that the resolved configuration carries
// error-severity diagnostics.
var errProblems = errors.New("configuration has errors")

// options holds the parsed command line.
type options struct {
	ConfigDir string
	Workspace string
	ThemeFile string
	EnvPrefix string
	NoEnv     bool
	Sets      []string
	LogLevel  string

	Mode     string
	Path     string
	Preview  string
	Debounce time.Duration
	Strict   bool

	command string
	args    []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	switch opts.command {
	case "", "help":
		printUsage(stdout, newFlagSet(&options{}, io.Discard))
		return 0
	case "version":
		fmt.Fprintf(stdout, "keyconf %s\nCommit: %s\nBuilt: %s\n", version, commit, date)
		return 0
	}

	logger, err := newLogger(opts.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cmd, ok := commands[opts.command]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q (see keyconf help)\n", opts.command)
		return 2
	}

	eng, err := newEngine(opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer eng.Close()

	if err := cmd(ctx, eng, opts, stdout); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newFlagSet(opts *options, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("keyconf", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.StringVarP(&opts.ConfigDir, "config-dir", "c", defaultConfigDir(), "User configuration directory")
	fs.StringVarP(&opts.Workspace, "workspace", "w", "", "Workspace directory; its .keyconf directory is layered over the user's")
	fs.StringVar(&opts.ThemeFile, "theme", "", "Theme file merged under the user layer")
	fs.StringVar(&opts.EnvPrefix, "env-prefix", loader.DefaultEnvPrefix, "Prefix of environment overrides")
	fs.BoolVar(&opts.NoEnv, "no-env", false, "Ignore environment overrides")
	fs.StringArrayVarP(&opts.Sets, "set", "s", nil, "Override a setting (path=value), repeatable")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	fs.StringVarP(&opts.Mode, "mode", "m", "direct", "Binding mode for lookup (direct, contextual)")
	fs.StringVarP(&opts.Path, "path", "p", "", "Select part of the dump with a gjson path")
	fs.StringVar(&opts.Preview, "preview", "go", "Language of the theme preview")
	fs.DurationVar(&opts.Debounce, "debounce", watcher.DefaultDebounce, "Delay before reloading after a change")
	fs.BoolVar(&opts.Strict, "strict", false, "Make check fail on warnings")
	return fs
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := newFlagSet(opts, stderr)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.command = rest[0]
		opts.args = rest[1:]
	}
	return opts, nil
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "keyconf - layered editor configuration\n\n")
	fmt.Fprintf(w, "Usage: keyconf [options] <command> [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  check              Resolve and report diagnostics\n")
	fmt.Fprintf(w, "  dump               Print the resolved snapshot as JSON\n")
	fmt.Fprintf(w, "  lookup <chord>...  Show the action bound to each chord\n")
	fmt.Fprintf(w, "  theme              Show the resolved palette and a highlighted preview\n")
	fmt.Fprintf(w, "  schema             Print the JSON Schema of the known settings\n")
	fmt.Fprintf(w, "  watch              Reload on every file change until interrupted\n")
	fmt.Fprintf(w, "  version            Show version information\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  keyconf check -w .                       Check the workspace configuration\n")
	fmt.Fprintf(w, "  keyconf dump -p settings.editor          Print the editor settings\n")
	fmt.Fprintf(w, "  keyconf -s editor.tab_size=2 lookup cmd+s\n")
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "keyconf")
}
