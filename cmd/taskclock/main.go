// Package main implements the taskclock CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/taskclock/internal/app"
	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "taskclock: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	prefsPath  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "taskclock",
		Short:         "Track time against tasks from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Interactive terminals get the board; pipes get a plain listing.
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return runBoard(cmd, flags)
			}
			return runTasks(cmd, flags, "")
		},
	}
	root.SetVersionTemplate("taskclock {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&flags.prefsPath, "prefs", "", "board preferences file (default ~/.config/taskclock/prefs.toml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newBoardCmd(flags),
		newTasksCmd(flags),
		newTimersCmd(flags),
		newStartCmd(flags),
		newPauseCmd(flags),
		newResumeCmd(flags),
		newStopCmd(flags),
		newResetCmd(flags),
		newStatusCmd(flags),
		newLogoutCmd(flags),
		newLogsCmd(flags),
	)
	return root
}

// openApp loads the config and builds the App. Online commands fail fast
// when no token is configured.
func openApp(cmd *cobra.Command, flags *globalFlags, offline bool) (*app.App, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if !offline && cfg.Token == "" {
		return nil, backend.ErrNoToken
	}
	return app.New(cmd.Context(), app.Options{
		Config:    cfg,
		PrefsPath: flags.prefsPath,
		Logger:    newLogger(cmd.ErrOrStderr(), cfg, flags.verbose),
		Version:   version,
		Offline:   offline,
	})
}

func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withApp runs fn against a fresh App and closes it afterwards, keeping the
// first error.
func withApp(cmd *cobra.Command, flags *globalFlags, offline bool, fn func(*app.App) error) (err error) {
	a, err := openApp(cmd, flags, offline)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
