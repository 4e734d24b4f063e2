package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/taskclock/internal/app"
	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/config"
	"github.com/five82/taskclock/internal/logtail"
	"github.com/five82/taskclock/internal/state"
)

func newBoardCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd, flags)
		},
	}
}

// runBoard logs to the state dir while the board owns the terminal.
func runBoard(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		return backend.ErrNoToken
	}
	if err := app.EnsureStateDir(cfg); err != nil {
		return err
	}
	logFile, err := tea.LogToFile(cfg.LogPath(), "taskclock")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	a, err := app.New(cmd.Context(), app.Options{
		Config:    cfg,
		PrefsPath: flags.prefsPath,
		Logger:    newLogger(logFile, cfg, flags.verbose),
		Version:   version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.Log.Error("close failed", slog.String("error", cerr.Error()))
		}
	}()
	return a.RunBoard(cmd.Context())
}

func newTasksCmd(flags *globalFlags) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks with their tracked time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd, flags, status)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list tasks in this status (todo, in-progress, done)")
	return cmd
}

func runTasks(cmd *cobra.Command, flags *globalFlags, status string) error {
	return withApp(cmd, flags, false, func(a *app.App) error {
		var tasks []backend.Task
		if status == "" {
			if err := a.RefreshTasks(cmd.Context()); err != nil {
				return err
			}
			tasks = a.Board.Snapshot().Tasks
		} else {
			filtered, err := a.Client.ListTasks(cmd.Context(), backend.TaskFilter{Status: status})
			if err != nil {
				return err
			}
			tasks = filtered
		}
		state.SortByTitle(tasks)
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Column() < tasks[j].Column() })
		printTasks(cmd.OutOrStdout(), tasks, a.Timers.Snapshot(), a.Timers.Clock().Now())
		return nil
	})
}

func newTimersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "timers",
		Short: "List the locally tracked timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(a *app.App) error {
				printTimers(cmd.OutOrStdout(), a.Timers.Snapshot(), a.Timers.Clock().Now())
				return nil
			})
		},
	}
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start a timer, pausing any other running timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app.App) error {
				if err := a.Reconciler.Start(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printTimerLine(cmd.OutOrStdout(), "started", a, args[0])
			})
		},
	}
}

func newPauseCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pause [task-id]",
		Short: "Pause a timer (default: the running one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app.App) error {
				id := firstArg(args, a.Timers.ActiveTaskID())
				if id == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "no timer running")
					return nil
				}
				if err := a.Reconciler.Pause(cmd.Context(), id); err != nil {
					return err
				}
				return printTimerLine(cmd.OutOrStdout(), "paused", a, id)
			})
		},
	}
}

func newResumeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a previously tracked timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app.App) error {
				if err := a.Reconciler.Resume(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printTimerLine(cmd.OutOrStdout(), "resumed", a, args[0])
			})
		},
	}
}

// newStopCmd stops on the server too when a token is configured, and only
// in the local slot otherwise.
func newStopCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [task-id]",
		Short: "Stop a timer (default: the running one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			offline := cfg.Token == ""
			return withApp(cmd, flags, offline, func(a *app.App) error {
				id := firstArg(args, a.Timers.ActiveTaskID())
				if id == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "no timer running")
					return nil
				}
				if offline {
					a.Timers.Stop(id)
				} else if err := a.Reconciler.Stop(cmd.Context(), id); err != nil {
					return err
				}
				return printTimerLine(cmd.OutOrStdout(), "stopped", a, id)
			})
		},
	}
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <task-id>",
		Short: "Zero a task's local timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, true, func(a *app.App) error {
				if _, ok := a.Timers.Record(args[0]); !ok {
					return fmt.Errorf("reset %s: no timer record", args[0])
				}
				a.Timers.Reset(args[0])
				return printTimerLine(cmd.OutOrStdout(), "reset", a, args[0])
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Fetch the server's timer state for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app.App) error {
				if err := a.Reconciler.Status(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printTimerLine(cmd.OutOrStdout(), "status", a, args[0])
			})
		},
	}
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget every local timer and remove the saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(a *app.App) error {
				if err := a.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "timer state cleared")
				return nil
			})
		},
	}
}

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var lines int
	level := levelValue{slog.LevelDebug}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the board's log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			got, err := logtail.Read(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			got = logtail.Filter(got, level.Level)
			if len(got) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no log entries")
				return nil
			}
			color := stdoutWidth() > 0
			for _, line := range got {
				if color {
					line = logtail.Colorize(line)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to read from the end (0 for all)")
	cmd.Flags().Var(&level, "level", "minimum level to show (debug, info, warn, error)")
	return cmd
}

// levelValue is a slog level usable as a flag.
type levelValue struct {
	slog.Level
}

var _ pflag.Value = (*levelValue)(nil)

func (l *levelValue) Set(s string) error {
	return l.UnmarshalText([]byte(s))
}

func (l *levelValue) Type() string {
	return "level"
}

func firstArg(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

// stdoutWidth returns the terminal width, or 0 when stdout is not a terminal.
func stdoutWidth() int {
	return terminalWidth(int(os.Stdout.Fd()))
}
