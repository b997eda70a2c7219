package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/berrythewa/cliplog/internal/common"
	"github.com/berrythewa/cliplog/internal/daemon"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/pkg/format"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const stopTimeout = 10 * time.Second

// newDaemonCmd creates the daemon command
func newDaemonCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the cliplog daemon",
		Long: `Manage the daemon process that polls the clipboard and owns the history.

The daemon can be:
  • Started in the foreground or detached
  • Stopped gracefully
  • Checked for status`,
	}

	cmd.AddCommand(newDaemonStartCmd(a))
	cmd.AddCommand(newDaemonStopCmd(a))
	cmd.AddCommand(newDaemonStatusCmd(a))
	return cmd
}

func newDaemonStartCmd(a *app) *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cliplog daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir := a.cfg.SystemPaths.RunDir
			if pid, ok := daemon.Running(runDir); ok && pid != os.Getpid() {
				return fmt.Errorf("daemon already running (PID: %d)", pid)
			}

			if detach {
				logPath := filepath.Join(a.cfg.SystemPaths.LogDir, "cliplog_daemon.out")
				pid, err := daemon.Spawn(os.Args[1:], logPath)
				if err != nil {
					return fmt.Errorf("failed to daemonize: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cliplog daemon started in background (PID: %d)\n", pid)
				return nil
			}

			return a.runDaemon(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "detach from the terminal and run in background")
	return cmd
}

// NewServiceCmd builds the cliplogd command, which runs the daemon in the
// foreground for service managers (systemd, launchd) that supervise it.
func NewServiceCmd() *cobra.Command {
	return newServiceCmd(&app{hostFactory: daemon.PlatformHostFactory})
}

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cliplogd",
		Short:         "Run the cliplog daemon in the foreground",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDaemon(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is <config dir>/cliplog/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.noFileLog, "no-file-log", false, "Disable logging to file")
	return cmd
}

// runDaemon runs the daemon in the foreground until interrupted
func (a *app) runDaemon(parent context.Context) error {
	dl, err := common.NewDaemonLogger(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer dl.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(a.cfg, daemon.Options{
		Logger:      dl.Logger,
		Level:       &dl.Level,
		HostFactory: a.hostFactory(a.cfg, dl.Named("clipboard")),
		WatchConfig: true,
	})
	if err != nil {
		dl.Error("Failed to initialize daemon", zap.Error(err))
		return err
	}

	if os.Getenv(daemon.EnvDaemonChild) == "" {
		dl.Info("Running until interrupted, press Ctrl+C to stop")
	}
	return d.Run(ctx)
}

func newDaemonStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the cliplog daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemon.Stop(a.cfg.SystemPaths.RunDir, stopTimeout)
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "cliplog daemon is not running")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cliplog daemon stopped (PID: %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			var status daemon.Status
			resp, err := ipc.NewClient(a.cfg.SystemPaths.SocketPath).Send(ctx, &ipc.Request{Command: ipc.CmdStatus})
			if err == nil {
				err = resp.Decode(&status)
			}
			if err != nil {
				if !errors.Is(err, ipc.ErrDaemonUnavailable) {
					return fmt.Errorf("failed to get daemon status: %w", err)
				}
				if a.useJSON {
					return printJSON(out, map[string]interface{}{"running": false})
				}
				fmt.Fprintln(out, "Status: stopped")
				if pid, ok := daemon.Running(a.cfg.SystemPaths.RunDir); ok {
					fmt.Fprintf(out, "Process %d holds the PID file but does not answer on %s\n", pid, a.cfg.SystemPaths.SocketPath)
				}
				return nil
			}

			if a.useJSON {
				return printJSON(out, map[string]interface{}{"running": true, "status": status})
			}

			opts := format.DefaultOptions().ForWriter(out)
			fmt.Fprintln(out, "Status: running")
			fmt.Fprintf(out, "PID:    %d\n", status.PID)
			fmt.Fprintf(out, "Uptime: %s\n", time.Since(status.StartedAt).Truncate(time.Second))
			fmt.Fprintf(out, "Socket: %s\n", status.Socket)
			fmt.Fprintf(out, "DB:     %s (%d entries, %s)\n",
				status.Storage.Path, status.Storage.Entries, format.FormatSize(status.Storage.FileSize))
			fmt.Fprintln(out)
			fmt.Fprintln(out, format.FormatMonitoring(status.Monitoring, opts))
			return nil
		},
	}
}
