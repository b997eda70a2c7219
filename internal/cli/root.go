// Package cli implements the cliplog command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/common"
	"github.com/berrythewa/cliplog/internal/config"
	"github.com/berrythewa/cliplog/internal/daemon"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information - set by main
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "none"
)

// SetVersionInfo sets the version information used by the version command
func SetVersionInfo(version, buildTime, commit string) {
	Version = version
	BuildTime = buildTime
	Commit = commit
}

// app holds the state shared by every command of one invocation
type app struct {
	// Flags that apply to all commands
	cfgFile   string
	logLevel  string
	useJSON   bool
	noFileLog bool

	cfg    *config.Config
	logger *zap.Logger

	// hostFactory builds the clipboard host for the daemon and offline mode
	hostFactory func(*config.Config, *zap.Logger) clipboard.HostFactory
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{hostFactory: daemon.PlatformHostFactory})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cliplog",
		Short: "Clipboard history for your desktop",
		Long: `cliplog records what you copy and lets you browse, re-copy and export it.

The daemon polls the clipboard and keeps the last 100 text and image entries.
Without a running daemon, history commands open the database directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is <config dir>/cliplog/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.useJSON, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.noFileLog, "no-file-log", false, "Disable logging to file")

	root.AddCommand(
		newDaemonCmd(a),
		newHistoryCmd(a),
		newClipCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the CLI logger
func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.noFileLog {
		cfg.Log.EnableFileLogging = false
	}
	a.cfg = cfg

	// Commands stay quiet unless asked; the daemon logs at the configured level
	cliCfg := *cfg
	if a.logLevel == "" {
		cliCfg.Log.Level = "warn"
	}
	logger, err := common.NewLogger(&cliCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	a.logger.Debug("Configuration loaded",
		zap.String("config", cfg.SystemPaths.ConfigFile),
		zap.String("db", cfg.SystemPaths.DBFile),
		zap.String("socket", cfg.SystemPaths.SocketPath))
	return nil
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cliplog\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Commit:     %s\n", Commit)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
