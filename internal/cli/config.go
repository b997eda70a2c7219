package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/berrythewa/cliplog/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect cliplog configuration",
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigPathCmd(a))
	cmd.AddCommand(newConfigEditCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after the config file, cliplog.env and
CLIPLOG_* environment variables have been applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, a.cfg)
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the files and directories cliplog uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.cfg.SystemPaths
			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, p)
			}
			fmt.Fprintf(out, "Config file: %s\n", p.ConfigFile)
			fmt.Fprintf(out, "Data dir:    %s\n", p.DataDir)
			fmt.Fprintf(out, "Database:    %s\n", p.DBFile)
			fmt.Fprintf(out, "Log dir:     %s\n", p.LogDir)
			fmt.Fprintf(out, "Socket:      %s\n", p.SocketPath)
			return nil
		},
	}
}

func newConfigEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in your preferred editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := a.cfg.SystemPaths.ConfigFile

			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}

			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}

			if _, err := config.Load(configPath); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\nThe file has been saved, but may contain errors.\n", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration updated; a running daemon picks up log level changes")
			return nil
		},
	}
}
