package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/berrythewa/cliplog/internal/export"
	"github.com/berrythewa/cliplog/internal/history"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/storage"
	"github.com/berrythewa/cliplog/internal/types"
	"github.com/berrythewa/cliplog/pkg/format"

	"github.com/spf13/cobra"
)

// newHistoryCmd creates the history command with all subcommands
func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage clipboard history",
		Long: `Manage clipboard history:
  • List and show entries
  • Copy an entry back to the clipboard or save it to a file
  • Delete entries or clear the history
  • Watch for changes`,
	}

	cmd.AddCommand(newHistoryListCmd(a))
	cmd.AddCommand(newHistoryShowCmd(a))
	cmd.AddCommand(newHistoryCopyCmd(a))
	cmd.AddCommand(newHistorySaveCmd(a))
	cmd.AddCommand(newHistoryDeleteCmd(a))
	cmd.AddCommand(newHistoryClearCmd(a))
	cmd.AddCommand(newHistoryWatchCmd(a))
	cmd.AddCommand(newHistoryStatsCmd(a))
	return cmd
}

// newHistoryListCmd creates the list subcommand
func newHistoryListCmd(a *app) *cobra.Command {
	var (
		limit      int
		typeFilter string
		compact    bool
		noColors   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clipboard history, newest first",
		Long: `List clipboard history entries, newest first.

Examples:
  cliplog history list                 # Show last 10 entries
  cliplog history list -n 0            # Show every entry
  cliplog history list --type image    # Show only images
  cliplog history list --compact       # Compact single-line format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []*types.HistoryEntry
			err := a.call(cmd.Context(), ipc.CmdHistoryList, map[string]interface{}{
				"limit": limit,
				"type":  typeFilter,
			}, &entries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, entries)
			}

			opts := format.DefaultOptions()
			if compact {
				opts = format.CompactOptions()
			}
			opts = opts.ForWriter(out)
			if noColors {
				opts.UseColors = false
			}
			fmt.Fprintln(out, format.FormatEntryList(entries, opts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of entries to show (0 = all)")
	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "filter by entry type (text, image)")
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "use compact single-line format")
	cmd.Flags().BoolVar(&noColors, "no-colors", false, "disable colored output")
	return cmd
}

// newHistoryShowCmd creates the show subcommand
func newHistoryShowCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one history entry",
		Long: `Show a history entry by its id.

Examples:
  cliplog history show 1718000000000-a1b2c3d4e5f6
  cliplog history show 1718000000000-a1b2c3d4e5f6 --raw > out.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.getEntry(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				data, err := export.Content(entry)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			if a.useJSON {
				return printJSON(out, entry)
			}

			opts := format.DefaultOptions().ForWriter(out)
			opts.MaxLines = 0 // No line limit for single entry view
			opts.MaxWidth = 0
			fmt.Fprintln(out, format.FormatEntry(entry, opts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "output the text or PNG bytes without metadata")
	return cmd
}

func newHistoryCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a history entry back on the clipboard",
		Long: `Put a history entry back on the clipboard.

The daemon must be running: it keeps owning the clipboard after this command exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry types.HistoryEntry
			if err := a.call(cmd.Context(), ipc.CmdHistoryCopy, map[string]interface{}{"id": args[0]}, &entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s entry %s to the clipboard\n", entry.Kind, entry.ID)
			return nil
		},
	}
}

func newHistorySaveCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save a history entry to clipboard_<timestamp>.txt or .png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.getEntry(cmd, args[0])
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.History.ExportDir
			}
			path, err := export.Save(entry, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default is history.export_dir or the current directory)")
	return cmd
}

// newHistoryDeleteCmd creates the delete subcommand
func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete history entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.call(cmd.Context(), ipc.CmdHistoryDelete, map[string]interface{}{"ids": args}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entr%s\n", len(args), pluralY(len(args)))
			return nil
		},
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !force {
				fmt.Fprint(out, "Clear all clipboard history? (y/N) ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			if err := a.call(cmd.Context(), ipc.CmdHistoryClear, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func newHistoryWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print history changes as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			opts := format.CompactOptions().ForWriter(out)
			return c.Stream(cmd.Context(), &ipc.Request{Command: ipc.CmdHistoryWatch, Stream: true}, func(resp *ipc.Response) error {
				var ev history.Event
				if err := resp.Decode(&ev); err != nil {
					return err
				}
				if a.useJSON {
					return printJSON(out, ev)
				}
				switch ev.Type {
				case history.EventAppended:
					fmt.Fprintln(out, format.FormatEntry(ev.Entry, opts))
				case history.EventDeleted:
					fmt.Fprintf(out, "deleted %s\n", ev.ID)
				case history.EventCleared:
					fmt.Fprintln(out, "history cleared")
				}
				return nil
			})
		},
	}
}

func newHistoryStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			var entries []*types.HistoryEntry
			resp, err := c.Send(cmd.Context(), &ipc.Request{Command: ipc.CmdHistoryList})
			if err != nil {
				return err
			}
			if err := resp.Decode(&entries); err != nil {
				return err
			}

			var disk storage.Stats
			resp, err = c.Send(cmd.Context(), &ipc.Request{Command: ipc.CmdHistoryStats})
			if err != nil {
				return err
			}
			if err := resp.Decode(&disk); err != nil {
				return err
			}

			stats := format.HistoryStats(entries)
			stats["db_size"] = disk.FileSize
			stats["compressed"] = disk.Compressed

			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, stats)
			}
			fmt.Fprintln(out, format.FormatStats(stats, format.DefaultOptions().ForWriter(out)))
			return nil
		},
	}
}

func (a *app) getEntry(cmd *cobra.Command, id string) (*types.HistoryEntry, error) {
	var entry types.HistoryEntry
	if err := a.call(cmd.Context(), ipc.CmdHistoryGet, map[string]interface{}{"id": id}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
