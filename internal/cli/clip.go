package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/types"
	"github.com/berrythewa/cliplog/pkg/format"

	"github.com/spf13/cobra"
)

// newClipCmd creates the clip command
func newClipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Clipboard operations",
		Long: `Perform clipboard operations:
  • Get current clipboard content
  • Add text to the history`,
	}

	cmd.AddCommand(newClipGetCmd(a))
	cmd.AddCommand(newClipAddCmd(a))
	return cmd
}

func newClipGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Get current clipboard content",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap types.Snapshot
			if err := a.call(cmd.Context(), ipc.CmdClipGet, nil, &snap); err != nil {
				return fmt.Errorf("failed to get clipboard content: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, snap)
			}

			kind, payload, ok := snap.Primary()
			switch {
			case !ok:
				fmt.Fprintln(out, "Clipboard is empty")
			case kind == types.KindText:
				fmt.Fprintln(out, payload)
			default:
				entry := &types.HistoryEntry{Kind: kind, ImageData: payload}
				fmt.Fprintln(out, format.FormatImagePreview(entry, 0))
			}
			return nil
		},
	}
}

func newClipAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add [text]",
		Short: "Add text to the history (reads stdin without an argument)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = strings.TrimSuffix(string(data), "\n")
			}
			if text == "" {
				return errors.New("nothing to add")
			}

			var result struct {
				ID        string `json:"id"`
				Duplicate bool   `json:"duplicate"`
			}
			err := a.call(cmd.Context(), ipc.CmdHistoryAppend, map[string]interface{}{
				"type":    string(types.KindText),
				"payload": text,
			}, &result)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.useJSON {
				return printJSON(out, result)
			}
			if result.Duplicate {
				fmt.Fprintln(out, "Already the newest entry")
				return nil
			}
			fmt.Fprintf(out, "Added %s\n", result.ID)
			return nil
		},
	}
}
