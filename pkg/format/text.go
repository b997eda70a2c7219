package format

import (
	"strings"

	"github.com/berrythewa/cliplog/internal/types"
)

// FormatText formats text content for display
func FormatText(entry *types.HistoryEntry, opts Options) string {
	if entry == nil || entry.Text == "" {
		return ""
	}

	text := entry.Text
	if opts.MaxLines > 0 {
		text = TruncateLines(text, opts.MaxLines)
	}
	if opts.MaxWidth > 0 {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = TruncateText(line, opts.MaxWidth)
		}
		text = strings.Join(lines, "\n")
	}
	return text
}

// FormatTextPreview creates a single-line preview of text content
func FormatTextPreview(entry *types.HistoryEntry, maxLen int) string {
	if entry == nil || entry.Text == "" {
		return ""
	}

	preview := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(entry.Text)
	return TruncateText(preview, maxLen)
}
