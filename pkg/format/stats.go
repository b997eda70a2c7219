package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/berrythewa/cliplog/internal/types"
)

// HistoryStats summarizes the history list and its storage
func HistoryStats(entries []*types.HistoryEntry) map[string]interface{} {
	stats := map[string]interface{}{
		"total_entries": len(entries),
	}
	if len(entries) == 0 {
		return stats
	}

	byKind := make(map[string]int)
	var total int64
	for _, e := range entries {
		byKind[string(e.Kind)]++
		total += int64(len(e.Payload()))
	}
	stats["entries_by_type"] = byKind
	stats["total_size"] = total
	stats["newest_entry"] = entries[0].Created()
	stats["oldest_entry"] = entries[len(entries)-1].Created()
	return stats
}

// FormatStats formats history statistics for display
func FormatStats(stats map[string]interface{}, opts Options) string {
	parts := []string{formatTitle("📊", "Clipboard Statistics", opts), ""}

	if total, ok := stats["total_entries"].(int); ok {
		parts = append(parts, formatStatLine("Total entries", fmt.Sprintf("%d", total), opts))
	}
	if size, ok := stats["total_size"].(int64); ok {
		parts = append(parts, formatStatLine("Payload size", FormatSize(size), opts))
	}
	if size, ok := stats["db_size"].(int64); ok {
		parts = append(parts, formatStatLine("Database size", FormatSize(size), opts))
	}
	if compressed, ok := stats["compressed"].(bool); ok {
		parts = append(parts, formatStatLine("Compressed", fmt.Sprintf("%t", compressed), opts))
	}
	if oldest, ok := stats["oldest_entry"].(time.Time); ok {
		parts = append(parts, formatStatLine("Oldest entry", FormatRelativeTime(oldest), opts))
	}
	if newest, ok := stats["newest_entry"].(time.Time); ok {
		parts = append(parts, formatStatLine("Newest entry", FormatRelativeTime(newest), opts))
	}

	if byKind, ok := stats["entries_by_type"].(map[string]int); ok && len(byKind) > 0 {
		parts = append(parts, "", formatSubHeader("Entries by type", opts))

		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		for _, k := range kinds {
			kind := types.Kind(k)
			icon := ""
			if opts.UseIcons {
				if i, exists := KindIcons[kind]; exists {
					icon = i + " "
				}
			}
			label := k
			if color, exists := KindColors[kind]; exists {
				label = ColorizeIf(k, color, opts.UseColors)
			}
			parts = append(parts, fmt.Sprintf("  %s%s: %d", icon, label, byKind[k]))
		}
	}

	return strings.Join(parts, "\n")
}

// FormatMonitoring formats the poller status
func FormatMonitoring(st types.MonitoringStatus, opts Options) string {
	state := ColorizeIf("stopped", Red, opts.UseColors)
	if st.IsRunning {
		state = ColorizeIf("running", Green, opts.UseColors)
	}

	parts := []string{
		formatTitle("📡", "Clipboard Monitor", opts),
		"",
		formatStatLine("State", state, opts),
		formatStatLine("Backend", st.Backend, opts),
		formatStatLine("Interval", st.Interval, opts),
		formatStatLine("Captured", fmt.Sprintf("%d", st.Captured), opts),
	}
	if !st.LastCapture.IsZero() {
		parts = append(parts, formatStatLine("Last capture", FormatRelativeTime(st.LastCapture), opts))
	}
	if !st.LastActivity.IsZero() {
		parts = append(parts, formatStatLine("Last check", FormatRelativeTime(st.LastActivity), opts))
	}
	if st.SkippedTicks > 0 {
		parts = append(parts, formatStatLine("Skipped ticks", fmt.Sprintf("%d", st.SkippedTicks), opts))
	}
	if st.HostRecreated > 0 {
		parts = append(parts, formatStatLine("Host restarts", fmt.Sprintf("%d", st.HostRecreated), opts))
	}
	if st.ErrorCount > 0 {
		parts = append(parts, formatStatLine("Errors", fmt.Sprintf("%d", st.ErrorCount), opts))
		parts = append(parts, formatStatLine("Last error", ColorizeIf(st.LastError, Yellow, opts.UseColors), opts))
	}
	return strings.Join(parts, "\n")
}

func formatTitle(icon, title string, opts Options) string {
	if opts.UseIcons {
		title = icon + " " + title
	}
	return ColorizeIf(title, BrightBlue, opts.UseColors)
}

// formatStatLine formats a statistics line with label and value
func formatStatLine(label, value string, opts Options) string {
	if opts.UseColors {
		return fmt.Sprintf("  %s%s:%s %s", BrightCyan, label, Reset, value)
	}
	return fmt.Sprintf("  %s: %s", label, value)
}

// formatSubHeader formats a section subheader
func formatSubHeader(title string, opts Options) string {
	return ColorizeIf(title, BrightBlue, opts.UseColors)
}
