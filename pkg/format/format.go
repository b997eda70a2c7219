package format

import (
	"fmt"
	"strings"

	"github.com/berrythewa/cliplog/internal/types"
)

// Formatter renders history entries for the terminal
type Formatter struct {
	options Options
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	return &Formatter{
		options: opts,
	}
}

// FormatEntry formats a single history entry
func (f *Formatter) FormatEntry(entry *types.HistoryEntry) string {
	if entry == nil {
		return ColorizeIf("No entry", Gray, f.options.UseColors)
	}

	header := f.formatHeader(entry)

	if f.options.Compact {
		preview := f.formatPreview(entry, 50)
		return header + " " + DimIf(preview, f.options.UseColors)
	}

	parts := []string{header}
	if f.options.ShowMetadata {
		parts = append(parts, f.formatMetadata(entry))
	}

	if body := f.formatBody(entry); body != "" {
		parts = append(parts, CreateBox("Content", body, f.options))
	}

	return strings.Join(parts, "\n")
}

// FormatEntryList formats entries newest first, numbered from 1
func (f *Formatter) FormatEntryList(entries []*types.HistoryEntry) string {
	if len(entries) == 0 {
		return ColorizeIf("No clipboard history", Gray, f.options.UseColors)
	}

	parts := []string{f.formatListHeader(len(entries)), ""}

	for i, entry := range entries {
		index := DimIf(fmt.Sprintf("[%d]", i+1), f.options.UseColors)

		if f.options.Compact {
			parts = append(parts, fmt.Sprintf("%s %s", index, f.FormatEntry(entry)))
			continue
		}

		parts = append(parts, index, f.FormatEntry(entry))
		if i < len(entries)-1 {
			parts = append(parts, CreateSeparator(f.options))
		}
	}

	return strings.Join(parts, "\n")
}

// formatHeader shows icon, kind and id
func (f *Formatter) formatHeader(entry *types.HistoryEntry) string {
	var parts []string

	if f.options.UseIcons {
		if icon, exists := KindIcons[entry.Kind]; exists {
			parts = append(parts, icon)
		}
	}

	kind := string(entry.Kind)
	if color, exists := KindColors[entry.Kind]; exists {
		kind = ColorizeIf(kind, color, f.options.UseColors)
	}
	parts = append(parts, kind, BoldIf(entry.ID, f.options.UseColors))

	return strings.Join(parts, " ")
}

func (f *Formatter) formatMetadata(entry *types.HistoryEntry) string {
	parts := []string{
		fmt.Sprintf("Copied: %s (%s)", entry.DisplayTime, FormatRelativeTime(entry.Created())),
	}

	switch entry.Kind {
	case types.KindText:
		parts = append(parts, fmt.Sprintf("Size: %s", FormatSize(int64(len(entry.Text)))))
	case types.KindImage:
		parts = append(parts, FormatImagePreview(entry, 40))
	}

	for i := range parts {
		parts[i] = DimIf(parts[i], f.options.UseColors)
	}
	return strings.Join(parts, " • ")
}

func (f *Formatter) formatBody(entry *types.HistoryEntry) string {
	switch entry.Kind {
	case types.KindImage:
		return FormatImage(entry, f.options)
	default:
		return FormatText(entry, f.options)
	}
}

func (f *Formatter) formatPreview(entry *types.HistoryEntry, maxLen int) string {
	switch entry.Kind {
	case types.KindImage:
		return FormatImagePreview(entry, maxLen)
	default:
		if entry.Text == "" {
			return "(empty)"
		}
		return FormatTextPreview(entry, maxLen)
	}
}

func (f *Formatter) formatListHeader(count int) string {
	title := fmt.Sprintf("Clipboard History (%d entries)", count)
	if f.options.UseIcons {
		title = "📋 " + title
	}
	return ColorizeIf(title, BrightBlue, f.options.UseColors)
}

// FormatEntry formats a single entry with given options
func FormatEntry(entry *types.HistoryEntry, opts Options) string {
	return New(opts).FormatEntry(entry)
}

// FormatEntryList formats entries with given options
func FormatEntryList(entries []*types.HistoryEntry, opts Options) string {
	return New(opts).FormatEntryList(entries)
}
