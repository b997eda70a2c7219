package format

import (
	"io"
	"os"

	"github.com/berrythewa/cliplog/internal/types"
	"github.com/mattn/go-isatty"
)

// Options controls formatting behavior
type Options struct {
	UseColors    bool
	UseIcons     bool
	MaxWidth     int  // Max content width (0 = no limit)
	MaxLines     int  // Max content lines (0 = no limit)
	ShowMetadata bool // Show id, timestamps, size
	Compact      bool // Use compact single-line format
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		UseColors:    true,
		UseIcons:     true,
		MaxWidth:     80,
		MaxLines:     10,
		ShowMetadata: true,
		Compact:      false,
	}
}

// CompactOptions returns options for compact single-line display
func CompactOptions() Options {
	opts := DefaultOptions()
	opts.Compact = true
	opts.ShowMetadata = false
	opts.MaxLines = 1
	return opts
}

// ForWriter turns colors and icons off unless w is a terminal.
// NO_COLOR disables colors everywhere.
func (o Options) ForWriter(w io.Writer) Options {
	f, ok := w.(*os.File)
	tty := ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	if !tty || os.Getenv("NO_COLOR") != "" {
		o.UseColors = false
	}
	if !tty {
		o.UseIcons = false
	}
	return o
}

// KindIcons maps entry kinds to Unicode icons
var KindIcons = map[types.Kind]string{
	types.KindText:  "📝",
	types.KindImage: "🖼️",
}

// KindColors maps entry kinds to colors
var KindColors = map[types.Kind]string{
	types.KindText:  Cyan,
	types.KindImage: Magenta,
}
