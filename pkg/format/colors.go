package format

// ANSI escape sequences used by the formatters
const (
	Reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[37m"

	BrightBlue = "\033[94m"
	BrightCyan = "\033[96m"
)

// ColorizeIf wraps text in color when useColors is set
func ColorizeIf(text, color string, useColors bool) string {
	if !useColors || color == "" {
		return text
	}
	return color + text + Reset
}

// BoldIf renders text bold when useColors is set
func BoldIf(text string, useColors bool) string {
	return ColorizeIf(text, bold, useColors)
}

// DimIf renders text dimmed when useColors is set
func DimIf(text string, useColors bool) string {
	return ColorizeIf(text, dim, useColors)
}
