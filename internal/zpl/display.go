package zpl

import "strings"

var displayBreaks = strings.NewReplacer(
	"^XA", "^XA\n",
	"^XZ", "\n^XZ",
	"^FO", "\n^FO",
	"^ADN", "\n^ADN",
	"^FD", "\n^FD",
	"^FS", "\n^FS",
)

// FormatForDisplay breaks a command stream onto one command per line for the
// raw code view. It is also the fallback shown when a preview cannot be drawn.
func FormatForDisplay(text string) string {
	return strings.TrimSpace(displayBreaks.Replace(text))
}
