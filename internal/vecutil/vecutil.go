// Package vecutil holds small generic helpers shared across the vdf core.
package vecutil

import "fmt"

// Ptr returns a pointer to v. Convenience helper that avoids a temporary
// variable when the address of a literal or computed value is needed.
func Ptr[T any](v T) *T {
	return &v
}

// DefaultMaxStringLength is the default truncation length used by
// TruncateStringDefault for debug-preview values.
const DefaultMaxStringLength = 100

// TruncateString truncates s to maxLen runes, appending a marker with the
// original length when truncation occurs. Used when formatting debug names
// so large values don't flood log output.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s...(%d chars)", string(runes[:maxLen]), len(runes))
}

// TruncateStringDefault truncates s using DefaultMaxStringLength.
func TruncateStringDefault(s string) string {
	return TruncateString(s, DefaultMaxStringLength)
}
