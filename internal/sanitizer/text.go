package sanitizer

import (
	"regexp"
	"strings"
)

// DefaultTextLimit bounds free-text input when no explicit limit is given.
const DefaultTextLimit = 1000

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsScheme      = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)
)

// HTML strips angle brackets, javascript: schemes and inline event handlers.
func HTML(input string) string {
	out := angleBrackets.ReplaceAllString(input, "")
	out = jsScheme.ReplaceAllString(out, "")
	out = eventHandler.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Text cleans free-text input with HTML and truncates it to maxLength runes.
// A non-positive maxLength means DefaultTextLimit.
func Text(input string, maxLength int) string {
	if input == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultTextLimit
	}
	out := HTML(input)
	if r := []rune(out); len(r) > maxLength {
		out = string(r[:maxLength])
	}
	return strings.TrimSpace(out)
}
