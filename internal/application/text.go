package application

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictText strips all markup from user-supplied text. Policies are safe for
// concurrent use once built.
var strictText = bluemonday.StrictPolicy()

const maxCleanPasses = 4

// cleanText returns s as plain text with entities decoded. Decoding can expose
// markup that was entity-encoded, so sanitize and decode repeat until the text
// stops changing. Text that never settles is kept in its escaped form.
func cleanText(s string) string {
	out := strings.TrimSpace(s)
	for i := 0; i < maxCleanPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(strictText.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return strings.TrimSpace(strictText.Sanitize(out))
}
