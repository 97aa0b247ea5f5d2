package conversation

import "strings"

// smartPunct maps "smart" punctuation variants to plain ASCII. Some chat
// clients send these and they confused the upstream API often enough to
// be worth normalizing.
var smartPunct = strings.NewReplacer(
	"—", "-",   // em dash
	"–", "-",   // en dash
	"‘", "'",   // left single quote
	"’", "'",   // right single quote
	"“", `"`,   // left double quote
	"”", `"`,   // right double quote
	"…", "...", // ellipsis
)

// Sanitize strips C0/C1 control characters, normalizes smart punctuation,
// and trims surrounding whitespace.
func Sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(smartPunct.Replace(sb.String()))
}
