package coordinator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RequestKey derives the deterministic key identifying "the same logical
// generation request" from the category, the initial instruction, and the
// template. Two submissions with equal keys inside the cooldown window are
// duplicates, whichever UI instance produced them.
func RequestKey(category, prompt, templateID string) string {
	h := sha256.New()

	// NUL separators keep component boundaries unambiguous
	h.Write([]byte(normalize(category)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(prompt)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(templateID)))

	return hex.EncodeToString(h.Sum(nil))
}

// trims insignificant whitespace so a trailing newline from a textarea does
// not defeat duplicate detection
func normalize(s string) string {
	return strings.TrimSpace(s)
}
