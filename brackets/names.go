package brackets

import "strings"

// dashRunes are placeholder characters the front end writes into empty slots.
const dashRunes = "-‐‑‒–—―−"

// NormalizeName trims surrounding whitespace from a player name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// IsBlank reports whether a slot value is empty or a dash-like placeholder.
func IsBlank(name string) bool {
	n := NormalizeName(name)
	if n == "" {
		return true
	}
	return strings.Trim(n, dashRunes) == ""
}
