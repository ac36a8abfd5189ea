package notes

import "strings"

// NormalizeTags trims, lowercases and de-duplicates tag names, preserving
// first-seen order. Empty entries disappear; the result may be empty.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	cleaned := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	return cleaned
}
