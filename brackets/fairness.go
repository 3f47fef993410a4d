package brackets

import (
	"sort"

	"github.com/Dosada05/cue-club/models"
)

// ComputeByeRecipients returns every player that has already advanced through a
// completed bye, across the finished rounds and the round in progress.
// The result is derived from the arguments only and is never cached.
func ComputeByeRecipients(history []models.RoundRecord, current []models.Match) map[string]struct{} {
	recipients := make(map[string]struct{})

	for _, round := range history {
		for _, m := range round.Matches {
			if !m.HasWinner() {
				continue
			}
			if name, ok := byeHolder(m.Player1, m.Player2); ok {
				recipients[name] = struct{}{}
			}
		}
	}

	for _, m := range current {
		if !m.IsCompleted {
			continue
		}
		if name, ok := byeHolder(m.Player1, m.Player2); ok {
			recipients[name] = struct{}{}
		}
	}

	return recipients
}

// byeHolder returns the single non-blank name of a match, if exactly one slot is filled.
func byeHolder(p1, p2 string) (string, bool) {
	blank1, blank2 := IsBlank(p1), IsBlank(p2)
	switch {
	case !blank1 && blank2:
		return NormalizeName(p1), true
	case blank1 && !blank2:
		return NormalizeName(p2), true
	default:
		return "", false
	}
}

// SortedNames returns the set members in lexical order, for stable output.
func SortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
