package brackets

import (
	"fmt"

	"github.com/Dosada05/cue-club/models"
)

// TitleFor labels a round by how many players it started with.
func TitleFor(roundNumber, playerCount int) string {
	switch playerCount {
	case 2:
		return "Final"
	case 4:
		return "Semifinal"
	case 8:
		return "Quarterfinal"
	case 16, 32, 64:
		return fmt.Sprintf("Round of %d", playerCount)
	}

	if playerCount > 2 && playerCount&(playerCount-1) != 0 {
		return fmt.Sprintf("Preliminary Round (%d players)", playerCount)
	}

	if roundNumber < 1 {
		roundNumber = 1
	}
	return fmt.Sprintf("Round %d", roundNumber)
}

// PlayerCount counts the distinct named players across matches.
func PlayerCount(matches []models.Match) int {
	seen := make(map[string]struct{}, len(matches)*2)
	for _, m := range matches {
		if !IsBlank(m.Player1) {
			seen[NormalizeName(m.Player1)] = struct{}{}
		}
		if !IsBlank(m.Player2) {
			seen[NormalizeName(m.Player2)] = struct{}{}
		}
	}
	return len(seen)
}
