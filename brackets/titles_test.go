package brackets

import (
	"testing"

	"github.com/Dosada05/cue-club/models"
	"github.com/stretchr/testify/assert"
)

func TestTitleFor(t *testing.T) {
	tests := []struct {
		round, players int
		want           string
	}{
		{5, 2, "Final"},
		{4, 4, "Semifinal"},
		{3, 8, "Quarterfinal"},
		{2, 16, "Round of 16"},
		{1, 32, "Round of 32"},
		{1, 64, "Round of 64"},
		{1, 6, "Preliminary Round (6 players)"},
		{2, 3, "Preliminary Round (3 players)"},
		{1, 0, "Round 1"},
		{0, 0, "Round 1"},
		{3, 0, "Round 3"},
		{1, 128, "Round 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFor(tt.round, tt.players), "TitleFor(%d, %d)", tt.round, tt.players)
	}
}

func TestPlayerCount_IgnoresByeSlots(t *testing.T) {
	matches := []models.Match{
		{Player1: "A", Player2: "B"},
		{Player1: "C", Player2: ""},
	}
	assert.Equal(t, 3, PlayerCount(matches))
}
