package models

import "time"

// BracketStatus is the derived state of the bracket state machine.
type BracketStatus string

const (
	BracketActive           BracketStatus = "active"
	BracketRoundComplete    BracketStatus = "round_complete"
	BracketChampionDeclared BracketStatus = "champion_declared"
)

// BracketSnapshot is the document stored per tournament.
// Field names follow the stored document, not Go conventions.
type BracketSnapshot struct {
	CurrentRound   int           `json:"current_round"`
	CurrentMatches []Match       `json:"current_matches"`
	BracketHistory []RoundRecord `json:"bracket_history"`
	Winner         *string       `json:"winner"`
	Status         bool          `json:"status"`
}

// BracketView is what the API returns for a tournament bracket.
type BracketView struct {
	TournamentID      string        `json:"tournament_id"`
	State             BracketStatus `json:"state"`
	CurrentRoundTitle string        `json:"current_round_title"`
	ByeRecipients     []string      `json:"bye_recipients"`
	StaleRounds       []int         `json:"stale_rounds,omitempty"`
	Unsaved           bool          `json:"unsaved"`
	RevealInProgress  bool          `json:"reveal_in_progress"`
	UpdatedAt         time.Time     `json:"updated_at"`

	BracketSnapshot
}
