package models

import "time"

// Match is one pairing inside a round. An empty Player2 marks a bye slot.
// IsCompleted implies Winner is set and equals Player1 or Player2.
type Match struct {
	Player1     string  `json:"player1"`
	Player2     string  `json:"player2"`
	Winner      *string `json:"winner"`
	IsCompleted bool    `json:"isCompleted"`
}

// HasWinner reports whether a winner value is recorded, regardless of IsCompleted.
func (m Match) HasWinner() bool {
	return m.Winner != nil && *m.Winner != ""
}

// WinnerName returns the recorded winner or "".
func (m Match) WinnerName() string {
	if m.Winner == nil {
		return ""
	}
	return *m.Winner
}

// HistoryMatch is the persisted form of a match inside a finished round.
// Completion is implied by Winner being set.
type HistoryMatch struct {
	Player1 string  `json:"player1"`
	Player2 string  `json:"player2"`
	Winner  *string `json:"winner"`
}

// RoundRecord is a completed round appended to the bracket history.
type RoundRecord struct {
	Round      int            `json:"round"`
	RoundTitle string         `json:"roundTitle"`
	Matches    []HistoryMatch `json:"matches"`
	Winners    []string       `json:"winners"`
	Date       time.Time      `json:"date"`
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// HasWinner reports whether the finished match carries a winner.
func (m HistoryMatch) HasWinner() bool {
	return m.Winner != nil && *m.Winner != ""
}

// WinnerName returns the recorded winner or "".
func (m HistoryMatch) WinnerName() string {
	if m.Winner == nil {
		return ""
	}
	return *m.Winner
}
