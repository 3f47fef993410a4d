package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/cue-club/models"
)

// ErrCorruptSnapshot is returned by FromSnapshot when a stored document breaks
// the bracket invariants.
var ErrCorruptSnapshot = errors.New("corrupt bracket snapshot")

// Snapshot returns the persisted form of the bracket.
func (b *Bracket) Snapshot() models.BracketSnapshot {
	c := b.Clone()
	return models.BracketSnapshot{
		CurrentRound:   c.CurrentRound,
		CurrentMatches: c.CurrentMatches,
		BracketHistory: c.History,
		Winner:         c.Champion,
		Status:         c.Champion != nil,
	}
}

// FromSnapshot rebuilds a Bracket from a stored document.
func FromSnapshot(s models.BracketSnapshot, opts ...Option) (*Bracket, error) {
	if s.CurrentRound < 1 {
		return nil, fmt.Errorf("%w: current_round %d", ErrCorruptSnapshot, s.CurrentRound)
	}
	if len(s.BracketHistory) != s.CurrentRound-1 {
		return nil, fmt.Errorf("%w: %d history entries for round %d",
			ErrCorruptSnapshot, len(s.BracketHistory), s.CurrentRound)
	}
	for i, rec := range s.BracketHistory {
		if rec.Round != i+1 {
			return nil, fmt.Errorf("%w: history entry %d has round %d", ErrCorruptSnapshot, i, rec.Round)
		}
	}
	for i, m := range s.CurrentMatches {
		if !m.IsCompleted {
			continue
		}
		if !isSlotPlayer(m.Player1, m.Player2, m.WinnerName()) {
			return nil, fmt.Errorf("%w: match %d winner %q is not one of its players",
				ErrCorruptSnapshot, i, m.WinnerName())
		}
	}

	b := newBracket(opts...)
	b.CurrentRound = s.CurrentRound
	b.CurrentMatches = cloneMatches(s.CurrentMatches)
	b.History = cloneHistory(s.BracketHistory)

	hasChampion := s.Winner != nil && *s.Winner != ""
	if s.Status != hasChampion {
		return nil, fmt.Errorf("%w: status %t disagrees with winner %v", ErrCorruptSnapshot, s.Status, s.Winner)
	}
	if hasChampion {
		// a champion only comes out of a one-match round
		if b.State() != models.BracketRoundComplete {
			return nil, fmt.Errorf("%w: champion %q recorded with unfinished matches", ErrCorruptSnapshot, *s.Winner)
		}
		if len(s.CurrentMatches) != 1 {
			return nil, fmt.Errorf("%w: champion %q recorded with %d matches in the round",
				ErrCorruptSnapshot, *s.Winner, len(s.CurrentMatches))
		}
		if NormalizeName(*s.Winner) != NormalizeName(s.CurrentMatches[0].WinnerName()) {
			return nil, fmt.Errorf("%w: champion %q did not win the final match", ErrCorruptSnapshot, *s.Winner)
		}
		b.Champion = models.StringPtr(*s.Winner)
	}
	return b, nil
}
