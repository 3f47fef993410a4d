package brackets

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Dosada05/cue-club/models"
)

// Bracket is the progression state of one single-elimination tournament.
// It is mutated only through its methods; a failed call leaves it unchanged.
type Bracket struct {
	CurrentRound   int
	CurrentMatches []models.Match
	History        []models.RoundRecord
	Champion       *string

	rnd RandomSource
	now func() time.Time
}

// Option configures a Bracket.
type Option func(*Bracket)

// WithRandom sets the random source used for pairings.
func WithRandom(rnd RandomSource) Option {
	return func(b *Bracket) {
		if rnd != nil {
			b.rnd = rnd
		}
	}
}

// WithClock sets the clock used to timestamp history entries.
func WithClock(now func() time.Time) Option {
	return func(b *Bracket) {
		if now != nil {
			b.now = now
		}
	}
}

func newBracket(opts ...Option) *Bracket {
	b := &Bracket{
		CurrentRound: 1,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AdvanceResult describes what AdvanceRound did.
type AdvanceResult struct {
	// Champion is set when the round produced a single winner.
	Champion string
	// FinishedRound is the round that was closed.
	FinishedRound int
	// FinishedTitle is the title recorded for the closed round.
	FinishedTitle string
	// NextRound is the new current round; equals FinishedRound when a champion was declared.
	NextRound int
}

// EditResult describes the effect of a historical edit.
type EditResult struct {
	Round   int
	Winners []string
	// StaleRounds is Bracket.StaleRounds after the edit.
	// Stale rounds are not regenerated automatically.
	StaleRounds []int
}

// State derives the state machine state from the data.
func (b *Bracket) State() models.BracketStatus {
	if b.Champion != nil {
		return models.BracketChampionDeclared
	}
	if len(b.CurrentMatches) == 0 {
		return models.BracketActive
	}
	for _, m := range b.CurrentMatches {
		if !m.IsCompleted {
			return models.BracketActive
		}
	}
	return models.BracketRoundComplete
}

// ByeRecipients is ComputeByeRecipients over the bracket's own state.
func (b *Bracket) ByeRecipients() map[string]struct{} {
	return ComputeByeRecipients(b.History, b.CurrentMatches)
}

// CurrentTitle labels the round in progress.
func (b *Bracket) CurrentTitle() string {
	return TitleFor(b.CurrentRound, PlayerCount(b.CurrentMatches))
}

// RecordWinner marks player as the winner of the current-round match at matchIndex.
// Recording the same winner again is a no-op; a different winner requires ResetMatch first.
func (b *Bracket) RecordWinner(matchIndex int, player string) error {
	if b.Champion != nil {
		return fmt.Errorf("%w: champion %q already declared", ErrInvalidOperation, *b.Champion)
	}
	if matchIndex < 0 || matchIndex >= len(b.CurrentMatches) {
		return fmt.Errorf("%w: match %d in round %d", ErrNotFound, matchIndex, b.CurrentRound)
	}

	m := b.CurrentMatches[matchIndex]
	name := NormalizeName(player)
	if !isSlotPlayer(m.Player1, m.Player2, name) {
		return fmt.Errorf("%w: %q does not play in match %d", ErrInvalidOperation, name, matchIndex)
	}

	if m.IsCompleted {
		if m.WinnerName() == name {
			return nil
		}
		return fmt.Errorf("%w: match %d already won by %q, reset it first", ErrInvalidOperation, matchIndex, m.WinnerName())
	}

	m.Winner = models.StringPtr(name)
	m.IsCompleted = true
	b.CurrentMatches[matchIndex] = m
	return nil
}

// ResetMatch clears the result of a current-round match. Resetting a match after
// a champion was declared withdraws the declaration.
func (b *Bracket) ResetMatch(matchIndex int) error {
	if matchIndex < 0 || matchIndex >= len(b.CurrentMatches) {
		return fmt.Errorf("%w: match %d in round %d", ErrNotFound, matchIndex, b.CurrentRound)
	}
	b.CurrentMatches[matchIndex].Winner = nil
	b.CurrentMatches[matchIndex].IsCompleted = false
	b.Champion = nil
	return nil
}

// AdvanceRound closes the current round. A single winner becomes champion;
// otherwise the round is appended to history and the next round is paired.
func (b *Bracket) AdvanceRound() (AdvanceResult, error) {
	next, res, err := b.PlanAdvance()
	if err != nil {
		return AdvanceResult{}, err
	}
	b.adopt(next)
	return res, nil
}

// PlanAdvance computes the result of AdvanceRound on a copy and leaves b untouched.
func (b *Bracket) PlanAdvance() (*Bracket, AdvanceResult, error) {
	switch b.State() {
	case models.BracketChampionDeclared:
		return nil, AdvanceResult{}, fmt.Errorf("%w: champion %q already declared", ErrInvalidOperation, *b.Champion)
	case models.BracketActive:
		return nil, AdvanceResult{}, fmt.Errorf("%w: round %d has %d unfinished matches",
			ErrInvalidOperation, b.CurrentRound, b.openMatches())
	}

	winners := make([]string, 0, len(b.CurrentMatches))
	for _, m := range b.CurrentMatches {
		winners = append(winners, m.WinnerName())
	}

	next := b.Clone()
	res := AdvanceResult{FinishedRound: b.CurrentRound}

	if len(winners) == 1 {
		next.Champion = models.StringPtr(winners[0])
		res.Champion = winners[0]
		res.NextRound = b.CurrentRound
		return next, res, nil
	}

	title := TitleFor(b.CurrentRound, PlayerCount(b.CurrentMatches))
	matches, err := GenerateNextRound(winners, b.ByeRecipients(), b.rnd)
	if err != nil {
		return nil, AdvanceResult{}, err
	}

	next.History = append(next.History, models.RoundRecord{
		Round:      b.CurrentRound,
		RoundTitle: title,
		Matches:    toHistoryMatches(b.CurrentMatches),
		Winners:    winners,
		Date:       b.now(),
	})
	next.CurrentMatches = matches
	next.CurrentRound = b.CurrentRound + 1

	res.FinishedTitle = title
	res.NextRound = next.CurrentRound
	return next, res, nil
}

// RollbackLastRound drops the newest history entry and reopens that round with
// its recorded results.
func (b *Bracket) RollbackLastRound() error {
	if b.CurrentRound <= 1 || len(b.History) == 0 {
		return fmt.Errorf("%w: nothing to roll back in round %d", ErrInvalidOperation, b.CurrentRound)
	}

	last := b.History[len(b.History)-1]
	b.CurrentMatches = fromHistoryMatches(last.Matches)
	b.History = b.History[:len(b.History)-1]
	b.CurrentRound--
	b.Champion = nil
	return nil
}

// RegenerateFrom discards every pairing made after roundNumber and draws a fresh
// round roundNumber+1 from that round's recorded winners. This cannot be undone.
func (b *Bracket) RegenerateFrom(roundNumber int) error {
	if roundNumber == b.CurrentRound {
		return fmt.Errorf("%w: round %d is still in progress", ErrInvalidOperation, roundNumber)
	}
	if roundNumber < 1 || roundNumber > len(b.History) {
		return fmt.Errorf("%w: round %d has no history entry", ErrNotFound, roundNumber)
	}

	kept := cloneHistory(b.History[:roundNumber])
	winners := append([]string(nil), kept[roundNumber-1].Winners...)

	matches, err := GenerateNextRound(winners, ComputeByeRecipients(kept, nil), b.rnd)
	if err != nil {
		return err
	}

	b.History = kept
	b.CurrentMatches = matches
	b.CurrentRound = roundNumber + 1
	b.Champion = nil
	return nil
}

// EditHistoricalWinner overwrites the winner of a finished match and recomputes
// that round's winners. Later rounds are left as they are; they are reported in
// EditResult.StaleRounds when their players no longer line up.
func (b *Bracket) EditHistoricalWinner(roundNumber, matchIndex int, newWinner string) (EditResult, error) {
	if roundNumber == b.CurrentRound {
		return EditResult{}, fmt.Errorf("%w: round %d is in progress, record the winner instead", ErrInvalidOperation, roundNumber)
	}
	if roundNumber < 1 || roundNumber > len(b.History) {
		return EditResult{}, fmt.Errorf("%w: round %d has no history entry", ErrNotFound, roundNumber)
	}

	rec := b.History[roundNumber-1]
	if matchIndex < 0 || matchIndex >= len(rec.Matches) {
		return EditResult{}, fmt.Errorf("%w: match %d in round %d", ErrNotFound, matchIndex, roundNumber)
	}

	name := NormalizeName(newWinner)
	m := rec.Matches[matchIndex]
	if !isSlotPlayer(m.Player1, m.Player2, name) {
		return EditResult{}, fmt.Errorf("%w: %q does not play in match %d of round %d", ErrInvalidOperation, name, matchIndex, roundNumber)
	}

	matches := make([]models.HistoryMatch, len(rec.Matches))
	copy(matches, rec.Matches)
	matches[matchIndex].Winner = models.StringPtr(name)

	winners := make([]string, 0, len(matches))
	for _, hm := range matches {
		if hm.HasWinner() {
			winners = append(winners, hm.WinnerName())
		}
	}

	rec.Matches = matches
	rec.Winners = winners
	b.History[roundNumber-1] = rec

	return EditResult{
		Round:       roundNumber,
		Winners:     append([]string(nil), winners...),
		StaleRounds: b.StaleRounds(),
	}, nil
}

// StaleRounds lists the rounds whose players no longer match the recorded
// winners of the round before, together with every round after them. It is
// derived from history and the current matches, like ByeRecipients.
func (b *Bracket) StaleRounds() []int {
	for i, rec := range b.History {
		var winners []string
		winners = appendNamed(winners, rec.Winners...)
		if !sameNames(winners, b.playersOfRound(i+2)) {
			stale := make([]int, 0, b.CurrentRound-i-1)
			for r := i + 2; r <= b.CurrentRound; r++ {
				stale = append(stale, r)
			}
			return stale
		}
	}
	return nil
}

// Clone returns a deep copy sharing the random source and clock.
func (b *Bracket) Clone() *Bracket {
	c := &Bracket{
		CurrentRound:   b.CurrentRound,
		CurrentMatches: cloneMatches(b.CurrentMatches),
		History:        cloneHistory(b.History),
		rnd:            b.rnd,
		now:            b.now,
	}
	if b.Champion != nil {
		c.Champion = models.StringPtr(*b.Champion)
	}
	return c
}

func (b *Bracket) adopt(next *Bracket) {
	b.CurrentRound = next.CurrentRound
	b.CurrentMatches = next.CurrentMatches
	b.History = next.History
	b.Champion = next.Champion
}

// Commit replaces b's state with a planned state produced by PlanAdvance.
func (b *Bracket) Commit(planned *Bracket) {
	b.adopt(planned.Clone())
}

func (b *Bracket) openMatches() int {
	n := 0
	for _, m := range b.CurrentMatches {
		if !m.IsCompleted {
			n++
		}
	}
	return n
}

// playersOfRound returns the names that play in the given round, from history or
// from the current matches.
func (b *Bracket) playersOfRound(round int) []string {
	var names []string
	switch {
	case round >= 1 && round <= len(b.History):
		for _, m := range b.History[round-1].Matches {
			names = appendNamed(names, m.Player1, m.Player2)
		}
	case round == b.CurrentRound:
		for _, m := range b.CurrentMatches {
			names = appendNamed(names, m.Player1, m.Player2)
		}
	}
	return names
}

func appendNamed(names []string, players ...string) []string {
	for _, p := range players {
		if !IsBlank(p) {
			names = append(names, NormalizeName(p))
		}
	}
	return names
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, n := range a {
		set[n]++
	}
	for _, n := range b {
		set[n]--
		if set[n] < 0 {
			return false
		}
	}
	return true
}

func isSlotPlayer(p1, p2, name string) bool {
	if IsBlank(name) {
		return false
	}
	if !IsBlank(p1) && NormalizeName(p1) == name {
		return true
	}
	return !IsBlank(p2) && NormalizeName(p2) == name
}

func toHistoryMatches(matches []models.Match) []models.HistoryMatch {
	out := make([]models.HistoryMatch, len(matches))
	for i, m := range matches {
		out[i] = models.HistoryMatch{Player1: m.Player1, Player2: m.Player2}
		if m.HasWinner() {
			out[i].Winner = models.StringPtr(*m.Winner)
		}
	}
	return out
}

func fromHistoryMatches(matches []models.HistoryMatch) []models.Match {
	out := make([]models.Match, len(matches))
	for i, m := range matches {
		out[i] = models.Match{Player1: m.Player1, Player2: m.Player2}
		if m.HasWinner() {
			out[i].Winner = models.StringPtr(*m.Winner)
			out[i].IsCompleted = true
		}
	}
	return out
}

func cloneMatches(matches []models.Match) []models.Match {
	out := make([]models.Match, len(matches))
	for i, m := range matches {
		out[i] = m
		if m.Winner != nil {
			out[i].Winner = models.StringPtr(*m.Winner)
		}
	}
	return out
}

func cloneHistory(history []models.RoundRecord) []models.RoundRecord {
	out := make([]models.RoundRecord, len(history))
	for i, rec := range history {
		out[i] = rec
		out[i].Matches = make([]models.HistoryMatch, len(rec.Matches))
		for j, m := range rec.Matches {
			out[i].Matches[j] = m
			if m.Winner != nil {
				out[i].Matches[j].Winner = models.StringPtr(*m.Winner)
			}
		}
		out[i].Winners = append([]string(nil), rec.Winners...)
	}
	return out
}
