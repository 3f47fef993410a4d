package brackets

import (
	"errors"
	"fmt"
)

var (
	errNoParticipants        = errors.New("cannot generate bracket with zero participants")
	errNotEnoughParticipants = errors.New("not enough participants to generate a single elimination bracket (minimum 2)")
)

// NewDraw creates the first round of a single-elimination bracket from the
// registered participants. Participants are shuffled; with an odd count the
// last slot is a bye.
func NewDraw(participants []string, opts ...Option) (*Bracket, error) {
	n := len(participants)
	if n == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, errNoParticipants)
	}

	names := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for i, p := range participants {
		name := NormalizeName(p)
		if IsBlank(name) {
			return nil, fmt.Errorf("%w: participant %d has no name", ErrInvalidOperation, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: participant %q registered twice", ErrInvalidOperation, name)
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, errNotEnoughParticipants)
	}

	b := newBracket(opts...)

	// Nobody has had a bye before round 1.
	matches, err := GenerateNextRound(names, nil, b.rnd)
	if err != nil {
		return nil, err
	}

	b.CurrentMatches = matches
	return b, nil
}
