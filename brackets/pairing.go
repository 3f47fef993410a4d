package brackets

import (
	"fmt"

	"github.com/Dosada05/cue-club/models"
)

// RandomSource is the randomness used for shuffling. *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Shuffle returns a uniformly permuted copy of names (Fisher–Yates).
// The input slice is not modified.
func Shuffle(names []string, rnd RandomSource) []string {
	out := make([]string, len(names))
	copy(out, names)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// GenerateNextRound pairs the winners of a round for the next one.
//
// Players who already had a bye are paired against players who did not, then
// the rest are paired among themselves. With an odd count one player gets the
// bye, preferring someone who never had one; a repeat bye is only handed out
// when every remaining player already had one.
func GenerateNextRound(winners []string, byeRecipients map[string]struct{}, rnd RandomSource) ([]models.Match, error) {
	if len(winners) == 0 {
		return nil, fmt.Errorf("%w: no winners to pair", ErrInvalidOperation)
	}
	if len(winners) == 1 {
		return nil, fmt.Errorf("%w: a single winner is the champion, not a new round", ErrInvalidOperation)
	}

	seen := make(map[string]struct{}, len(winners))
	var hadBye, noBye []string
	for _, w := range winners {
		name := NormalizeName(w)
		if IsBlank(name) {
			return nil, fmt.Errorf("%w: blank player name in winners", ErrInvalidOperation)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: player %q appears twice in winners", ErrInvalidOperation, name)
		}
		seen[name] = struct{}{}

		if _, ok := byeRecipients[name]; ok {
			hadBye = append(hadBye, name)
		} else {
			noBye = append(noBye, name)
		}
	}

	hadBye = Shuffle(hadBye, rnd)
	noBye = Shuffle(noBye, rnd)

	var byeCandidate string
	if len(winners)%2 == 1 {
		if len(noBye) > 0 {
			byeCandidate, noBye = noBye[len(noBye)-1], noBye[:len(noBye)-1]
		} else {
			// Everyone left already had a bye; a repeat is accepted.
			byeCandidate, hadBye = hadBye[len(hadBye)-1], hadBye[:len(hadBye)-1]
		}
	}

	matches := make([]models.Match, 0, (len(winners)+1)/2)

	for len(hadBye) > 0 && len(noBye) > 0 {
		matches = append(matches, models.Match{Player1: hadBye[0], Player2: noBye[0]})
		hadBye, noBye = hadBye[1:], noBye[1:]
	}
	for len(noBye) >= 2 {
		matches = append(matches, models.Match{Player1: noBye[0], Player2: noBye[1]})
		noBye = noBye[2:]
	}
	for len(hadBye) >= 2 {
		matches = append(matches, models.Match{Player1: hadBye[0], Player2: hadBye[1]})
		hadBye = hadBye[2:]
	}

	if byeCandidate != "" {
		matches = append(matches, models.Match{Player1: byeCandidate, Player2: ""})
	}

	return matches, nil
}
