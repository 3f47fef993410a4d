package brackets

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/cue-club/models"
	"github.com/google/uuid"
)

// RevealPhase tells whether a frame shows a placeholder or the real pairing.
type RevealPhase string

const (
	RevealRolling RevealPhase = "rolling"
	RevealFrozen  RevealPhase = "frozen"
)

// RevealFrame is one visible step of a reveal.
type RevealFrame struct {
	RevealID   string      `json:"reveal_id"`
	MatchIndex int         `json:"match_index"`
	Total      int         `json:"total"`
	Iteration  int         `json:"iteration"`
	Phase      RevealPhase `json:"phase"`
	Player1    string      `json:"player1"`
	Player2    string      `json:"player2"`
}

// RevealStep is a frame and the delay before it is shown.
type RevealStep struct {
	Delay time.Duration
	Frame RevealFrame
}

// RevealSink receives frames as they become visible.
type RevealSink func(RevealFrame)

// RevealConfig sets the pacing of the rolling animation for each match.
type RevealConfig struct {
	Iterations      int
	InitialInterval time.Duration
	Growth          float64
	MaxInterval     time.Duration
	Pause           time.Duration
}

// DefaultRevealConfig is the pacing used when REVEAL_* settings are absent.
func DefaultRevealConfig() RevealConfig {
	return RevealConfig{
		Iterations:      12,
		InitialInterval: 60 * time.Millisecond,
		Growth:          1.25,
		MaxInterval:     700 * time.Millisecond,
		Pause:           1500 * time.Millisecond,
	}
}

// PlanReveal lays out every step of revealing matches: rolling placeholder
// pairings at growing intervals, then the real pairing, then a pause before the
// next match. Placeholders are drawn from the players of the round.
func PlanReveal(matches []models.Match, cfg RevealConfig, rnd RandomSource) []RevealStep {
	var pool []string
	for _, m := range matches {
		pool = appendNamed(pool, m.Player1, m.Player2)
	}

	steps := make([]RevealStep, 0, len(matches)*(cfg.Iterations+1))
	for i, m := range matches {
		interval := cfg.InitialInterval
		delay := time.Duration(0)
		if i > 0 {
			delay = cfg.Pause
		}

		for it := 0; it < cfg.Iterations; it++ {
			p1, p2 := placeholderPair(pool, rnd)
			steps = append(steps, RevealStep{
				Delay: delay,
				Frame: RevealFrame{MatchIndex: i, Total: len(matches), Iteration: it, Phase: RevealRolling, Player1: p1, Player2: p2},
			})
			delay = interval
			interval = time.Duration(float64(interval) * cfg.Growth)
			if cfg.MaxInterval > 0 && interval > cfg.MaxInterval {
				interval = cfg.MaxInterval
			}
		}

		steps = append(steps, RevealStep{
			Delay: delay,
			Frame: RevealFrame{MatchIndex: i, Total: len(matches), Iteration: cfg.Iterations, Phase: RevealFrozen, Player1: m.Player1, Player2: m.Player2},
		})
	}
	return steps
}

func placeholderPair(pool []string, rnd RandomSource) (string, string) {
	switch len(pool) {
	case 0:
		return "", ""
	case 1:
		return pool[0], ""
	}
	shuffled := Shuffle(pool, rnd)
	return shuffled[0], shuffled[1]
}

// Timer starts a timer and returns its channel and a stop function.
type Timer func(d time.Duration) (<-chan time.Time, func() bool)

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// RevealScheduler runs reveals. It is safe for concurrent use.
type RevealScheduler struct {
	cfg   RevealConfig
	timer Timer

	mu  sync.Mutex
	rnd RandomSource
}

// RevealOption configures a RevealScheduler.
type RevealOption func(*RevealScheduler)

// WithRevealRandom sets the source used for placeholder pairings.
func WithRevealRandom(rnd RandomSource) RevealOption {
	return func(s *RevealScheduler) { s.rnd = rnd }
}

// WithRevealTimer replaces the wall-clock timer, mostly for tests.
func WithRevealTimer(timer Timer) RevealOption {
	return func(s *RevealScheduler) { s.timer = timer }
}

// NewRevealScheduler returns a scheduler using cfg for every reveal it starts.
func NewRevealScheduler(cfg RevealConfig, opts ...RevealOption) *RevealScheduler {
	s := &RevealScheduler{
		cfg:   cfg,
		timer: realTimer,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reveal is a running reveal sequence.
type Reveal struct {
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	committed bool
	err       error
}

// Start reveals matches one at a time through sink and calls commit once the
// last match is shown. commit is never called if the reveal is cancelled first.
func (s *RevealScheduler) Start(ctx context.Context, matches []models.Match, sink RevealSink, commit func() error) *Reveal {
	s.mu.Lock()
	steps := PlanReveal(matches, s.cfg, s.rnd)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r := &Reveal{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.run(ctx, steps, s.timer, sink, commit)
	return r
}

func (r *Reveal) run(ctx context.Context, steps []RevealStep, timer Timer, sink RevealSink, commit func() error) {
	defer close(r.done)
	defer r.cancel()

	for _, step := range steps {
		if step.Delay > 0 {
			c, stop := timer(step.Delay)
			select {
			case <-ctx.Done():
				stop()
				r.finish(ErrRevealCancelled)
				return
			case <-c:
			}
		}
		if ctx.Err() != nil {
			r.finish(ErrRevealCancelled)
			return
		}
		frame := step.Frame
		frame.RevealID = r.ID
		if sink != nil {
			sink(frame)
		}
	}

	r.mu.Lock()
	if r.cancelled || ctx.Err() != nil {
		r.err = ErrRevealCancelled
		r.mu.Unlock()
		return
	}
	r.committed = true
	r.mu.Unlock()

	r.finish(commit())
}

func (r *Reveal) finish(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Cancel stops the reveal. It returns false if the reveal already committed.
func (r *Reveal) Cancel() bool {
	r.mu.Lock()
	if r.committed {
		r.mu.Unlock()
		return false
	}
	r.cancelled = true
	r.mu.Unlock()
	r.cancel()
	return true
}

// Done is closed when the reveal has committed or stopped.
func (r *Reveal) Done() <-chan struct{} {
	return r.done
}

// Err reports the outcome once Done is closed.
func (r *Reveal) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
