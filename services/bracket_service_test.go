package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/cue-club/brackets"
	"github.com/Dosada05/cue-club/models"
	"github.com/Dosada05/cue-club/realtime"
	"github.com/Dosada05/cue-club/repositories"
	"github.com/Dosada05/cue-club/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	tournamentID string
	kind         string
	payload      interface{}
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (n *fakeNotifier) Notify(tournamentID, kind string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, sentMessage{tournamentID, kind, payload})
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.kind == kind {
			c++
		}
	}
	return c
}

type flakyRepo struct {
	repositories.BracketRepository
	mu   sync.Mutex
	fail bool
}

func (r *flakyRepo) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func (r *flakyRepo) Save(ctx context.Context, id string, snap *models.BracketSnapshot) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("connection refused")
	}
	return r.BracketRepository.Save(ctx, id, snap)
}

type fakeArchiver struct {
	mu      sync.Mutex
	calls   []string
	removed []string
}

func (a *fakeArchiver) Archive(_ context.Context, id string, snap *models.BracketSnapshot) (*storage.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, id+":"+*snap.Winner)
	return &storage.UploadResult{Key: storage.ArchiveKey(id)}, nil
}

func (a *fakeArchiver) Remove(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, id)
	return nil
}

func instantTimer(time.Duration) (<-chan time.Time, func() bool) {
	c := make(chan time.Time, 1)
	c <- time.Time{}
	return c, func() bool { return false }
}

func blockingTimer(time.Duration) (<-chan time.Time, func() bool) {
	return make(chan time.Time), func() bool { return true }
}

type serviceFixture struct {
	svc      BracketService
	repo     *flakyRepo
	notifier *fakeNotifier
	archiver *fakeArchiver
}

func newFixture(t *testing.T, timer brackets.Timer) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     &flakyRepo{BracketRepository: repositories.NewMemoryBracketRepository()},
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
	}
	reveals := brackets.NewRevealScheduler(brackets.RevealConfig{
		Iterations:      3,
		InitialInterval: time.Millisecond,
		Growth:          1.5,
		MaxInterval:     5 * time.Millisecond,
		Pause:           10 * time.Millisecond,
	}, brackets.WithRevealTimer(timer), brackets.WithRevealRandom(rand.New(rand.NewSource(9))))

	f.svc = NewBracketService(f.repo, f.notifier, nil,
		WithArchiver(f.archiver),
		WithRevealScheduler(reveals),
		WithRandomSource(rand.New(rand.NewSource(4))),
	)
	t.Cleanup(f.svc.Close)
	return f
}

func winAll(t *testing.T, svc BracketService, id string) *models.BracketView {
	t.Helper()
	view, err := svc.GetBracket(context.Background(), id)
	require.NoError(t, err)
	for i, m := range view.CurrentMatches {
		view, err = svc.RecordWinner(context.Background(), id, i, m.Player1)
		require.NoError(t, err)
	}
	return view
}

func TestBracketService_CreateDraw(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	view, err := f.svc.CreateDraw(ctx, "club-night", []string{"Ann", "Bob", "Cid", "Dan", "Eve"})
	require.NoError(t, err)

	assert.Equal(t, models.BracketActive, view.State)
	assert.Equal(t, 1, view.CurrentRound)
	assert.Len(t, view.CurrentMatches, 3)
	assert.Equal(t, "Preliminary Round (5 players)", view.CurrentRoundTitle)
	assert.False(t, view.Unsaved)
	assert.Equal(t, 1, f.notifier.count(realtime.MessageBracketUpdated))

	stored, err := f.repo.Load(ctx, "club-night")
	require.NoError(t, err)
	assert.Equal(t, view.CurrentMatches, stored.CurrentMatches)

	_, err = f.svc.CreateDraw(ctx, "club-night", []string{"X", "Y"})
	assert.ErrorIs(t, err, ErrBracketExists)
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)

	_, err = f.svc.CreateDraw(ctx, "other", []string{"Solo"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.CreateDraw(ctx, " ", []string{"A", "B"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestBracketService_GetBracketLoadsStoredDocument(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	_, err := f.svc.GetBracket(ctx, "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	require.NoError(t, f.repo.Save(ctx, "stored", &models.BracketSnapshot{
		CurrentRound: 1,
		CurrentMatches: []models.Match{
			{Player1: "Ann", Player2: "Bob", Winner: models.StringPtr("Bob"), IsCompleted: true},
		},
		BracketHistory: []models.RoundRecord{},
	}))

	view, err := f.svc.GetBracket(ctx, "stored")
	require.NoError(t, err)
	assert.Equal(t, models.BracketRoundComplete, view.State)
	assert.Equal(t, "Final", view.CurrentRoundTitle)
}

func TestBracketService_PlaysToChampion(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)

	winAll(t, f.svc, "cup")
	view, err := f.svc.AdvanceRound(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, 2, view.CurrentRound)
	assert.Equal(t, "Final", view.CurrentRoundTitle)
	require.Len(t, view.BracketHistory, 1)
	assert.Equal(t, "Semifinal", view.BracketHistory[0].RoundTitle)

	winAll(t, f.svc, "cup")
	view, err = f.svc.AdvanceRound(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, models.BracketChampionDeclared, view.State)
	require.NotNil(t, view.Winner)
	assert.True(t, view.Status)

	f.archiver.mu.Lock()
	assert.Equal(t, []string{"cup:" + *view.Winner}, f.archiver.calls)
	f.archiver.mu.Unlock()

	_, err = f.svc.RecordWinner(ctx, "cup", 0, *view.Winner)
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)
}

func TestBracketService_RejectedOperationLeavesStateAlone(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	before, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)
	updates := f.notifier.count(realtime.MessageBracketUpdated)

	_, err = f.svc.RecordWinner(ctx, "cup", 0, "Nobody")
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)
	_, err = f.svc.RecordWinner(ctx, "cup", 9, before.CurrentMatches[0].Player1)
	assert.ErrorIs(t, err, brackets.ErrNotFound)
	_, err = f.svc.AdvanceRound(ctx, "cup")
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)
	_, err = f.svc.RollbackLastRound(ctx, "cup")
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)
	_, err = f.svc.RecordWinner(ctx, "cup", 0, "-")
	assert.ErrorIs(t, err, ErrValidationFailed)

	after, err := f.svc.GetBracket(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, before.BracketSnapshot, after.BracketSnapshot)
	assert.Equal(t, updates, f.notifier.count(realtime.MessageBracketUpdated))
}

func TestBracketService_PersistenceFailureKeepsMemoryState(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	view, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)
	first := view.CurrentMatches[0]

	f.repo.setFail(true)
	view, err = f.svc.RecordWinner(ctx, "cup", 0, first.Player2)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	require.NotNil(t, view)
	assert.True(t, view.Unsaved)
	assert.Equal(t, first.Player2, view.CurrentMatches[0].WinnerName())

	view, err = f.svc.GetBracket(ctx, "cup")
	require.NoError(t, err)
	assert.True(t, view.Unsaved)
	assert.True(t, view.CurrentMatches[0].IsCompleted)

	stored, err := f.repo.Load(ctx, "cup")
	require.NoError(t, err)
	assert.False(t, stored.CurrentMatches[0].IsCompleted)

	f.repo.setFail(false)
	view, err = f.svc.Save(ctx, "cup")
	require.NoError(t, err)
	assert.False(t, view.Unsaved)

	stored, err = f.repo.Load(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, first.Player2, stored.CurrentMatches[0].WinnerName())
}

func TestBracketService_EditHistoryReportsStaleRounds(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)
	winAll(t, f.svc, "cup")
	view, err := f.svc.AdvanceRound(ctx, "cup")
	require.NoError(t, err)

	m := view.BracketHistory[0].Matches[0]
	view, err = f.svc.EditHistoricalWinner(ctx, "cup", 1, 0, m.Player2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, view.StaleRounds)
	assert.Contains(t, view.BracketHistory[0].Winners, m.Player2)

	// устаревшие раунды берутся из сохраненного документа, а не из памяти процесса
	reloaded := NewBracketService(f.repo, nil, nil)
	t.Cleanup(reloaded.Close)
	stored, err := reloaded.GetBracket(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, stored.StaleRounds)

	view, err = f.svc.RegenerateFrom(ctx, "cup", 1)
	require.NoError(t, err)
	assert.Empty(t, view.StaleRounds)
	assert.Equal(t, 2, view.CurrentRound)

	var players []string
	for _, cm := range view.CurrentMatches {
		players = append(players, cm.Player1, cm.Player2)
	}
	assert.Contains(t, players, m.Player2)
	assert.NotContains(t, players, m.Player1)
}

func TestBracketService_RevealCommitsAtEnd(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan", "Eve", "Fay", "Gus", "Hal"})
	require.NoError(t, err)
	winAll(t, f.svc, "cup")

	started, err := f.svc.StartReveal(ctx, "cup")
	require.NoError(t, err)
	assert.NotEmpty(t, started.RevealID)
	assert.Equal(t, 2, started.TotalMatches)
	assert.Equal(t, 1, started.Bracket.CurrentRound, "nothing applied before the reveal ends")

	require.Eventually(t, func() bool {
		view, err := f.svc.GetBracket(ctx, "cup")
		return err == nil && view.CurrentRound == 2 && !view.RevealInProgress
	}, 2*time.Second, 5*time.Millisecond)

	// 2 матча x (3 прокрутки + 1 итог)
	assert.Equal(t, 8, f.notifier.count(realtime.MessageRevealFrame))

	stored, err := f.repo.Load(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentRound)
}

func TestBracketService_CancelRevealKeepsRound(t *testing.T) {
	f := newFixture(t, blockingTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)
	before := winAll(t, f.svc, "cup")

	_, err = f.svc.CancelReveal(ctx, "cup")
	assert.ErrorIs(t, err, ErrNoActiveReveal)

	_, err = f.svc.StartReveal(ctx, "cup")
	require.NoError(t, err)

	_, err = f.svc.StartReveal(ctx, "cup")
	assert.ErrorIs(t, err, ErrRevealInProgress)
	_, err = f.svc.ResetMatch(ctx, "cup", 0)
	assert.ErrorIs(t, err, ErrRevealInProgress)
	assert.ErrorIs(t, err, brackets.ErrInvalidOperation)

	view, err := f.svc.CancelReveal(ctx, "cup")
	require.NoError(t, err)
	assert.False(t, view.RevealInProgress)
	assert.Equal(t, before.BracketSnapshot, view.BracketSnapshot)
	assert.Equal(t, 1, f.notifier.count(realtime.MessageRevealCancelled))

	// раунд по-прежнему можно завершить вручную
	view, err = f.svc.AdvanceRound(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, 2, view.CurrentRound)
}

func TestBracketService_RevealOnFinalDeclaresChampion(t *testing.T) {
	f := newFixture(t, blockingTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "duel", []string{"Ann", "Bob"})
	require.NoError(t, err)
	winAll(t, f.svc, "duel")

	started, err := f.svc.StartReveal(ctx, "duel")
	require.NoError(t, err)
	assert.Empty(t, started.RevealID)
	assert.Equal(t, models.BracketChampionDeclared, started.Bracket.State)
}

func TestBracketService_RollbackKeepsStaleRounds(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	players := []string{"Ann", "Bob", "Cid", "Dan", "Eve", "Fay", "Gus", "Hal"}
	_, err := f.svc.CreateDraw(ctx, "cup", players)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		winAll(t, f.svc, "cup")
		_, err = f.svc.AdvanceRound(ctx, "cup")
		require.NoError(t, err)
	}

	view, err := f.svc.GetBracket(ctx, "cup")
	require.NoError(t, err)
	require.Equal(t, 3, view.CurrentRound)

	view, err = f.svc.EditHistoricalWinner(ctx, "cup", 1, 0, view.BracketHistory[0].Matches[0].Player2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, view.StaleRounds)

	view, err = f.svc.RollbackLastRound(ctx, "cup")
	require.NoError(t, err)
	assert.Equal(t, 2, view.CurrentRound)
	assert.Equal(t, []int{2}, view.StaleRounds)
}

func TestBracketService_DeleteBracket(t *testing.T) {
	f := newFixture(t, blockingTimer)
	ctx := context.Background()

	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob", "Cid", "Dan"})
	require.NoError(t, err)
	winAll(t, f.svc, "cup")

	_, err = f.svc.StartReveal(ctx, "cup")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteBracket(ctx, "cup"), ErrRevealInProgress)
	_, err = f.svc.CancelReveal(ctx, "cup")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBracket(ctx, "cup"))
	assert.Equal(t, []string{"cup"}, f.archiver.removed)
	assert.Equal(t, 1, f.notifier.count(realtime.MessageBracketDeleted))

	_, err = f.repo.Load(ctx, "cup")
	assert.ErrorIs(t, err, repositories.ErrBracketNotFound)
	_, err = f.svc.GetBracket(ctx, "cup")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	assert.ErrorIs(t, f.svc.DeleteBracket(ctx, "cup"), ErrTournamentNotFound)
	assert.ErrorIs(t, f.svc.DeleteBracket(ctx, ""), ErrValidationFailed)

	// после удаления жеребьевку можно провести заново
	_, err = f.svc.CreateDraw(ctx, "cup", []string{"Eve", "Fay"})
	require.NoError(t, err)
}

func TestBracketService_DeleteUnsavedBracket(t *testing.T) {
	f := newFixture(t, instantTimer)
	ctx := context.Background()

	f.repo.setFail(true)
	_, err := f.svc.CreateDraw(ctx, "cup", []string{"Ann", "Bob"})
	require.ErrorIs(t, err, ErrPersistenceFailure)

	require.NoError(t, f.svc.DeleteBracket(ctx, "cup"))
	_, err = f.svc.GetBracket(ctx, "cup")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
