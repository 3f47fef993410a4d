package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/cue-club/brackets"
	"github.com/Dosada05/cue-club/metrics"
	"github.com/Dosada05/cue-club/models"
	"github.com/Dosada05/cue-club/realtime"
	"github.com/Dosada05/cue-club/repositories"
	"github.com/Dosada05/cue-club/storage"
	"golang.org/x/sync/errgroup"
)

// Notifier доставляет события комнате турнира. Реализуется realtime.Hub.
type Notifier interface {
	Notify(tournamentID, messageType string, payload interface{})
}

// Archiver сохраняет итоговую сетку после объявления чемпиона.
type Archiver interface {
	Archive(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) (*storage.UploadResult, error)
	Remove(ctx context.Context, tournamentID string) error
}

// RevealStarted возвращается при запуске показа жеребьевки.
type RevealStarted struct {
	RevealID     string              `json:"reveal_id"`
	TotalMatches int                 `json:"total_matches"`
	Bracket      *models.BracketView `json:"bracket"`
}

// RevealCancelledPayload рассылается, когда персонал останавливает показ.
type RevealCancelledPayload struct {
	RevealID string `json:"reveal_id"`
}

// BracketDeletedPayload рассылается после удаления сетки.
type BracketDeletedPayload struct {
	TournamentID string `json:"tournament_id"`
}

type BracketService interface {
	CreateDraw(ctx context.Context, tournamentID string, participants []string) (*models.BracketView, error)
	GetBracket(ctx context.Context, tournamentID string) (*models.BracketView, error)
	RecordWinner(ctx context.Context, tournamentID string, matchIndex int, player string) (*models.BracketView, error)
	ResetMatch(ctx context.Context, tournamentID string, matchIndex int) (*models.BracketView, error)
	AdvanceRound(ctx context.Context, tournamentID string) (*models.BracketView, error)
	RollbackLastRound(ctx context.Context, tournamentID string) (*models.BracketView, error)
	RegenerateFrom(ctx context.Context, tournamentID string, round int) (*models.BracketView, error)
	EditHistoricalWinner(ctx context.Context, tournamentID string, round, matchIndex int, winner string) (*models.BracketView, error)
	Save(ctx context.Context, tournamentID string) (*models.BracketView, error)
	StartReveal(ctx context.Context, tournamentID string) (*RevealStarted, error)
	CancelReveal(ctx context.Context, tournamentID string) (*models.BracketView, error)
	DeleteBracket(ctx context.Context, tournamentID string) error
	Close()
}

// bracketEntry - рабочая копия сетки одного турнира.
type bracketEntry struct {
	bracket   *brackets.Bracket
	dirty     bool
	reveal    *brackets.Reveal
	updatedAt time.Time
}

type bracketService struct {
	repo     repositories.BracketRepository
	notifier Notifier
	logger   *slog.Logger

	archiver Archiver
	metrics  *metrics.Recorder
	reveals  *brackets.RevealScheduler
	rnd      brackets.RandomSource
	now      func() time.Time

	// mu упорядочивает все операции, пишет только один.
	mu      sync.Mutex
	working map[string]*bracketEntry
}

type BracketServiceOption func(*bracketService)

func WithArchiver(a Archiver) BracketServiceOption {
	return func(s *bracketService) { s.archiver = a }
}

func WithMetrics(m *metrics.Recorder) BracketServiceOption {
	return func(s *bracketService) { s.metrics = m }
}

func WithRevealScheduler(r *brackets.RevealScheduler) BracketServiceOption {
	return func(s *bracketService) { s.reveals = r }
}

// WithRandomSource задает источник случайности для жеребьевки всех сеток.
func WithRandomSource(rnd brackets.RandomSource) BracketServiceOption {
	return func(s *bracketService) { s.rnd = rnd }
}

func WithClock(now func() time.Time) BracketServiceOption {
	return func(s *bracketService) { s.now = now }
}

func NewBracketService(repo repositories.BracketRepository, notifier Notifier, logger *slog.Logger, opts ...BracketServiceOption) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &bracketService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		working:  make(map[string]*bracketEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reveals == nil {
		s.reveals = brackets.NewRevealScheduler(brackets.DefaultRevealConfig())
	}
	return s
}

func (s *bracketService) bracketOptions() []brackets.Option {
	return []brackets.Option{brackets.WithRandom(s.rnd), brackets.WithClock(s.now)}
}

func validTournamentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: tournament id is required", ErrValidationFailed)
	}
	return nil
}

// load возвращает рабочую копию, при первом обращении читая ее из хранилища.
// Вызывается под s.mu.
func (s *bracketService) load(ctx context.Context, tournamentID string) (*bracketEntry, error) {
	if err := validTournamentID(tournamentID); err != nil {
		return nil, err
	}
	if e, ok := s.working[tournamentID]; ok {
		return e, nil
	}

	snap, err := s.repo.Load(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)
		}
		return nil, fmt.Errorf("failed to load bracket for tournament %s: %w", tournamentID, err)
	}

	b, err := brackets.FromSnapshot(*snap, s.bracketOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore bracket for tournament %s: %w", tournamentID, err)
	}

	e := &bracketEntry{bracket: b, updatedAt: s.now()}
	s.working[tournamentID] = e
	return e, nil
}

func (s *bracketService) view(tournamentID string, e *bracketEntry) *models.BracketView {
	b := e.bracket
	return &models.BracketView{
		TournamentID:      tournamentID,
		State:             b.State(),
		CurrentRoundTitle: b.CurrentTitle(),
		ByeRecipients:     brackets.SortedNames(b.ByeRecipients()),
		StaleRounds:       b.StaleRounds(),
		Unsaved:           e.dirty,
		RevealInProgress:  e.reveal != nil,
		UpdatedAt:         e.updatedAt,
		BracketSnapshot:   b.Snapshot(),
	}
}

// persist сохраняет сетку. Если чемпион уже объявлен, итоговый документ
// параллельно уходит в архив; ошибки архива только логируются.
// Вызывается под s.mu.
func (s *bracketService) persist(ctx context.Context, tournamentID string, e *bracketEntry) error {
	snap := e.bracket.Snapshot()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repo.Save(gCtx, tournamentID, &snap)
	})
	if snap.Status && s.archiver != nil {
		g.Go(func() error {
			res, err := s.archiver.Archive(gCtx, tournamentID, &snap)
			if err != nil {
				s.metrics.Archive(metrics.ResultError)
				s.logger.WarnContext(ctx, "Failed to archive final bracket", slog.String("tournament_id", tournamentID), slog.Any("error", err))
				return nil
			}
			s.metrics.Archive(metrics.ResultOK)
			s.logger.InfoContext(ctx, "Final bracket archived", slog.String("tournament_id", tournamentID), slog.String("key", res.Key))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.dirty = true
		s.metrics.PersistenceFailure()
		s.logger.ErrorContext(ctx, "Failed to save bracket, keeping unsaved state in memory",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	e.dirty = false
	return nil
}

func (s *bracketService) broadcast(tournamentID string, view *models.BracketView) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(tournamentID, realtime.MessageBracketUpdated, view)
}

func (s *bracketService) record(op string, err error) {
	switch {
	case err == nil:
		s.metrics.Operation(op, metrics.ResultOK)
	case errors.Is(err, brackets.ErrInvalidOperation), errors.Is(err, brackets.ErrNotFound),
		errors.Is(err, ErrValidationFailed), errors.Is(err, ErrTournamentNotFound):
		s.metrics.Operation(op, metrics.ResultRejected)
	default:
		s.metrics.Operation(op, metrics.ResultError)
	}
}

// mutate применяет fn к копии сетки и принимает копию, только если fn успешна.
// При неудачном сохранении возвращается новое представление и ErrPersistenceFailure.
func (s *bracketService) mutate(ctx context.Context, op, tournamentID string, fn func(b *brackets.Bracket) error) (view *models.BracketView, err error) {
	defer func() { s.record(op, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if e.reveal != nil {
		return nil, ErrRevealInProgress
	}

	work := e.bracket.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.bracket = work
	e.updatedAt = s.now()

	saveErr := s.persist(ctx, tournamentID, e)
	view = s.view(tournamentID, e)
	s.broadcast(tournamentID, view)
	return view, saveErr
}

func (s *bracketService) CreateDraw(ctx context.Context, tournamentID string, participants []string) (view *models.BracketView, err error) {
	defer func() { s.record("create_draw", err) }()

	if err := validTournamentID(tournamentID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.working[tournamentID]; ok {
		return nil, ErrBracketExists
	}
	if _, err := s.repo.Load(ctx, tournamentID); err == nil {
		return nil, ErrBracketExists
	} else if !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, fmt.Errorf("failed to check existing bracket for tournament %s: %w", tournamentID, err)
	}

	b, err := brackets.NewDraw(participants, s.bracketOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	e := &bracketEntry{bracket: b, updatedAt: s.now()}
	s.working[tournamentID] = e
	s.logger.InfoContext(ctx, "Bracket drawn",
		slog.String("tournament_id", tournamentID), slog.Int("participants", len(participants)), slog.Int("matches", len(b.CurrentMatches)))

	saveErr := s.persist(ctx, tournamentID, e)
	view = s.view(tournamentID, e)
	s.broadcast(tournamentID, view)
	return view, saveErr
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID string) (*models.BracketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return s.view(tournamentID, e), nil
}

func (s *bracketService) RecordWinner(ctx context.Context, tournamentID string, matchIndex int, player string) (*models.BracketView, error) {
	if brackets.IsBlank(player) {
		return nil, fmt.Errorf("%w: player is required", ErrValidationFailed)
	}
	return s.mutate(ctx, "record_winner", tournamentID, func(b *brackets.Bracket) error {
		return b.RecordWinner(matchIndex, player)
	})
}

func (s *bracketService) ResetMatch(ctx context.Context, tournamentID string, matchIndex int) (*models.BracketView, error) {
	return s.mutate(ctx, "reset_match", tournamentID, func(b *brackets.Bracket) error {
		return b.ResetMatch(matchIndex)
	})
}

func (s *bracketService) AdvanceRound(ctx context.Context, tournamentID string) (*models.BracketView, error) {
	return s.mutate(ctx, "advance_round", tournamentID, func(b *brackets.Bracket) error {
		res, err := b.AdvanceRound()
		if err != nil {
			return err
		}
		s.logAdvance(ctx, tournamentID, res)
		return nil
	})
}

func (s *bracketService) logAdvance(ctx context.Context, tournamentID string, res brackets.AdvanceResult) {
	if res.Champion != "" {
		s.logger.InfoContext(ctx, "Champion declared",
			slog.String("tournament_id", tournamentID), slog.String("champion", res.Champion), slog.Int("round", res.FinishedRound))
		return
	}
	s.logger.InfoContext(ctx, "Round advanced",
		slog.String("tournament_id", tournamentID), slog.Int("finished_round", res.FinishedRound),
		slog.String("finished_title", res.FinishedTitle), slog.Int("round", res.NextRound))
}

func (s *bracketService) RollbackLastRound(ctx context.Context, tournamentID string) (*models.BracketView, error) {
	return s.mutate(ctx, "rollback_last_round", tournamentID, func(b *brackets.Bracket) error {
		return b.RollbackLastRound()
	})
}

func (s *bracketService) RegenerateFrom(ctx context.Context, tournamentID string, round int) (*models.BracketView, error) {
	return s.mutate(ctx, "regenerate_from", tournamentID, func(b *brackets.Bracket) error {
		if err := b.RegenerateFrom(round); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Bracket regenerated", slog.String("tournament_id", tournamentID), slog.Int("from_round", round))
		return nil
	})
}

func (s *bracketService) EditHistoricalWinner(ctx context.Context, tournamentID string, round, matchIndex int, winner string) (*models.BracketView, error) {
	if brackets.IsBlank(winner) {
		return nil, fmt.Errorf("%w: winner is required", ErrValidationFailed)
	}
	return s.mutate(ctx, "edit_historical_winner", tournamentID, func(b *brackets.Bracket) error {
		res, err := b.EditHistoricalWinner(round, matchIndex, winner)
		if err != nil {
			return err
		}
		if len(res.StaleRounds) > 0 {
			s.logger.InfoContext(ctx, "Historical winner edited, later rounds are stale",
				slog.String("tournament_id", tournamentID), slog.Int("round", round), slog.Any("stale_rounds", res.StaleRounds))
		}
		return nil
	})
}

// Save повторяет сохранение сетки из памяти.
func (s *bracketService) Save(ctx context.Context, tournamentID string) (view *models.BracketView, err error) {
	defer func() { s.record("save", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	saveErr := s.persist(ctx, tournamentID, e)
	view = s.view(tournamentID, e)
	if saveErr == nil {
		s.broadcast(tournamentID, view)
	}
	return view, saveErr
}

// StartReveal закрывает текущий раунд и показывает новые пары по одной.
// Новый раунд применяется только после показа последней пары.
// Финал показывать нечего, он закрывается сразу.
func (s *bracketService) StartReveal(ctx context.Context, tournamentID string) (started *RevealStarted, err error) {
	defer func() { s.record("start_reveal", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if e.reveal != nil {
		return nil, ErrRevealInProgress
	}

	planned, res, err := e.bracket.PlanAdvance()
	if err != nil {
		return nil, err
	}

	if res.Champion != "" {
		e.bracket.Commit(planned)
		e.updatedAt = s.now()
		s.logAdvance(ctx, tournamentID, res)
		saveErr := s.persist(ctx, tournamentID, e)
		view := s.view(tournamentID, e)
		s.broadcast(tournamentID, view)
		return &RevealStarted{Bracket: view}, saveErr
	}

	// показ живет дольше HTTP-запроса
	revealCtx := context.WithoutCancel(ctx)

	var reveal *brackets.Reveal
	sink := func(f brackets.RevealFrame) {
		if s.notifier != nil {
			s.notifier.Notify(tournamentID, realtime.MessageRevealFrame, f)
		}
	}
	commit := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if e.reveal != reveal {
			return ErrNoActiveReveal
		}
		e.reveal = nil
		e.bracket.Commit(planned)
		e.updatedAt = s.now()
		s.logAdvance(revealCtx, tournamentID, res)
		s.metrics.Reveal("committed")

		saveErr := s.persist(revealCtx, tournamentID, e)
		s.broadcast(tournamentID, s.view(tournamentID, e))
		return saveErr
	}

	reveal = s.reveals.Start(revealCtx, planned.CurrentMatches, sink, commit)
	e.reveal = reveal
	s.logger.InfoContext(ctx, "Draw reveal started",
		slog.String("tournament_id", tournamentID), slog.String("reveal_id", reveal.ID), slog.Int("round", res.NextRound))

	view := s.view(tournamentID, e)
	s.broadcast(tournamentID, view)
	return &RevealStarted{RevealID: reveal.ID, TotalMatches: len(planned.CurrentMatches), Bracket: view}, nil
}

// CancelReveal останавливает показ. Сетка остается такой, какой была до показа.
func (s *bracketService) CancelReveal(ctx context.Context, tournamentID string) (view *models.BracketView, err error) {
	defer func() { s.record("cancel_reveal", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if e.reveal == nil {
		return nil, ErrNoActiveReveal
	}
	r := e.reveal
	if !r.Cancel() {
		return nil, ErrRevealCommitting
	}
	e.reveal = nil
	s.metrics.Reveal("cancelled")
	s.logger.InfoContext(ctx, "Draw reveal cancelled", slog.String("tournament_id", tournamentID), slog.String("reveal_id", r.ID))

	if s.notifier != nil {
		s.notifier.Notify(tournamentID, realtime.MessageRevealCancelled, RevealCancelledPayload{RevealID: r.ID})
	}
	view = s.view(tournamentID, e)
	s.broadcast(tournamentID, view)
	return view, nil
}

// DeleteBracket удаляет сетку турнира из хранилища, рабочего набора и архива.
// Сетку, которая так и не была сохранена, достаточно убрать из памяти.
func (s *bracketService) DeleteBracket(ctx context.Context, tournamentID string) (err error) {
	defer func() { s.record("delete_bracket", err) }()

	if err := validTournamentID(tournamentID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, inMemory := s.working[tournamentID]
	if inMemory && e.reveal != nil {
		return ErrRevealInProgress
	}

	if err := s.repo.Delete(ctx, tournamentID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrBracketNotFound) && inMemory:
		case errors.Is(err, repositories.ErrBracketNotFound):
			return fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)
		default:
			s.metrics.PersistenceFailure()
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}
	delete(s.working, tournamentID)

	if s.archiver != nil {
		if err := s.archiver.Remove(ctx, tournamentID); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove bracket archive", slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "Bracket deleted", slog.String("tournament_id", tournamentID))
	if s.notifier != nil {
		s.notifier.Notify(tournamentID, realtime.MessageBracketDeleted, BracketDeletedPayload{TournamentID: tournamentID})
	}
	return nil
}

// Close отменяет все идущие показы.
func (s *bracketService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.working {
		if e.reveal != nil && e.reveal.Cancel() {
			s.logger.Info("Draw reveal cancelled on shutdown", slog.String("tournament_id", id))
			e.reveal = nil
		}
	}
}
