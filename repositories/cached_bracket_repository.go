package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Dosada05/cue-club/models"
)

// SnapshotCache - часть cache.Store, нужная декоратору.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cachedBracketRepository struct {
	next   BracketRepository
	cache  SnapshotCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedBracketRepository оборачивает next кэшем на чтение и запись.
// Ошибки кэша только логируются и не ломают вызов.
func NewCachedBracketRepository(next BracketRepository, cache SnapshotCache, ttl time.Duration, logger *slog.Logger) BracketRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedBracketRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func bracketCacheKey(tournamentID string) string {
	return "bracket:" + tournamentID
}

func (r *cachedBracketRepository) Load(ctx context.Context, tournamentID string) (*models.BracketSnapshot, error) {
	key := bracketCacheKey(tournamentID)

	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("bracket cache read failed", slog.String("tournament_id", tournamentID), slog.Any("error", err))
	}
	if ok {
		snap := &models.BracketSnapshot{}
		if err := json.Unmarshal(raw, snap); err == nil {
			return snap, nil
		}
		r.logger.Warn("dropping undecodable cached bracket", slog.String("tournament_id", tournamentID))
		_ = r.cache.Delete(ctx, key)
	}

	snap, err := r.next.Load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, tournamentID, snap)
	return snap, nil
}

func (r *cachedBracketRepository) Save(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) error {
	if err := r.next.Save(ctx, tournamentID, snap); err != nil {
		// старое значение в кэше больше не соответствует намерению вызывающего
		if delErr := r.cache.Delete(ctx, bracketCacheKey(tournamentID)); delErr != nil {
			r.logger.Warn("bracket cache invalidation failed", slog.String("tournament_id", tournamentID), slog.Any("error", delErr))
		}
		return err
	}
	r.fill(ctx, tournamentID, snap)
	return nil
}

func (r *cachedBracketRepository) Delete(ctx context.Context, tournamentID string) error {
	if err := r.cache.Delete(ctx, bracketCacheKey(tournamentID)); err != nil {
		r.logger.Warn("bracket cache invalidation failed", slog.String("tournament_id", tournamentID), slog.Any("error", err))
	}
	return r.next.Delete(ctx, tournamentID)
}

func (r *cachedBracketRepository) fill(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, bracketCacheKey(tournamentID), raw, r.ttl); err != nil {
		r.logger.Warn("bracket cache write failed", slog.String("tournament_id", tournamentID), slog.Any("error", err))
	}
}
