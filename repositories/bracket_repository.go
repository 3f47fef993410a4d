package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/cue-club/models"
	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrBracketNotFound     = errors.New("bracket not found")
	ErrBracketTableMissing = errors.New("tournament_brackets table does not exist, run db.EnsureSchema")
	ErrBracketDocument     = errors.New("stored bracket document is not valid JSON")
)

// BracketRepository хранит один документ сетки на турнир.
type BracketRepository interface {
	Load(ctx context.Context, tournamentID string) (*models.BracketSnapshot, error)
	Save(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) error
	Delete(ctx context.Context, tournamentID string) error
}

type postgresBracketRepository struct {
	db SQLExecutor
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Load(ctx context.Context, tournamentID string) (*models.BracketSnapshot, error) {
	query := `SELECT document FROM tournament_brackets WHERE tournament_id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, r.handleBracketError(err)
	}

	snap := &models.BracketSnapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("%w: tournament %s: %v", ErrBracketDocument, tournamentID, err)
	}
	return snap, nil
}

// Save перезаписывает документ целиком (last write wins).
func (r *postgresBracketRepository) Save(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) error {
	if snap == nil {
		return errors.New("bracket snapshot cannot be nil")
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode bracket for tournament %s: %w", tournamentID, err)
	}

	query := `
		INSERT INTO tournament_brackets (tournament_id, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tournament_id)
		DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query, tournamentID, doc)
	return r.handleBracketError(err)
}

func (r *postgresBracketRepository) Delete(ctx context.Context, tournamentID string) error {
	query := `DELETE FROM tournament_brackets WHERE tournament_id = $1`

	result, err := r.db.ExecContext(ctx, query, tournamentID)
	if err != nil {
		return r.handleBracketError(err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) handleBracketError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01": // undefined_table
			return ErrBracketTableMissing
		case "22P02", "22032": // invalid_text_representation, invalid_json_text
			return fmt.Errorf("%w: %s", ErrBracketDocument, pqErr.Message)
		}
	}
	return err
}
