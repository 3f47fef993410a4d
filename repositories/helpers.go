package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/cue-club/models"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// copySnapshot возвращает независимую копию документа через JSON,
// чтобы хранилища не делили указатели с вызывающим кодом.
func copySnapshot(snap *models.BracketSnapshot) (*models.BracketSnapshot, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	out := &models.BracketSnapshot{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
