package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/cue-club/models"
)

// BracketArchiver хранит итоговые сетки в бакете как JSON.
type BracketArchiver struct {
	uploader FileUploader
}

func NewBracketArchiver(uploader FileUploader) *BracketArchiver {
	return &BracketArchiver{uploader: uploader}
}

// ArchiveKey: brackets/{tournamentID}/final.json. Повторное сохранение перезаписывает объект.
func ArchiveKey(tournamentID string) string {
	return fmt.Sprintf("brackets/%s/final.json", tournamentID)
}

// Archive загружает итоговую сетку и возвращает ее адрес.
func (a *BracketArchiver) Archive(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) (*UploadResult, error) {
	doc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket archive for tournament %s: %w", tournamentID, err)
	}
	return a.uploader.Upload(ctx, ArchiveKey(tournamentID), "application/json", bytes.NewReader(doc))
}

// Remove удаляет архив турнира. Отсутствующий объект ошибкой не считается.
func (a *BracketArchiver) Remove(ctx context.Context, tournamentID string) error {
	return a.uploader.Delete(ctx, ArchiveKey(tournamentID))
}
