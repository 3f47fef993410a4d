package storage

import (
	"context"
	"io"
)

// UploadResult описывает сохраненный объект архива.
type UploadResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag,omitempty"`
}

// FileUploader кладет объекты в бакет. BracketArchiver пишет через него
// итоговые сетки; в тестах подменяется записывающей заглушкой.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

var _ FileUploader = (*cloudflareR2Uploader)(nil)
