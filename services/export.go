package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"content-hub/models"

	"go.uber.org/zap"
)

// Uploader legt Daten in einem Objektspeicher ab und gibt den Link zurück.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ExportResult beschreibt einen abgeschlossenen Export.
type ExportResult struct {
	Key   string `json:"key"`
	Link  string `json:"link"`
	Items int    `json:"items"`
}

// ExportService exportiert die gespeicherten Bibliothekseinträge als JSON.
type ExportService struct {
	Library  *LibraryService
	Uploader Uploader
	Logger   *zap.Logger
	now      func() time.Time
}

// NewExportService erstellt eine neue Instanz des ExportService.
func NewExportService(library *LibraryService, uploader Uploader, logger *zap.Logger) *ExportService {
	return &ExportService{Library: library, Uploader: uploader, Logger: logger, now: time.Now}
}

type exportDocument struct {
	ExportedAt time.Time            `json:"exported_at"`
	Items      []models.ContentItem `json:"items"`
}

// Export serialisiert alle gespeicherten Einträge und lädt sie hoch.
func (s *ExportService) Export(ctx context.Context) (*ExportResult, error) {
	items, err := s.Library.Saved(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ContentItem{}
	}

	at := s.now().UTC()
	data, err := json.MarshalIndent(exportDocument{ExportedAt: at, Items: items}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := fmt.Sprintf("library/export-%s.json", at.Format("2006-01-02T15-04-05Z"))
	link, err := s.Uploader.Upload(ctx, key, data, "application/json")
	if err != nil {
		s.Logger.Error("Library export upload failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Library exported", zap.String("key", key), zap.Int("items", len(items)))
	return &ExportResult{Key: key, Link: link, Items: len(items)}, nil
}
