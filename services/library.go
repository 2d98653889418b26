package services

import (
	"context"
	"fmt"
	"strings"

	"content-hub/events"
	"content-hub/models"
	"content-hub/normalizer"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// likeEscaper maskiert LIKE-Platzhalter in der Suche; passt zu ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SaveRequest beschreibt einen neuen Bibliothekseintrag.
type SaveRequest struct {
	Bundle      normalizer.ContentBundle `json:"bundle"`
	Title       string                   `json:"title"`
	ContentType string                   `json:"content_type"`
	TopicArea   string                   `json:"topic_area"`
	Keywords    []string                 `json:"keywords"`
	IsSaved     *bool                    `json:"is_saved"`
	SourceRunID string                   `json:"source_run_id"`
}

// UpdateRequest ändert nur die gesetzten Felder.
type UpdateRequest struct {
	Title       *string                   `json:"title"`
	ContentType *string                   `json:"content_type"`
	TopicArea   *string                   `json:"topic_area"`
	Keywords    *[]string                 `json:"keywords"`
	IsSaved     *bool                     `json:"is_saved"`
	Bundle      *normalizer.ContentBundle `json:"bundle"`
}

// LibraryQuery filtert die Bibliothek.
type LibraryQuery struct {
	ContentType string `json:"content_type"`
	TopicArea   string `json:"topic_area"`
	IsSaved     *bool  `json:"is_saved"`
	Search      string `json:"search"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// LibraryPage ist eine Seite von Treffern samt Gesamtanzahl.
type LibraryPage struct {
	Items  []models.ContentItem `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// LibraryService verwaltet die Content-Bibliothek.
type LibraryService struct {
	DB     *gorm.DB
	Bus    *events.Bus
	Logger *zap.Logger
}

// NewLibraryService erstellt eine neue Instanz des LibraryService.
func NewLibraryService(db *gorm.DB, bus *events.Bus, logger *zap.Logger) *LibraryService {
	return &LibraryService{DB: db, Bus: bus, Logger: logger}
}

// Save legt ein Bundle in der Bibliothek ab.
func (s *LibraryService) Save(ctx context.Context, req SaveRequest) (*models.ContentItem, error) {
	bundle := normalizer.Canonical(req.Bundle)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = bundle.Title
	}
	if title == "" {
		title = req.TopicArea
	}
	if title == "" {
		title = bundle.TopicArea
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}

	item := models.ContentItem{
		Title:       title,
		ContentType: req.ContentType,
		TopicArea:   req.TopicArea,
		Keywords:    datatypes.JSONSlice[string](nonNil(req.Keywords)),
		IsSaved:     true,
		Content:     searchText(bundle),
		Bundle:      datatypes.NewJSONType(bundle),
		SourceRunID: req.SourceRunID,
	}
	if item.ContentType == "" {
		item.ContentType = models.ContentTypeBundle
	}
	if item.TopicArea == "" {
		item.TopicArea = bundle.TopicArea
	}
	if req.IsSaved != nil {
		item.IsSaved = *req.IsSaved
	}

	if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
		s.Logger.Error("Failed to save content item", zap.String("title", title), zap.Error(err))
		return nil, persistenceError("save content item", err)
	}
	librarySaves.Inc()
	s.Logger.Info("Content item saved", zap.Uint("id", item.ID), zap.String("title", item.Title))
	if s.Bus != nil {
		s.Bus.Publish(events.TopicContentSaved, events.ContentSaved{ItemID: item.ID, Title: item.Title})
	}
	return &item, nil
}

// Get lädt einen Eintrag.
func (s *LibraryService) Get(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := s.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, persistenceError("load content item", err)
	}
	return &item, nil
}

// Update übernimmt die gesetzten Felder. Schlägt das Speichern fehl, bleibt der Datensatz unverändert.
func (s *LibraryService) Update(ctx context.Context, id uint, req UpdateRequest) (*models.ContentItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.ContentType != nil && *req.ContentType != "" {
		updates["content_type"] = *req.ContentType
	}
	if req.TopicArea != nil {
		updates["topic_area"] = *req.TopicArea
	}
	if req.Keywords != nil {
		updates["keywords"] = datatypes.JSONSlice[string](nonNil(*req.Keywords))
	}
	if req.IsSaved != nil {
		updates["is_saved"] = *req.IsSaved
	}
	if req.Bundle != nil {
		bundle := normalizer.Canonical(*req.Bundle)
		updates["bundle"] = datatypes.NewJSONType(bundle)
		updates["content"] = searchText(bundle)
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.DB.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		s.Logger.Error("Failed to update content item", zap.Uint("id", id), zap.Error(err))
		return nil, persistenceError("update content item", err)
	}
	return s.Get(ctx, id)
}

// SetSaved setzt das Gespeichert-Flag.
func (s *LibraryService) SetSaved(ctx context.Context, id uint, saved bool) (*models.ContentItem, error) {
	return s.Update(ctx, id, UpdateRequest{IsSaved: &saved})
}

// Delete entfernt einen Eintrag.
func (s *LibraryService) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.ContentItem{}, id)
	if res.Error != nil {
		s.Logger.Error("Failed to delete content item", zap.Uint("id", id), zap.Error(res.Error))
		return persistenceError("delete content item", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Query liefert gefilterte, seitenweise Treffer, neueste zuerst.
func (s *LibraryService) Query(ctx context.Context, q LibraryQuery) (*LibraryPage, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := s.DB.WithContext(ctx).Model(&models.ContentItem{})
	if q.ContentType != "" {
		query = query.Where("content_type = ?", q.ContentType)
	}
	if q.TopicArea != "" {
		query = query.Where("topic_area = ?", q.TopicArea)
	}
	if q.IsSaved != nil {
		query = query.Where("is_saved = ?", *q.IsSaved)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	page := &LibraryPage{Items: []models.ContentItem{}, Limit: q.Limit, Offset: q.Offset}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, persistenceError("count content items", err)
	}
	if err := query.Order("created_at desc").Order("id desc").Limit(q.Limit).Offset(q.Offset).Find(&page.Items).Error; err != nil {
		s.Logger.Error("Database query for content items failed", zap.Error(err))
		return nil, persistenceError("query content items", err)
	}
	return page, nil
}

// Saved gibt alle als gespeichert markierten Einträge zurück.
func (s *LibraryService) Saved(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem
	if err := s.DB.WithContext(ctx).Where("is_saved = ?", true).Order("id asc").Find(&items).Error; err != nil {
		return nil, persistenceError("list saved content items", err)
	}
	return items, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
