package models

import (
	"time"

	"content-hub/normalizer"

	"gorm.io/datatypes"
)

// Content-Typen der Bibliothek
const (
	ContentTypeBundle  = "bundle"
	ContentTypePillar  = "pillar"
	ContentTypeSupport = "support"
	ContentTypeSocial  = "social"
	ContentTypeEmail   = "email"
)

// ContentItem ist ein Eintrag der Content-Bibliothek: ein normalisiertes Bundle samt Metadaten.
type ContentItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string                      `json:"title" gorm:"not null"`
	ContentType string                      `json:"content_type" gorm:"index;default:'bundle'"`
	TopicArea   string                      `json:"topic_area,omitempty" gorm:"index"`
	Keywords    datatypes.JSONSlice[string] `json:"keywords"`
	IsSaved     bool                        `json:"is_saved" gorm:"index;default:false"`

	// Flacher Text für Suche und Vorschau
	Content string `json:"content" gorm:"type:text"`

	Bundle datatypes.JSONType[normalizer.ContentBundle] `json:"bundle"`

	// Herkunft (WebhookRun), falls aus einer Generierung gespeichert
	SourceRunID string `json:"source_run_id,omitempty" gorm:"index"`
}

// TableName gibt explizit den Tabellennamen an.
func (ContentItem) TableName() string {
	return "content_items"
}
