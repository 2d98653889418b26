package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookRun protokolliert einen Generierungs-Roundtrip inklusive Rohantwort für die Debug-Ansicht.
type WebhookRun struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Generator    string         `json:"generator" gorm:"index"`
	Kind         string         `json:"kind" gorm:"index"` // structured, raw_text, empty, error, transport_error
	Title        string         `json:"title,omitempty"`
	TopicArea    string         `json:"topic_area,omitempty"`
	BundleCount  int            `json:"bundle_count"`
	RawText      string         `json:"raw_text" gorm:"type:text"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	DurationMS   int64          `json:"duration_ms"`
	Request      datatypes.JSON `json:"request,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (WebhookRun) TableName() string {
	return "webhook_runs"
}
