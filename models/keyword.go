package models

import (
	"time"

	"gorm.io/datatypes"
)

// Keyword speichert eine Keyword-Kennzahl aus der SEO-Datenquelle (SEMrush).
type Keyword struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Keyword    string                       `json:"keyword" gorm:"not null;uniqueIndex:idx_keywords_keyword_db"`
	Database   string                       `json:"database" gorm:"not null;uniqueIndex:idx_keywords_keyword_db"`
	SeedPhrase string                       `json:"seed_phrase" gorm:"index"`
	Volume     int64                        `json:"volume"`
	Difficulty float64                      `json:"difficulty"`
	CPC        float64                      `json:"cpc" gorm:"column:cpc"`
	Trend      datatypes.JSONSlice[float64] `json:"trend"`
}

// TableName gibt explizit den Tabellennamen an.
func (Keyword) TableName() string {
	return "keywords"
}
