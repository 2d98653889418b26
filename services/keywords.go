package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"content-hub/events"
	"content-hub/models"
	"content-hub/providers"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeywordQuery filtert gespeicherte Keywords.
type KeywordQuery struct {
	SeedPhrase    string  `json:"seed_phrase"`
	MinVolume     int64   `json:"min_volume"`
	MaxDifficulty float64 `json:"max_difficulty"`
	Limit         int     `json:"limit"`
}

// KeywordService recherchiert Keywords und hält sie in der Datenbank aktuell.
type KeywordService struct {
	DB     *gorm.DB
	Source providers.KeywordSource
	Bus    *events.Bus
	Logger *zap.Logger
}

// NewKeywordService erstellt eine neue Instanz des KeywordService. source darf nil sein.
func NewKeywordService(db *gorm.DB, source providers.KeywordSource, bus *events.Bus, logger *zap.Logger) *KeywordService {
	return &KeywordService{DB: db, Source: source, Bus: bus, Logger: logger}
}

// CanonicalKeyword vereinheitlicht Schreibweisen (NFKC, Case-Folding, Leerraum).
func CanonicalKeyword(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Research holt verwandte Keywords von der Quelle und speichert sie per Upsert.
func (s *KeywordService) Research(ctx context.Context, phrase string, limit int) ([]models.Keyword, error) {
	if s.Source == nil {
		return nil, fmt.Errorf("%w: no keyword source configured", ErrInvalidRequest)
	}
	seed := CanonicalKeyword(phrase)
	if seed == "" {
		return nil, fmt.Errorf("%w: phrase is required", ErrInvalidRequest)
	}
	log := s.Logger.With(zap.String("seed_phrase", seed), zap.String("source", s.Source.Name()))

	fetched, err := s.Source.Search(ctx, seed, limit)
	if err != nil {
		log.Error("Keyword research failed", zap.Error(err))
		return nil, err
	}
	keywordsFetched.Add(float64(len(fetched)))

	rows := make([]models.Keyword, 0, len(fetched))
	seen := map[string]bool{}
	for _, kw := range fetched {
		if kw == nil {
			continue
		}
		k := *kw
		k.Keyword = CanonicalKeyword(k.Keyword)
		k.SeedPhrase = seed
		if k.Keyword == "" || seen[k.Database+"\x00"+k.Keyword] {
			continue
		}
		seen[k.Database+"\x00"+k.Keyword] = true
		if k.Trend == nil {
			k.Trend = []float64{}
		}
		rows = append(rows, k)
	}
	if len(rows) == 0 {
		log.Info("Keyword source returned no keywords")
		s.publishRefresh(seed, 0)
		return []models.Keyword{}, nil
	}

	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}, {Name: "database"}},
		DoUpdates: clause.AssignmentColumns([]string{"seed_phrase", "volume", "difficulty", "cpc", "trend", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		log.Error("Failed to upsert keywords", zap.Error(err))
		return nil, persistenceError("upsert keywords", err)
	}

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Keyword
	}
	var stored []models.Keyword
	err = s.DB.WithContext(ctx).
		Where("database = ? AND keyword IN ?", rows[0].Database, names).
		Order("volume desc").Order("keyword asc").
		Find(&stored).Error
	if err != nil {
		return nil, persistenceError("load keywords", err)
	}

	log.Info("Keywords stored", zap.Int("count", len(stored)))
	s.publishRefresh(seed, len(stored))
	return stored, nil
}

// Query liefert gespeicherte Keywords, nach Suchvolumen absteigend.
func (s *KeywordService) Query(ctx context.Context, q KeywordQuery) ([]models.Keyword, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	query := s.DB.WithContext(ctx).Model(&models.Keyword{})
	if seed := CanonicalKeyword(q.SeedPhrase); seed != "" {
		query = query.Where("seed_phrase = ?", seed)
	}
	if q.MinVolume > 0 {
		query = query.Where("volume >= ?", q.MinVolume)
	}
	if q.MaxDifficulty > 0 {
		query = query.Where("difficulty <= ?", q.MaxDifficulty)
	}

	keywords := []models.Keyword{}
	if err := query.Order("volume desc").Order("keyword asc").Limit(q.Limit).Find(&keywords).Error; err != nil {
		s.Logger.Error("Database query for keywords failed", zap.Error(err))
		return nil, persistenceError("query keywords", err)
	}
	return keywords, nil
}

// RefreshAll recherchiert jede bekannte Seed-Phrase erneut. Einzelne Fehler brechen den Lauf nicht ab.
func (s *KeywordService) RefreshAll(ctx context.Context) (int, error) {
	var seeds []string
	err := s.DB.WithContext(ctx).Model(&models.Keyword{}).
		Where("seed_phrase <> ''").
		Distinct("seed_phrase").Order("seed_phrase").
		Pluck("seed_phrase", &seeds).Error
	if err != nil {
		return 0, persistenceError("list seed phrases", err)
	}

	total := 0
	var errs []error
	for _, seed := range seeds {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rows, err := s.Research(ctx, seed, 0)
		if err != nil {
			s.Logger.Warn("Keyword refresh failed", zap.String("seed_phrase", seed), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", seed, err))
			continue
		}
		total += len(rows)
	}
	return total, errors.Join(errs...)
}

func (s *KeywordService) publishRefresh(seed string, count int) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.TopicKeywordsRefreshed, events.KeywordsRefreshed{SeedPhrase: seed, Count: count})
}
