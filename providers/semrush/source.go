// Package semrush enthält die Logik für die Interaktion mit der SEMrush Analytics API.
package semrush

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"content-hub/config"
	"content-hub/models"
	"content-hub/providers"

	"go.uber.org/zap"
)

const (
	defaultLimit  = 50
	exportColumns = "Ph,Nq,Kd,Cp,Td"
	nothingFound  = "ERROR 50 :: NOTHING FOUND"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Source ist eine Struktur, die die Logik zur Interaktion mit SEMrush kapselt.
type Source struct {
	Config     *config.Config
	Logger     *zap.Logger
	httpClient *http.Client
}

// NewSource erstellt eine neue Instanz der SEMrush-Keyword-Quelle.
func NewSource(cfg *config.Config, logger *zap.Logger) *Source {
	return &Source{Config: cfg, Logger: logger, httpClient: httpClient}
}

// Name gibt den Namen des Providers zurück.
func (s *Source) Name() string {
	return "semrush"
}

// Search holt verwandte Keywords samt Suchvolumen, Schwierigkeit, CPC und Trend.
func (s *Source) Search(ctx context.Context, phrase string, limit int) ([]*models.Keyword, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	log := s.Logger.With(zap.String("phrase", phrase), zap.String("database", s.Config.SemrushDatabase))
	log.Info("Starte SEMrush-Abfrage für verwandte Keywords.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildURL(phrase, limit), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("SEMrush-Anfrage fehlgeschlagen", zap.Error(err))
		return nil, &providers.TransportError{
			Provider: s.Name(),
			Timeout:  errors.Is(err, context.DeadlineExceeded),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providers.TransportError{Provider: s.Name(), Err: err}
	}
	text := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		log.Error("SEMrush-API hat nicht-200-Status zurückgegeben",
			zap.Int("status", resp.StatusCode),
			zap.String("body", text))
		return nil, &providers.TransportError{Provider: s.Name(), StatusCode: resp.StatusCode, Message: text}
	}
	if strings.HasPrefix(text, nothingFound) {
		log.Debug("SEMrush hat keine Keywords gefunden.")
		return []*models.Keyword{}, nil
	}
	if strings.HasPrefix(text, "ERROR") {
		log.Error("SEMrush-API meldet Fehler", zap.String("body", text))
		return nil, &providers.TransportError{Provider: s.Name(), StatusCode: http.StatusBadGateway, Message: text}
	}

	keywords, err := parseReport(text, s.Config.SemrushDatabase, phrase)
	if err != nil {
		log.Error("Fehler beim Parsen der SEMrush-Antwort", zap.Error(err))
		return nil, err
	}
	log.Debug("Keywords von SEMrush erhalten", zap.Int("count", len(keywords)))
	return keywords, nil
}

func (s *Source) buildURL(phrase string, limit int) string {
	params := url.Values{}
	params.Set("type", "phrase_related")
	params.Set("key", s.Config.SemrushAPIKey)
	params.Set("phrase", phrase)
	params.Set("database", s.Config.SemrushDatabase)
	params.Set("export_columns", exportColumns)
	params.Set("display_limit", strconv.Itoa(limit))
	return strings.TrimRight(s.Config.SemrushBaseURL, "/") + "/?" + params.Encode()
}

// parseReport liest den semikolon-getrennten Report. Die erste Zeile ist der Header.
func parseReport(text, database, seed string) ([]*models.Keyword, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("semrush report: %w", err)
	}
	keywords := make([]*models.Keyword, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		kw := &models.Keyword{
			Keyword:    strings.TrimSpace(rec[0]),
			Database:   database,
			SeedPhrase: seed,
			Trend:      []float64{},
		}
		if len(rec) > 1 {
			kw.Volume, _ = strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		}
		if len(rec) > 2 {
			kw.Difficulty, _ = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		}
		if len(rec) > 3 {
			kw.CPC, _ = strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		}
		if len(rec) > 4 {
			kw.Trend = parseTrend(rec[4])
		}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

func parseTrend(s string) []float64 {
	trend := []float64{}
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		trend = append(trend, v)
	}
	return trend
}
