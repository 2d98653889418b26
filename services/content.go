package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"content-hub/events"
	"content-hub/models"
	"content-hub/normalizer"
	"content-hub/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Kind eines Laufs, bei dem der Upstream gar nicht geantwortet hat.
const runKindTransportError = "transport_error"

// Outcome ist das Ergebnis einer Generierung oder Anpassung.
type Outcome struct {
	RunID     string            `json:"run_id"`
	Generator string            `json:"generator"`
	Result    normalizer.Result `json:"result"`
}

// AdjustRequest beschreibt eine Anpassung bestehender Inhalte.
// Entweder ItemID (Bibliothekseintrag) oder Bundle muss gesetzt sein.
type AdjustRequest struct {
	ItemID       uint                      `json:"item_id"`
	Bundle       *normalizer.ContentBundle `json:"bundle"`
	Instructions string                    `json:"instructions"`
	Generator    string                    `json:"generator"`
	TopicArea    string                    `json:"topic_area"`
	Title        string                    `json:"title"`
	Keywords     []string                  `json:"keywords"`
}

// ContentService orchestriert Generierung, Normalisierung und das Run-Protokoll.
type ContentService struct {
	DB         *gorm.DB
	Bus        *events.Bus
	Logger     *zap.Logger
	generators map[string]providers.Generator
	adjuster   providers.Generator
}

// NewContentService erstellt eine neue Instanz des ContentService.
func NewContentService(db *gorm.DB, bus *events.Bus, logger *zap.Logger, generators []providers.Generator) *ContentService {
	s := &ContentService{
		DB:         db,
		Bus:        bus,
		Logger:     logger,
		generators: make(map[string]providers.Generator, len(generators)),
	}
	for _, g := range generators {
		s.generators[g.Name()] = g
	}
	return s
}

// SetAdjuster registriert den Generator für den Anpassungs-Webhook.
func (s *ContentService) SetAdjuster(g providers.Generator) {
	s.adjuster = g
}

// Generators gibt die Namen aller registrierten Generatoren sortiert zurück.
func (s *ContentService) Generators() []string {
	names := make([]string, 0, len(s.generators))
	for name := range s.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate ruft den benannten Generator auf und normalisiert die Antwort.
func (s *ContentService) Generate(ctx context.Context, generator string, req providers.GenerationRequest) (*Outcome, error) {
	gen, ok := s.generators[generator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, generator)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return s.run(ctx, gen, req)
}

// Adjust schickt bestehende Inhalte samt Anweisungen an den Anpassungs-Generator.
func (s *ContentService) Adjust(ctx context.Context, req AdjustRequest) (*Outcome, error) {
	gen := s.adjuster
	if req.Generator != "" {
		g, ok := s.generators[req.Generator]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, req.Generator)
		}
		gen = g
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: no adjustment generator configured", ErrUnknownGenerator)
	}
	if req.Instructions == "" {
		return nil, fmt.Errorf("%w: instructions are required", ErrInvalidRequest)
	}

	bundle := req.Bundle
	topicArea, title := req.TopicArea, req.Title
	if bundle == nil {
		if req.ItemID == 0 {
			return nil, fmt.Errorf("%w: item_id or bundle is required", ErrInvalidRequest)
		}
		var item models.ContentItem
		if err := s.DB.WithContext(ctx).First(&item, req.ItemID).Error; err != nil {
			return nil, persistenceError("load content item", err)
		}
		b := item.Bundle.Data()
		bundle = &b
		if topicArea == "" {
			topicArea = item.TopicArea
		}
		if title == "" {
			title = item.Title
		}
	}
	if topicArea == "" {
		topicArea = bundle.TopicArea
	}
	if title == "" {
		title = bundle.Title
	}

	return s.run(ctx, gen, providers.GenerationRequest{
		SessionID:    uuid.NewString(),
		Topic:        title,
		TopicArea:    topicArea,
		Title:        title,
		Keywords:     req.Keywords,
		Instructions: req.Instructions,
		Existing:     bundle,
	})
}

// Process normalisiert die gespeicherte Rohantwort eines Laufs erneut, ohne Netzwerkzugriff.
func (s *ContentService) Process(ctx context.Context, runID string, nctx normalizer.Context) (*Outcome, error) {
	var run models.WebhookRun
	if err := s.DB.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return nil, persistenceError("load webhook run", err)
	}
	if nctx.TopicArea == "" {
		nctx.TopicArea = run.TopicArea
	}
	if nctx.Title == "" {
		nctx.Title = run.Title
	}
	res := s.NormalizeRaw(run.RawText, nctx)
	s.publishUpdate(run.ID, run.Generator, res)
	return &Outcome{RunID: run.ID, Generator: run.Generator, Result: res}, nil
}

// NormalizeRaw normalisiert eingefügten Text, z.B. aus der Debug-Ansicht.
func (s *ContentService) NormalizeRaw(raw string, nctx normalizer.Context) normalizer.Result {
	res := normalizer.Normalize(raw, nctx)
	normalizationResults.WithLabelValues(res.Kind.String()).Inc()
	return res
}

// Runs gibt die neuesten Läufe für die Debug-Ansicht zurück.
func (s *ContentService) Runs(ctx context.Context, limit int) ([]models.WebhookRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []models.WebhookRun
	if err := s.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, persistenceError("list webhook runs", err)
	}
	return runs, nil
}

func (s *ContentService) run(ctx context.Context, gen providers.Generator, req providers.GenerationRequest) (*Outcome, error) {
	log := s.Logger.With(zap.String("generator", gen.Name()), zap.String("session_id", req.SessionID))
	runID := uuid.NewString()

	start := time.Now()
	raw, err := gen.Generate(ctx, req)
	elapsed := time.Since(start)
	generationDuration.WithLabelValues(gen.Name()).Observe(elapsed.Seconds())

	run := &models.WebhookRun{
		ID:         runID,
		Generator:  gen.Name(),
		TopicArea:  req.TopicArea,
		Title:      req.Title,
		DurationMS: elapsed.Milliseconds(),
	}
	if b, mErr := json.Marshal(req); mErr == nil {
		run.Request = datatypes.JSON(b)
	}

	if err != nil {
		generationRequests.WithLabelValues(gen.Name(), runKindTransportError).Inc()
		log.Error("Content generation failed", zap.Error(err))
		run.Kind = runKindTransportError
		run.ErrorMessage = err.Error()
		s.recordRun(ctx, run)
		var te *providers.TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &providers.TransportError{Provider: gen.Name(), Err: err}
	}

	res := s.NormalizeRaw(raw, normalizer.Context{TopicArea: req.TopicArea, Title: req.Title})
	generationRequests.WithLabelValues(gen.Name(), res.Kind.String()).Inc()

	fields := []zap.Field{zap.String("run_id", runID), zap.String("kind", res.Kind.String()), zap.Int("bundles", len(res.Bundles))}
	if res.Kind == normalizer.KindStructured {
		log.Info("Content generated", fields...)
	} else {
		log.Warn("Content generation returned no structured content", append(fields, zap.String("error_message", res.ErrorMessage))...)
	}

	run.Kind = res.Kind.String()
	run.Title = res.Title
	run.BundleCount = len(res.Bundles)
	run.RawText = raw
	run.ErrorMessage = res.ErrorMessage
	s.recordRun(ctx, run)

	s.publishUpdate(runID, gen.Name(), res)
	return &Outcome{RunID: runID, Generator: gen.Name(), Result: res}, nil
}

// recordRun speichert das Protokoll. Ein Fehler hier darf die Generierung nicht scheitern lassen.
func (s *ContentService) recordRun(ctx context.Context, run *models.WebhookRun) {
	if s.DB == nil {
		return
	}
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Create(run).Error; err != nil {
		s.Logger.Warn("Could not record webhook run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *ContentService) publishUpdate(runID, generator string, res normalizer.Result) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.TopicContentUpdated, events.ContentUpdated{
		RunID:     runID,
		Generator: generator,
		Kind:      res.Kind.String(),
		Title:     res.Title,
		Bundles:   len(res.Bundles),
	})
}
