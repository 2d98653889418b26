package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"content-hub/events"
	"content-hub/models"
	"content-hub/normalizer"
	"content-hub/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const wrappedPayload = "[{\"output\":\"```json\\n{\\\"title\\\":\\\"Launch\\\",\\\"pillarContent\\\":\\\"Body\\\"}\\n```\"}]"

func TestGenerateNormalizesAndRecordsRun(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	updates := record(bus, events.TopicContentUpdated)
	gen := &fakeGenerator{name: "n8n", raw: wrappedPayload}
	svc := NewContentService(db, bus, zap.NewNop(), []providers.Generator{gen})

	out, err := svc.Generate(context.Background(), "n8n", providers.GenerationRequest{Topic: "Launch", TopicArea: "Product"})
	require.NoError(t, err)

	assert.Equal(t, normalizer.KindStructured, out.Result.Kind)
	require.Len(t, out.Result.Bundles, 1)
	assert.Equal(t, "Launch", out.Result.Title)
	assert.Equal(t, "Product", out.Result.Bundles[0].TopicArea)
	require.Len(t, gen.requests, 1)
	assert.NotEmpty(t, gen.requests[0].SessionID)

	var run models.WebhookRun
	require.NoError(t, db.First(&run, "id = ?", out.RunID).Error)
	assert.Equal(t, "structured", run.Kind)
	assert.Equal(t, 1, run.BundleCount)
	assert.Equal(t, wrappedPayload, run.RawText)
	assert.Contains(t, string(run.Request), `"topic":"Launch"`)

	evs := updates.all()
	require.Len(t, evs, 1)
	payload, ok := evs[0].Payload.(events.ContentUpdated)
	require.True(t, ok)
	assert.Equal(t, out.RunID, payload.RunID)
	assert.Equal(t, "structured", payload.Kind)
}

func TestGenerateUnknownGenerator(t *testing.T) {
	svc := NewContentService(newTestDB(t), newBus(), zap.NewNop(), nil)

	_, err := svc.Generate(context.Background(), "nope", providers.GenerationRequest{})
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestGenerateTransportErrorIsRecorded(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeGenerator{name: "n8n", err: &providers.TransportError{Provider: "n8n", StatusCode: http.StatusBadGateway, Message: "down"}}
	svc := NewContentService(db, newBus(), zap.NewNop(), []providers.Generator{gen})

	_, err := svc.Generate(context.Background(), "n8n", providers.GenerationRequest{Topic: "x"})
	te, ok := providers.AsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)

	var run models.WebhookRun
	require.NoError(t, db.First(&run).Error)
	assert.Equal(t, "transport_error", run.Kind)
	assert.Contains(t, run.ErrorMessage, "down")
}

func TestGeneratePlainErrorBecomesTransportError(t *testing.T) {
	gen := &fakeGenerator{name: "openai", err: errors.New("boom")}
	svc := NewContentService(newTestDB(t), newBus(), zap.NewNop(), []providers.Generator{gen})

	_, err := svc.Generate(context.Background(), "openai", providers.GenerationRequest{})
	te, ok := providers.AsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, "openai", te.Provider)
}

func TestGenerateSurvivesRunLogFailure(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.WebhookRun{}))
	gen := &fakeGenerator{name: "n8n", raw: `{"pillarContent":"ok"}`}
	svc := NewContentService(db, newBus(), zap.NewNop(), []providers.Generator{gen})

	out, err := svc.Generate(context.Background(), "n8n", providers.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, normalizer.KindStructured, out.Result.Kind)
}

func TestGenerateDegradedKindsAreNotErrors(t *testing.T) {
	tests := []struct {
		raw  string
		kind normalizer.Kind
	}{
		{raw: "", kind: normalizer.KindEmpty},
		{raw: `{"error":true,"message":"quota exceeded"}`, kind: normalizer.KindError},
		{raw: "just words", kind: normalizer.KindRawText},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			gen := &fakeGenerator{name: "n8n", raw: tt.raw}
			svc := NewContentService(newTestDB(t), newBus(), zap.NewNop(), []providers.Generator{gen})

			out, err := svc.Generate(context.Background(), "n8n", providers.GenerationRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, out.Result.Kind)
		})
	}
}

func TestProcessRenormalizesStoredRun(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.WebhookRun{
		ID:        "run-1",
		Generator: "n8n",
		Kind:      "raw_text",
		TopicArea: "SEO",
		RawText:   "Intro\n```json\n{\"pillarContent\":\"Recovered\"}\n```",
	}).Error)
	svc := NewContentService(db, newBus(), zap.NewNop(), nil)

	out, err := svc.Process(context.Background(), "run-1", normalizer.Context{Title: "Manual"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, normalizer.KindStructured, out.Result.Kind)
	require.Len(t, out.Result.Bundles, 1)
	assert.Equal(t, []string{"Recovered"}, out.Result.Bundles[0].PillarContent)
	assert.Equal(t, "SEO", out.Result.Bundles[0].TopicArea)
	assert.Equal(t, "Manual", out.Result.Bundles[0].Title)
}

func TestProcessFallsBackToStoredTitle(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.WebhookRun{
		ID:        "run-2",
		Generator: "n8n",
		Kind:      "structured",
		TopicArea: "SEO",
		Title:     "Stored title",
		RawText:   `{"pillarContent":"Body"}`,
	}).Error)
	svc := NewContentService(db, newBus(), zap.NewNop(), nil)

	out, err := svc.Process(context.Background(), "run-2", normalizer.Context{})
	require.NoError(t, err)

	require.Len(t, out.Result.Bundles, 1)
	assert.Equal(t, "Stored title", out.Result.Bundles[0].Title)
	assert.Equal(t, "Stored title", out.Result.Title)
}

func TestProcessUnknownRun(t *testing.T) {
	svc := NewContentService(newTestDB(t), newBus(), zap.NewNop(), nil)

	_, err := svc.Process(context.Background(), "missing", normalizer.Context{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustLoadsLibraryItem(t *testing.T) {
	db := newTestDB(t)
	bus := newBus()
	lib := NewLibraryService(db, bus, zap.NewNop())
	item, err := lib.Save(context.Background(), SaveRequest{
		Bundle:    normalizer.ContentBundle{Title: "Guide", PillarContent: []string{"Old text"}},
		TopicArea: "Onboarding",
	})
	require.NoError(t, err)

	adjuster := &fakeGenerator{name: "n8n-adjust", raw: `{"pillarContent":"New text"}`}
	svc := NewContentService(db, bus, zap.NewNop(), nil)
	svc.SetAdjuster(adjuster)

	out, err := svc.Adjust(context.Background(), AdjustRequest{ItemID: item.ID, Instructions: "Make it shorter"})
	require.NoError(t, err)

	require.Len(t, adjuster.requests, 1)
	req := adjuster.requests[0]
	assert.Equal(t, "Make it shorter", req.Instructions)
	assert.Equal(t, "Onboarding", req.TopicArea)
	assert.Equal(t, "Guide", req.Title)
	require.NotNil(t, req.Existing)
	assert.Equal(t, []string{"Old text"}, req.Existing.PillarContent)

	assert.Equal(t, normalizer.KindStructured, out.Result.Kind)
	assert.Equal(t, "Guide", out.Result.Title)
}

func TestAdjustValidation(t *testing.T) {
	svc := NewContentService(newTestDB(t), newBus(), zap.NewNop(), nil)

	_, err := svc.Adjust(context.Background(), AdjustRequest{Instructions: "x"})
	assert.ErrorIs(t, err, ErrUnknownGenerator)

	svc.SetAdjuster(&fakeGenerator{name: "n8n-adjust"})
	_, err = svc.Adjust(context.Background(), AdjustRequest{ItemID: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Adjust(context.Background(), AdjustRequest{Instructions: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Adjust(context.Background(), AdjustRequest{ItemID: 42, Instructions: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.Create(&models.WebhookRun{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
	}
	svc := NewContentService(db, newBus(), zap.NewNop(), nil)

	runs, err := svc.Runs(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestGeneratorsSorted(t *testing.T) {
	svc := NewContentService(nil, nil, zap.NewNop(), []providers.Generator{
		&fakeGenerator{name: "openai"}, &fakeGenerator{name: "n8n"},
	})
	assert.Equal(t, []string{"n8n", "openai"}, svc.Generators())
}

func TestGenerateLogsDegradedResultAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gen := &fakeGenerator{name: "n8n", raw: "Sorry, I cannot help with that."}
	svc := NewContentService(newTestDB(t), newBus(), zap.New(core), []providers.Generator{gen})

	_, err := svc.Generate(context.Background(), "n8n", providers.GenerationRequest{})
	require.NoError(t, err)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("Content generation returned no structured content").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "raw_text", warnings[0].ContextMap()["kind"])
	assert.Equal(t, "n8n", warnings[0].ContextMap()["generator"])
}
