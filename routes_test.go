package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"content-hub/events"
	"content-hub/models"
	"content-hub/providers"
	"content-hub/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGenerator struct {
	name string
	raw  string
	err  error
}

func (g *stubGenerator) Name() string { return g.name }

func (g *stubGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	return g.raw, g.err
}

type testApp struct {
	router *gin.Engine
	bus    *events.Bus
	db     *gorm.DB
}

func newTestApp(t *testing.T, generators ...providers.Generator) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.ContentItem{}, &models.Keyword{}, &models.WebhookRun{}))

	log := zap.NewNop()
	bus := events.NewBus(log)
	router := gin.New()
	setupHealthRoutes(router, db)
	setupContentRoutes(router, services.NewContentService(db, bus, log, generators), log)
	setupLibraryRoutes(router, services.NewLibraryService(db, bus, log), nil, log)
	setupKeywordRoutes(router, services.NewKeywordService(db, nil, bus, log), log)
	setupEventRoutes(router, bus, log)
	return &testApp{router: router, bus: bus, db: db}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNormalizeEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/content/normalize", gin.H{
		"raw_text":   `{"output":{"pillarContent":["A","  "],"metaTags":"seo, growth"}}`,
		"topic_area": "Growth",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Kind    string `json:"kind"`
		Title   string `json:"title"`
		Bundles []struct {
			PillarContent []string `json:"pillarContent"`
			MetaTags      []string `json:"metaTags"`
			EmailSeries   []any    `json:"emailSeries"`
		} `json:"bundles"`
	}
	decode(t, w, &res)
	assert.Equal(t, "structured", res.Kind)
	assert.Equal(t, "Growth", res.Title)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, []string{"A"}, res.Bundles[0].PillarContent)
	assert.Equal(t, []string{"seo", "growth"}, res.Bundles[0].MetaTags)
	assert.NotNil(t, res.Bundles[0].EmailSeries)
}

func TestGenerateEndpointStatuses(t *testing.T) {
	app := newTestApp(t,
		&stubGenerator{name: "n8n", raw: `{"pillarContent":"ok"}`},
		&stubGenerator{name: "broken", err: &providers.TransportError{Provider: "broken", StatusCode: 500, Message: "oops"}},
		&stubGenerator{name: "slow", err: &providers.TransportError{Provider: "slow", Timeout: true}},
	)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{name: "default generator", body: gin.H{"topic": "Launch"}, code: http.StatusOK},
		{name: "transport error", body: gin.H{"topic": "Launch", "generator": "broken"}, code: http.StatusBadGateway},
		{name: "timeout", body: gin.H{"topic": "Launch", "generator": "slow"}, code: http.StatusGatewayTimeout},
		{name: "unknown generator", body: gin.H{"topic": "Launch", "generator": "nope"}, code: http.StatusBadRequest},
		{name: "missing topic", body: gin.H{}, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/content/generate", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := app.do(t, http.MethodGet, "/content/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []models.WebhookRun
	decode(t, w, &runs)
	assert.Len(t, runs, 3)
}

func TestProcessRunEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.db.Create(&models.WebhookRun{ID: "r1", Generator: "n8n", RawText: `[{"output":"{\"pillarContent\":\"x\"}"}]`}).Error)

	w := app.do(t, http.MethodPost, "/content/runs/r1/process", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out services.Outcome
	decode(t, w, &out)
	assert.Equal(t, "structured", out.Result.Kind.String())

	w = app.do(t, http.MethodPost, "/content/runs/missing/process", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLibraryLifecycle(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/library/", gin.H{
		"title":  "Guide",
		"bundle": gin.H{"pillarContent": []string{"Body"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.ContentItem
	decode(t, w, &item)
	path := "/library/" + jsonNumber(item.ID)

	w = app.do(t, http.MethodPatch, path+"/saved", gin.H{"is_saved": false})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &item)
	assert.False(t, item.IsSaved)

	w = app.do(t, http.MethodPatch, path+"/saved", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPut, path, gin.H{"title": "Guide v2"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &item)
	assert.Equal(t, "Guide v2", item.Title)

	w = app.do(t, http.MethodPost, "/library/query", gin.H{"search": "body"})
	require.Equal(t, http.StatusOK, w.Code)
	var page services.LibraryPage
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.Total)

	w = app.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/library/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnconfiguredBackends(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/library/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = app.do(t, http.MethodPost, "/keywords/research", gin.H{"phrase": "seo"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = app.do(t, http.MethodPost, "/keywords/query", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNavigatePublishes(t *testing.T) {
	app := newTestApp(t)
	var got []events.Event
	app.bus.Subscribe(events.TopicNavigateToTab, func(ev events.Event) { got = append(got, ev) })

	w := app.do(t, http.MethodPost, "/events/navigate", gin.H{"tab": "library"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, got, 1)
	assert.Equal(t, events.NavigateToTab{Tab: "library"}, got[0].Payload)

	w = app.do(t, http.MethodPost, "/events/navigate", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// closeNotifyRecorder erfüllt http.CloseNotifier, das gin für Streams voraussetzt.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestEventStream(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events?topic=content-saved", nil).WithContext(ctx)
	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	done := make(chan struct{})
	go func() {
		app.router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return app.bus.SubscriberCount(events.TopicContentSaved) == 1
	}, time.Second, 5*time.Millisecond)
	app.bus.Publish(events.TopicContentSaved, events.ContentSaved{ItemID: 7, Title: "Guide"})
	app.bus.Publish(events.TopicNavigateToTab, events.NavigateToTab{Tab: "ignored"})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not stop after cancel")
	}

	body := w.Body.String()
	assert.Contains(t, body, "event:content-saved")
	assert.Contains(t, body, `"title":"Guide"`)
	assert.False(t, strings.Contains(body, "ignored"))
}

func TestEventStreamUnknownTopic(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/events?topic=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
