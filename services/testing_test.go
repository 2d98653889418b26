package services

import (
	"context"
	"sync"
	"testing"

	"content-hub/events"
	"content-hub/models"
	"content-hub/providers"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.ContentItem{}, &models.Keyword{}, &models.WebhookRun{}))
	return db
}

// recorder sammelt veröffentlichte Events eines Topics.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(bus *events.Bus, topic events.Topic) *recorder {
	r := &recorder{}
	bus.Subscribe(topic, func(ev events.Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type fakeGenerator struct {
	name     string
	raw      string
	err      error
	requests []providers.GenerationRequest
}

func (g *fakeGenerator) Name() string { return g.name }

func (g *fakeGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	g.requests = append(g.requests, req)
	return g.raw, g.err
}

func newBus() *events.Bus {
	return events.NewBus(zap.NewNop())
}
