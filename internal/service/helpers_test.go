package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/dismissal-api/internal/models"
)

var seoul = time.FixedZone("KST", 9*60*60)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.DismissalRecord{}, &models.LunchCacheEntry{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

type recordingPublisher struct {
	mu          sync.Mutex
	collections []string
}

func (p *recordingPublisher) Publish(_ context.Context, collection string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collections = append(p.collections, collection)
}

func (p *recordingPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.collections...)
}

type fixedGoodbye string

func (f fixedGoodbye) Goodbye(context.Context, string, int) string {
	return string(f)
}

func intPtr(v int) *int {
	return &v
}
