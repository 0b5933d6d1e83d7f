package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/config"
	"taxrecon/internal/domain"
	"taxrecon/internal/repository/sqlstore"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := &config.DBConfig{Driver: sqlstore.DriverSQLite, Path: ":memory:"}
	conn, err := sqlstore.NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, sqlstore.Migrate(cfg, conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTelemetryRepo_CreateAndListRecent(t *testing.T) {
	repo := sqlstore.NewTelemetryRepo(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := &domain.TelemetryRecord{
		ID: uuid.New(), Service: "gemini", Endpoint: "gemini-2.5-flash", Method: "submit",
		RequestMeta:  map[string]any{"document": "w2.pdf", "attempt": 1},
		ResponseMeta: map[string]any{"response_length": 512},
		ElapsedMS:    840, Status: "success", CreatedAt: base,
	}
	newer := &domain.TelemetryRecord{
		ID: uuid.New(), Service: "taxrecon", Endpoint: "response_decoder", Method: "decode",
		RequestMeta:  map[string]any{"document": "w2.pdf"},
		ResponseMeta: map[string]any{"outcome": "parsed_directly"},
		ElapsedMS:    1, Status: "parsed_directly", CreatedAt: base.Add(time.Second),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, "decode", got[0].Method)
	assert.Equal(t, "parsed_directly", got[0].ResponseMeta["outcome"])
	assert.True(t, base.Add(time.Second).Equal(got[0].CreatedAt))

	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, "w2.pdf", got[1].RequestMeta["document"])
	// JSON numbers come back as float64.
	assert.Equal(t, float64(1), got[1].RequestMeta["attempt"])
	assert.Equal(t, int64(840), got[1].ElapsedMS)
}

func TestTelemetryRepo_CreateFillsIDAndTimestamp(t *testing.T) {
	repo := sqlstore.NewTelemetryRepo(newTestDB(t))
	rec := &domain.TelemetryRecord{Service: "openai", Endpoint: "gpt-4o", Method: "submit", Status: "error"}

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].RequestMeta)
}

func TestTelemetryRepo_ListRecentLimit(t *testing.T) {
	repo := sqlstore.NewTelemetryRepo(newTestDB(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(context.Background(), &domain.TelemetryRecord{
			Service: "gemini", Endpoint: "m", Method: "submit", Status: "success",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := repo.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := sqlstore.NewDB(&config.DBConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := newTestDB(t)
	assert.NoError(t, sqlstore.Migrate(&config.DBConfig{Driver: sqlstore.DriverSQLite}, conn))
}
