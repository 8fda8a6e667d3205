package database

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"luchaserver/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return gormDB, mock
}

func TestAuditRepository_Record(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "mutation_audits"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	entry := &models.MutationAudit{SessionID: "s1", UserID: "u1", Role: "Admin", Action: "approve-battle", Outcome: "success", HTTPStatus: 200}
	require.NoError(t, repo.Record(context.Background(), entry))
	assert.EqualValues(t, 1, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Recent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "mutation_audits" WHERE session_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "action", "outcome"}).
			AddRow(2, "s1", "place-bet", "error").
			AddRow(1, "s1", "place-bet", "success"))

	rows, err := repo.Recent(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "error", rows[0].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Prune(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "mutation_audits" WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadConfig_MissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://arena.example/api")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://arena.example/api", config.APIBaseURL)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.AllowedOrigins)
	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Equal(t, 20*time.Second, config.Timeout())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_base_url": "http://file.example",
		"api_timeout": "5s",
		"db_host": "db",
		"audit_retention_days": 7
	}`), 0o600))
	t.Setenv("DB_HOST", "db-from-env")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file.example", config.APIBaseURL)
	assert.Equal(t, 5*time.Second, config.Timeout())
	assert.Equal(t, "db-from-env", config.DBHost)
	assert.Equal(t, 7*24*time.Hour, config.AuditRetention())
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
