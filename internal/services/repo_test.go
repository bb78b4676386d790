package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS services (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  website TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM services").Error)
	return db
}

func seedService(t *testing.T, db *gorm.DB, key, title string) *models.Service {
	t.Helper()
	svc := &models.Service{ID: uuid.New(), Key: key, Title: title}
	require.NoError(t, db.Create(svc).Error)
	return svc
}

func TestRepositoryListOrdersByTitle(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	seedService(t, db, "spotify", "Spotify")
	seedService(t, db, "netflix", "Netflix")

	rows, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Netflix", rows[0].Title)
	assert.Equal(t, "Spotify", rows[1].Title)
}

func TestRepositoryGetByKey(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	seedService(t, db, "netflix", "Netflix")

	svc, err := repo.GetByKey(context.Background(), "netflix")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", svc.Title)

	_, err = repo.GetByKey(context.Background(), "hulu")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
