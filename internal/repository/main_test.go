package repository

import (
	"context"
	"testing"

	"marginalia/internal/database"
	"marginalia/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory SQLite database per test. One open
// connection, otherwise each pooled connection would see its own empty
// in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", Password: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, userID uint, title, slug string) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:     userID,
		Title:      title,
		Slug:       slug,
		Visibility: models.VisibilityPublic,
		Body: models.PostBody{
			{Type: models.BlockTypeText, Content: "intro"},
			{Type: models.BlockTypeCode, Language: "go", Content: "package main\n"},
		},
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func createTestSnippet(t *testing.T, db *gorm.DB, postID uint, blockIndex int, code string) *models.Snippet {
	t.Helper()
	snippet := &models.Snippet{
		PostID:     postID,
		Language:   "go",
		CodeText:   code,
		BlockIndex: blockIndex,
	}
	require.NoError(t, db.Create(snippet).Error)
	return snippet
}

func testCtx() context.Context {
	return context.Background()
}
