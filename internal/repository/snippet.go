package repository

import (
	"context"

	"marginalia/internal/models"

	"gorm.io/gorm"
)

// SnippetRepository defines the interface for snippet data operations.
// Snippets have no update path: post edits delete and recreate them.
type SnippetRepository interface {
	CreateMany(ctx context.Context, snippets []*models.Snippet) error
	GetByID(ctx context.Context, id uint) (*models.Snippet, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Snippet, error)
	DeleteByPost(ctx context.Context, postID uint) error
	CreateVersions(ctx context.Context, versions []*models.SnippetVersion) error
	CountVersionsByPost(ctx context.Context, postID uint) (int64, error)
	MaxVersionByPost(ctx context.Context, postID uint) (int, error)
}

type snippetRepository struct {
	db *gorm.DB
}

// NewSnippetRepository creates a new SnippetRepository
func NewSnippetRepository(db *gorm.DB) SnippetRepository {
	return &snippetRepository{db: db}
}

func (r *snippetRepository) CreateMany(ctx context.Context, snippets []*models.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(snippets).Error
}

func (r *snippetRepository) GetByID(ctx context.Context, id uint) (*models.Snippet, error) {
	var snippet models.Snippet
	if err := r.db.WithContext(ctx).First(&snippet, id).Error; err != nil {
		return nil, err
	}
	return &snippet, nil
}

// ListByPost returns the post's snippets in body order. Positional block
// references ("code-N") index into this ordering.
func (r *snippetRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Snippet, error) {
	var snippets []*models.Snippet
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("block_index asc").
		Find(&snippets).Error
	return snippets, err
}

func (r *snippetRepository) DeleteByPost(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Snippet{}).Error
}

func (r *snippetRepository) CreateVersions(ctx context.Context, versions []*models.SnippetVersion) error {
	if len(versions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(versions).Error
}

func (r *snippetRepository) CountVersionsByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SnippetVersion{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// MaxVersionByPost returns the highest recorded version number for the
// post's snippets, 0 when none have been captured yet.
func (r *snippetRepository) MaxVersionByPost(ctx context.Context, postID uint) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.SnippetVersion{}).
		Where("post_id = ?", postID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
