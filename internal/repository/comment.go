package repository

import (
	"context"

	"marginalia/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetByIDWithReplies(ctx context.Context, id uint) (*models.Comment, error)
	ListTopLevelByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	ListBySnippet(ctx context.Context, snippetID uint) ([]*models.Comment, error)
	ListInlineTopLevelAtLine(ctx context.Context, snippetID uint, line int) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	DeleteByPost(ctx context.Context, postID uint) error
	CountOrphanedByPost(ctx context.Context, postID uint, liveSnippetIDs []uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Snippet").
		First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) GetByIDWithReplies(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Snippet").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at asc")
		}).
		Preload("Replies.User").
		First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListTopLevelByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at asc")
		}).
		Preload("Replies.User").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at desc").
		Find(&comments).Error
	return comments, err
}

// ListBySnippet loads every comment row attached to the snippet, inline or
// not, with authors and ordered replies. Thread assembly filters in memory.
func (r *commentRepository) ListBySnippet(ctx context.Context, snippetID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at asc")
		}).
		Preload("Replies.User").
		Where("snippet_id = ?", snippetID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ListInlineTopLevelAtLine(ctx context.Context, snippetID uint, line int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("snippet_id = ? AND parent_id IS NULL AND is_inline = ? AND start_line <= ? AND end_line >= ?",
			snippetID, true, line, line).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

// Delete removes the comment and its direct replies.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{}).Error
}

// CountOrphanedByPost counts inline comments whose snippet no longer
// exists. Called after snippet recreation to surface the damage.
func (r *commentRepository) CountOrphanedByPost(ctx context.Context, postID uint, liveSnippetIDs []uint) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ? AND snippet_id IS NOT NULL", postID)
	if len(liveSnippetIDs) > 0 {
		q = q.Where("snippet_id NOT IN ?", liveSnippetIDs)
	}
	err := q.Count(&count).Error
	return count, err
}
