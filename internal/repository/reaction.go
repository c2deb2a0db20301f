package repository

import (
	"context"
	"errors"

	"marginalia/internal/models"

	"gorm.io/gorm"
)

// ReactionRepository defines the interface for reaction data operations.
type ReactionRepository interface {
	Get(ctx context.Context, userID uint, targetType string, targetID uint, reactionType string) (*models.Reaction, error)
	Create(ctx context.Context, reaction *models.Reaction) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, targetType string, targetID uint) ([]*models.Reaction, error)
	Counts(ctx context.Context, targetType string, targetID uint) (map[string]int64, error)
	Count(ctx context.Context, targetType string, targetID uint, reactionType string) (int64, error)
	DeleteForTarget(ctx context.Context, targetType string, targetID uint) error
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Get returns nil without error when the reaction does not exist.
func (r *reactionRepository) Get(ctx context.Context, userID uint, targetType string, targetID uint, reactionType string) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ? AND type = ?",
			userID, targetType, targetID, reactionType).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) Create(ctx context.Context, reaction *models.Reaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

func (r *reactionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Reaction{}, id).Error
}

func (r *reactionRepository) List(ctx context.Context, targetType string, targetID uint) ([]*models.Reaction, error) {
	var reactions []*models.Reaction
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at asc").
		Find(&reactions).Error
	return reactions, err
}

func (r *reactionRepository) Counts(ctx context.Context, targetType string, targetID uint) (map[string]int64, error) {
	type row struct {
		Type  string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("type, COUNT(*) as count").
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}

func (r *reactionRepository) Count(ctx context.Context, targetType string, targetID uint, reactionType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Where("target_type = ? AND target_id = ? AND type = ?", targetType, targetID, reactionType).
		Count(&count).Error
	return count, err
}

func (r *reactionRepository) DeleteForTarget(ctx context.Context, targetType string, targetID uint) error {
	return r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.Reaction{}).Error
}
