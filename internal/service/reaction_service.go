package service

import (
	"context"
	"errors"

	"marginalia/internal/models"
	"marginalia/internal/repository"

	"gorm.io/gorm"
)

// ReactionService toggles typed reactions on posts and comments.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
}

type ToggleReactionInput struct {
	UserID     uint
	TargetType string
	TargetID   uint
	Type       string
}

// ReactionResult reports the toggle outcome with fresh per-type counts.
type ReactionResult struct {
	Reacted bool             `json:"reacted"`
	Type    string           `json:"type"`
	Counts  map[string]int64 `json:"counts"`
}

// NewReactionService creates a new ReactionService.
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
	}
}

func (s *ReactionService) checkTarget(ctx context.Context, targetType string, targetID uint) error {
	var err error
	switch targetType {
	case models.ReactionTargetPost:
		_, err = s.postRepo.GetBare(ctx, targetID)
	case models.ReactionTargetComment:
		_, err = s.commentRepo.GetByID(ctx, targetID)
	default:
		return models.NewValidationError("Invalid reaction target")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError(targetType, targetID)
		}
		return err
	}
	return nil
}

// Toggle removes the caller's reaction when present, creates it otherwise.
func (s *ReactionService) Toggle(ctx context.Context, in ToggleReactionInput) (*ReactionResult, error) {
	if !models.ReactionTypes[in.Type] {
		return nil, models.NewValidationError("Invalid reaction type")
	}
	if err := s.checkTarget(ctx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	existing, err := s.reactionRepo.Get(ctx, in.UserID, in.TargetType, in.TargetID, in.Type)
	if err != nil {
		return nil, err
	}

	reacted := false
	if existing != nil {
		if err := s.reactionRepo.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
	} else {
		if err := s.reactionRepo.Create(ctx, &models.Reaction{
			UserID:     in.UserID,
			TargetType: in.TargetType,
			TargetID:   in.TargetID,
			Type:       in.Type,
		}); err != nil {
			return nil, err
		}
		reacted = true
	}

	counts, err := s.reactionRepo.Counts(ctx, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	return &ReactionResult{Reacted: reacted, Type: in.Type, Counts: counts}, nil
}

// List returns the target's reactions with per-type counts.
func (s *ReactionService) List(ctx context.Context, targetType string, targetID uint) ([]*models.Reaction, map[string]int64, error) {
	if err := s.checkTarget(ctx, targetType, targetID); err != nil {
		return nil, nil, err
	}
	reactions, err := s.reactionRepo.List(ctx, targetType, targetID)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.reactionRepo.Counts(ctx, targetType, targetID)
	if err != nil {
		return nil, nil, err
	}
	return reactions, counts, nil
}
