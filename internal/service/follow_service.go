package service

import (
	"context"
	"errors"

	"marginalia/internal/models"
	"marginalia/internal/repository"

	"gorm.io/gorm"
)

// FollowService manages the follower graph.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// FollowStats summarizes a user's position in the follower graph.
type FollowStats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// NewFollowService creates a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

func (s *FollowService) checkUser(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", userID)
		}
		return err
	}
	return nil
}

// Follow creates the edge. Self-follows and duplicates are rejected.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) error {
	if followerID == followingID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if err := s.checkUser(ctx, followingID); err != nil {
		return err
	}

	existing, err := s.followRepo.Get(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewValidationError("Already following this user")
	}
	return s.followRepo.Create(ctx, &models.Follow{FollowerID: followerID, FollowingID: followingID})
}

// Unfollow removes the edge.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) error {
	edge, err := s.followRepo.Get(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if edge == nil {
		return models.NewNotFoundError("Follow", followingID)
	}
	return s.followRepo.Delete(ctx, edge.ID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	edge, err := s.followRepo.Get(ctx, followerID, followingID)
	if err != nil {
		return false, err
	}
	return edge != nil, nil
}

func (s *FollowService) Stats(ctx context.Context, userID uint) (*FollowStats, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FollowStats{Followers: followers, Following: following}, nil
}
