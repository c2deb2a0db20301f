package service

import (
	"context"
	"errors"

	"marginalia/internal/models"
	"marginalia/internal/repository"

	"gorm.io/gorm"
)

// BookmarkService manages a user's saved posts.
type BookmarkService struct {
	bookmarkRepo repository.BookmarkRepository
	postRepo     repository.PostRepository
}

// NewBookmarkService creates a new BookmarkService.
func NewBookmarkService(bookmarkRepo repository.BookmarkRepository, postRepo repository.PostRepository) *BookmarkService {
	return &BookmarkService{bookmarkRepo: bookmarkRepo, postRepo: postRepo}
}

// Add bookmarks the post for the user. Duplicates are rejected.
func (s *BookmarkService) Add(ctx context.Context, userID, postID uint) error {
	if _, err := s.postRepo.GetBare(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		return err
	}

	existing, err := s.bookmarkRepo.Get(ctx, userID, postID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewValidationError("Post already bookmarked")
	}
	return s.bookmarkRepo.Create(ctx, &models.Bookmark{UserID: userID, PostID: postID})
}

// Remove deletes the bookmark.
func (s *BookmarkService) Remove(ctx context.Context, userID, postID uint) error {
	bookmark, err := s.bookmarkRepo.Get(ctx, userID, postID)
	if err != nil {
		return err
	}
	if bookmark == nil {
		return models.NewNotFoundError("Bookmark", postID)
	}
	return s.bookmarkRepo.Delete(ctx, bookmark.ID)
}

func (s *BookmarkService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Bookmark, error) {
	return s.bookmarkRepo.ListByUser(ctx, userID, normalizeLimit(limit), offset)
}
