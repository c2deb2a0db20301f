package service

import (
	"context"
	"errors"

	"marginalia/internal/models"
	"marginalia/internal/repository"

	"gorm.io/gorm"
)

// TagService serves the tag directory.
type TagService struct {
	tagRepo  repository.TagRepository
	postRepo repository.PostRepository
}

// NewTagService creates a new TagService.
func NewTagService(tagRepo repository.TagRepository, postRepo repository.PostRepository) *TagService {
	return &TagService{tagRepo: tagRepo, postRepo: postRepo}
}

func (s *TagService) List(ctx context.Context) ([]*models.Tag, error) {
	return s.tagRepo.List(ctx)
}

// PostsByTag lists public posts carrying the tag.
func (s *TagService) PostsByTag(ctx context.Context, slug string, limit, offset int) ([]*models.Post, error) {
	if _, err := s.tagRepo.GetBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag", slug)
		}
		return nil, err
	}
	return s.postRepo.SearchByTagSlugs(ctx, []string{slug}, normalizeLimit(limit), offset)
}
