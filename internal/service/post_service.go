package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marginalia/internal/cache"
	"marginalia/internal/models"
	"marginalia/internal/repository"
	"marginalia/internal/validation"

	"gorm.io/gorm"
)

const (
	maxPostTitleLength = 200
	trendingWindow     = 7 * 24 * time.Hour
	trendingLimit      = 20
)

// PostService orchestrates post writes: body-to-snippet splitting, slug
// derivation, tag sync, snippet version capture, cache invalidation.
type PostService struct {
	db           *gorm.DB
	postRepo     repository.PostRepository
	snippetRepo  repository.SnippetRepository
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	tagRepo      repository.TagRepository
	store        cache.Store
}

type CreatePostInput struct {
	UserID     uint
	Title      string
	Body       models.PostBody
	Visibility string
	Tags       []string
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      *string
	Body       *models.PostBody
	Visibility *string
	// Tags replaces the post's tag set when non-nil.
	Tags []string
}

// UpdatePostResult carries the fresh post plus the number of inline
// comments left pointing at snippets the edit destroyed. Snippet ids are
// not stable across edits; the count lets clients surface the damage.
type UpdatePostResult struct {
	Post             *models.Post `json:"post"`
	OrphanedComments int64        `json:"orphaned_comments"`
}

type SearchPostsInput struct {
	Query    string
	Language string
	Tags     []string
	Limit    int
	Offset   int
}

// NewPostService creates a new PostService. db may be nil in stub-driven
// tests; writes then skip the transaction wrapper. A nil store disables
// caching without changing read semantics.
func NewPostService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	snippetRepo repository.SnippetRepository,
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	tagRepo repository.TagRepository,
	store cache.Store,
) *PostService {
	if store == nil {
		store = cache.Noop()
	}
	return &PostService{
		db:           db,
		postRepo:     postRepo,
		snippetRepo:  snippetRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		tagRepo:      tagRepo,
		store:        store,
	}
}

func validatePostTitle(title string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxPostTitleLength {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	return nil
}

func validatePostBody(body models.PostBody) error {
	if len(body) == 0 {
		return models.NewValidationError("Post body is required")
	}
	for _, block := range body {
		if block.Type != models.BlockTypeText && block.Type != models.BlockTypeCode {
			return models.NewValidationError(fmt.Sprintf("Unknown block type %q", block.Type))
		}
		if block.Content == "" {
			return models.NewValidationError("Block content is required")
		}
		if block.IsCode() && block.Language != "" {
			if err := validation.ValidateLanguage(block.Language); err != nil {
				return models.NewValidationError(err.Error())
			}
		}
	}
	return nil
}

func validateVisibility(visibility string) error {
	switch visibility {
	case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityUnlisted:
		return nil
	}
	return models.NewValidationError("Invalid visibility")
}

// uniqueSlug derives a slug from the title, suffixing a counter until it
// is free. excludeID ignores the post's own row on update.
func (s *PostService) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := validation.Slugify(title)
	slug := base
	for count := 1; ; count++ {
		exists, err := s.postRepo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, count)
	}
}

// snippetsFromBody builds one snippet per code block. block_index is the
// block's position in the whole body array, so indexes are non-contiguous
// once text and code blocks mix.
func snippetsFromBody(postID uint, body models.PostBody) []*models.Snippet {
	var snippets []*models.Snippet
	for i, block := range body {
		if !block.IsCode() {
			continue
		}
		language := block.Language
		if language == "" {
			language = "text"
		}
		snippets = append(snippets, &models.Snippet{
			PostID:     postID,
			Language:   language,
			CodeText:   block.Content,
			BlockIndex: i,
		})
	}
	return snippets
}

func (s *PostService) syncTags(ctx context.Context, tagRepo repository.TagRepository, post *models.Post, names []string) error {
	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := tagRepo.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		tags = append(tags, tag)
	}
	return tagRepo.ReplacePostTags(ctx, post, tags)
}

// CreatePost persists the post, its snippets and tags in one transaction.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validatePostBody(in.Body); err != nil {
		return nil, err
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if err := validateVisibility(visibility); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, in.Title, 0)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:     in.UserID,
		Title:      in.Title,
		Slug:       slug,
		Body:       in.Body,
		Visibility: visibility,
	}

	write := func(posts repository.PostRepository, snippets repository.SnippetRepository, tags repository.TagRepository) error {
		if err := posts.Create(ctx, post); err != nil {
			return err
		}
		if err := snippets.CreateMany(ctx, snippetsFromBody(post.ID, in.Body)); err != nil {
			return err
		}
		if len(in.Tags) > 0 {
			return s.syncTags(ctx, tags, post, in.Tags)
		}
		return nil
	}

	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(repository.NewPostRepository(tx), repository.NewSnippetRepository(tx), repository.NewTagRepository(tx))
		})
	} else {
		err = write(s.postRepo, s.snippetRepo, s.tagRepo)
	}
	if err != nil {
		return nil, err
	}

	s.store.Invalidate(ctx, cache.TrendingPostsKey)
	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost applies the changed fields. A body change deletes and
// recreates every snippet after capturing the outgoing code as
// snippet_versions rows; comments anchored to the old snippets are
// orphaned and counted in the result.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*UpdatePostResult, error) {
	post, err := s.postRepo.GetBare(ctx, in.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Title != nil && *in.Title != post.Title {
		if err := validatePostTitle(*in.Title); err != nil {
			return nil, err
		}
		slug, err := s.uniqueSlug(ctx, *in.Title, post.ID)
		if err != nil {
			return nil, err
		}
		post.Title = *in.Title
		post.Slug = slug
	}
	if in.Visibility != nil {
		if err := validateVisibility(*in.Visibility); err != nil {
			return nil, err
		}
		post.Visibility = *in.Visibility
	}

	bodyChanged := in.Body != nil
	var oldSnippets []*models.Snippet
	var version int
	if bodyChanged {
		if err := validatePostBody(*in.Body); err != nil {
			return nil, err
		}
		post.Body = *in.Body

		oldSnippets, err = s.snippetRepo.ListByPost(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		maxVersion, err := s.snippetRepo.MaxVersionByPost(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		version = maxVersion + 1
	}

	var newSnippets []*models.Snippet
	write := func(posts repository.PostRepository, snippets repository.SnippetRepository, tags repository.TagRepository) error {
		if bodyChanged {
			versions := make([]*models.SnippetVersion, 0, len(oldSnippets))
			for _, old := range oldSnippets {
				versions = append(versions, &models.SnippetVersion{
					SnippetID: old.ID,
					PostID:    post.ID,
					Version:   version,
					Language:  old.Language,
					CodeText:  old.CodeText,
				})
			}
			if err := snippets.CreateVersions(ctx, versions); err != nil {
				return err
			}
			if err := snippets.DeleteByPost(ctx, post.ID); err != nil {
				return err
			}
			newSnippets = snippetsFromBody(post.ID, *in.Body)
			if err := snippets.CreateMany(ctx, newSnippets); err != nil {
				return err
			}
		}
		if err := posts.Update(ctx, post); err != nil {
			return err
		}
		if in.Tags != nil {
			return s.syncTags(ctx, tags, post, in.Tags)
		}
		return nil
	}

	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(repository.NewPostRepository(tx), repository.NewSnippetRepository(tx), repository.NewTagRepository(tx))
		})
	} else {
		err = write(s.postRepo, s.snippetRepo, s.tagRepo)
	}
	if err != nil {
		return nil, err
	}

	var orphaned int64
	if bodyChanged {
		liveIDs := make([]uint, 0, len(newSnippets))
		for _, sn := range newSnippets {
			liveIDs = append(liveIDs, sn.ID)
		}
		orphaned, err = s.commentRepo.CountOrphanedByPost(ctx, post.ID, liveIDs)
		if err != nil {
			return nil, err
		}
	}

	s.store.Invalidate(ctx, cache.PostKey(post.ID))
	s.store.Invalidate(ctx, cache.TrendingPostsKey)

	fresh, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &UpdatePostResult{Post: fresh, OrphanedComments: orphaned}, nil
}

// DeletePost removes the post with its snippets, comments and reactions.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.postRepo.GetBare(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		return err
	}
	if post.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	write := func(posts repository.PostRepository, snippets repository.SnippetRepository, comments repository.CommentRepository, reactions repository.ReactionRepository) error {
		if err := comments.DeleteByPost(ctx, postID); err != nil {
			return err
		}
		if err := snippets.DeleteByPost(ctx, postID); err != nil {
			return err
		}
		if err := reactions.DeleteForTarget(ctx, models.ReactionTargetPost, postID); err != nil {
			return err
		}
		return posts.Delete(ctx, postID)
	}

	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(repository.NewPostRepository(tx), repository.NewSnippetRepository(tx), repository.NewCommentRepository(tx), repository.NewReactionRepository(tx))
		})
	} else {
		err = write(s.postRepo, s.snippetRepo, s.commentRepo, s.reactionRepo)
	}
	if err != nil {
		return err
	}

	s.store.Invalidate(ctx, cache.PostKey(postID))
	s.store.Invalidate(ctx, cache.TrendingPostsKey)
	return nil
}

// GetPost looks up a post by numeric id or slug.
func (s *PostService) GetPost(ctx context.Context, idOrSlug string) (*models.Post, error) {
	var post *models.Post
	var err error
	if id, convErr := strconv.ParseUint(idOrSlug, 10, 64); convErr == nil {
		post, err = s.postRepo.GetByID(ctx, uint(id))
	} else {
		post, err = s.postRepo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", idOrSlug)
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.List(ctx, normalizeLimit(limit), offset)
}

func (s *PostService) ListUserPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, normalizeLimit(limit), offset)
}

// Trending serves the engagement-ranked feed through the cache; post
// writes invalidate it.
func (s *PostService) Trending(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.Aside(ctx, s.store, cache.TrendingPostsKey, &posts, cache.TrendingTTL, func() (interface{}, error) {
		return s.postRepo.Trending(ctx, time.Now().Add(-trendingWindow), trendingLimit)
	})
	return posts, err
}

// SearchPosts filters by tags, then language, then text query, first
// match wins. Text search uses Postgres fulltext when available and a
// title LIKE otherwise. Results are cached briefly.
func (s *PostService) SearchPosts(ctx context.Context, in SearchPostsInput) ([]*models.Post, error) {
	limit := normalizeLimit(in.Limit)

	switch {
	case len(in.Tags) > 0:
		return s.postRepo.SearchByTagSlugs(ctx, in.Tags, limit, in.Offset)
	case in.Language != "":
		return s.postRepo.SearchByLanguage(ctx, in.Language, limit, in.Offset)
	case in.Query != "":
		descriptor := fmt.Sprintf("q=%s&limit=%d&offset=%d", strings.ToLower(in.Query), limit, in.Offset)
		var posts []*models.Post
		err := cache.Aside(ctx, s.store, cache.SearchKey(descriptor), &posts, cache.SearchTTL, func() (interface{}, error) {
			if s.db != nil && s.db.Dialector.Name() == "postgres" {
				return s.postRepo.SearchFulltext(ctx, in.Query, limit, in.Offset)
			}
			return s.postRepo.SearchByTitle(ctx, in.Query, limit, in.Offset)
		})
		return posts, err
	}
	return nil, models.NewValidationError("A search query, language or tag filter is required")
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
