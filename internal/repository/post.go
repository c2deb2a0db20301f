package repository

import (
	"context"
	"time"

	"marginalia/internal/models"
	"marginalia/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	GetBare(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Trending(ctx context.Context, since time.Time, limit int) ([]*models.Post, error)
	SearchFulltext(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	SearchByTitle(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	SearchByLanguage(ctx context.Context, language string, limit, offset int) ([]*models.Post, error)
	SearchByTagSlugs(ctx context.Context, slugs []string, limit, offset int) ([]*models.Post, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, metrics: observability.NewDatabaseMetrics(db)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// applyPostDetails adds subqueries to fetch counts in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM reactions WHERE reactions.target_type = 'post' AND reactions.target_id = posts.id) as reactions_count")
}

func (r *postRepository) withDetailPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Tags").
		Preload("Snippets", func(db *gorm.DB) *gorm.DB {
			return db.Order("snippets.block_index asc")
		})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetailPreloads(r.applyPostDetails(r.db.WithContext(ctx))).
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.withDetailPreloads(r.applyPostDetails(r.db.WithContext(ctx))).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBare fetches the row without preloads or count subqueries, for
// ownership checks and updates.
func (r *postRepository) GetBare(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ?", models.VisibilityPublic).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// Trending ranks recent public posts by engagement. comments_count and
// reactions_count are SELECT aliases from applyPostDetails; both Postgres
// and SQLite accept aliases in ORDER BY at the same query level.
func (r *postRepository) Trending(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("select", "posts")()

	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ? AND posts.created_at > ?", models.VisibilityPublic, since).
		Order("(reactions_count + comments_count * 2) DESC, created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// SearchFulltext uses the Postgres fulltext machinery. Callers fall back to
// SearchByTitle when the dialect cannot run it.
func (r *postRepository) SearchFulltext(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("select", "posts")()

	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ?", models.VisibilityPublic).
		Where("to_tsvector('english', title) @@ plainto_tsquery('english', ?)", query).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SearchByTitle(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	like := "%" + query + "%"
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ?", models.VisibilityPublic).
		Where("LOWER(title) LIKE LOWER(?)", like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SearchByLanguage(ctx context.Context, language string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ?", models.VisibilityPublic).
		Where("EXISTS (SELECT 1 FROM snippets WHERE snippets.post_id = posts.id AND LOWER(snippets.language) = LOWER(?))", language).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SearchByTagSlugs(ctx context.Context, slugs []string, limit, offset int) ([]*models.Post, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Tags").
		Where("visibility = ?", models.VisibilityPublic).
		Where("EXISTS (SELECT 1 FROM post_tags JOIN tags ON tags.id = post_tags.tag_id WHERE post_tags.post_id = posts.id AND tags.slug IN ?)", slugs).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Post{}, id).Error
}
