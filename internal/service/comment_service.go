package service

import (
	"context"
	"errors"
	"time"

	"marginalia/internal/models"
	"marginalia/internal/observability"
	"marginalia/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CommentService orchestrates comment writes: validation, persistence,
// notification rows, realtime broadcast.
type CommentService struct {
	db               *gorm.DB
	commentRepo      repository.CommentRepository
	postRepo         repository.PostRepository
	snippetRepo      repository.SnippetRepository
	reactionRepo     repository.ReactionRepository
	notificationRepo repository.NotificationRepository
	broadcaster      Broadcaster
}

type CreateCommentInput struct {
	UserID    uint
	PostID    *uint
	SnippetID *uint
	ParentID  *uint
	IsInline  bool
	StartLine *int
	EndLine   *int
	Body      string
	// SocketID names the originating websocket connection so the
	// broadcast can skip echoing back to it.
	SocketID string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Body      string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

type ResolveCommentInput struct {
	UserID    uint
	CommentID uint
}

// LikeResult is the payload returned by the like toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// NewCommentService creates a new CommentService. db may be nil in tests
// that drive the service purely through stubbed repositories; writes then
// skip the transaction wrapper.
func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	snippetRepo repository.SnippetRepository,
	reactionRepo repository.ReactionRepository,
	notificationRepo repository.NotificationRepository,
	broadcaster Broadcaster,
) *CommentService {
	return &CommentService{
		db:               db,
		commentRepo:      commentRepo,
		postRepo:         postRepo,
		snippetRepo:      snippetRepo,
		reactionRepo:     reactionRepo,
		notificationRepo: notificationRepo,
		broadcaster:      broadcaster,
	}
}

func validateCommentBody(body string) error {
	if body == "" {
		return models.NewValidationError("Comment body is required")
	}
	if len(body) > models.MaxCommentBodyLength {
		return models.NewValidationError("Comment body too long (max 5000 characters)")
	}
	return nil
}

// CreateComment validates in a fixed order: body, target presence, inline
// line fields, snippet existence and line bounds, then parent existence.
// The comment and its notification rows commit atomically.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.CreateComment")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if err := validateCommentBody(in.Body); err != nil {
		return nil, err
	}
	if in.PostID == nil && in.SnippetID == nil {
		return nil, models.NewValidationError("Post ID or Snippet ID is required")
	}
	if in.IsInline {
		if in.StartLine == nil || in.EndLine == nil {
			return nil, models.NewValidationError("Start line and end line are required for inline comments")
		}
		if *in.StartLine > *in.EndLine {
			return nil, models.NewValidationError("Start line must not be greater than end line")
		}
	}

	postID := in.PostID
	if in.SnippetID != nil {
		snippet, err := s.snippetRepo.GetByID(ctx, *in.SnippetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Snippet", *in.SnippetID)
			}
			return nil, err
		}
		if in.IsInline {
			if *in.StartLine < 1 || *in.EndLine > snippet.LineCount() {
				return nil, models.NewValidationError("Line range is out of bounds")
			}
		}
		if postID == nil {
			postID = &snippet.PostID
		}
	}

	post, err := s.postRepo.GetBare(ctx, *postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", *postID)
		}
		return nil, err
	}
	span.AddAttributes(
		attribute.Int64("post.id", int64(post.ID)),
		attribute.Bool("comment.inline", in.IsInline),
	)

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("Comment", *in.ParentID)
			}
			return nil, err
		}
	}

	comment = &models.Comment{
		UserID:    in.UserID,
		PostID:    post.ID,
		SnippetID: in.SnippetID,
		ParentID:  in.ParentID,
		Body:      in.Body,
		IsInline:  in.IsInline,
		StartLine: in.StartLine,
		EndLine:   in.EndLine,
	}

	var delivered []*models.Notification
	write := func(comments repository.CommentRepository, inbox repository.NotificationRepository) error {
		delivered = delivered[:0]
		if err := comments.Create(ctx, comment); err != nil {
			return err
		}
		if post.UserID != in.UserID {
			n := &models.Notification{
				UserID: post.UserID,
				Type:   models.NotificationCommentOnPost,
				Payload: models.JSONMap{
					"post_id":    post.ID,
					"comment_id": comment.ID,
					"actor_id":   in.UserID,
				},
			}
			if err := inbox.Create(ctx, n); err != nil {
				return err
			}
			delivered = append(delivered, n)
		}
		if parent != nil && parent.UserID != in.UserID && parent.UserID != post.UserID {
			n := &models.Notification{
				UserID: parent.UserID,
				Type:   models.NotificationReplyToComment,
				Payload: models.JSONMap{
					"post_id":    post.ID,
					"comment_id": parent.ID,
					"reply_id":   comment.ID,
					"actor_id":   in.UserID,
				},
			}
			if err := inbox.Create(ctx, n); err != nil {
				return err
			}
			delivered = append(delivered, n)
		}
		return nil
	}

	if s.db != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return write(repository.NewCommentRepository(tx), repository.NewNotificationRepository(tx))
		})
	} else {
		err = write(s.commentRepo, s.notificationRepo)
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.commentRepo.GetByIDWithReplies(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastComment(ctx, fresh.PostID, fresh, in.SocketID)
		for _, n := range delivered {
			s.broadcaster.BroadcastNotification(ctx, n.UserID, n)
		}
	}
	return fresh, nil
}

// getOwned loads a comment for a mutation by its author. Missing comment
// and wrong author collapse into one error so non-owners cannot probe for
// comment existence.
func (s *CommentService) getOwned(ctx context.Context, commentID, userID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Unauthorized or comment not found")
		}
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewUnauthorizedError("Unauthorized or comment not found")
	}
	return comment, nil
}

// UpdateComment changes the body only. A changed body stamps edited_at.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.getOwned(ctx, in.CommentID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := validateCommentBody(in.Body); err != nil {
		return nil, err
	}

	if in.Body != comment.Body {
		now := time.Now()
		comment.Body = in.Body
		comment.EditedAt = &now
		if err := s.commentRepo.Update(ctx, comment); err != nil {
			return nil, err
		}
	}
	return s.commentRepo.GetByIDWithReplies(ctx, comment.ID)
}

// DeleteComment removes the comment and its replies.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.getOwned(ctx, in.CommentID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}

// ResolveComment toggles the resolved flag. Allowed for the comment author
// and the post author.
func (s *CommentService) ResolveComment(ctx context.Context, in ResolveCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", in.CommentID)
		}
		return nil, err
	}
	post, err := s.postRepo.GetBare(ctx, comment.PostID)
	if err != nil {
		return nil, err
	}
	if in.UserID != comment.UserID && in.UserID != post.UserID {
		return nil, models.NewUnauthorizedError("Not allowed to resolve this comment")
	}

	if comment.Resolved {
		comment.Resolved = false
		comment.ResolvedAt = nil
		comment.ResolvedBy = nil
	} else {
		now := time.Now()
		comment.Resolved = true
		comment.ResolvedAt = &now
		comment.ResolvedBy = &in.UserID
	}
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByIDWithReplies(ctx, comment.ID)
}

// ToggleLike flips the caller's like on a comment and reports the new
// state with the updated count.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID uint) (*LikeResult, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", commentID)
		}
		return nil, err
	}

	existing, err := s.reactionRepo.Get(ctx, userID, models.ReactionTargetComment, commentID, "like")
	if err != nil {
		return nil, err
	}

	liked := false
	if existing != nil {
		if err := s.reactionRepo.Delete(ctx, existing.ID); err != nil {
			return nil, err
		}
	} else {
		if err := s.reactionRepo.Create(ctx, &models.Reaction{
			UserID:     userID,
			TargetType: models.ReactionTargetComment,
			TargetID:   commentID,
			Type:       "like",
		}); err != nil {
			return nil, err
		}
		liked = true
	}

	count, err := s.reactionRepo.Count(ctx, models.ReactionTargetComment, commentID, "like")
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikesCount: count}, nil
}

// ListPostComments returns the post's top-level comments with replies,
// newest first.
func (s *CommentService) ListPostComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetBare(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, err
	}
	return s.commentRepo.ListTopLevelByPost(ctx, postID)
}

// ListSnippetComments returns every comment attached to a snippet in
// creation order.
func (s *CommentService) ListSnippetComments(ctx context.Context, snippetID uint) ([]*models.Comment, error) {
	if _, err := s.snippetRepo.GetByID(ctx, snippetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Snippet", snippetID)
		}
		return nil, err
	}
	return s.commentRepo.ListBySnippet(ctx, snippetID)
}
