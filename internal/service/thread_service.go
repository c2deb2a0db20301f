package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"marginalia/internal/models"
	"marginalia/internal/repository"

	"gorm.io/gorm"
)

// ThreadService maps client block identifiers to snippets and assembles
// the flat per-line message lists the review UI renders.
type ThreadService struct {
	snippetRepo repository.SnippetRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	comments    *CommentService
}

// ThreadMessage is one rendered entry of a line thread. Replies carry
// their parent's id and inherit its line when they have none of their own.
type ThreadMessage struct {
	ID         uint               `json:"id"`
	User       models.UserSummary `json:"user"`
	Text       string             `json:"text"`
	Body       string             `json:"body"`
	CreatedAt  time.Time          `json:"created_at"`
	EditedAt   *time.Time         `json:"edited_at"`
	LineNumber *int               `json:"line_number"`
	ParentID   *uint              `json:"parent_id,omitempty"`
}

// Thread is the response for a line-thread lookup.
type Thread struct {
	Messages []ThreadMessage `json:"messages"`
	Resolved bool            `json:"resolved"`
}

type CreateThreadMessageInput struct {
	UserID   uint
	PostID   uint
	BlockID  string
	Line     int
	Body     string
	ParentID *uint
	SocketID string
}

type ResolveThreadInput struct {
	UserID   uint
	PostID   uint
	BlockID  string
	Line     int
	Resolved bool
}

// NewThreadService creates a new ThreadService.
func NewThreadService(
	snippetRepo repository.SnippetRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	comments *CommentService,
) *ThreadService {
	return &ThreadService{
		snippetRepo: snippetRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		comments:    comments,
	}
}

// ResolveSnippet translates a client block identifier into the snippet it
// currently names, scoped to one post. Resolution order:
//
//  1. numeric id, accepted only when the snippet belongs to the post
//  2. "code-N" positional token, 1-based over the post's snippets in
//     block_index order
//  3. the post's first snippet as a best-effort fallback
//
// Clients assign block identifiers independently of snippet ids, so stale
// identifiers fall through to the next rule instead of erroring.
func (s *ThreadService) ResolveSnippet(ctx context.Context, postID uint, blockID string) (*models.Snippet, error) {
	if id, err := strconv.Atoi(blockID); err == nil && id > 0 {
		snippet, err := s.snippetRepo.GetByID(ctx, uint(id))
		if err == nil && snippet.PostID == postID {
			return snippet, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	ordered, err := s.snippetRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(blockID, "code-") {
		parts := strings.Split(blockID, "-")
		if len(parts) >= 2 {
			if n, err := strconv.Atoi(parts[1]); err == nil {
				if idx := n - 1; idx >= 0 && idx < len(ordered) {
					return ordered[idx], nil
				}
			}
		}
	}

	if len(ordered) > 0 {
		return ordered[0], nil
	}
	return nil, models.NewNotFoundError("Snippet", blockID)
}

// GetThread resolves a block identifier and assembles the thread at the
// given line. Unresolvable blocks and a missing line degrade to an empty
// thread rather than an error.
func (s *ThreadService) GetThread(ctx context.Context, postID uint, blockID string, line *int) (*Thread, error) {
	if line == nil {
		return &Thread{Messages: []ThreadMessage{}}, nil
	}

	snippet, err := s.ResolveSnippet(ctx, postID, blockID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return &Thread{Messages: []ThreadMessage{}}, nil
		}
		return nil, err
	}

	return s.ThreadMessages(ctx, snippet.ID, *line)
}

// ThreadMessages builds the flat chronological message list for one line
// of a snippet: each top-level inline comment covering the line, followed
// by its replies, then re-sorted globally by creation time. The global
// re-sort can interleave replies across threads when their timestamps do;
// clients render the list as given.
func (s *ThreadService) ThreadMessages(ctx context.Context, snippetID uint, line int) (*Thread, error) {
	all, err := s.commentRepo.ListBySnippet(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	messages := []ThreadMessage{}
	parents := 0
	resolved := true
	for _, c := range all {
		if c.ParentID != nil || !c.AnchorsLine(line) {
			continue
		}
		parents++
		if !c.Resolved {
			resolved = false
		}
		messages = append(messages, threadMessage(c, nil))
		for i := range c.Replies {
			messages = append(messages, threadMessage(&c.Replies[i], c))
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return &Thread{
		Messages: messages,
		Resolved: parents > 0 && resolved,
	}, nil
}

func threadMessage(c *models.Comment, parent *models.Comment) ThreadMessage {
	msg := ThreadMessage{
		ID:         c.ID,
		User:       c.User.Summary(),
		Text:       c.Body,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
		EditedAt:   c.EditedAt,
		LineNumber: c.StartLine,
	}
	if parent != nil {
		msg.ParentID = &parent.ID
		if msg.LineNumber == nil {
			msg.LineNumber = parent.StartLine
		}
	}
	return msg
}

// CreateThreadMessage starts or extends the thread at a line. The comment
// is always inline with start and end pinned to the line.
func (s *ThreadService) CreateThreadMessage(ctx context.Context, in CreateThreadMessageInput) (*models.Comment, error) {
	if in.Line < 1 {
		return nil, models.NewValidationError("A valid line number is required")
	}
	if err := validateCommentBody(in.Body); err != nil {
		return nil, err
	}

	snippet, err := s.ResolveSnippet(ctx, in.PostID, in.BlockID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "Block or snippet not found"}
		}
		return nil, err
	}

	line := in.Line
	return s.comments.CreateComment(ctx, CreateCommentInput{
		UserID:    in.UserID,
		PostID:    &in.PostID,
		SnippetID: &snippet.ID,
		ParentID:  in.ParentID,
		IsInline:  true,
		StartLine: &line,
		EndLine:   &line,
		Body:      in.Body,
		SocketID:  in.SocketID,
	})
}

// ResolveThreadAtLine marks every top-level inline comment anchored at the
// line resolved (or unresolved). The post author may resolve any comment,
// other users only their own.
func (s *ThreadService) ResolveThreadAtLine(ctx context.Context, in ResolveThreadInput) (bool, error) {
	snippet, err := s.ResolveSnippet(ctx, in.PostID, in.BlockID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return false, &models.AppError{Code: models.CodeNotFound, Message: "Block or snippet not found"}
		}
		return false, err
	}
	if in.Line < 1 {
		return false, models.NewValidationError("A valid line number is required")
	}

	post, err := s.postRepo.GetBare(ctx, in.PostID)
	if err != nil {
		return false, err
	}

	anchored, err := s.commentRepo.ListInlineTopLevelAtLine(ctx, snippet.ID, in.Line)
	if err != nil {
		return false, err
	}
	if len(anchored) == 0 {
		return false, models.NewNotFoundError("Thread at line", in.Line)
	}

	updated := 0
	for _, c := range anchored {
		if in.UserID != post.UserID && in.UserID != c.UserID {
			continue
		}
		if in.Resolved {
			now := time.Now()
			c.Resolved = true
			c.ResolvedAt = &now
			c.ResolvedBy = &in.UserID
		} else {
			c.Resolved = false
			c.ResolvedAt = nil
			c.ResolvedBy = nil
		}
		if err := s.commentRepo.Update(ctx, c); err != nil {
			return false, err
		}
		updated++
	}
	if updated == 0 {
		return false, models.NewUnauthorizedError("Not allowed to resolve this thread")
	}
	return in.Resolved, nil
}
