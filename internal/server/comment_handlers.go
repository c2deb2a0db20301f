package server

import (
	"marginalia/internal/models"
	"marginalia/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPostComments handles GET /api/posts/:id/comments
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListPostComments(c.Context(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// GetSnippetComments handles GET /api/comments?snippet_id=N
func (s *Server) GetSnippetComments(c *fiber.Ctx) error {
	snippetID := c.QueryInt("snippet_id")
	if snippetID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("snippet_id query parameter is required"))
	}
	comments, err := s.commentService.ListSnippetComments(c.Context(), uint(snippetID))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

type commentRequest struct {
	Body      string `json:"body"`
	SnippetID *uint  `json:"snippet_id"`
	ParentID  *uint  `json:"parent_id"`
	IsInline  bool   `json:"is_inline"`
	StartLine *int   `json:"start_line"`
	EndLine   *int   `json:"end_line"`
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID:    userID,
		PostID:    &postID,
		SnippetID: req.SnippetID,
		ParentID:  req.ParentID,
		IsInline:  req.IsInline,
		StartLine: req.StartLine,
		EndLine:   req.EndLine,
		Body:      req.Body,
		SocketID:  socketID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// CreateInlineComment handles POST /api/posts/:id/inline-comments.
// The canonical inline form: snippet and line range are mandatory.
func (s *Server) CreateInlineComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.SnippetID == nil {
		return models.RespondWithError(c, fiber.StatusUnprocessableEntity,
			models.NewValidationError("Snippet ID is required for inline comments"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID:    userID,
		PostID:    &postID,
		SnippetID: req.SnippetID,
		ParentID:  req.ParentID,
		IsInline:  true,
		StartLine: req.StartLine,
		EndLine:   req.EndLine,
		Body:      req.Body,
		SocketID:  socketID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateInlineComment handles PATCH /api/inline-comments/:id
func (s *Server) UpdateInlineComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.Context(), service.UpdateCommentInput{
		UserID:    userID,
		CommentID: commentID,
		Body:      req.Body,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.commentService.DeleteComment(c.Context(), service.DeleteCommentInput{
		UserID:    userID,
		CommentID: commentID,
	}); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// ResolveComment handles POST /api/comments/:id/resolve (toggle)
func (s *Server) ResolveComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.ResolveComment(c.Context(), service.ResolveCommentInput{
		UserID:    userID,
		CommentID: commentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// LikeComment handles POST /api/comments/:id/like (toggle)
func (s *Server) LikeComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.ToggleLike(c.Context(), commentID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
