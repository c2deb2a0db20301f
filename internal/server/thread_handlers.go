package server

import (
	"marginalia/internal/models"
	"marginalia/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetThread handles GET /api/posts/:postId/blocks/:blockId/threads?line=N.
// Unresolvable blocks and lines degrade to an empty thread, not an error.
func (s *Server) GetThread(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var line *int
	if n := c.QueryInt("line", 0); n > 0 {
		line = &n
	}

	thread, err := s.threadService.GetThread(c.Context(), postID, c.Params("blockId"), line)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(thread)
}

// CreateThreadMessage handles POST /api/posts/:postId/blocks/:blockId/threads
func (s *Server) CreateThreadMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Line     int    `json:"line"`
		Body     string `json:"body"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.threadService.CreateThreadMessage(c.Context(), service.CreateThreadMessageInput{
		UserID:   userID,
		PostID:   postID,
		BlockID:  c.Params("blockId"),
		Line:     req.Line,
		Body:     req.Body,
		ParentID: req.ParentID,
		SocketID: socketID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ResolveThread handles PATCH /api/posts/:postId/blocks/:blockId/threads/resolve
func (s *Server) ResolveThread(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Line     int   `json:"line"`
		Resolved *bool `json:"resolved"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Absent flag means resolve; explicit false unresolves.
	resolved := true
	if req.Resolved != nil {
		resolved = *req.Resolved
	}

	result, err := s.threadService.ResolveThreadAtLine(c.Context(), service.ResolveThreadInput{
		UserID:   userID,
		PostID:   postID,
		BlockID:  c.Params("blockId"),
		Line:     req.Line,
		Resolved: resolved,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"resolved": result})
}
