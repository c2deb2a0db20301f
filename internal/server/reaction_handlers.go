package server

import (
	"marginalia/internal/models"
	"marginalia/internal/service"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) toggleReaction(c *fiber.Ctx, targetType string) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.reactionService.Toggle(c.Context(), service.ToggleReactionInput{
		UserID:     userID,
		TargetType: targetType,
		TargetID:   targetID,
		Type:       req.Type,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

func (s *Server) listReactions(c *fiber.Ctx, targetType string) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	reactions, counts, err := s.reactionService.List(c.Context(), targetType, targetID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"reactions": reactions,
		"counts":    counts,
	})
}

// TogglePostReaction handles POST /api/posts/:id/reactions
func (s *Server) TogglePostReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.ReactionTargetPost)
}

// ToggleCommentReaction handles POST /api/comments/:id/reactions
func (s *Server) ToggleCommentReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.ReactionTargetComment)
}

// GetPostReactions handles GET /api/posts/:id/reactions
func (s *Server) GetPostReactions(c *fiber.Ctx) error {
	return s.listReactions(c, models.ReactionTargetPost)
}

// GetCommentReactions handles GET /api/comments/:id/reactions
func (s *Server) GetCommentReactions(c *fiber.Ctx) error {
	return s.listReactions(c, models.ReactionTargetComment)
}
