package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.List(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// GetTagPosts handles GET /api/tags/:slug/posts
func (s *Server) GetTagPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.tagService.PostsByTag(c.Context(), c.Params("slug"), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
