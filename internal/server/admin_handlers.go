package server

import (
	"github.com/gofiber/fiber/v2"

	"onstream/internal/models"
)

// AdminStats returns store and account totals for the admin dashboard.
func (s *Server) AdminStats(c *fiber.Ctx) error {
	stats, err := s.accounts.Stats(c.UserContext(), s.catalog)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", stats)
}

// AdminClearCache drops all cached catalog data.
func (s *Server) AdminClearCache(c *fiber.Ctx) error {
	if err := s.catalog.ClearCache(c.UserContext()); err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "Cache cleared", nil)
}
