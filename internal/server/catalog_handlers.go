package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"onstream/internal/models"
)

// ListMovies returns a page of movies, optionally filtered by genre and year.
func (s *Server) ListMovies(c *fiber.Ctx) error {
	return s.listByKind(c, models.KindMovie)
}

// ListTV returns a page of series, optionally filtered by genre and year.
func (s *Server) ListTV(c *fiber.Ctx) error {
	return s.listByKind(c, models.KindSeries)
}

func (s *Server) listByKind(c *fiber.Ctx, kind string) error {
	p := parsePagination(c)
	genre := c.Query("genre")
	year := c.Query("year")

	page, err := s.catalog.List(c.UserContext(), kind, genre, year, p.Page, p.PageSize)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", page)
}

// MovieDetails returns the metadata for one catalog id, movie or series.
func (s *Server) MovieDetails(c *fiber.Ctx) error {
	id, err := s.parseTmdbID(c)
	if err != nil {
		return nil
	}

	item, err := s.catalog.GetByID(c.UserContext(), id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", item)
}

// Search answers a text query over movies and series.
func (s *Server) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Query parameter 'q' is required"))
	}

	p := parsePagination(c)
	page, err := s.catalog.Search(c.UserContext(), query, p.Page, p.PageSize)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", page)
}

// Trending returns the weekly trending feed.
func (s *Server) Trending(c *fiber.Ctx) error {
	page, err := s.catalog.Trending(c.UserContext())
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", page)
}

// Genres returns the merged genre catalog.
func (s *Server) Genres(c *fiber.Ctx) error {
	return models.RespondOK(c, "ok", fiber.Map{
		"genres": s.catalog.Genres(c.UserContext()),
	})
}

// Streams returns the stream bundle for a catalog id.
func (s *Server) Streams(c *fiber.Ctx) error {
	id, err := s.parseTmdbID(c)
	if err != nil {
		return nil
	}

	bundle, err := s.catalog.Streams(c.UserContext(), id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "ok", bundle)
}
