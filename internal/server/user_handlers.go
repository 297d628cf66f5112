package server

import (
	"github.com/gofiber/fiber/v2"

	"onstream/internal/models"
)

// ListFavorites returns a page of the authenticated user's favorites.
func (s *Server) ListFavorites(c *fiber.Ctx) error {
	p := parsePagination(c)

	page, err := s.userDataRepo.ListFavorites(c.UserContext(), currentUsername(c), p.Page, p.PageSize)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return models.RespondOK(c, "ok", page)
}

// AddFavorite adds a title to the authenticated user's favorites. The title
// must exist in the catalog; its snapshot is denormalized into the entry.
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	var req struct {
		TmdbID int64 `json:"tmdb_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.TmdbID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A positive tmdb_id is required"))
	}

	item, err := s.catalog.GetByID(c.UserContext(), req.TmdbID)
	if err != nil {
		return respondDomainError(c, err)
	}

	entry := models.FavoriteEntry{
		Username:   currentUsername(c),
		TmdbID:     item.TmdbID,
		Title:      item.Title,
		PosterPath: item.PosterPath,
		Kind:       item.Kind,
	}
	if err := s.userDataRepo.UpsertFavorite(c.UserContext(), &entry); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return models.RespondCreated(c, "Favorite added", entry)
}

// RemoveFavorite removes one favorite by catalog id.
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	id, err := s.parseTmdbID(c)
	if err != nil {
		return nil
	}

	deleted, err := s.userDataRepo.DeleteFavorite(c.UserContext(), currentUsername(c), id)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if !deleted {
		return models.RespondFailure(c, "Movie not found in favorites", models.CodeFavoriteNotFound)
	}
	return models.RespondOK(c, "Removed from favorites successfully", nil)
}

// ListHistory returns a page of the authenticated user's watch history.
func (s *Server) ListHistory(c *fiber.Ctx) error {
	p := parsePagination(c)

	page, err := s.userDataRepo.ListHistory(c.UserContext(), currentUsername(c), p.Page, p.PageSize)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return models.RespondOK(c, "ok", page)
}

// RecordHistory stores a watch event for the authenticated user.
func (s *Server) RecordHistory(c *fiber.Ctx) error {
	var req struct {
		TmdbID   int64   `json:"tmdb_id"`
		Progress float64 `json:"progress"`
	}
	if err := c.BodyParser(&req); err != nil || req.TmdbID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A positive tmdb_id is required"))
	}
	if req.Progress < 0 || req.Progress > 1 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Progress must be a fraction between 0 and 1"))
	}

	item, err := s.catalog.GetByID(c.UserContext(), req.TmdbID)
	if err != nil {
		return respondDomainError(c, err)
	}

	entry := models.HistoryEntry{
		Username:   currentUsername(c),
		TmdbID:     item.TmdbID,
		Title:      item.Title,
		PosterPath: item.PosterPath,
		Kind:       item.Kind,
		Progress:   req.Progress,
	}
	if err := s.userDataRepo.RecordHistory(c.UserContext(), &entry); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return models.RespondCreated(c, "History recorded", entry)
}

// RemoveHistory removes one watch history entry by catalog id.
func (s *Server) RemoveHistory(c *fiber.Ctx) error {
	id, err := s.parseTmdbID(c)
	if err != nil {
		return nil
	}

	deleted, err := s.userDataRepo.DeleteHistory(c.UserContext(), currentUsername(c), id)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if !deleted {
		return models.RespondFailure(c, "Movie not found in watch history", models.CodeHistoryNotFound)
	}
	return models.RespondOK(c, "Removed from watch history successfully", nil)
}
