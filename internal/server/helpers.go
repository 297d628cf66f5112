package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"onstream/internal/models"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination holds parsed page/page_size query parameters.
type Pagination struct {
	Page     int
	PageSize int
}

// parsePagination extracts 1-based page and page_size query parameters.
func parsePagination(c *fiber.Ctx) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	size := c.QueryInt("page_size", defaultPageSize)
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return Pagination{Page: page, PageSize: size}
}

// parseTmdbID extracts the :id route parameter as a positive catalog id.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseTmdbID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid catalog ID"))
		return 0, errResponseWritten
	}
	return int64(id), nil
}

// respondDomainError maps a service error onto the transport. Expected domain
// outcomes (unknown title, duplicate user, bad credentials, validation) stay
// HTTP 200 with a success:false envelope; authorization failures are 401 and
// everything else is a 500.
func respondDomainError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	switch appErr.Code {
	case models.CodeUnauthorized:
		return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
	case models.CodeForbidden:
		return models.RespondWithError(c, fiber.StatusForbidden, appErr)
	case models.CodeInternal:
		return models.RespondWithError(c, fiber.StatusInternalServerError, appErr)
	default:
		return models.RespondFailure(c, appErr.Message, appErr.Code)
	}
}

// currentUsername returns the authenticated username set by AuthRequired.
func currentUsername(c *fiber.Ctx) string {
	username, _ := c.Locals("username").(string)
	return username
}
