package server

import (
	"github.com/gofiber/fiber/v2"

	"onstream/internal/models"
)

// Register creates a new account.
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	account, err := s.accounts.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondCreated(c, "Account created", account)
}

// Login verifies credentials and returns an access token.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, err := s.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondDomainError(c, err)
	}
	return models.RespondOK(c, "Login successful", token)
}

// Me returns the authenticated account.
func (s *Server) Me(c *fiber.Ctx) error {
	account, err := s.accounts.GetAccount(c.UserContext(), currentUsername(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	if account == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired token"))
	}
	return models.RespondOK(c, "ok", account)
}
