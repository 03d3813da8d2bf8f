package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/dto"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/service"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and the caller's profile.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /api/v1/auth/login. The body is the OAuth2 password form
// or JSON with the same field names.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	token, _, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated", auth.ErrNoCredentials)
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
