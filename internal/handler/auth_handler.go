package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"findash/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest is the OAuth2 password grant form.
type LoginRequest struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
}

// MessageResponse is a generic confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Login godoc
// @Summary Exchange username and password for an access token
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse "Inactive user"
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	token, _, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token.Token,
		TokenType:   "bearer",
	})
}

// Logout godoc
// @Summary Revoke the presented access token
// @Tags auth
// @Produce json
// @Security OAuth2Password
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p := CurrentPrincipal(c)
	if p == nil {
		return echo.ErrUnauthorized
	}
	if err := h.authService.Logout(c.Request().Context(), p.Claims); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}
