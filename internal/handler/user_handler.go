package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "findash/internal/errors"
	"findash/internal/model"
	"findash/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UserCreateRequest is the registration payload.
type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// PasswordUpdateRequest changes the caller's password.
type PasswordUpdateRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// userUpdateFields holds the present string fields of an update for validation.
type userUpdateFields struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
}

type listParams struct {
	Skip  int `validate:"gte=0" json:"skip"`
	Limit int `validate:"gte=1,lte=1000" json:"limit"`
}

// CreateUser godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param user body UserCreateRequest true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse "Username or email already in use"
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/ [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req UserCreateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.Register(c.Request().Context(), service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// Me godoc
// @Summary Get the current user
// @Tags users
// @Produce json
// @Security OAuth2Password
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse "Inactive user"
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}

// ListUsers godoc
// @Summary List users (superuser only)
// @Tags users
// @Produce json
// @Security OAuth2Password
// @Param skip query int false "Rows to skip" default(0)
// @Param limit query int false "Maximum rows" default(100)
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users/ [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	params := listParams{Limit: 100}
	if err := echo.QueryParamsBinder(c).
		Int("skip", &params.Skip).
		Int("limit", &params.Limit).
		BindError(); err != nil {
		return queryError(err)
	}
	if err := validate(c, &params, "query"); err != nil {
		return err
	}

	users, err := h.svc.List(c.Request().Context(), params.Skip, params.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id (self or superuser)
// @Tags users
// @Produce json
// @Security OAuth2Password
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := service.CanAccessUser(CurrentUser(c), id); err != nil {
		return err
	}
	user, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Partially update a user (self or superuser)
// @Description Only fields present in the body are changed. Changing is_active or is_superuser requires a superuser.
// @Tags users
// @Accept json
// @Produce json
// @Security OAuth2Password
// @Param id path int true "User ID"
// @Param user body model.UserUpdate true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse "Username or email already in use"
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var upd model.UserUpdate
	if err := bodyBinder.BindBody(c, &upd); err != nil {
		return apperrors.NewValidationError([]string{"body"}, bindMessage(err), "value_error.jsondecode")
	}
	if err := validateUpdate(c, upd); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := service.CanApplyUpdate(CurrentUser(c), id, upd); err != nil {
		return err
	}
	updated, err := h.svc.Update(ctx, user, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteUser godoc
// @Summary Delete a user (superuser only)
// @Tags users
// @Produce json
// @Security OAuth2Password
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	deleted, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleted)
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags users
// @Accept json
// @Produce json
// @Security OAuth2Password
// @Param request body PasswordUpdateRequest true "Old and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/me/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req PasswordUpdateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.Request().Context(), CurrentUser(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

func userID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		return 0, apperrors.NewValidationError([]string{"path", "user_id"}, "value is not a valid integer", "type_error.integer")
	}
	return uint(id), nil
}

// validateUpdate rejects explicit nulls and checks the present values.
func validateUpdate(c echo.Context, upd model.UserUpdate) error {
	out := &apperrors.ValidationError{}
	nulls := map[string]bool{
		"email":        upd.Email.Null,
		"username":     upd.Username.Null,
		"is_active":    upd.IsActive.Null,
		"is_superuser": upd.IsSuperuser.Null,
	}
	for _, field := range []string{"email", "username", "is_active", "is_superuser"} {
		if nulls[field] {
			out.Fields = append(out.Fields, apperrors.FieldError{
				Loc:  []string{"body", field},
				Msg:  "none is not an allowed value",
				Type: "type_error.none.not_allowed",
			})
		}
	}
	if len(out.Fields) > 0 {
		return out
	}

	fields := userUpdateFields{}
	if upd.Email.Present() {
		fields.Email = &upd.Email.Value
	}
	if upd.Username.Present() {
		fields.Username = &upd.Username.Value
	}
	return validate(c, &fields, "body")
}
