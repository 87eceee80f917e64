package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cycletracker/internal/service"
)

// UserHandler serves the caller's own profile and the admin user endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a user handler.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUserRequest is an admin request for a new account.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=64"`
	FirstName   string `json:"first_name" validate:"required,max=255"`
	LastName    string `json:"last_name" validate:"required,max=255"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UpdateMeRequest lists the profile fields a user may change on themselves.
type UpdateMeRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=255"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=255"`
}

// ChangePasswordRequest changes the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=64"`
}

// SetPasswordRequest sets a user's password on an admin's behalf.
type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=64"`
}

// Me godoc
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}

// UpdateMe godoc
// @Summary Update current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateMeRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req UpdateMeRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	user, err := h.svc.Update(c.Request().Context(), CurrentUser(c).ID, service.UserPatch{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePasswordMe godoc
// @Summary Change current user's password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me/change-password [post]
func (h *UserHandler) ChangePasswordMe(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	if err := h.svc.ChangePassword(c.Request().Context(), CurrentUser(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// Create godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	user, err := h.svc.Create(c.Request().Context(), service.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// List godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" minimum(1)
// @Param limit query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} repository.Page[model.User]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	p, err := bindPage(c)
	if err != nil {
		return err
	}

	page, err := h.svc.List(c.Request().Context(), p)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	user, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// Update godoc
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body service.UserPatch true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch service.UserPatch
	if err := c.Bind(&patch); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&patch); err != nil {
		return validationFailed(err)
	}

	user, err := h.svc.Update(c.Request().Context(), id, patch)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Set a user's password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body SetPasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req SetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	if err := h.svc.SetPassword(c.Request().Context(), id, req.NewPassword); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// Delete godoc
// @Summary Delete user
// @Description Removes the user together with their periods and symptoms.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
