package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Create adds a manager account.
//
// @Summary      Create manager
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createManagerRequest  true  "Manager details"
// @Success      201   {object}  idResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createManagerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.service.CreateManager(c.Request().Context(), ports.CreateManagerInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		TenantID:  req.TenantID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: user.ID})
}

// List returns a page of users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q            query     string  false  "Partial match on name or email"
// @Param        role         query     string  false  "Exact role"
// @Param        currentPage  query     int     false  "Page number (default 1)"
// @Param        perPage      query     int     false  "Page size (default 6)"
// @Success      200          {object}  userPage
// @Failure      403          {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	page, err := h.service.List(c.Request().Context(), ports.UserFilter{
		Query:   c.QueryParam("q"),
		Role:    c.QueryParam("role"),
		Page:    queryInt(c, "currentPage", 1),
		PerPage: queryInt(c, "perPage", 6),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get returns a single user.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update replaces the mutable fields of a user.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "User id"
// @Param        body  body      updateUserRequest  true  "User fields"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	err = h.service.Update(c.Request().Context(), id, ports.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		TenantID:  req.TenantID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}

// Delete removes a user together with their refresh tokens.
//
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "User id"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}
