package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
)

type TenantHandler struct {
	service ports.TenantService
}

func NewTenantHandler(service ports.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// Create adds a tenant.
//
// @Summary      Create tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      tenantRequest  true  "Tenant details"
// @Success      201   {object}  idResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /tenants [post]
func (h *TenantHandler) Create(c echo.Context) error {
	var req tenantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	t, err := h.service.Create(c.Request().Context(), ports.TenantInput{Name: req.Name, Address: req.Address})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: t.ID})
}

// List returns a page of tenants.
//
// @Summary      List tenants
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        q            query     string  false  "Partial match on name or address"
// @Param        currentPage  query     int     false  "Page number (default 1)"
// @Param        perPage      query     int     false  "Page size (default 6)"
// @Success      200          {object}  tenantPage
// @Router       /tenants [get]
func (h *TenantHandler) List(c echo.Context) error {
	page, err := h.service.List(c.Request().Context(), ports.TenantFilter{
		Query:   c.QueryParam("q"),
		Page:    queryInt(c, "currentPage", 1),
		PerPage: queryInt(c, "perPage", 6),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get returns one tenant.
//
// @Summary      Get tenant
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Tenant id"
// @Success      200  {object}  domain.Tenant
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /tenants/{id} [get]
func (h *TenantHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Update changes a tenant's name and address.
//
// @Summary      Update tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Tenant id"
// @Param        body  body      tenantRequest  true  "Tenant details"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /tenants/{id} [patch]
func (h *TenantHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req tenantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.Update(c.Request().Context(), id, ports.TenantInput{Name: req.Name, Address: req.Address}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}

// Delete removes a tenant; its users are detached.
//
// @Summary      Delete tenant
// @Tags         tenants
// @Security     BearerAuth
// @Param        id   path  int  true  "Tenant id"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /tenants/{id} [delete]
func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct{}{})
}
