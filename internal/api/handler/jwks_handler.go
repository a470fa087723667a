package handler

import (
	"net/http"

	"github.com/go-jose/go-jose/v4"
	"github.com/labstack/echo/v4"
)

// KeySet builds the public JSON Web Key Set.
type KeySet interface {
	JWKS() (jose.JSONWebKeySet, error)
}

type JWKSHandler struct {
	keys KeySet
}

func NewJWKSHandler(keys KeySet) *JWKSHandler {
	return &JWKSHandler{keys: keys}
}

// Serve publishes the verification keys for access tokens.
//
// @Summary      JSON Web Key Set
// @Tags         keys
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      500  {object}  errorResponse
// @Router       /.well-known/jwks.json [get]
func (h *JWKSHandler) Serve(c echo.Context) error {
	set, err := h.keys.JWKS()
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=300")
	return c.JSON(http.StatusOK, set)
}
