package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/pkg/logger"
)

const internalMessage = "Internal Server Error"

// errorItem is one entry of the error envelope.
type errorItem struct {
	Ref      string  `json:"ref,omitempty"`
	Type     string  `json:"type"`
	Msg      string  `json:"msg"`
	Path     string  `json:"path"`
	Method   string  `json:"method,omitempty"`
	Location string  `json:"location"`
	Stack    *string `json:"stack"`
}

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Errors []errorItem `json:"errors"`
}

// resolved is the client-facing classification of an error.
type resolved struct {
	code int
	typ  string
	msg  string
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Expands validation failures into one envelope entry per field.
//   - Logs every error with a reference id that is echoed to the client.
//
// With production set, 5xx messages are replaced and no stack is rendered.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		req := c.Request()
		ref := uuid.NewString()
		log := logger.FromContext(req.Context(), log)

		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			log.Info().
				Str("ref", ref).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Err(err).
				Msg("request validation failed")
			_ = c.JSON(http.StatusBadRequest, validationResponse(ve, ref))
			return
		}

		r := resolveError(err)

		event := log.Warn()
		if r.code >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("ref", ref).
			Int("status", r.code).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Err(err).
			Msg("request failed")

		item := errorItem{
			Ref:      ref,
			Type:     r.typ,
			Msg:      r.msg,
			Path:     req.URL.Path,
			Method:   req.Method,
			Location: "server",
		}
		if production {
			if r.code >= http.StatusInternalServerError {
				item.Msg = internalMessage
			}
		} else {
			stack := errorChain(err)
			item.Stack = &stack
		}

		if req.Method == http.MethodHead {
			_ = c.NoContent(r.code)
			return
		}
		_ = c.JSON(r.code, errorResponse{Errors: []errorItem{item}})
	}
}

func resolveError(err error) resolved {
	// Echo's own errors (router 404, 405, bind failures, rate limiting).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return resolved{code: he.Code, typ: "HttpError", msg: msg}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrTokenRevoked):
		return resolved{http.StatusUnauthorized, "UnauthorizedError", "Unauthorized"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resolved{http.StatusUnauthorized, "UnauthorizedError", "Email or Password does not match"}
	case errors.Is(err, domain.ErrForbidden):
		return resolved{http.StatusForbidden, "ForbiddenError", "Forbidden"}
	case errors.Is(err, domain.ErrUserExists):
		return resolved{http.StatusConflict, "ConflictError", "User already exists"}
	case errors.Is(err, domain.ErrUserNotFound):
		return resolved{http.StatusNotFound, "NotFoundError", "User not found"}
	case errors.Is(err, domain.ErrTenantNotFound):
		return resolved{http.StatusNotFound, "NotFoundError", "Tenant not found"}
	case errors.Is(err, domain.ErrInvalidID):
		return resolved{http.StatusBadRequest, "BadRequestError", "Invalid url param."}
	case errors.Is(err, domain.ErrConfiguration):
		return resolved{http.StatusInternalServerError, "ConfigurationError", err.Error()}
	}

	return resolved{http.StatusInternalServerError, "InternalServerError", err.Error()}
}

func validationResponse(ve *domain.ValidationError, ref string) errorResponse {
	items := make([]errorItem, 0, len(ve.Issues))
	for _, is := range ve.Issues {
		loc := is.Location
		if loc == "" {
			loc = "body"
		}
		items = append(items, errorItem{
			Ref:      ref,
			Type:     "ValidationError",
			Msg:      is.Msg,
			Path:     is.Path,
			Location: loc,
		})
	}
	return errorResponse{Errors: items}
}

// errorChain renders every layer of a wrapped error, outermost first.
func errorChain(err error) string {
	var b strings.Builder
	for i := 0; err != nil; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%T: %s", err, err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}
