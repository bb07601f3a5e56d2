package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/memory"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps the engine's error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	var (
		verr  *memory.ValidationError
		nf    *memory.NotFoundError
		serr  *coordinator.SearchError
		derr  *memory.DependencyError
		sterr *memory.StorageError
	)

	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, "validation"
	case errors.As(err, &nf):
		return fiber.StatusNotFound, "not_found"
	case errors.As(err, &serr):
		return fiber.StatusBadGateway, "search"
	case errors.As(err, &derr):
		return fiber.StatusBadGateway, "dependency"
	case errors.As(err, &sterr):
		return fiber.StatusInternalServerError, "storage"
	default:
		return fiber.StatusInternalServerError, ""
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status, kind := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg, Kind: "validation"})
}
