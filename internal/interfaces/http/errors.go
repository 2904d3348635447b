package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-sync/internal/application/dto"
	"github.com/jhoicas/ventas-sync/internal/domain"
)

// errorStatus relaciona cada error de dominio con su status y código HTTP.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized, "UNAUTHENTICATED"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrBackendFailure, fiber.StatusBadGateway, "BACKEND_FAILURE"},
}

// writeError responde {code, message} según la taxonomía de errores de dominio.
// Los fallos del backend no exponen la causa interna.
func writeError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		msg := err.Error()
		if e.err == domain.ErrBackendFailure {
			msg = e.err.Error()
		}
		return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: msg})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
