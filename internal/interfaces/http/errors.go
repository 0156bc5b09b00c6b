package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
)

// fail converte os erros sentinela do domínio no status HTTP e corpo de erro
// correspondentes. Erros desconhecidos viram 500.
func fail(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnsupported):
		status, code = fiber.StatusBadRequest, "UNSUPPORTED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrNoEquipment):
		status, code = fiber.StatusUnprocessableEntity, "NO_EQUIPMENT"
	case errors.Is(err, domain.ErrTransport):
		status, code = fiber.StatusBadGateway, "TRANSPORT"
	case errors.Is(err, domain.ErrPipeline):
		status, code = fiber.StatusBadGateway, "PIPELINE"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
