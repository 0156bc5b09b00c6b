package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/equipment"
)

// EquipmentHandler maneja o cadastro de equipamentos fiscais (SAT).
type EquipmentHandler struct {
	registry *equipment.Registry
}

// NewEquipmentHandler constrói o handler.
func NewEquipmentHandler(registry *equipment.Registry) *EquipmentHandler {
	return &EquipmentHandler{registry: registry}
}

// Register cadastra um equipamento em INACTIVE.
// POST /api/equipment
func (h *EquipmentHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterEquipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	eq, err := h.registry.Register(c.Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromEquipment(eq))
}

// List devolve o cadastro completo.
// GET /api/equipment
func (h *EquipmentHandler) List(c *fiber.Ctx) error {
	list, err := h.registry.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.EquipmentResponse, 0, len(list))
	for _, eq := range list {
		out = append(out, dto.FromEquipment(eq))
	}
	return c.JSON(out)
}

// GetByID devolve um equipamento.
// GET /api/equipment/:id
func (h *EquipmentHandler) GetByID(c *fiber.Ctx) error {
	eq, err := h.registry.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromEquipment(eq))
}

// Activate ativa um equipamento com o código de vinculação.
// POST /api/equipment/:id/activate
func (h *EquipmentHandler) Activate(c *fiber.Ctx) error {
	var in dto.ActivateEquipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	eq, err := h.registry.Activate(c.Context(), c.Params("id"), in.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromEquipment(eq))
}

// Deactivate desativa um equipamento.
// POST /api/equipment/:id/deactivate
func (h *EquipmentHandler) Deactivate(c *fiber.Ctx) error {
	var in dto.DeactivateEquipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	eq, err := h.registry.Deactivate(c.Context(), c.Params("id"), in.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromEquipment(eq))
}

// Status executa a checagem de comunicação do equipamento.
// GET /api/equipment/:id/status
func (h *EquipmentHandler) Status(c *fiber.Ctx) error {
	resp, err := h.registry.CheckStatus(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// Logs devolve a trilha de auditoria do equipamento.
// GET /api/equipment/:id/logs
func (h *EquipmentHandler) Logs(c *fiber.Ctx) error {
	logs, err := h.registry.Logs(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.OperationLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.FromOperationLog(l))
	}
	return c.JSON(out)
}
