package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vlourenco/pdv-fiscal/internal/application/accounting"
	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
)

// AccountingHandler maneja lotes de exportação, provedores e agendamentos.
type AccountingHandler struct {
	exports   *accounting.ExportEngine
	schedules *accounting.ScheduleEngine
}

// NewAccountingHandler constrói o handler.
func NewAccountingHandler(exports *accounting.ExportEngine, schedules *accounting.ScheduleEngine) *AccountingHandler {
	return &AccountingHandler{exports: exports, schedules: schedules}
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

// CreateBatch cria um lote de exportação em PENDING.
// POST /api/accounting/batches
func (h *AccountingHandler) CreateBatch(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	batch, err := h.exports.CreateBatch(c.Context(), &in, GetOperatorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromBatch(batch))
}

// ProcessBatch executa o pipeline de um lote PENDING ou FAILED.
// POST /api/accounting/batches/:id/process
func (h *AccountingHandler) ProcessBatch(c *fiber.Ctx) error {
	batch, err := h.exports.Process(c.Context(), c.Params("id"))
	if err != nil {
		// falha de pipeline devolve o lote em FAILED junto do status
		if batch != nil {
			return c.Status(fiber.StatusBadGateway).JSON(dto.FromBatch(batch))
		}
		return fail(c, err)
	}
	return c.JSON(dto.FromBatch(batch))
}

// GetBatch devolve um lote.
// GET /api/accounting/batches/:id
func (h *AccountingHandler) GetBatch(c *fiber.Ctx) error {
	batch, err := h.exports.GetBatch(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromBatch(batch))
}

// ListBatches lista lotes, paginado.
// GET /api/accounting/batches
func (h *AccountingHandler) ListBatches(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginação inválida"})
	}
	page.DefaultPage()
	batches, err := h.exports.ListBatches(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, dto.FromBatch(b))
	}
	return c.JSON(out)
}

// ListItems devolve os documentos de um lote.
// GET /api/accounting/batches/:id/items
func (h *AccountingHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.exports.ListItems(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.ItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, dto.FromItem(i))
	}
	return c.JSON(out)
}

// ── Provedores ────────────────────────────────────────────────────────────────

// CreateProvider cadastra um provedor contábil.
// POST /api/accounting/providers
func (h *AccountingHandler) CreateProvider(c *fiber.Ctx) error {
	var in dto.CreateProviderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	prov, err := h.exports.CreateProvider(c.Context(), &in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromProvider(prov))
}

// ListProviders lista os provedores cadastrados.
// GET /api/accounting/providers
func (h *AccountingHandler) ListProviders(c *fiber.Ctx) error {
	provs, err := h.exports.ListProviders(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.ProviderResponse, 0, len(provs))
	for _, p := range provs {
		out = append(out, dto.FromProvider(p))
	}
	return c.JSON(out)
}

// ── Agendamentos ──────────────────────────────────────────────────────────────

// CreateSchedule cria um agendamento recorrente de exportação.
// POST /api/accounting/schedules
func (h *AccountingHandler) CreateSchedule(c *fiber.Ctx) error {
	var in dto.CreateScheduleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	s, err := h.schedules.CreateSchedule(c.Context(), &in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSchedule(s))
}

// ListSchedules lista os agendamentos.
// GET /api/accounting/schedules
func (h *AccountingHandler) ListSchedules(c *fiber.Ctx) error {
	list, err := h.schedules.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.ScheduleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.FromSchedule(s))
	}
	return c.JSON(out)
}

// DeactivateSchedule desativa um agendamento.
// POST /api/accounting/schedules/:id/deactivate
func (h *AccountingHandler) DeactivateSchedule(c *fiber.Ctx) error {
	s, err := h.schedules.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromSchedule(s))
}

// RunSchedules dispara a varredura de agendamentos vencidos imediatamente.
// POST /api/accounting/schedules/run
func (h *AccountingHandler) RunSchedules(c *fiber.Ctx) error {
	ran, err := h.schedules.RunDue(c.Context(), time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ran": ran})
}
