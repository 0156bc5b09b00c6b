package http

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// ReceiptGenerator gera o extrato em PDF de um documento autorizado.
type ReceiptGenerator interface {
	Generate(ctx context.Context, doc *entity.FiscalDocument) ([]byte, error)
}

// DocumentHandler maneja o ciclo de vida dos documentos fiscais das duas
// famílias. O segmento :family da rota ("nfce" ou "cfe") seleciona o motor.
type DocumentHandler struct {
	engines  map[string]*fiscal.Engine
	receipts ReceiptGenerator
}

// NewDocumentHandler constrói o handler com um motor por família.
func NewDocumentHandler(receipts ReceiptGenerator, engines ...*fiscal.Engine) *DocumentHandler {
	m := make(map[string]*fiscal.Engine, len(engines))
	for _, e := range engines {
		m[e.Family()] = e
	}
	return &DocumentHandler{engines: m, receipts: receipts}
}

func (h *DocumentHandler) engineFor(c *fiber.Ctx) (*fiscal.Engine, error) {
	family := strings.ToUpper(c.Params("family"))
	eng, ok := h.engines[family]
	if !ok {
		return nil, fmt.Errorf("família de documento desconhecida: %s", c.Params("family"))
	}
	return eng, nil
}

// Create cria um documento em rascunho.
// POST /api/documents/:family
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	doc, err := eng.Create(c.Context(), &in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDocument(doc))
}

// List lista documentos da família, paginado.
// GET /api/documents/:family
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginação inválida"})
	}
	page.DefaultPage()
	docs, err := eng.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.FromDocument(d))
	}
	return c.JSON(out)
}

// GetByID devolve um documento.
// GET /api/documents/:family/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	doc, err := eng.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Update altera itens/pagamentos/consumidor de um rascunho.
// PUT /api/documents/:family/:id
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	var in dto.UpdateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	doc, err := eng.Update(c.Context(), c.Params("id"), &in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Submit envia o documento à autorizadora.
// POST /api/documents/:family/:id/submit
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	doc, err := eng.Submit(c.Context(), c.Params("id"))
	if err != nil {
		// falha de transporte devolve o documento em ERROR junto do status
		if doc != nil {
			return c.Status(fiber.StatusBadGateway).JSON(dto.FromDocument(doc))
		}
		return fail(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Cancel cancela um documento autorizado.
// POST /api/documents/:family/:id/cancel
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	var in dto.CancelDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	doc, err := eng.Cancel(c.Context(), c.Params("id"), in.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Events devolve a trilha de eventos do documento.
// GET /api/documents/:family/:id/events
func (h *DocumentHandler) Events(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	events, err := eng.Events(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, dto.FromEvent(ev))
	}
	return c.JSON(out)
}

// Receipt devolve o extrato em PDF de um documento autorizado ou cancelado.
// GET /api/documents/:family/:id/receipt
func (h *DocumentHandler) Receipt(c *fiber.Ctx) error {
	eng, err := h.engineFor(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	doc, err := eng.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if doc.Status != entity.StatusAuthorized && doc.Status != entity.StatusCancelled {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: "documento ainda não autorizado"})
	}
	data, err := h.receipts.Generate(c.Context(), doc)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%s_%d.pdf", strings.ToLower(doc.Family), doc.Number))
	return c.Send(data)
}
