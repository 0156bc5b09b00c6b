// Package fiscal implementa o motor de emissão de documentos fiscais de
// venda. Um Engine por família (NFC-e, CF-e); o que difere entre elas fica
// na FamilyPolicy.
package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	domfiscal "github.com/vlourenco/pdv-fiscal/internal/domain/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	"github.com/vlourenco/pdv-fiscal/pkg/locker"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// Engine orquestra o ciclo de vida de uma família de documento: criação em
// DRAFT, submissão ao transporte, cancelamento por evento e marcação de
// exportação. Operações sobre o mesmo documento são serializadas por lock
// de chave; escritas concorrentes de processos distintos caem na checagem
// otimista de versão do repositório.
type Engine struct {
	policy    FamilyPolicy
	docs      repository.FiscalDocumentRepository
	events    repository.DocumentEventRepository
	rules     *jurisdiction.Resolver
	transport Transport
	locks     *locker.Keyed
	log       *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewEngine constrói o motor de uma família.
func NewEngine(
	policy FamilyPolicy,
	docs repository.FiscalDocumentRepository,
	events repository.DocumentEventRepository,
	rules *jurisdiction.Resolver,
	transport Transport,
	locks *locker.Keyed,
	log *logger.Logger,
	timeout time.Duration,
) *Engine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		policy:    policy,
		docs:      docs,
		events:    events,
		rules:     rules,
		transport: transport,
		locks:     locks,
		log:       log,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Family devolve a família atendida por este motor.
func (e *Engine) Family() string { return e.policy.Family() }

// Create valida e persiste um documento em DRAFT. Totais são calculados a
// partir dos itens; a numeração vem da sequência da família/série; no CF-e
// a política resolve o vínculo de equipamento.
func (e *Engine) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*entity.FiscalDocument, error) {
	now := e.now()
	doc := &entity.FiscalDocument{
		ID:                uuid.NewString(),
		Family:            e.policy.Family(),
		Series:            req.Series,
		IssuedAt:          now,
		Status:            entity.StatusDraft,
		Items:             buildItems(req.Items),
		Payments:          buildPayments(req.Payments),
		Issuer:            buildIssuer(req.Issuer, req.Jurisdiction),
		Jurisdiction:      req.Jurisdiction,
		TotalDiscount:     req.TotalDiscount,
		TotalShipping:     req.TotalShipping,
		OperationType:     req.OperationType,
		EmissionType:      req.EmissionType,
		PresenceIndicator: req.PresenceIndicator,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Customer != nil {
		doc.Customer = &entity.Customer{
			Name:  req.Customer.Name,
			TaxID: req.Customer.TaxID,
			Email: req.Customer.Email,
		}
	}
	recomputeTotals(doc)

	rule := e.rules.Resolve(ctx, doc.Jurisdiction)
	if err := domfiscal.ValidateDocument(doc, rule); err != nil {
		return nil, err
	}
	if err := e.policy.Validate(doc, rule); err != nil {
		return nil, err
	}
	if err := e.policy.Prepare(ctx, doc, rule); err != nil {
		return nil, err
	}

	number, err := e.docs.NextNumber(ctx, doc.Family, doc.Series)
	if err != nil {
		return nil, fmt.Errorf("numeração do documento: %w", err)
	}
	doc.Number = number

	if err := e.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("document_id", doc.ID).
		Str("family", doc.Family).
		Int64("number", doc.Number).
		Str("uf", doc.Jurisdiction).
		Msg("documento fiscal criado")
	return doc, nil
}

// Update aplica um patch parcial a um documento ainda mutável (DRAFT ou
// ERROR) e revalida as invariantes. Campos ausentes no patch mantêm o
// valor atual.
func (e *Engine) Update(ctx context.Context, id string, req *dto.UpdateDocumentRequest) (*entity.FiscalDocument, error) {
	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	doc, err := e.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Mutable() {
		return nil, fmt.Errorf("%w: documento %s em %s não aceita alterações", domain.ErrInvalidState, id, doc.Status)
	}

	if req.Items != nil {
		doc.Items = buildItems(req.Items)
	}
	if req.Payments != nil {
		doc.Payments = buildPayments(req.Payments)
	}
	if req.Customer != nil {
		doc.Customer = &entity.Customer{
			Name:  req.Customer.Name,
			TaxID: req.Customer.TaxID,
			Email: req.Customer.Email,
		}
	}
	recomputeTotals(doc)

	rule := e.rules.Resolve(ctx, doc.Jurisdiction)
	if err := domfiscal.ValidateDocument(doc, rule); err != nil {
		return nil, err
	}
	if err := e.policy.Validate(doc, rule); err != nil {
		return nil, err
	}

	doc.UpdatedAt = e.now()
	if err := e.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Submit envia o documento ao transporte da família. O documento passa por
// PENDING durante a chamada; a resposta decide AUTHORIZED ou REJECTED.
// Exceções de transporte (rede, timeout) deixam o documento em ERROR, de
// onde um novo Submit pode ser tentado.
func (e *Engine) Submit(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	doc, err := e.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Submittable() {
		return nil, fmt.Errorf("%w: documento %s em %s não pode ser submetido", domain.ErrInvalidState, id, doc.Status)
	}

	rule := e.rules.Resolve(ctx, doc.Jurisdiction)
	if err := domfiscal.ValidateDocument(doc, rule); err != nil {
		return nil, err
	}

	payload, err := BuildPayload(doc, e.policy)
	if err != nil {
		return nil, fmt.Errorf("montagem do payload: %w", err)
	}
	doc.RawPayload = payload
	doc.Status = entity.StatusPending
	doc.UpdatedAt = e.now()
	if err := e.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.transport.Submit(tctx, doc)
	if err != nil {
		doc.Status = entity.StatusError
		doc.Authorization = &entity.AuthorizationResult{
			StatusMessage: "falha de comunicação com a autorizadora",
			RawResponse:   err.Error(),
		}
		doc.UpdatedAt = e.now()
		if uerr := e.docs.Update(ctx, doc); uerr != nil {
			e.log.Error().Err(uerr).Str("document_id", id).Msg("não foi possível gravar o estado ERROR")
		}
		e.log.Warn().Err(err).Str("document_id", id).Msg("submissão falhou no transporte")
		return doc, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	auth := res.Authorization
	if auth.AuthorizedAt.IsZero() {
		auth.AuthorizedAt = e.now()
	}
	doc.Authorization = &auth
	if res.Accepted {
		doc.Status = entity.StatusAuthorized
	} else {
		doc.Status = entity.StatusRejected
	}
	doc.UpdatedAt = e.now()
	if err := e.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("document_id", doc.ID).
		Str("status", doc.Status).
		Str("protocol", auth.Protocol).
		Msg("submissão concluída")
	return doc, nil
}

// Cancel registra um evento de cancelamento para um documento AUTHORIZED.
// Cada tentativa vira uma linha na trilha de eventos; só o sucesso do
// transporte muda o documento para CANCELLED.
func (e *Engine) Cancel(ctx context.Context, id, reason string) (*entity.FiscalDocument, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: motivo do cancelamento é obrigatório", domain.ErrInvalidInput)
	}

	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	doc, err := e.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.StatusAuthorized {
		return nil, fmt.Errorf("%w: somente documentos autorizados podem ser cancelados (atual %s)", domain.ErrInvalidState, doc.Status)
	}

	ev := &entity.DocumentEvent{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Type:       entity.EventCancellation,
		OccurredAt: e.now(),
		Reason:     reason,
	}

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.transport.SendEvent(tctx, doc, ev)
	if err != nil {
		ev.Status = entity.EventStatusFailed
		ev.RawResponse = err.Error()
		if aerr := e.events.Append(ctx, ev); aerr != nil {
			e.log.Error().Err(aerr).Str("document_id", id).Msg("não foi possível gravar evento de cancelamento falho")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	ev.Status = entity.EventStatusCompleted
	ev.Protocol = res.Protocol
	ev.RawResponse = res.RawResponse
	if err := e.events.Append(ctx, ev); err != nil {
		return nil, err
	}

	doc.Status = entity.StatusCancelled
	doc.UpdatedAt = e.now()
	if err := e.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("document_id", doc.ID).
		Str("protocol", res.Protocol).
		Msg("documento cancelado")
	return doc, nil
}

// MarkExported marca o documento como incluído em um lote contábil. A
// operação é idempotente: marcar de novo não é erro e não altera nada.
// Somente documentos AUTHORIZED ou CANCELLED são exportáveis.
func (e *Engine) MarkExported(ctx context.Context, id string) error {
	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	doc, err := e.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Exported {
		return nil
	}
	if doc.Status != entity.StatusAuthorized && doc.Status != entity.StatusCancelled {
		return fmt.Errorf("%w: documento %s em %s não é exportável", domain.ErrInvalidState, id, doc.Status)
	}
	doc.Exported = true
	doc.UpdatedAt = e.now()
	return e.docs.Update(ctx, doc)
}

// GetByID devolve o documento com itens, pagamentos e autorização.
func (e *Engine) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return e.docs.GetByID(ctx, id)
}

// List devolve documentos da família, paginados.
func (e *Engine) List(ctx context.Context, limit, offset int) ([]*entity.FiscalDocument, error) {
	return e.docs.List(ctx, e.policy.Family(), limit, offset)
}

// ListForAccounting devolve os documentos exportáveis da família no
// período, ainda não marcados como exportados.
func (e *Engine) ListForAccounting(ctx context.Context, from, to time.Time) ([]*entity.FiscalDocument, error) {
	return e.docs.ListForAccounting(ctx, e.policy.Family(), from, to)
}

// Events devolve a trilha de eventos do documento.
func (e *Engine) Events(ctx context.Context, id string) ([]*entity.DocumentEvent, error) {
	if _, err := e.docs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return e.events.ListByDocument(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// construção e totais
// ─────────────────────────────────────────────────────────────────────────────

func buildItems(in []dto.DocumentItemRequest) []entity.DocumentItem {
	items := make([]entity.DocumentItem, 0, len(in))
	for _, r := range in {
		items = append(items, entity.DocumentItem{
			ProductCode: r.ProductCode,
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			Total:       r.Quantity.Mul(r.UnitPrice).Round(2),
			Unit:        r.Unit,
			NCM:         r.NCM,
			CFOP:        r.CFOP,
			ICMS:        r.ICMS,
			PIS:         r.PIS,
			COFINS:      r.COFINS,
			Discount:    r.Discount,
		})
	}
	return items
}

func buildPayments(in []dto.PaymentRequest) []entity.Payment {
	payments := make([]entity.Payment, 0, len(in))
	for _, r := range in {
		payments = append(payments, entity.Payment{
			Method:       r.Method,
			Value:        r.Value,
			CardBrand:    r.CardBrand,
			Installments: r.Installments,
		})
	}
	return payments
}

func buildIssuer(in dto.IssuerRequest, uf string) entity.Issuer {
	return entity.Issuer{
		Name:         in.Name,
		TradeName:    in.TradeName,
		CNPJ:         in.CNPJ,
		StateReg:     in.StateReg,
		Address:      in.Address,
		TaxRegime:    in.TaxRegime,
		Jurisdiction: uf,
	}
}

// recomputeTotals deriva os totais do documento a partir dos itens. O
// desconto por item já entra no total da linha; TotalDiscount é o desconto
// adicional do documento.
func recomputeTotals(doc *entity.FiscalDocument) {
	doc.TotalValue = domfiscal.SumItems(doc.Items).
		Sub(doc.TotalDiscount).
		Add(doc.TotalShipping).
		Round(2)

	var taxes decimal.Decimal
	for _, it := range doc.Items {
		taxes = taxes.Add(it.ICMS).Add(it.PIS).Add(it.COFINS)
	}
	doc.TotalTaxes = taxes.Round(2)
}
