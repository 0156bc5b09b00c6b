package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementação de FiscalDocumentRepository sobre
// PostgreSQL. Itens, pagamentos, consumidor, emitente e autorização são
// colunas JSONB; o documento é gravado e lido inteiro.
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository constrói o adaptador. Aceita pool ou tx.
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

const documentColumns = `
	id, family, number, series, issued_at, status,
	items, payments, customer, issuer,
	total_value, total_discount, total_shipping, total_taxes,
	jurisdiction, operation_type, emission_type, presence_indicator,
	raw_payload, authorization_result, exported, equipment_id,
	version, created_at, updated_at`

// Create persiste o documento completo em DRAFT.
func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	items, payments, customer, issuer, auth, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO fiscal_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.Family, doc.Number, nullIfEmpty(doc.Series), doc.IssuedAt, doc.Status,
		items, payments, customer, issuer,
		doc.TotalValue, doc.TotalDiscount, doc.TotalShipping, doc.TotalTaxes,
		doc.Jurisdiction, nullIfEmpty(doc.OperationType), nullIfEmpty(doc.EmissionType), nullIfEmpty(doc.PresenceIndicator),
		nullIfEmpty(doc.RawPayload), auth, doc.Exported, nullIfEmpty(doc.EquipmentID),
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: documento %s/%d", domain.ErrDuplicate, doc.Family, doc.Number)
		}
		return fmt.Errorf("insert documento: %w", err)
	}
	return nil
}

// Update grava o documento inteiro com checagem otimista: a escrita só
// acontece se a versão persistida for a carregada. Em sucesso a versão do
// ponteiro é incrementada junto com a do banco.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	items, payments, customer, issuer, auth, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	query := `
		UPDATE fiscal_documents
		SET status = $3, items = $4, payments = $5, customer = $6,
		    total_value = $7, total_discount = $8, total_shipping = $9, total_taxes = $10,
		    raw_payload = $11, authorization_result = $12, exported = $13,
		    equipment_id = $14, issuer = $15, version = version + 1, updated_at = $16
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, doc.Version,
		doc.Status, items, payments, customer,
		doc.TotalValue, doc.TotalDiscount, doc.TotalShipping, doc.TotalTaxes,
		nullIfEmpty(doc.RawPayload), auth, doc.Exported,
		nullIfEmpty(doc.EquipmentID), issuer, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update documento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.GetByID(ctx, doc.ID); gerr != nil {
			return gerr
		}
		return fmt.Errorf("%w: documento %s foi alterado por outra operação", domain.ErrConflict, doc.ID)
	}
	doc.Version++
	return nil
}

// GetByID devolve o documento completo.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get documento: %w", err)
	}
	return doc, nil
}

// NextNumber devolve o próximo número da sequência família/série, de forma
// atômica via upsert.
func (r *FiscalDocumentRepo) NextNumber(ctx context.Context, family, series string) (int64, error) {
	query := `
		INSERT INTO document_sequences (family, series, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (family, series) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`
	var number int64
	if err := r.q.QueryRow(ctx, query, family, series).Scan(&number); err != nil {
		return 0, fmt.Errorf("próximo número da sequência: %w", err)
	}
	return number, nil
}

// ListForAccounting devolve documentos exportáveis (AUTHORIZED ou
// CANCELLED, não exportados) do período, ordenados por emissão.
func (r *FiscalDocumentRepo) ListForAccounting(ctx context.Context, family string, from, to time.Time) ([]*entity.FiscalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM fiscal_documents
		WHERE family = $1
		  AND status IN ($2, $3)
		  AND exported = FALSE
		  AND issued_at BETWEEN $4 AND $5
		ORDER BY issued_at`
	rows, err := r.q.Query(ctx, query, family, entity.StatusAuthorized, entity.StatusCancelled, from, to)
	if err != nil {
		return nil, fmt.Errorf("listar documentos para exportação: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// List devolve documentos da família, paginados por criação decrescente.
func (r *FiscalDocumentRepo) List(ctx context.Context, family string, limit, offset int) ([]*entity.FiscalDocument, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT ` + documentColumns + `
		FROM fiscal_documents
		WHERE family = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, family, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func marshalDocument(doc *entity.FiscalDocument) (items, payments, customer, issuer, auth []byte, err error) {
	if items, err = json.Marshal(doc.Items); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("serializar itens: %w", err)
	}
	if payments, err = json.Marshal(doc.Payments); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("serializar pagamentos: %w", err)
	}
	if doc.Customer != nil {
		if customer, err = json.Marshal(doc.Customer); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("serializar consumidor: %w", err)
		}
	}
	if issuer, err = json.Marshal(doc.Issuer); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("serializar emitente: %w", err)
	}
	if doc.Authorization != nil {
		if auth, err = json.Marshal(doc.Authorization); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("serializar autorização: %w", err)
		}
	}
	return items, payments, customer, issuer, auth, nil
}

func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	var series, operationType, emissionType, presence, rawPayload, equipmentID *string
	var items, payments, customer, issuer, auth []byte

	err := row.Scan(
		&d.ID, &d.Family, &d.Number, &series, &d.IssuedAt, &d.Status,
		&items, &payments, &customer, &issuer,
		&d.TotalValue, &d.TotalDiscount, &d.TotalShipping, &d.TotalTaxes,
		&d.Jurisdiction, &operationType, &emissionType, &presence,
		&rawPayload, &auth, &d.Exported, &equipmentID,
		&d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Series = deref(series)
	d.OperationType = deref(operationType)
	d.EmissionType = deref(emissionType)
	d.PresenceIndicator = deref(presence)
	d.RawPayload = deref(rawPayload)
	d.EquipmentID = deref(equipmentID)

	if err := json.Unmarshal(items, &d.Items); err != nil {
		return nil, fmt.Errorf("desserializar itens: %w", err)
	}
	if err := json.Unmarshal(payments, &d.Payments); err != nil {
		return nil, fmt.Errorf("desserializar pagamentos: %w", err)
	}
	if len(customer) > 0 {
		d.Customer = &entity.Customer{}
		if err := json.Unmarshal(customer, d.Customer); err != nil {
			return nil, fmt.Errorf("desserializar consumidor: %w", err)
		}
	}
	if err := json.Unmarshal(issuer, &d.Issuer); err != nil {
		return nil, fmt.Errorf("desserializar emitente: %w", err)
	}
	if len(auth) > 0 {
		d.Authorization = &entity.AuthorizationResult{}
		if err := json.Unmarshal(auth, d.Authorization); err != nil {
			return nil, fmt.Errorf("desserializar autorização: %w", err)
		}
	}
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]*entity.FiscalDocument, error) {
	var out []*entity.FiscalDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var _ repository.DocumentEventRepository = (*DocumentEventRepo)(nil)

// DocumentEventRepo trilha de eventos append-only sobre PostgreSQL.
type DocumentEventRepo struct {
	q Querier
}

// NewDocumentEventRepository constrói o adaptador.
func NewDocumentEventRepository(q Querier) *DocumentEventRepo {
	return &DocumentEventRepo{q: q}
}

// Append grava uma tentativa de evento. Linhas nunca são atualizadas.
func (r *DocumentEventRepo) Append(ctx context.Context, ev *entity.DocumentEvent) error {
	query := `
		INSERT INTO document_events (id, document_id, type, occurred_at, reason, status, protocol, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		ev.ID, ev.DocumentID, ev.Type, ev.OccurredAt, ev.Reason,
		ev.Status, nullIfEmpty(ev.Protocol), nullIfEmpty(ev.RawResponse),
	)
	if err != nil {
		return fmt.Errorf("insert evento: %w", err)
	}
	return nil
}

// ListByDocument devolve os eventos do documento em ordem cronológica.
func (r *DocumentEventRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.DocumentEvent, error) {
	query := `
		SELECT id, document_id, type, occurred_at, reason, status, protocol, raw_response
		FROM document_events
		WHERE document_id = $1
		ORDER BY occurred_at`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("listar eventos: %w", err)
	}
	defer rows.Close()

	var out []*entity.DocumentEvent
	for rows.Next() {
		var ev entity.DocumentEvent
		var protocol, rawResponse *string
		if err := rows.Scan(&ev.ID, &ev.DocumentID, &ev.Type, &ev.OccurredAt,
			&ev.Reason, &ev.Status, &protocol, &rawResponse); err != nil {
			return nil, err
		}
		ev.Protocol = deref(protocol)
		ev.RawResponse = deref(rawResponse)
		out = append(out, &ev)
	}
	return out, rows.Err()
}
