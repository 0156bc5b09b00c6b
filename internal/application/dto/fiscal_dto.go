package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// DocumentItemRequest linha de item na criação/atualização do documento.
type DocumentItemRequest struct {
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        string          `json:"unit,omitempty"`
	NCM         string          `json:"ncm,omitempty"`
	CFOP        string          `json:"cfop,omitempty"`
	ICMS        decimal.Decimal `json:"icms,omitempty"`
	PIS         decimal.Decimal `json:"pis,omitempty"`
	COFINS      decimal.Decimal `json:"cofins,omitempty"`
	Discount    decimal.Decimal `json:"discount,omitempty"`
}

// PaymentRequest forma de pagamento na criação do documento.
type PaymentRequest struct {
	Method       string          `json:"method"`
	Value        decimal.Decimal `json:"value"`
	CardBrand    string          `json:"card_brand,omitempty"`
	Installments int             `json:"installments,omitempty"`
}

// CreateDocumentRequest body para POST /api/documents/{nfce|cfe}.
type CreateDocumentRequest struct {
	Series            string                `json:"series,omitempty"` // somente NFC-e
	Jurisdiction      string                `json:"jurisdiction"`
	Items             []DocumentItemRequest `json:"items"`
	Payments          []PaymentRequest      `json:"payments"`
	Customer          *CustomerRequest      `json:"customer,omitempty"`
	Issuer            IssuerRequest         `json:"issuer"`
	TotalDiscount     decimal.Decimal       `json:"total_discount,omitempty"`
	TotalShipping     decimal.Decimal       `json:"total_shipping,omitempty"`
	OperationType     string                `json:"operation_type,omitempty"`
	EmissionType      string                `json:"emission_type,omitempty"`
	PresenceIndicator string                `json:"presence_indicator,omitempty"`
}

// UpdateDocumentRequest patch parcial de um documento em DRAFT/ERROR. Campos
// nil mantêm o valor atual.
type UpdateDocumentRequest struct {
	Items    []DocumentItemRequest `json:"items,omitempty"`
	Payments []PaymentRequest      `json:"payments,omitempty"`
	Customer *CustomerRequest      `json:"customer,omitempty"`
}

// CustomerRequest snapshot do consumidor.
type CustomerRequest struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
	Email string `json:"email,omitempty"`
}

// IssuerRequest snapshot do emitente.
type IssuerRequest struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	CNPJ      string `json:"cnpj"`
	StateReg  string `json:"state_reg,omitempty"`
	Address   string `json:"address,omitempty"`
	TaxRegime string `json:"tax_regime,omitempty"`
}

// CancelDocumentRequest body para POST /api/documents/:family/:id/cancel.
type CancelDocumentRequest struct {
	Reason string `json:"reason"`
}

// EventResponse evento do documento nas respostas.
type EventResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status"`
	Protocol   string    `json:"protocol,omitempty"`
}

// FromEvent converte a entidade para a resposta HTTP.
func FromEvent(ev *entity.DocumentEvent) *EventResponse {
	return &EventResponse{
		ID:         ev.ID,
		Type:       ev.Type,
		OccurredAt: ev.OccurredAt,
		Reason:     ev.Reason,
		Status:     ev.Status,
		Protocol:   ev.Protocol,
	}
}

// DocumentResponse documento fiscal nas respostas.
type DocumentResponse struct {
	ID            string                      `json:"id"`
	Family        string                      `json:"family"`
	Number        int64                       `json:"number"`
	Series        string                      `json:"series,omitempty"`
	IssuedAt      time.Time                   `json:"issued_at"`
	Status        string                      `json:"status"`
	Jurisdiction  string                      `json:"jurisdiction"`
	TotalValue    decimal.Decimal             `json:"total_value"`
	TotalTaxes    decimal.Decimal             `json:"total_taxes"`
	Exported      bool                        `json:"exported"`
	EquipmentID   string                      `json:"equipment_id,omitempty"`
	Authorization *entity.AuthorizationResult `json:"authorization,omitempty"`
	Items         []entity.DocumentItem       `json:"items"`
	Payments      []entity.Payment            `json:"payments"`
}

// FromDocument converte a entidade para a resposta HTTP.
func FromDocument(d *entity.FiscalDocument) *DocumentResponse {
	return &DocumentResponse{
		ID:            d.ID,
		Family:        d.Family,
		Number:        d.Number,
		Series:        d.Series,
		IssuedAt:      d.IssuedAt,
		Status:        d.Status,
		Jurisdiction:  d.Jurisdiction,
		TotalValue:    d.TotalValue,
		TotalTaxes:    d.TotalTaxes,
		Exported:      d.Exported,
		EquipmentID:   d.EquipmentID,
		Authorization: d.Authorization,
		Items:         d.Items,
		Payments:      d.Payments,
	}
}
