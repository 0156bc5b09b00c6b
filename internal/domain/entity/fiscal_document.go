package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Famílias de documento fiscal suportadas pelo núcleo.
const (
	FamilyNFCe = "NFCE" // Nota Fiscal de Consumidor Eletrônica (série + numeração)
	FamilyCFe  = "CFE"  // Cupom Fiscal Eletrônico (compacto, vinculado a equipamento SAT)
)

// Estados do ciclo de vida de um documento fiscal.
//
//	DRAFT → PENDING → {AUTHORIZED | REJECTED}
//	AUTHORIZED → CANCELLED
//	qualquer → ERROR (exceção de transporte); ERROR reenviável
const (
	StatusDraft      = "DRAFT"
	StatusPending    = "PENDING"
	StatusAuthorized = "AUTHORIZED"
	StatusRejected   = "REJECTED"
	StatusCancelled  = "CANCELLED"
	StatusError      = "ERROR"
)

// DocumentItem é uma linha de produto do documento.
type DocumentItem struct {
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	Unit        string          `json:"unit"` // código de unidade comercial (UN, KG, LT...)
	NCM         string          `json:"ncm"`  // classificação fiscal do produto
	CFOP        string          `json:"cfop"` // natureza da operação por item
	ICMS        decimal.Decimal `json:"icms"`
	PIS         decimal.Decimal `json:"pis"`
	COFINS      decimal.Decimal `json:"cofins"`
	Discount    decimal.Decimal `json:"discount"`
}

// Payment é uma forma de pagamento do documento. Method usa os códigos da
// tabela de meios de pagamento (pkg/fiscal).
type Payment struct {
	Method       string          `json:"method"`
	Value        decimal.Decimal `json:"value"`
	CardBrand    string          `json:"card_brand,omitempty"`
	Installments int             `json:"installments,omitempty"`
}

// Customer é o snapshot do consumidor no momento da emissão (opcional na NFC-e/CF-e).
type Customer struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"` // CPF ou CNPJ
	Email string `json:"email,omitempty"`
}

// Issuer é o snapshot do emitente (a loja) no momento da emissão.
type Issuer struct {
	Name         string `json:"name"`
	TradeName    string `json:"trade_name"`
	CNPJ         string `json:"cnpj"`
	StateReg     string `json:"state_reg"` // inscrição estadual
	Address      string `json:"address"`
	TaxRegime    string `json:"tax_regime"` // CRT: 1=Simples, 3=Normal
	Jurisdiction string `json:"jurisdiction"`
}

// AuthorizationResult é o resultado estruturado devolvido pelo transporte
// (SEFAZ ou equipamento SAT) após a autorização ou rejeição.
type AuthorizationResult struct {
	AuthorizedAt  time.Time `json:"authorized_at"`
	Protocol      string    `json:"protocol"`
	StatusCode    int       `json:"status_code"`
	StatusMessage string    `json:"status_message"`
	AccessKey     string    `json:"access_key,omitempty"`
	RawResponse   string    `json:"raw_response,omitempty"`
	QRPayload     string    `json:"qr_payload,omitempty"`
	DeviceSerial  string    `json:"device_serial,omitempty"`
}

// FiscalDocument é o documento fiscal de venda, nas duas famílias (NFC-e e
// CF-e). Itens, pagamentos, autorização e eventos pertencem ao documento por
// composição; os itens de exportação referenciam apenas o ID.
type FiscalDocument struct {
	ID                string
	Family            string
	Number            int64
	Series            string // somente NFC-e
	IssuedAt          time.Time
	Status            string
	Items             []DocumentItem
	Payments          []Payment
	Customer          *Customer
	Issuer            Issuer
	TotalValue        decimal.Decimal
	TotalDiscount     decimal.Decimal
	TotalShipping     decimal.Decimal
	TotalTaxes        decimal.Decimal
	Jurisdiction      string // UF do emitente
	OperationType     string // venda presencial, entrega, etc.
	EmissionType      string // normal ou contingência
	PresenceIndicator string
	RawPayload        string // representação de saída enviada ao transporte
	Authorization     *AuthorizationResult
	Exported          bool
	EquipmentID       string // somente CF-e, quando vinculado
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Mutable indica se o documento ainda aceita alterações.
func (d *FiscalDocument) Mutable() bool {
	return d.Status == StatusDraft || d.Status == StatusError
}

// Submittable indica se o documento pode ser enviado ao transporte.
func (d *FiscalDocument) Submittable() bool {
	return d.Status == StatusDraft || d.Status == StatusError
}

// Terminal indica se o documento atingiu um estado final.
func (d *FiscalDocument) Terminal() bool {
	return d.Status == StatusRejected || d.Status == StatusCancelled
}
