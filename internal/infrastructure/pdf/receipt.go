// Package pdf implementa a geração do extrato do documento fiscal de consumo
// (DANFE NFC-e / extrato do CF-e) em formato de bobina de 80mm.
//
// Layout do cupom:
//
//	┌──────────────────────────────┐
//	│  EMITENTE: razão social/CNPJ │
//	│  ────────────────────────    │
//	│  DOCUMENTO: família/nº/data  │
//	│  ITENS: qtd x unit = total   │
//	│  ────────────────────────    │
//	│  TOTAIS + PAGAMENTOS         │
//	│  ────────────────────────    │
//	│  CHAVE DE ACESSO + QR        │
//	│  CONSUMIDOR + protocolo      │
//	└──────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/linestyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// ── Paleta ────────────────────────────────────────────────────────────────────

var (
	colorInk  = &props.Color{Red: 20, Green: 20, Blue: 20}
	colorGray = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Nomes de exibição dos meios de pagamento (tabela tPag).
var paymentNames = map[string]string{
	"01": "Dinheiro",
	"02": "Cheque",
	"03": "Cartão de crédito",
	"04": "Cartão de débito",
	"05": "Crédito loja",
	"10": "Vale alimentação",
	"11": "Vale refeição",
	"17": "PIX",
	"99": "Outros",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// ReceiptGenerator gera o extrato em PDF de um documento fiscal usando Maroto v2.
type ReceiptGenerator struct{}

// NewReceiptGenerator constrói o gerador.
func NewReceiptGenerator() *ReceiptGenerator { return &ReceiptGenerator{} }

// Generate gera o PDF do extrato e devolve seus bytes.
func (g *ReceiptGenerator) Generate(_ context.Context, doc *entity.FiscalDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithDimensions(80, 260).
		WithLeftMargin(4).WithRightMargin(4).
		WithTopMargin(4).WithBottomMargin(4).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 7}).
		WithTitle(documentTitle(doc), true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	// Cabeçalho do emitente
	m.AddRows(issuerRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3, Style: linestyle.Dashed}))

	// Identificação do documento
	m.AddRows(identificationRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3, Style: linestyle.Dashed}))

	// Itens
	m.AddRows(itemHeaderRow())
	for _, r := range itemRows(doc.Items) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3, Style: linestyle.Dashed}))

	// Totais e pagamentos
	m.AddRows(totalRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3, Style: linestyle.Dashed}))

	// Bloco fiscal: chave, QR, consumidor, protocolo
	m.AddRows(fiscalRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("gerar extrato do documento %s: %w", doc.ID, err)
	}
	return out.GetBytes(), nil
}

// ── Seções ────────────────────────────────────────────────────────────────────

func issuerRows(doc *entity.FiscalDocument) []core.Row {
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(text.New(
			nonEmpty(doc.Issuer.TradeName, doc.Issuer.Name),
			props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Center, Color: colorInk},
		))),
		row.New(3.5).Add(col.New(12).Add(text.New(
			"CNPJ: "+formatCNPJ(doc.Issuer.CNPJ)+"  IE: "+nonEmpty(doc.Issuer.StateReg, "ISENTO"),
			props.Text{Size: 6.5, Align: align.Center, Color: colorGray},
		))),
	}
	if doc.Issuer.Address != "" {
		rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
			doc.Issuer.Address,
			props.Text{Size: 6.5, Align: align.Center, Color: colorGray},
		))))
	}
	return rows
}

func identificationRows(doc *entity.FiscalDocument) []core.Row {
	ident := fmt.Sprintf("Nº %06d", doc.Number)
	if doc.Series != "" {
		ident += "  Série " + doc.Series
	}
	rows := []core.Row{
		row.New(4).Add(col.New(12).Add(text.New(
			documentTitle(doc),
			props.Text{Style: fontstyle.Bold, Size: 7.5, Align: align.Center, Color: colorInk},
		))),
		row.New(3.5).Add(
			col.New(6).Add(text.New(ident, props.Text{Size: 7, Color: colorInk})),
			col.New(6).Add(text.New(
				doc.IssuedAt.Format("02/01/2006 15:04:05"),
				props.Text{Size: 7, Align: align.Right, Color: colorInk},
			)),
		),
	}
	if doc.Status == entity.StatusCancelled {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(
			"*** DOCUMENTO CANCELADO ***",
			props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Color: colorInk},
		))))
	}
	return rows
}

func itemHeaderRow() core.Row {
	header := func(s string, a align.Type) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 6.5, Align: a, Color: colorInk})
	}
	return row.New(3.5).Add(
		col.New(6).Add(header("Descrição", align.Left)),
		col.New(2).Add(header("Qtd", align.Right)),
		col.New(2).Add(header("V.Unit", align.Right)),
		col.New(2).Add(header("Total", align.Right)),
	)
}

func itemRows(items []entity.DocumentItem) []core.Row {
	cell := func(s string, a align.Type) core.Component {
		return text.New(s, props.Text{Size: 6.5, Align: a, Color: colorInk})
	}
	var result []core.Row
	for _, it := range items {
		result = append(result, row.New(3.5).Add(
			col.New(6).Add(cell(it.Description, align.Left)),
			col.New(2).Add(cell(it.Quantity.String(), align.Right)),
			col.New(2).Add(cell(formatBRL(it.UnitPrice), align.Right)),
			col.New(2).Add(cell(formatBRL(it.Total), align.Right)),
		))
		if it.Discount.IsPositive() {
			result = append(result, row.New(3).Add(
				col.New(8).Add(cell("  desconto", align.Left)),
				col.New(4).Add(cell("-"+formatBRL(it.Discount), align.Right)),
			))
		}
	}
	return result
}

func totalRows(doc *entity.FiscalDocument) []core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Size: 7, Color: colorInk})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 7, Align: align.Right, Color: colorInk})
	}

	rows := []core.Row{
		row.New(3.5).Add(
			col.New(7).Add(label(fmt.Sprintf("Qtd. total de itens: %d", len(doc.Items)))),
			col.New(5),
		),
	}
	if doc.TotalDiscount.IsPositive() {
		rows = append(rows, row.New(3.5).Add(
			col.New(7).Add(label("Descontos")),
			col.New(5).Add(value("-R$ "+formatBRL(doc.TotalDiscount))),
		))
	}
	rows = append(rows, row.New(4.5).Add(
		col.New(7).Add(text.New("VALOR TOTAL", props.Text{
			Style: fontstyle.Bold, Size: 8.5, Color: colorInk,
		})),
		col.New(5).Add(text.New("R$ "+formatBRL(doc.TotalValue), props.Text{
			Style: fontstyle.Bold, Size: 8.5, Align: align.Right, Color: colorInk,
		})),
	))

	for _, p := range doc.Payments {
		name := paymentNames[p.Method]
		if name == "" {
			name = "Meio " + p.Method
		}
		if p.Installments > 1 {
			name += fmt.Sprintf(" %dx", p.Installments)
		}
		rows = append(rows, row.New(3.5).Add(
			col.New(7).Add(label(name)),
			col.New(5).Add(value("R$ "+formatBRL(p.Value))),
		))
	}

	// Lei 12.741/2012: tributos aproximados incidentes sobre a venda.
	rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
		"Tributos totais incidentes (Lei Federal 12.741/2012): R$ "+formatBRL(doc.TotalTaxes),
		props.Text{Size: 6, Color: colorGray},
	))))
	return rows
}

func fiscalRows(doc *entity.FiscalDocument) []core.Row {
	var rows []core.Row

	auth := doc.Authorization
	if auth != nil && auth.AccessKey != "" {
		rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
			"Consulte pela chave de acesso:",
			props.Text{Style: fontstyle.Bold, Size: 6.5, Align: align.Center, Color: colorInk},
		))))
		rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
			groupAccessKey(auth.AccessKey),
			props.Text{Size: 6, Align: align.Center, Color: colorGray},
		))))
	}

	rows = append(rows, consumerRow(doc))

	if auth != nil && auth.QRPayload != "" {
		rows = append(rows, row.New(34).Add(
			col.New(3),
			col.New(6).Add(code.NewQr(auth.QRPayload, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(3),
		))
	}

	if auth != nil && auth.Protocol != "" {
		protocol := "Protocolo de autorização: " + auth.Protocol
		if !auth.AuthorizedAt.IsZero() {
			protocol += "  " + auth.AuthorizedAt.Format("02/01/2006 15:04:05")
		}
		rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
			protocol,
			props.Text{Size: 6, Align: align.Center, Color: colorGray},
		))))
	}
	if auth != nil && auth.DeviceSerial != "" {
		rows = append(rows, row.New(3.5).Add(col.New(12).Add(text.New(
			"SAT nº de série: "+auth.DeviceSerial,
			props.Text{Size: 6, Align: align.Center, Color: colorGray},
		))))
	}
	return rows
}

func consumerRow(doc *entity.FiscalDocument) core.Row {
	label := "CONSUMIDOR NÃO IDENTIFICADO"
	if c := doc.Customer; c != nil && c.TaxID != "" {
		label = "CONSUMIDOR: " + formatTaxID(c.TaxID)
		if c.Name != "" {
			label += " - " + c.Name
		}
	}
	return row.New(4).Add(col.New(12).Add(text.New(
		label,
		props.Text{Size: 6.5, Align: align.Center, Color: colorInk},
	)))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func documentTitle(doc *entity.FiscalDocument) string {
	if doc.Family == entity.FamilyCFe {
		return "Extrato - Cupom Fiscal Eletrônico SAT"
	}
	return "DANFE NFC-e - Documento Auxiliar da NFC-e"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatBRL formata um decimal no padrão brasileiro de duas casas.
// Ex: 1234.50 → "1.234,50"
func formatBRL(v decimal.Decimal) string {
	s := v.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, intPart[i])
	}
	out := string(buf) + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatCNPJ aplica a máscara 00.000.000/0000-00.
func formatCNPJ(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return cnpj[:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:]
}

// formatTaxID mascara CPF (11 dígitos) ou CNPJ (14 dígitos).
func formatTaxID(id string) string {
	if len(id) == 11 {
		return id[:3] + "." + id[3:6] + "." + id[6:9] + "-" + id[9:]
	}
	return formatCNPJ(id)
}

// groupAccessKey separa a chave de 44 dígitos em grupos de 4.
func groupAccessKey(key string) string {
	var parts []string
	for len(key) > 4 {
		parts = append(parts, key[:4])
		key = key[4:]
	}
	if key != "" {
		parts = append(parts, key)
	}
	return strings.Join(parts, " ")
}
