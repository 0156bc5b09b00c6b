// Package fiscal contém validações de domínio dos documentos fiscais de
// venda (NFC-e e CF-e), independentes de persistência e transporte.
package fiscal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// PaymentTolerance é a tolerância de um centavo entre a soma dos pagamentos
// e o valor total do documento.
var PaymentTolerance = decimal.New(1, -2) // 0.01

// ValidateDocument aplica as invariantes de criação/atualização: campos
// obrigatórios, listas não vazias, soma dos pagamentos e limites da
// jurisdição. Retorna domain.ErrInvalidInput envolvendo os motivos.
func ValidateDocument(doc *entity.FiscalDocument, rule *entity.JurisdictionRule) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", domain.ErrInvalidInput)
	}
	var errs []error

	if doc.Family != entity.FamilyNFCe && doc.Family != entity.FamilyCFe {
		errs = append(errs, fmt.Errorf("família desconhecida %q", doc.Family))
	}
	if doc.Jurisdiction == "" {
		errs = append(errs, errors.New("jurisdição (UF) obrigatória"))
	}
	if doc.Issuer.CNPJ == "" || doc.Issuer.Name == "" {
		errs = append(errs, errors.New("emitente incompleto: razão social e CNPJ são obrigatórios"))
	}

	if len(doc.Items) == 0 {
		errs = append(errs, errors.New("documento deve ter ao menos um item"))
	}
	if len(doc.Payments) == 0 {
		errs = append(errs, errors.New("documento deve ter ao menos um pagamento"))
	}
	if rule != nil && len(doc.Items) > rule.MaxItems() {
		errs = append(errs, fmt.Errorf("jurisdição %s limita o documento a %d itens (recebidos %d)",
			rule.UF, rule.MaxItems(), len(doc.Items)))
	}

	for i, item := range doc.Items {
		if item.ProductCode == "" || item.Description == "" {
			errs = append(errs, fmt.Errorf("item %d: código e descrição obrigatórios", i+1))
		}
		if !item.Quantity.GreaterThan(decimal.Zero) {
			errs = append(errs, fmt.Errorf("item %d: quantidade deve ser positiva", i+1))
		}
		if item.UnitPrice.LessThan(decimal.Zero) {
			errs = append(errs, fmt.Errorf("item %d: preço unitário negativo", i+1))
		}
	}

	var paid decimal.Decimal
	for i, p := range doc.Payments {
		if p.Method == "" {
			errs = append(errs, fmt.Errorf("pagamento %d: meio de pagamento obrigatório", i+1))
		}
		if !p.Value.GreaterThan(decimal.Zero) {
			errs = append(errs, fmt.Errorf("pagamento %d: valor deve ser positivo", i+1))
		}
		paid = paid.Add(p.Value)
	}
	if len(doc.Payments) > 0 {
		if diff := paid.Sub(doc.TotalValue).Abs(); diff.GreaterThan(PaymentTolerance) {
			errs = append(errs, fmt.Errorf("soma dos pagamentos (%s) difere do total do documento (%s)",
				paid.StringFixed(2), doc.TotalValue.StringFixed(2)))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidInput}, errs...)...)
	}
	return nil
}

// SumItems calcula o total dos itens (total da linha menos desconto), usado
// para conferir o TotalValue informado.
func SumItems(items []entity.DocumentItem) decimal.Decimal {
	var sum decimal.Decimal
	for _, it := range items {
		sum = sum.Add(it.Total.Sub(it.Discount))
	}
	return sum
}
