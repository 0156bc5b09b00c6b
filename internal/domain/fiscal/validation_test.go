package fiscal_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/fiscal"
)

func validDoc() *entity.FiscalDocument {
	return &entity.FiscalDocument{
		Family:       entity.FamilyNFCe,
		Jurisdiction: "RS",
		IssuedAt:     time.Now(),
		Issuer: entity.Issuer{
			Name: "Cantina Bella Napoli Ltda",
			CNPJ: "11222333000181",
		},
		Items: []entity.DocumentItem{{
			ProductCode: "PZ-01",
			Description: "Pizza margherita",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromFloat(10.00),
			Total:       decimal.NewFromFloat(20.00),
			Unit:        "UN",
		}},
		Payments: []entity.Payment{{
			Method: "01",
			Value:  decimal.NewFromFloat(20.00),
		}},
		TotalValue: decimal.NewFromFloat(20.00),
	}
}

func TestValidateDocument_Valido(t *testing.T) {
	require.NoError(t, fiscal.ValidateDocument(validDoc(), nil))
}

func TestValidateDocument_SomaPagamentosDiverge(t *testing.T) {
	doc := validDoc()
	doc.Payments[0].Value = decimal.NewFromFloat(18.50)

	err := fiscal.ValidateDocument(doc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateDocument_ToleranciaDeUmCentavo(t *testing.T) {
	doc := validDoc()
	// 19.99 contra 20.00 está dentro da tolerância de 0.01
	doc.Payments[0].Value = decimal.NewFromFloat(19.99)
	require.NoError(t, fiscal.ValidateDocument(doc, nil))

	doc.Payments[0].Value = decimal.NewFromFloat(19.98)
	assert.ErrorIs(t, fiscal.ValidateDocument(doc, nil), domain.ErrInvalidInput)
}

func TestValidateDocument_ListasVazias(t *testing.T) {
	semItens := validDoc()
	semItens.Items = nil
	assert.ErrorIs(t, fiscal.ValidateDocument(semItens, nil), domain.ErrInvalidInput)

	semPagamentos := validDoc()
	semPagamentos.Payments = nil
	assert.ErrorIs(t, fiscal.ValidateDocument(semPagamentos, nil), domain.ErrInvalidInput)
}

func TestValidateDocument_LimiteDeItensDaJurisdicao(t *testing.T) {
	doc := validDoc()
	item := doc.Items[0]
	doc.Items = []entity.DocumentItem{item, item, item}
	// três pagamentos para manter a soma coerente
	doc.TotalValue = decimal.NewFromFloat(60.00)
	doc.Payments[0].Value = decimal.NewFromFloat(60.00)

	rule := &entity.JurisdictionRule{
		UF:     "RS",
		Active: true,
		Params: map[string]any{entity.ParamMaxItems: float64(2)},
	}
	err := fiscal.ValidateDocument(doc, rule)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rule.Params[entity.ParamMaxItems] = float64(3)
	require.NoError(t, fiscal.ValidateDocument(doc, rule))
}

func TestValidateDocument_EmitenteIncompleto(t *testing.T) {
	doc := validDoc()
	doc.Issuer.CNPJ = ""
	assert.ErrorIs(t, fiscal.ValidateDocument(doc, nil), domain.ErrInvalidInput)
}

func TestSumItems_DescontaDesconto(t *testing.T) {
	items := []entity.DocumentItem{
		{Total: decimal.NewFromFloat(30.00), Discount: decimal.NewFromFloat(5.00)},
		{Total: decimal.NewFromFloat(12.50)},
	}
	assert.True(t, fiscal.SumItems(items).Equal(decimal.NewFromFloat(37.50)))
}
