// Package fiscal contém catálogos e validações alinhados aos layouts da
// NFC-e (Manual de Orientação do Contribuinte) e do CF-e SAT.
package fiscal

// =============================================================================
// Tabela de meios de pagamento (tag tPag da NFC-e / MP do CF-e)
// =============================================================================

const (
	PaymentCash       = "01" // Dinheiro
	PaymentCheck      = "02" // Cheque
	PaymentCredit     = "03" // Cartão de crédito
	PaymentDebit      = "04" // Cartão de débito
	PaymentStoreCred  = "05" // Crédito loja
	PaymentFoodVouch  = "10" // Vale alimentação
	PaymentMealVouch  = "11" // Vale refeição
	PaymentPix        = "17" // Pagamento instantâneo (PIX)
	PaymentOther      = "99" // Outros
)

// ValidPaymentMethods contém os códigos de meio de pagamento aceitos.
var ValidPaymentMethods = map[string]bool{
	PaymentCash: true, PaymentCheck: true, PaymentCredit: true,
	PaymentDebit: true, PaymentStoreCred: true, PaymentFoodVouch: true,
	PaymentMealVouch: true, PaymentPix: true, PaymentOther: true,
}

// =============================================================================
// Unidades comerciais de uso frequente (tag uCom)
// =============================================================================

const (
	UnitUnit     = "UN"
	UnitKilogram = "KG"
	UnitGram     = "G"
	UnitLitre    = "LT"
	UnitPortion  = "PORC" // porção, comum em restaurantes
)

// =============================================================================
// Classificadores do documento
// =============================================================================

const (
	// tpEmis
	EmissionNormal      = "1"
	EmissionContingency = "9"

	// indPres: presença do comprador
	PresenceInPerson = "1" // operação presencial
	PresenceDelivery = "4" // entrega em domicílio

	// natureza da operação padrão do PDV
	OperationSale = "VENDA"
)

// Jurisdições (UF) onde o CF-e exige equipamento assinador; nas demais o
// cupom pode ser autorizado sem vínculo. SP opera com SAT físico; CE com o
// equivalente virtual (MFE).
var equipmentUFs = map[string]string{
	"SP": "PHYSICAL",
	"CE": "VIRTUAL",
}

// RequiresEquipment indica se a UF exige equipamento para a família CF-e.
func RequiresEquipment(uf string) bool {
	_, ok := equipmentUFs[uf]
	return ok
}

// ValidUFs contém as 27 unidades federativas com o respectivo código IBGE
// (usado na chave de acesso).
var ValidUFs = map[string]string{
	"AC": "12", "AL": "27", "AP": "16", "AM": "13", "BA": "29", "CE": "23",
	"DF": "53", "ES": "32", "GO": "52", "MA": "21", "MT": "51", "MS": "50",
	"MG": "31", "PA": "15", "PB": "25", "PR": "41", "PE": "26", "PI": "22",
	"RJ": "33", "RN": "24", "RS": "43", "RO": "11", "RR": "14", "SC": "42",
	"SP": "35", "SE": "28", "TO": "17",
}

// UFCode devolve o código IBGE da UF ("" se desconhecida).
func UFCode(uf string) string {
	return ValidUFs[uf]
}
