package entity

import "time"

// ParamMaxItems é a chave do parâmetro de limite de itens por documento em
// JurisdictionRule.Params.
const ParamMaxItems = "max_items"

// DefaultMaxItems é o limite de itens aplicado quando a jurisdição não
// define um valor próprio (teto nacional do layout da NFC-e).
const DefaultMaxItems = 990

// JurisdictionRule é a configuração fiscal de uma UF: endpoint de
// transporte, exigência de equipamento (família CF-e) e parâmetros
// especiais em mapa aberto. Criada com defaults na primeira referência à
// UF e mantida em cache pelo resolver.
type JurisdictionRule struct {
	UF                string
	Name              string
	Endpoint          string
	RequiresEquipment bool // somente família CF-e
	Params            map[string]any
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MaxItems devolve o limite de itens da jurisdição, com fallback para o
// default nacional. Params vem de JSONB, então números chegam como float64.
func (r *JurisdictionRule) MaxItems() int {
	if r == nil || r.Params == nil {
		return DefaultMaxItems
	}
	switch v := r.Params[ParamMaxItems].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return DefaultMaxItems
}
