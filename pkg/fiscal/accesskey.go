package fiscal

import (
	"fmt"
	"time"
)

// Campos da chave de acesso da NFC-e (44 dígitos):
//
//	cUF(2) AAMM(4) CNPJ(14) mod(2) serie(3) nNF(9) tpEmis(1) cNF(8) cDV(1)
//
// O dígito verificador usa módulo 11 com pesos 2..9 ciclando a partir do
// dígito mais à direita.

// ModelNFCe é o código de modelo da NFC-e na chave de acesso.
const ModelNFCe = "65"

// AccessKeyParams são os campos necessários para montar a chave de acesso.
type AccessKeyParams struct {
	UF       string // sigla, convertida para código IBGE
	IssuedAt time.Time
	CNPJ     string // 14 dígitos
	Series   string // até 3 dígitos
	Number   int64
	Emission string // tpEmis (1 dígito)
	Code     int    // cNF, código numérico aleatório de 8 dígitos
}

// BuildAccessKey monta a chave de acesso de 44 dígitos, incluindo o dígito
// verificador.
func BuildAccessKey(p AccessKeyParams) (string, error) {
	ufCode := UFCode(p.UF)
	if ufCode == "" {
		return "", fmt.Errorf("fiscal: UF %q desconhecida", p.UF)
	}
	cnpj := extractDigits(p.CNPJ)
	if len(cnpj) != 14 {
		return "", fmt.Errorf("fiscal: CNPJ da chave deve ter 14 dígitos, recebidos %d", len(cnpj))
	}
	series := 1
	if p.Series != "" {
		if _, err := fmt.Sscanf(p.Series, "%d", &series); err != nil {
			return "", fmt.Errorf("fiscal: série %q não numérica", p.Series)
		}
	}
	base := fmt.Sprintf("%s%s%s%s%03d%09d%1s%08d",
		ufCode,
		p.IssuedAt.Format("0601"), // AAMM
		cnpj,
		ModelNFCe,
		series,
		p.Number,
		p.Emission,
		p.Code,
	)
	if len(base) != 43 {
		return "", fmt.Errorf("fiscal: base da chave com %d dígitos, esperados 43", len(base))
	}
	dv, err := AccessKeyCheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + string(dv), nil
}

// AccessKeyCheckDigit calcula o dígito verificador módulo 11 para os 43
// primeiros dígitos da chave. Resto 0 ou 1 resulta em dígito 0.
func AccessKeyCheckDigit(base string) (byte, error) {
	if len(base) != 43 {
		return 0, fmt.Errorf("fiscal: dígito verificador exige 43 dígitos, recebidos %d", len(base))
	}
	weight := 2
	var sum int
	for i := len(base) - 1; i >= 0; i-- {
		c := base[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("fiscal: caractere não numérico %q na chave", c)
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0', nil
	}
	return byte('0' + (11 - remainder)), nil
}

// ValidateAccessKey confere tamanho e dígito verificador de uma chave de 44
// dígitos.
func ValidateAccessKey(key string) error {
	if len(key) != 44 {
		return fmt.Errorf("fiscal: chave de acesso deve ter 44 dígitos, recebidos %d", len(key))
	}
	dv, err := AccessKeyCheckDigit(key[:43])
	if err != nil {
		return err
	}
	if key[43] != dv {
		return fmt.Errorf("fiscal: dígito verificador da chave inválido: esperado %c, recebido %c", dv, key[43])
	}
	return nil
}
