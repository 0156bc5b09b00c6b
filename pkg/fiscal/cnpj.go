package fiscal

import (
	"fmt"
	"unicode"
)

// Pesos dos dois dígitos verificadores do CNPJ (módulo 11, da esquerda para
// a direita sobre a base).
var (
	cnpjWeightsFirst  = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeightsSecond = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida um CNPJ (com ou sem pontuação) pelos dois dígitos
// verificadores módulo 11 da Receita Federal.
func ValidateCNPJ(cnpj string) error {
	digits := extractDigits(cnpj)
	if len(digits) != 14 {
		return fmt.Errorf("fiscal: CNPJ deve ter 14 dígitos, recebidos %d", len(digits))
	}
	if allEqual(digits) {
		return fmt.Errorf("fiscal: CNPJ com dígitos repetidos é inválido")
	}

	dv1 := cnpjCheckDigit(digits[:12], cnpjWeightsFirst[:])
	if digits[12] != dv1 {
		return fmt.Errorf("fiscal: primeiro dígito verificador do CNPJ inválido: esperado %c, recebido %c", dv1, digits[12])
	}
	dv2 := cnpjCheckDigit(digits[:13], cnpjWeightsSecond[:])
	if digits[13] != dv2 {
		return fmt.Errorf("fiscal: segundo dígito verificador do CNPJ inválido: esperado %c, recebido %c", dv2, digits[13])
	}
	return nil
}

func cnpjCheckDigit(base []byte, weights []int) byte {
	var sum int
	for i, d := range base {
		sum += int(d-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0'
	}
	return byte('0' + (11 - remainder))
}

func allEqual(digits []byte) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
