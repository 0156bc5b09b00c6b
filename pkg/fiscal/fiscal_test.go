package fiscal_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/pkg/fiscal"
)

func TestValidateCNPJ(t *testing.T) {
	// 11.222.333/0001-81: vetor clássico com DVs 8 e 1 calculados à mão.
	require.NoError(t, fiscal.ValidateCNPJ("11.222.333/0001-81"))
	require.NoError(t, fiscal.ValidateCNPJ("11222333000181"))

	assert.Error(t, fiscal.ValidateCNPJ("11222333000182"), "segundo DV errado")
	assert.Error(t, fiscal.ValidateCNPJ("11222333000171"), "primeiro DV errado")
	assert.Error(t, fiscal.ValidateCNPJ("1122233300018"), "13 dígitos")
	assert.Error(t, fiscal.ValidateCNPJ("00000000000000"), "dígitos repetidos")
}

func TestAccessKeyCheckDigit_Vetores(t *testing.T) {
	// Base toda zero: soma 0, resto 0 -> dígito 0.
	zeros := strings.Repeat("0", 43)
	dv, err := fiscal.AccessKeyCheckDigit(zeros)
	require.NoError(t, err)
	assert.Equal(t, byte('0'), dv)

	// Só o dígito mais à direita = 1 (peso 2): soma 2, resto 2 -> 11-2 = 9.
	one := strings.Repeat("0", 42) + "1"
	dv, err = fiscal.AccessKeyCheckDigit(one)
	require.NoError(t, err)
	assert.Equal(t, byte('9'), dv)

	_, err = fiscal.AccessKeyCheckDigit("123")
	assert.Error(t, err)

	_, err = fiscal.AccessKeyCheckDigit(strings.Repeat("A", 43))
	assert.Error(t, err)
}

func TestBuildAccessKey(t *testing.T) {
	key, err := fiscal.BuildAccessKey(fiscal.AccessKeyParams{
		UF:       "RS",
		IssuedAt: time.Date(2026, time.July, 14, 12, 0, 0, 0, time.UTC),
		CNPJ:     "11.222.333/0001-81",
		Series:   "1",
		Number:   42,
		Emission: fiscal.EmissionNormal,
		Code:     12345678,
	})
	require.NoError(t, err)
	require.Len(t, key, 44)

	assert.Equal(t, "43", key[:2], "código IBGE do RS")
	assert.Equal(t, "2607", key[2:6], "AAMM de julho/2026")
	assert.Equal(t, "11222333000181", key[6:20])
	assert.Equal(t, fiscal.ModelNFCe, key[20:22])
	assert.Equal(t, "001", key[22:25])
	assert.Equal(t, "000000042", key[25:34])

	require.NoError(t, fiscal.ValidateAccessKey(key))
}

func TestBuildAccessKey_UFDesconhecida(t *testing.T) {
	_, err := fiscal.BuildAccessKey(fiscal.AccessKeyParams{
		UF:       "XX",
		IssuedAt: time.Now(),
		CNPJ:     "11222333000181",
		Number:   1,
		Emission: fiscal.EmissionNormal,
	})
	assert.Error(t, err)
}

func TestValidateAccessKey_DVErrado(t *testing.T) {
	key, err := fiscal.BuildAccessKey(fiscal.AccessKeyParams{
		UF:       "SP",
		IssuedAt: time.Now(),
		CNPJ:     "11222333000181",
		Number:   7,
		Emission: fiscal.EmissionNormal,
		Code:     1,
	})
	require.NoError(t, err)

	// troca o DV por outro dígito
	bad := key[:43] + string('0'+(key[43]-'0'+1)%10)
	assert.Error(t, fiscal.ValidateAccessKey(bad))
}

func TestRequiresEquipment(t *testing.T) {
	assert.True(t, fiscal.RequiresEquipment("SP"))
	assert.True(t, fiscal.RequiresEquipment("CE"))
	assert.False(t, fiscal.RequiresEquipment("RS"))
}

func TestUFCode(t *testing.T) {
	assert.Equal(t, "35", fiscal.UFCode("SP"))
	assert.Equal(t, "", fiscal.UFCode("ZZ"))
}
