package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCLP(t *testing.T) {
	casos := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1.000",
		1234567:  "1.234.567",
		10000000: "10.000.000",
		-45000:   "-45.000",
	}
	for monto, esperado := range casos {
		assert.Equal(t, esperado, FormatCLP(monto), "monto: %d", monto)
	}
}

func TestParseCLPRoundTrip(t *testing.T) {
	// Parsear el monto renderizado recupera el entero original
	for _, monto := range []int64{0, 7, 1000, 1234567, 987654321} {
		recuperado, err := ParseCLP(FormatCLP(monto))
		require.NoError(t, err)
		assert.Equal(t, monto, recuperado)
	}
}

func TestParseCLPInvalido(t *testing.T) {
	_, err := ParseCLP("")
	assert.Error(t, err)

	_, err = ParseCLP("abc")
	assert.Error(t, err)
}

func TestValidateRUT(t *testing.T) {
	assert.True(t, ValidateRUT("12345678-9"))
	assert.True(t, ValidateRUT("7654321-K"))
	assert.True(t, ValidateRUT(" 12345678-9 "))

	assert.False(t, ValidateRUT("abc"))
	assert.False(t, ValidateRUT("123456-7"))
	assert.False(t, ValidateRUT("12345678-99"))
	assert.False(t, ValidateRUT("12.345.678-9"))
}

func TestValidateTelefono(t *testing.T) {
	assert.NoError(t, ValidateTelefono("56993788826"))
	assert.NoError(t, ValidateTelefono("+56993788826"))

	assert.Error(t, ValidateTelefono(""))
	assert.Error(t, ValidateTelefono("hola"))
	assert.Error(t, ValidateTelefono("123"))
}

func TestValidateAndSanitizeMessage(t *testing.T) {
	limpio, err := ValidateAndSanitizeMessage("  hola\x00renata  ")
	require.NoError(t, err)
	assert.Equal(t, "holarenata", limpio)

	_, err = ValidateAndSanitizeMessage("   ")
	assert.Error(t, err)
}
