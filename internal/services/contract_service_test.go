package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksTextoCorto(t *testing.T) {
	chunks := splitChunks("Cláusula única. El contrato rige desde hoy.", 500)
	require.Len(t, chunks, 1)
}

func TestSplitChunksRespetaOraciones(t *testing.T) {
	oracion := "Esta es una cláusula del contrato que regula las obligaciones de las partes. "
	texto := strings.Repeat(oracion, 20)

	chunks := splitChunks(texto, 500)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 500)
		// Cada trozo intermedio cierra en fin de oración
		assert.True(t, strings.HasSuffix(chunk, "."), "chunk: %q", chunk)
	}
}

func TestSplitChunksNoCortaRunas(t *testing.T) {
	// Sin fin de oración a la vista el corte cae por tamaño; el prefijo ASCII
	// desalinea los acentos de dos bytes para que el byte 500 quede a mitad
	// de una runa
	texto := "x" + strings.Repeat("á", 600)

	chunks := splitChunks(texto, 500)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk con UTF-8 inválido: %q", chunk)
	}
	assert.Equal(t, texto, strings.Join(chunks, ""))
}

func TestSplitChunksVacio(t *testing.T) {
	assert.Nil(t, splitChunks("   ", 500))
}
