package agents

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAgregaIVAEstimado(t *testing.T) {
	dia5 := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	texto := Compose([]string{"En marzo de 2024 vendiste CLP 10.000.000."}, dia5)

	require.Contains(t, texto, "IVA estimado (19%): CLP 1.900.000")
	// Antes del día 20 no hay recordatorio del F29
	assert.NotContains(t, texto, "F29")
}

func TestComposeRecordatorioDesdeDia20(t *testing.T) {
	dia25 := time.Date(2024, time.March, 25, 10, 0, 0, 0, time.UTC)

	texto := Compose([]string{"En marzo de 2024 vendiste CLP 500.000."}, dia25)

	assert.Contains(t, texto, "IVA estimado (19%): CLP 95.000")
	assert.Contains(t, texto, recordatorioF29)
}

func TestComposeVentasConAnioIntermedio(t *testing.T) {
	dia5 := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	// La frase del último período trae el año entre "ventas" y el monto
	texto := Compose([]string{"Tu último registro de ventas fue en febrero 2024 por CLP 4.500.000."}, dia5)

	assert.Contains(t, texto, "IVA estimado (19%): CLP 855.000")
}

func TestComposeSinPatronDeVentas(t *testing.T) {
	dia25 := time.Date(2024, time.March, 25, 10, 0, 0, 0, time.UTC)

	texto := Compose([]string{"En marzo de 2024 compraste CLP 2.000.000."}, dia25)

	assert.NotContains(t, texto, "IVA estimado")
	assert.NotContains(t, texto, recordatorioF29)
}

func TestComposeUneFragmentosEnOrden(t *testing.T) {
	dia5 := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	texto := Compose([]string{"primera respuesta", "", "segunda respuesta"}, dia5)

	partes := strings.Split(texto, "\n\n")
	require.Len(t, partes, 2)
	assert.Equal(t, "primera respuesta", partes[0])
	assert.Equal(t, "segunda respuesta", partes[1])
}

func TestComposeMontoCero(t *testing.T) {
	dia5 := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	texto := Compose([]string{"En marzo de 2024 vendiste CLP 0."}, dia5)

	assert.NotContains(t, texto, "IVA estimado")
}
