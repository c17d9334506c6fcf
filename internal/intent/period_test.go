package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ahora = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func TestResolvePeriodMesYAno(t *testing.T) {
	periodo, ok := ResolvePeriod("cuánto vendí en marzo 2023", ahora)
	require.True(t, ok)
	assert.Equal(t, "2023-03", periodo)
}

func TestResolvePeriodMesSinAno(t *testing.T) {
	// Sin año explícito se usa el año actual
	periodo, ok := ResolvePeriod("mis compras de septiembre", ahora)
	require.True(t, ok)
	assert.Equal(t, "2024-09", periodo)
}

func TestResolvePeriodSinMes(t *testing.T) {
	_, ok := ResolvePeriod("cuánto vendí", ahora)
	assert.False(t, ok)
}

func TestResolvePeriodExigeLimiteDePalabra(t *testing.T) {
	// "mayores" no es el mes de mayo
	_, ok := ResolvePeriod("quiénes son mis mayores clientes", ahora)
	assert.False(t, ok)
}

func TestResolvePeriodIdempotente(t *testing.T) {
	texto := "detalle de ventas de abril 2022"
	p1, ok1 := ResolvePeriod(texto, ahora)
	p2, ok2 := ResolvePeriod(texto, ahora)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, p1, p2)
}

func TestSplitPeriodo(t *testing.T) {
	year, mes := SplitPeriodo("2024-03")
	assert.Equal(t, "2024", year)
	assert.Equal(t, "marzo", mes)
}

func TestNombreMesDesconocido(t *testing.T) {
	assert.Equal(t, "13", NombreMes("13"))
}
