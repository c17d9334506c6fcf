package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySinPalabrasClave(t *testing.T) {
	casos := []string{
		"hola",
		"qué tal",
		"necesito ayuda con algo",
	}
	for _, mensaje := range casos {
		fragments := Classify(mensaje)
		require.Len(t, fragments, 1, "mensaje: %q", mensaje)
		assert.Equal(t, IntentGeneral, fragments[0].Intent)
		assert.Equal(t, mensaje, fragments[0].Texto)
	}
}

func TestClassifyConjuncion(t *testing.T) {
	fragments := Classify("cuánto vendí en marzo y cuánto compré en abril")

	require.Len(t, fragments, 2)
	assert.Equal(t, IntentVentas, fragments[0].Intent)
	assert.Equal(t, "cuánto vendí en marzo", fragments[0].Texto)
	assert.Equal(t, IntentCompras, fragments[1].Intent)
	assert.Equal(t, "cuánto compré en abril", fragments[1].Texto)
}

func TestClassifyEspecificoSobreGenerico(t *testing.T) {
	// Un fragmento con "detalle" y "ventas" debe resolver al específico
	fragments := Classify("muéstrame el detalle de mis ventas de enero")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentDetalleVentas, fragments[0].Intent)

	fragments = Classify("dame el detalle de compras")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentDetalleCompras, fragments[0].Intent)
}

func TestClassifySinDelimitadores(t *testing.T) {
	fragments := Classify("cuánto facturé este mes")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentVentas, fragments[0].Intent)
}

func TestClassifyMayorProveedor(t *testing.T) {
	// Singular: sub-variante de detalle_compras
	fragments := Classify("quién es mi mayor proveedor")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentDetalleCompras, fragments[0].Intent)

	// Plural: ranking
	fragments = Classify("cuáles son mis mayores proveedores")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentMayoresProveedores, fragments[0].Intent)
}

func TestClassifyListaConsumeAcumulador(t *testing.T) {
	fragments := Classify("quién es mi mayor proveedor y muéstrame esa lista")

	require.Len(t, fragments, 2)
	assert.Equal(t, IntentDetalleCompras, fragments[0].Intent)
	assert.Equal(t, IntentDetalleCompras, fragments[1].Intent)
}

func TestClassifyIntencionesDerivadas(t *testing.T) {
	casos := map[string]Intent{
		"cuánto IVA debo pagar":              IntentIVA,
		"cómo va mi rentabilidad":            IntentRentabilidad,
		"quiénes son mis mayores clientes":   IntentMayoresClientes,
		"cuánto debería reservar":            IntentReserva,
		"qué dice mi contrato vigente":       IntentContrato,
	}
	for mensaje, esperado := range casos {
		fragments := Classify(mensaje)
		require.Len(t, fragments, 1, "mensaje: %q", mensaje)
		assert.Equal(t, esperado, fragments[0].Intent, "mensaje: %q", mensaje)
	}
}

func TestClassifyPreguntas(t *testing.T) {
	// El signo de interrogación separa fragmentos
	fragments := Classify("¿cuánto vendí en marzo? ¿y mis compras?")
	require.Len(t, fragments, 2)
	assert.Equal(t, IntentVentas, fragments[0].Intent)
	assert.Equal(t, IntentCompras, fragments[1].Intent)
}

func TestClassifyMensajeVacio(t *testing.T) {
	fragments := Classify("   ")
	require.Len(t, fragments, 1)
	assert.Equal(t, IntentGeneral, fragments[0].Intent)
}
