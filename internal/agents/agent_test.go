package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// fakeTaxStore entrega datos fijos por período para probar los handlers
type fakeTaxStore struct {
	totales       map[string]int64 // key: dir + periodo
	ultimoPeriodo string
	// detalle son los documentos de todos los períodos; detallePorPeriodo
	// restringe la respuesta cuando se consulta un período puntual
	detalle           []models.DetalleRow
	detallePorPeriodo map[string][]models.DetalleRow
	contrapartes      []models.ContraparteTotal
	ivaDebito         int64
	ivaCredito        int64
	ingresos          int64
	egresos           int64
	failTotales       bool
}

func (f *fakeTaxStore) TotalPeriodo(_ context.Context, _, periodo string, dir services.Direccion) (int64, bool, error) {
	if f.failTotales {
		return 0, false, errors.New("conexión perdida")
	}
	total, ok := f.totales[string(dir)+periodo]
	return total, ok, nil
}

func (f *fakeTaxStore) UltimoPeriodoConDatos(_ context.Context, _ string, dir services.Direccion) (string, int64, bool, error) {
	if f.ultimoPeriodo == "" {
		return "", 0, false, nil
	}
	total := f.totales[string(dir)+f.ultimoPeriodo]
	return f.ultimoPeriodo, total, true, nil
}

func (f *fakeTaxStore) DetallePeriodo(_ context.Context, _, periodo string, _ services.Direccion, limit int) ([]models.DetalleRow, error) {
	rows := f.detalle
	if periodo != "" && f.detallePorPeriodo != nil {
		rows = f.detallePorPeriodo[periodo]
	}
	if limit < len(rows) {
		return rows[:limit], nil
	}
	return rows, nil
}

func (f *fakeTaxStore) UltimoPeriodoDetalle(_ context.Context, _ string, _ services.Direccion) (string, int, bool, error) {
	if f.ultimoPeriodo == "" {
		return "", 0, false, nil
	}
	return f.ultimoPeriodo, len(f.detalle), true, nil
}

func (f *fakeTaxStore) SumasIVAPeriodo(_ context.Context, _, _ string) (int64, int64, int64, int64, error) {
	return f.ivaDebito, f.ivaCredito, 0, 0, nil
}

func (f *fakeTaxStore) SumasNetasPeriodo(_ context.Context, _, _ string) (int64, int64, error) {
	return f.ingresos, f.egresos, nil
}

func (f *fakeTaxStore) TopContrapartes(_ context.Context, _, _ string, _ services.Direccion, limit int) ([]models.ContraparteTotal, error) {
	if limit < len(f.contrapartes) {
		return f.contrapartes[:limit], nil
	}
	return f.contrapartes, nil
}

func (f *fakeTaxStore) ResumenPeriodo(_ context.Context, _, _ string, _ services.Direccion) ([]models.ResumenRow, error) {
	return nil, nil
}

func (f *fakeTaxStore) DetalleDocumentos(_ context.Context, _, _ string, _ services.Direccion, _ int) ([]models.DetalleRow, error) {
	return f.detalle, nil
}

type fakeConversation struct {
	turns []models.ConversationTurn
}

func (f *fakeConversation) History(_ context.Context, _ string, _ time.Duration, _ int) ([]models.ConversationTurn, error) {
	return f.turns, nil
}

func (f *fakeConversation) Append(_ context.Context, turn models.ConversationTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

type fakeCompletion struct {
	respuesta string
}

func (f *fakeCompletion) Complete(_ context.Context, _ string, _ []models.ChatMessage, _ string) (string, error) {
	return f.respuesta, nil
}

func (f *fakeCompletion) CompleteWithTools(_ context.Context, _ string, _ []models.ChatMessage, _ string, _ []*genai.Tool, _ services.ToolHandler) (string, error) {
	return f.respuesta, nil
}

func (f *fakeCompletion) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1}, nil
}

type fakeContracts struct{}

func (f *fakeContracts) Ingest(_ context.Context, _, _, _ string) (int, error) { return 1, nil }

func (f *fakeContracts) Answer(_ context.Context, _, _ string) (string, error) {
	return "El contrato vence en diciembre.", nil
}

func newTestAgent(store *fakeTaxStore) *TaxAgent {
	agent := NewTaxAgent(store, &fakeConversation{}, &fakeCompletion{respuesta: "respuesta generada"}, &fakeContracts{}, logger.NewNop())
	agent.now = func() time.Time {
		return time.Date(2024, time.April, 5, 10, 0, 0, 0, time.UTC)
	}
	return agent
}

var cliente = &models.Contributor{
	RUT:      "76543210-K",
	Nombre:   "Acme SpA",
	Telefono: "56993788826",
	Verified: true,
}

func TestResponderVentasConPeriodo(t *testing.T) {
	store := &fakeTaxStore{
		totales: map[string]int64{"ventas2024-03": 10000000},
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto vendí en marzo")

	require.NoError(t, err)
	assert.Contains(t, texto, "En marzo de 2024 vendiste CLP 10.000.000.")
	// La heurística del compositor reacciona al total de ventas
	assert.Contains(t, texto, "IVA estimado (19%): CLP 1.900.000")
}

func TestResponderVentasSinDatos(t *testing.T) {
	store := &fakeTaxStore{totales: map[string]int64{}}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto vendí en marzo")

	require.NoError(t, err)
	assert.Contains(t, texto, "No encontré datos de ventas para marzo 2024.")
}

func TestResponderVentasUltimoPeriodo(t *testing.T) {
	store := &fakeTaxStore{
		totales:       map[string]int64{"ventas2024-02": 4500000},
		ultimoPeriodo: "2024-02",
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto he vendido")

	require.NoError(t, err)
	assert.Contains(t, texto, "Tu último registro de ventas fue en febrero 2024 por CLP 4.500.000.")
	// El total de ventas también gatilla la heurística aunque el año quede
	// entre "ventas" y el monto
	assert.Contains(t, texto, "IVA estimado (19%): CLP 855.000")
}

func TestResponderIVABalanceAPagar(t *testing.T) {
	store := &fakeTaxStore{
		ivaDebito:  190000,
		ivaCredito: 50000,
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto IVA debo pagar por marzo 2024")

	require.NoError(t, err)
	assert.Contains(t, texto, "Débito fiscal (IVA cobrado): CLP 190.000")
	assert.Contains(t, texto, "Crédito fiscal (IVA recuperable): CLP 50.000")
	assert.Contains(t, texto, "Balance a pagar: CLP 140.000")
}

func TestResponderIVABalanceAFavor(t *testing.T) {
	store := &fakeTaxStore{
		ivaDebito:  30000,
		ivaCredito: 90000,
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cómo voy con el IVA de marzo 2024")

	require.NoError(t, err)
	assert.Contains(t, texto, "Balance a favor: CLP 60.000")
}

func TestResponderTopProveedores(t *testing.T) {
	store := &fakeTaxStore{
		contrapartes: []models.ContraparteTotal{
			{RazonSocial: "Proveedor B", Total: 1200000, Documentos: 1},
			{RazonSocial: "Proveedor A", Total: 800000, Documentos: 2},
		},
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuáles son mis mayores proveedores")

	require.NoError(t, err)
	assert.Contains(t, texto, "1. Proveedor B: CLP 1.200.000 (1 documentos)")
	assert.Contains(t, texto, "2. Proveedor A: CLP 800.000 (2 documentos)")
}

func TestResponderMayorProveedorYLista(t *testing.T) {
	store := &fakeTaxStore{
		ultimoPeriodo: "2024-03",
		contrapartes: []models.ContraparteTotal{
			{RazonSocial: "Proveedor B", Total: 1200000, Documentos: 2},
		},
		detalle: []models.DetalleRow{
			{TipoDoc: 33, Folio: 101, RazonSocial: "Proveedor B", MontoTotal: 700000},
			{TipoDoc: 33, Folio: 102, RazonSocial: "Proveedor A", MontoTotal: 500000},
			{TipoDoc: 33, Folio: 103, RazonSocial: "Proveedor B", MontoTotal: 500000},
		},
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "quién es mi mayor proveedor y muéstrame esa lista")

	require.NoError(t, err)
	assert.Contains(t, texto, "Tu mayor proveedor es Proveedor B")
	// La lista posterior viene filtrada por el proveedor del acumulador
	assert.Contains(t, texto, "DTE 33 folio 101 - Proveedor B: CLP 700.000")
	assert.Contains(t, texto, "DTE 33 folio 103 - Proveedor B: CLP 500.000")
	assert.NotContains(t, texto, "Proveedor A")
}

func TestResponderListaProveedorSinMesCubreTodosLosPeriodos(t *testing.T) {
	// El mayor proveedor solo tiene documentos en un período antiguo; el
	// período más reciente pertenece a otra contraparte. La lista debe usar
	// el mismo alcance que el ranking (todos los períodos), no el último.
	store := &fakeTaxStore{
		ultimoPeriodo: "2024-03",
		contrapartes: []models.ContraparteTotal{
			{RazonSocial: "Proveedor B", Total: 1200000, Documentos: 1},
		},
		detalle: []models.DetalleRow{
			{TipoDoc: 33, Folio: 201, RazonSocial: "Proveedor B", MontoTotal: 1200000},
			{TipoDoc: 33, Folio: 301, RazonSocial: "Proveedor C", MontoTotal: 100000},
		},
		detallePorPeriodo: map[string][]models.DetalleRow{
			"2024-03": {{TipoDoc: 33, Folio: 301, RazonSocial: "Proveedor C", MontoTotal: 100000}},
		},
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "quién es mi mayor proveedor y muéstrame esa lista")

	require.NoError(t, err)
	assert.Contains(t, texto, "Tu mayor proveedor es Proveedor B")
	assert.Contains(t, texto, "DTE 33 folio 201 - Proveedor B: CLP 1.200.000")
	assert.NotContains(t, texto, "No encontré documentos de Proveedor B")
}

func TestResponderRentabilidad(t *testing.T) {
	store := &fakeTaxStore{
		ultimoPeriodo: "2024-03",
		ingresos:      10000000,
		egresos:       6000000,
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cómo va mi rentabilidad")

	require.NoError(t, err)
	assert.Contains(t, texto, "Utilidad: CLP 4.000.000 (margen 40.0%)")
	assert.Contains(t, texto, "Impuesto a la renta estimado (25%): CLP 1.000.000")
}

func TestResponderReserva(t *testing.T) {
	store := &fakeTaxStore{
		ultimoPeriodo: "2024-03",
		totales:       map[string]int64{"ventas2024-03": 1},
		ivaDebito:     190000,
		ivaCredito:    50000,
		ingresos:      10000000,
		egresos:       6000000,
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto debería reservar para impuestos")

	require.NoError(t, err)
	// 140.000 de IVA + 1.000.000 de renta
	assert.Contains(t, texto, "te recomiendo reservar CLP 1.140.000")
	assert.Contains(t, texto, "vence el día 20")
}

func TestResponderFragmentoFallidoEsParcial(t *testing.T) {
	store := &fakeTaxStore{
		failTotales:  true,
		contrapartes: []models.ContraparteTotal{{RazonSocial: "Cliente X", Total: 100000, Documentos: 1}},
	}
	agent := newTestAgent(store)

	texto, err := agent.Responder(context.Background(), cliente, "cuánto vendí en marzo y quiénes son mis mayores clientes")

	// El fragmento de ventas falla pero el ranking igual sale
	require.NoError(t, err)
	assert.NotContains(t, texto, "vendiste")
	assert.Contains(t, texto, "Cliente X")
}

func TestResponderGeneralUsaCompletion(t *testing.T) {
	agent := newTestAgent(&fakeTaxStore{})

	texto, err := agent.Responder(context.Background(), cliente, "hola renata")

	require.NoError(t, err)
	assert.Equal(t, "respuesta generada", texto)
}

func TestResponderContrato(t *testing.T) {
	agent := newTestAgent(&fakeTaxStore{})

	texto, err := agent.Responder(context.Background(), cliente, "qué dice mi contrato vigente")

	require.NoError(t, err)
	assert.Equal(t, "El contrato vence en diciembre.", texto)
}

func TestResponderTodoFallaDevuelveDisculpa(t *testing.T) {
	agent := newTestAgent(&fakeTaxStore{failTotales: true})

	texto, err := agent.Responder(context.Background(), cliente, "cuánto vendí en marzo")

	require.NoError(t, err)
	assert.Equal(t, sinRespuesta, texto)
}

func TestResponderRechazaNoVerificado(t *testing.T) {
	agent := newTestAgent(&fakeTaxStore{})
	noVerificado := &models.Contributor{RUT: "11111111-1", Telefono: "56911111111", Verified: false}

	_, err := agent.Responder(context.Background(), noVerificado, "cuánto vendí en marzo")

	var notRegistered *models.NotRegisteredError
	require.ErrorAs(t, err, &notRegistered)
	assert.Equal(t, "56911111111", notRegistered.Telefono)
}
