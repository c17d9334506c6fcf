package agents

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jpcastilloarce/renata-ai/internal/intent"
	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
	"github.com/jpcastilloarce/renata-ai/internal/utils"
)

const (
	// detalleTopN limita las filas mostradas en los listados de detalle
	detalleTopN      = 20
	topNContrapartes = 5

	// HistoriaVentana y HistoriaMax acotan el historial entregado a los
	// componentes generativos
	HistoriaVentana = 24 * time.Hour
	HistoriaMax     = 10

	sinRespuesta = "Disculpa, no pude obtener la información en este momento. Intenta de nuevo en unos minutos."
)

var mayorProveedorRe = regexp.MustCompile(`(?i)(mayor|principal)\s+proveedor|proveedor\s+(principal|m[áa]s\s+grande)`)
var listaRe = regexp.MustCompile(`(?i)(esa|esta|la)\s+lista`)

// TaxAgent responde las preguntas tributarias de un cliente registrado.
// Pipeline por mensaje: clasificar → resolver cada fragmento en orden →
// componer. Los fragmentos se procesan secuencialmente porque uno posterior
// puede depender del acumulador que fijó uno anterior.
type TaxAgent struct {
	store        services.TaxStore
	conversation services.ConversationStore
	completion   services.CompletionService
	contracts    services.ContractService
	log          *logger.Logger
	now          func() time.Time
}

func NewTaxAgent(store services.TaxStore, conversation services.ConversationStore, completion services.CompletionService, contracts services.ContractService, log *logger.Logger) *TaxAgent {
	return &TaxAgent{
		store:        store,
		conversation: conversation,
		completion:   completion,
		contracts:    contracts,
		log:          log,
		now:          time.Now,
	}
}

// Responder procesa un mensaje completo de un cliente y retorna la respuesta
// compuesta. La falla de un fragmento no aborta los demás: se registra y la
// respuesta queda parcial.
func (a *TaxAgent) Responder(ctx context.Context, c *models.Contributor, mensaje string) (string, error) {
	// Solo clientes verificados consultan datos tributarios; el enrutador
	// deriva al resto al flujo comercial
	if c == nil || !c.Verified {
		var telefono string
		if c != nil {
			telefono = c.Telefono
		}
		return "", &models.NotRegisteredError{Telefono: telefono}
	}

	history, err := a.conversation.History(ctx, c.Telefono, HistoriaVentana, HistoriaMax)
	if err != nil {
		a.log.Warn("No se pudo leer el historial", "telefono", c.Telefono, "error", err)
		history = nil
	}

	fragments := intent.Classify(mensaje)
	ahora := a.now()

	var acc Accumulator
	respuestas := make([]string, 0, len(fragments))
	for _, f := range fragments {
		respuesta, err := a.handleFragment(ctx, c, f, history, &acc, ahora)
		if err != nil {
			a.log.Error("Fragmento falló", "intent", string(f.Intent), "error", err)
			continue
		}
		respuestas = append(respuestas, respuesta)
	}

	texto := Compose(respuestas, ahora)
	if strings.TrimSpace(texto) == "" {
		return sinRespuesta, nil
	}
	return texto, nil
}

func (a *TaxAgent) handleFragment(ctx context.Context, c *models.Contributor, f intent.Fragment, history []models.ConversationTurn, acc *Accumulator, ahora time.Time) (string, error) {
	switch f.Intent {
	case intent.IntentVentas:
		return a.handleTotal(ctx, c.RUT, f.Texto, services.DireccionVentas, ahora)
	case intent.IntentCompras:
		return a.handleTotal(ctx, c.RUT, f.Texto, services.DireccionCompras, ahora)
	case intent.IntentDetalleVentas:
		return a.handleDetalle(ctx, c.RUT, f.Texto, services.DireccionVentas, acc, ahora)
	case intent.IntentDetalleCompras:
		return a.handleDetalle(ctx, c.RUT, f.Texto, services.DireccionCompras, acc, ahora)
	case intent.IntentIVA:
		return a.handleIVA(ctx, c.RUT, f.Texto, ahora)
	case intent.IntentRentabilidad:
		return a.handleRentabilidad(ctx, c.RUT, f.Texto, ahora)
	case intent.IntentMayoresClientes:
		return a.handleTop(ctx, c.RUT, f.Texto, services.DireccionVentas, ahora)
	case intent.IntentMayoresProveedores:
		return a.handleTop(ctx, c.RUT, f.Texto, services.DireccionCompras, ahora)
	case intent.IntentReserva:
		return a.handleReserva(ctx, c.RUT)
	case intent.IntentContrato:
		return a.contracts.Answer(ctx, c.RUT, f.Texto)
	default:
		return a.handleGeneral(ctx, c, f.Texto, history)
	}
}

// resolvePeriodo aplica la resolución compartida: mes en el texto o último
// período con datos de la dirección indicada.
func (a *TaxAgent) resolvePeriodo(ctx context.Context, rut, texto string, dir services.Direccion, ahora time.Time) (periodo string, found bool, err error) {
	if p, ok := intent.ResolvePeriod(texto, ahora); ok {
		return p, true, nil
	}
	p, _, ok, err := a.store.UltimoPeriodoConDatos(ctx, rut, dir)
	if err != nil {
		return "", false, err
	}
	return p, ok, nil
}

func (a *TaxAgent) handleTotal(ctx context.Context, rut, texto string, dir services.Direccion, ahora time.Time) (string, error) {
	verbo := "vendiste"
	sustantivo := "ventas"
	if dir == services.DireccionCompras {
		verbo = "compraste"
		sustantivo = "compras"
	}

	if periodo, ok := intent.ResolvePeriod(texto, ahora); ok {
		total, found, err := a.store.TotalPeriodo(ctx, rut, periodo, dir)
		if err != nil {
			return "", err
		}
		year, mes := intent.SplitPeriodo(periodo)
		if !found {
			return fmt.Sprintf("No encontré datos de %s para %s %s.", sustantivo, mes, year), nil
		}
		return fmt.Sprintf("En %s de %s %s CLP %s.", mes, year, verbo, utils.FormatCLP(total)), nil
	}

	periodo, total, found, err := a.store.UltimoPeriodoConDatos(ctx, rut, dir)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("No encontré registros de %s.", sustantivo), nil
	}
	year, mes := intent.SplitPeriodo(periodo)
	return fmt.Sprintf("Tu último registro de %s fue en %s %s por CLP %s.", sustantivo, mes, year, utils.FormatCLP(total)), nil
}

func (a *TaxAgent) handleDetalle(ctx context.Context, rut, texto string, dir services.Direccion, acc *Accumulator, ahora time.Time) (string, error) {
	// Sub-variante: "mayor proveedor" agrupa por contraparte y reporta solo
	// la primera, dejando el acumulador listo para un "muéstrame esa lista"
	if dir == services.DireccionCompras && mayorProveedorRe.MatchString(texto) {
		return a.handleMayorProveedor(ctx, rut, texto, acc, ahora)
	}
	if dir == services.DireccionCompras && listaRe.MatchString(texto) && acc.ProveedorPrincipal != "" {
		return a.handleListaProveedor(ctx, rut, acc)
	}

	sustantivo := "ventas"
	if dir == services.DireccionCompras {
		sustantivo = "compras"
	}

	periodo, ok := intent.ResolvePeriod(texto, ahora)
	if !ok {
		var err error
		periodo, _, ok, err = a.store.UltimoPeriodoDetalle(ctx, rut, dir)
		if err != nil {
			return "", err
		}
	}
	if !ok {
		return fmt.Sprintf("No encontré documentos de %s.", sustantivo), nil
	}

	rows, err := a.store.DetallePeriodo(ctx, rut, periodo, dir, detalleTopN)
	if err != nil {
		return "", err
	}
	year, mes := intent.SplitPeriodo(periodo)
	if len(rows) == 0 {
		return fmt.Sprintf("No encontré documentos de %s para %s %s.", sustantivo, mes, year), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Detalle de %s de %s %s:\n", sustantivo, mes, year)
	for _, r := range rows {
		sb.WriteString(formatDetalleRow(r))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatDetalleRow(r models.DetalleRow) string {
	return fmt.Sprintf("DTE %d folio %d - %s: CLP %s", r.TipoDoc, r.Folio, r.RazonSocial, utils.FormatCLP(r.MontoTotal))
}

func (a *TaxAgent) handleMayorProveedor(ctx context.Context, rut, texto string, acc *Accumulator, ahora time.Time) (string, error) {
	periodo, _ := intent.ResolvePeriod(texto, ahora)

	top, err := a.store.TopContrapartes(ctx, rut, periodo, services.DireccionCompras, 1)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "No encontré compras registradas para identificar a tu mayor proveedor.", nil
	}

	acc.ProveedorPrincipal = top[0].RazonSocial
	acc.Periodo = periodo

	return fmt.Sprintf("Tu mayor proveedor es %s, con compras por CLP %s en %d documentos.",
		top[0].RazonSocial, utils.FormatCLP(top[0].Total), top[0].Documentos), nil
}

// handleListaProveedor consume el acumulador: lista los documentos del
// proveedor fijado por un fragmento anterior del mismo mensaje. Usa el mismo
// alcance que el ranking que lo fijó: acc.Periodo vacío cubre todos los
// períodos.
func (a *TaxAgent) handleListaProveedor(ctx context.Context, rut string, acc *Accumulator) (string, error) {
	rows, err := a.store.DetallePeriodo(ctx, rut, acc.Periodo, services.DireccionCompras, detalleTopN)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Documentos de %s:\n", acc.ProveedorPrincipal)
	encontrados := 0
	for _, r := range rows {
		if r.RazonSocial != acc.ProveedorPrincipal {
			continue
		}
		sb.WriteString(formatDetalleRow(r))
		sb.WriteByte('\n')
		encontrados++
	}
	if encontrados == 0 {
		return fmt.Sprintf("No encontré documentos de %s.", acc.ProveedorPrincipal), nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (a *TaxAgent) handleIVA(ctx context.Context, rut, texto string, ahora time.Time) (string, error) {
	periodo, ok, err := a.resolvePeriodo(ctx, rut, texto, services.DireccionVentas, ahora)
	if err != nil {
		return "", err
	}
	if !ok {
		return "No encontré datos para calcular tu IVA.", nil
	}

	debito, credito, totalVentas, totalCompras, err := a.store.SumasIVAPeriodo(ctx, rut, periodo)
	if err != nil {
		return "", err
	}

	balance := debito - credito
	etiqueta := "a pagar"
	if balance < 0 {
		etiqueta = "a favor"
	}

	// Las etiquetas evitan la palabra "ventas" junto a un monto para no
	// gatillar la heurística de IVA estimado del compositor
	year, mes := intent.SplitPeriodo(periodo)
	return fmt.Sprintf(
		"IVA de %s %s:\n"+
			"Débito fiscal (IVA cobrado): CLP %s\n"+
			"Crédito fiscal (IVA recuperable): CLP %s\n"+
			"Balance %s: CLP %s\n"+
			"(Facturación bruta CLP %s, compras brutas CLP %s)",
		mes, year,
		utils.FormatCLP(debito),
		utils.FormatCLP(credito),
		etiqueta, utils.FormatCLP(abs(balance)),
		utils.FormatCLP(totalVentas), utils.FormatCLP(totalCompras)), nil
}

func (a *TaxAgent) handleRentabilidad(ctx context.Context, rut, texto string, ahora time.Time) (string, error) {
	periodo, ok, err := a.resolvePeriodo(ctx, rut, texto, services.DireccionVentas, ahora)
	if err != nil {
		return "", err
	}
	if !ok {
		return "No encontré datos para calcular tu rentabilidad.", nil
	}

	ingresos, egresos, err := a.store.SumasNetasPeriodo(ctx, rut, periodo)
	if err != nil {
		return "", err
	}

	utilidad := ingresos - egresos
	var margen float64
	if ingresos > 0 {
		margen = float64(utilidad) / float64(ingresos) * 100
	}
	impuesto := int64(math.Round(math.Max(float64(utilidad), 0) * 0.25))

	concepto := "Utilidad"
	if utilidad < 0 {
		concepto = "Pérdida"
	}

	year, mes := intent.SplitPeriodo(periodo)
	return fmt.Sprintf(
		"Rentabilidad de %s %s:\n"+
			"Ingresos netos: CLP %s\n"+
			"Egresos netos: CLP %s\n"+
			"%s: CLP %s (margen %.1f%%)\n"+
			"Impuesto a la renta estimado (25%%): CLP %s",
		mes, year,
		utils.FormatCLP(ingresos),
		utils.FormatCLP(egresos),
		concepto, utils.FormatCLP(abs(utilidad)), margen,
		utils.FormatCLP(impuesto)), nil
}

func (a *TaxAgent) handleTop(ctx context.Context, rut, texto string, dir services.Direccion, ahora time.Time) (string, error) {
	titulo := "clientes"
	if dir == services.DireccionCompras {
		titulo = "proveedores"
	}

	// Sin mes en el texto el ranking cubre todos los períodos
	periodo, _ := intent.ResolvePeriod(texto, ahora)

	top, err := a.store.TopContrapartes(ctx, rut, periodo, dir, topNContrapartes)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return fmt.Sprintf("No encontré datos para el ranking de %s.", titulo), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tus mayores %s:\n", titulo)
	for i, c := range top {
		fmt.Fprintf(&sb, "%d. %s: CLP %s (%d documentos)\n", i+1, c.RazonSocial, utils.FormatCLP(c.Total), c.Documentos)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (a *TaxAgent) handleReserva(ctx context.Context, rut string) (string, error) {
	periodo, _, ok, err := a.store.UltimoPeriodoConDatos(ctx, rut, services.DireccionVentas)
	if err != nil {
		return "", err
	}
	if !ok {
		return "No encontré datos para recomendar una reserva de impuestos.", nil
	}

	debito, credito, _, _, err := a.store.SumasIVAPeriodo(ctx, rut, periodo)
	if err != nil {
		return "", err
	}
	ingresos, egresos, err := a.store.SumasNetasPeriodo(ctx, rut, periodo)
	if err != nil {
		return "", err
	}

	ivaReserva := debito - credito
	if ivaReserva < 0 {
		ivaReserva = 0
	}
	utilidad := ingresos - egresos
	rentaReserva := int64(math.Round(math.Max(float64(utilidad), 0) * 0.25))
	total := ivaReserva + rentaReserva

	year, mes := intent.SplitPeriodo(periodo)
	return fmt.Sprintf(
		"Con los datos de %s %s te recomiendo reservar CLP %s:\n"+
			"IVA por pagar: CLP %s\n"+
			"Impuesto a la renta estimado: CLP %s\n"+
			"El F29 de ese período vence el día 20 del mes siguiente.",
		mes, year, utils.FormatCLP(total),
		utils.FormatCLP(ivaReserva),
		utils.FormatCLP(rentaReserva)), nil
}

const generalSystemPrompt = `Eres Renata, asistente tributaria por WhatsApp para pymes chilenas.
Respondes dudas generales sobre impuestos, el SII y la operación del negocio.
Breve y directo (máximo 4 líneas), en español, tuteando al usuario.
Si la pregunta requiere datos que no tienes, sugiere preguntar por ventas,
compras, IVA o rentabilidad de un mes específico.`

func (a *TaxAgent) handleGeneral(ctx context.Context, c *models.Contributor, texto string, history []models.ConversationTurn) (string, error) {
	messages := make([]models.ChatMessage, 0, len(history)*2)
	for _, t := range history {
		messages = append(messages,
			models.ChatMessage{Role: "user", Content: t.MensajeCliente},
			models.ChatMessage{Role: "assistant", Content: t.RespuestaAgente})
	}

	prompt := generalSystemPrompt + "\nEl usuario es " + c.Nombre + " (RUT " + c.RUT + ")."
	respuesta, err := a.completion.Complete(ctx, prompt, messages, texto)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(respuesta) == "" {
		return "No encontré información relevante para responder tu pregunta.", nil
	}
	return respuesta, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
