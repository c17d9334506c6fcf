package intent

import (
	"regexp"
	"strings"
)

// Intent es el conjunto cerrado de intenciones tributarias
type Intent string

const (
	IntentVentas             Intent = "ventas"
	IntentCompras            Intent = "compras"
	IntentDetalleVentas      Intent = "detalle_ventas"
	IntentDetalleCompras     Intent = "detalle_compras"
	IntentContrato           Intent = "contrato"
	IntentIVA                Intent = "iva"
	IntentRentabilidad       Intent = "rentabilidad"
	IntentMayoresClientes    Intent = "mayores_clientes"
	IntentMayoresProveedores Intent = "mayores_proveedores"
	IntentReserva            Intent = "reserva"
	IntentGeneral            Intent = "general"
)

// Fragment es un fragmento del mensaje con su intención asignada
type Fragment struct {
	Intent Intent
	Texto  string
}

type rule struct {
	re     *regexp.Regexp
	intent Intent
}

// Tabla ordenada de reglas, evaluada de arriba hacia abajo por fragmento.
// Las intenciones específicas van antes que sus contrapartes genéricas: un
// fragmento que contiene "detalle" y "ventas" debe resolver a detalle_ventas.
// Esta tabla es la única fuente de verdad para la clasificación.
var rules = []rule{
	{regexp.MustCompile(`detalle.*(venta|factur)|(venta|factur).*detalle`), IntentDetalleVentas},
	{regexp.MustCompile(`detalle.*(compra|proveedor)|(compra|proveedor).*detalle`), IntentDetalleCompras},
	// "muéstrame esa lista" continúa un fragmento anterior de proveedores;
	// el handler de detalle consume el acumulador para filtrar
	{regexp.MustCompile(`(esa|esta|la)\s+lista`), IntentDetalleCompras},
	{regexp.MustCompile(`(mayores|principales|top).*cliente`), IntentMayoresClientes},
	{regexp.MustCompile(`(mayores|principales|top\s*\d*)\s+proveedor`), IntentMayoresProveedores},
	// proveedor principal (singular) es la sub-variante de detalle_compras
	// que agrupa por contraparte y reporta solo el mayor
	{regexp.MustCompile(`(mayor|principal)\s+proveedor|proveedor\s+(principal|m[áa]s\s+grande)`), IntentDetalleCompras},
	{regexp.MustCompile(`\biva\b|d[ée]bito\s+fiscal|cr[ée]dito\s+fiscal`), IntentIVA},
	{regexp.MustCompile(`rentabilidad|utilidad|margen|ganancia|p[ée]rdida`), IntentRentabilidad},
	{regexp.MustCompile(`reserva|provisionar|apartar.*impuesto|guardar.*impuesto`), IntentReserva},
	{regexp.MustCompile(`vend[íi]|venta|factur`), IntentVentas},
	{regexp.MustCompile(`compr[ée]|compra|proveedor`), IntentCompras},
	{regexp.MustCompile(`contrato|cl[áa]usula|vigente|normativa`), IntentContrato},
}

// Separadores de fragmentos: conjunción " y ", fin de oración, o signo de
// interrogación. Un mensaje sin separadores es un único fragmento.
var splitRe = regexp.MustCompile(`\s+y\s+|[.!]\s+|\?\s*`)

// Classify descompone un mensaje en fragmentos ordenados y asigna a cada uno
// la primera intención cuya regla calce. Un fragmento sin regla es "general".
// Función pura: sin efectos secundarios.
func Classify(mensaje string) []Fragment {
	partes := splitRe.Split(mensaje, -1)

	fragments := make([]Fragment, 0, len(partes))
	for _, p := range partes {
		texto := strings.TrimSpace(p)
		if texto == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Intent: classifyFragment(texto),
			Texto:  texto,
		})
	}

	if len(fragments) == 0 {
		fragments = append(fragments, Fragment{Intent: IntentGeneral, Texto: strings.TrimSpace(mensaje)})
	}
	return fragments
}

func classifyFragment(texto string) Intent {
	lower := strings.ToLower(texto)
	for _, r := range rules {
		if r.re.MatchString(lower) {
			return r.intent
		}
	}
	return IntentGeneral
}
