package intent

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type mesEntry struct {
	nombre string
	numero string
}

// Meses en orden calendario; la detección recorre en este orden estable.
var meses = []mesEntry{
	{"enero", "01"}, {"febrero", "02"}, {"marzo", "03"}, {"abril", "04"},
	{"mayo", "05"}, {"junio", "06"}, {"julio", "07"}, {"agosto", "08"},
	{"septiembre", "09"}, {"octubre", "10"}, {"noviembre", "11"}, {"diciembre", "12"},
}

var yearRe = regexp.MustCompile(`20\d{2}`)

// mesRe exige límites de palabra: "mayores" no debe resolver a mayo
var mesRe = regexp.MustCompile(`\b(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\b`)

// ResolvePeriod extrae un período YYYY-MM del texto de un fragmento: nombre de
// mes en español más un año opcional de 4 dígitos (default: año actual).
// Si no hay mes, retorna ok=false y el handler usa el último período con datos.
func ResolvePeriod(fragmento string, ahora time.Time) (string, bool) {
	lower := strings.ToLower(fragmento)

	match := mesRe.FindString(lower)
	if match == "" {
		return "", false
	}
	var mes string
	for _, m := range meses {
		if m.nombre == match {
			mes = m.numero
			break
		}
	}

	year := fmt.Sprintf("%d", ahora.Year())
	if match := yearRe.FindString(fragmento); match != "" {
		year = match
	}

	return year + "-" + mes, true
}

// NombreMes retorna el nombre en español de un número de mes ("03" -> "marzo")
func NombreMes(numero string) string {
	for _, m := range meses {
		if m.numero == numero {
			return m.nombre
		}
	}
	return numero
}

// SplitPeriodo separa un período "2024-03" en ("2024", "marzo")
func SplitPeriodo(periodo string) (year, mesNombre string) {
	partes := strings.SplitN(periodo, "-", 2)
	if len(partes) != 2 {
		return periodo, ""
	}
	return partes[0], NombreMes(partes[1])
}
