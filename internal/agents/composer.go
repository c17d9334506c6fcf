package agents

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jpcastilloarce/renata-ai/internal/utils"
)

// ventasCLPRe detecta una mención de total de ventas en el texto compuesto.
// Es una heurística de mejor esfuerzo: solo reacciona a fragmentos de ventas,
// no a compras ni rentabilidad. El salto perezoso admite texto intermedio con
// dígitos ("ventas fue en febrero 2024 por CLP ...") sin cruzar de línea.
var ventasCLPRe = regexp.MustCompile(`(?i)(?:vendiste|ventas).*?CLP\s*([\d.]+)`)

const recordatorioF29 = "Recuerda: la declaración de IVA (F29) vence el día 20 del próximo mes."

// Compose une las respuestas de los fragmentos en orden, separadas por línea
// en blanco, y agrega el IVA estimado cuando detecta un total de ventas
// positivo. Entre el día 20 y fin de mes agrega además el recordatorio del F29.
func Compose(respuestas []string, ahora time.Time) string {
	partes := make([]string, 0, len(respuestas))
	for _, r := range respuestas {
		if strings.TrimSpace(r) != "" {
			partes = append(partes, strings.TrimSpace(r))
		}
	}
	texto := strings.Join(partes, "\n\n")

	match := ventasCLPRe.FindStringSubmatch(texto)
	if match == nil {
		return texto
	}
	monto, err := utils.ParseCLP(match[1])
	if err != nil || monto <= 0 {
		return texto
	}

	iva := int64(math.Round(float64(monto) * 0.19))
	texto += "\n\nIVA estimado (19%): CLP " + utils.FormatCLP(iva)

	if ahora.Day() >= 20 {
		texto += "\n" + recordatorioF29
	}
	return texto
}
