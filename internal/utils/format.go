package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCLP formatea un monto en pesos chilenos con separador de miles
// (convención es-CL: 1234567 -> "1.234.567").
func FormatCLP(monto int64) string {
	negativo := monto < 0
	if negativo {
		monto = -monto
	}

	digits := strconv.FormatInt(monto, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if negativo {
		return "-" + b.String()
	}
	return b.String()
}

// ParseCLP recupera el entero desde un monto formateado ("1.234.567" -> 1234567).
func ParseCLP(s string) (int64, error) {
	limpio := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	if limpio == "" {
		return 0, fmt.Errorf("monto vacío")
	}
	return strconv.ParseInt(limpio, 10, 64)
}
