package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

const (
	MaxMessageLength = 2000
	MinMessageLength = 1
)

var (
	rutRe      = regexp.MustCompile(`^\d{7,8}-[\dkK]$`)
	telefonoRe = regexp.MustCompile(`^\+?\d{8,15}$`)
)

// ValidateAndSanitizeMessage valida y sanitiza el mensaje entrante
func ValidateAndSanitizeMessage(mensaje string) (string, error) {
	trimmed := strings.TrimSpace(mensaje)
	if len(trimmed) < MinMessageLength {
		return "", &models.ValidationError{Field: "mensaje", Message: "El mensaje no puede estar vacío"}
	}

	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return "", &models.ValidationError{Field: "mensaje", Message: "El mensaje es demasiado largo (máximo 2000 caracteres)"}
	}

	return sanitizeControlChars(trimmed), nil
}

// ValidateTelefono valida el formato del número (solo dígitos, prefijo + opcional)
func ValidateTelefono(telefono string) error {
	if telefono == "" {
		return &models.ValidationError{Field: "telefono", Message: "Se requiere teléfono"}
	}
	if !telefonoRe.MatchString(telefono) {
		return &models.ValidationError{Field: "telefono", Message: "Teléfono no válido (use solo dígitos, ej: 56993788826)"}
	}
	return nil
}

// ValidateRUT valida el formato de un RUT chileno (ej: 12345678-9)
func ValidateRUT(rut string) bool {
	return rutRe.MatchString(strings.TrimSpace(rut))
}

// sanitizeControlChars elimina caracteres de control peligrosos pero mantiene
// saltos de línea y caracteres UTF-8 normales
func sanitizeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || r >= 0x20 {
			result.WriteRune(r)
		}
	}
	return result.String()
}
