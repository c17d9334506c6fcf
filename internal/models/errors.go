package models

import "fmt"

// ValidationError indica un payload malformado; se responde con 4xx.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotRegisteredError indica que el teléfono no corresponde a un cliente.
// Se responde como mensaje conversacional, nunca como error HTTP.
type NotRegisteredError struct {
	Telefono string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("teléfono %s no registrado como cliente", e.Telefono)
}

// LookupFailure indica que una consulta al almacén tributario falló.
// El fragmento afectado se degrada; la respuesta global sigue siendo 200.
type LookupFailure struct {
	Op  string
	Err error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("consulta %s falló: %v", e.Op, e.Err)
}

func (e *LookupFailure) Unwrap() error { return e.Err }

// UpstreamServiceError indica la falla de un servicio externo (voz, modelo
// generativo, calendario). El caller decide el fallback.
type UpstreamServiceError struct {
	Service string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("servicio %s falló: %v", e.Service, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// Errores específicos de los colaboradores de voz y completado
type TranscriptionError struct{ Err error }

func (e *TranscriptionError) Error() string { return fmt.Sprintf("transcripción falló: %v", e.Err) }
func (e *TranscriptionError) Unwrap() error { return e.Err }

type SynthesisError struct{ Err error }

func (e *SynthesisError) Error() string { return fmt.Sprintf("síntesis de voz falló: %v", e.Err) }
func (e *SynthesisError) Unwrap() error { return e.Err }

type TranscodeError struct{ Err error }

func (e *TranscodeError) Error() string { return fmt.Sprintf("conversión de audio falló: %v", e.Err) }
func (e *TranscodeError) Unwrap() error { return e.Err }

type CompletionError struct{ Err error }

func (e *CompletionError) Error() string { return fmt.Sprintf("modelo generativo falló: %v", e.Err) }
func (e *CompletionError) Unwrap() error { return e.Err }

// SessionStateError indica una sesión de registro ausente, expirada o corrupta;
// el flujo se reinicia con el mensaje de onboarding.
type SessionStateError struct {
	Telefono string
	Motivo   string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("sesión de registro de %s inválida: %s", e.Telefono, e.Motivo)
}
