package models

import "time"

// Contributor representa una empresa registrada en la plataforma
type Contributor struct {
	RUT          string    `json:"rut"`
	Nombre       string    `json:"nombre"`
	Telefono     string    `json:"telefono"`
	PasswordHash string    `json:"-"`
	ClaveSII     string    `json:"-"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConversationTurn es un intercambio completo (mensaje + respuesta) del historial
type ConversationTurn struct {
	Telefono        string    `json:"telefono"`
	MensajeCliente  string    `json:"mensajeCliente"`
	RespuestaAgente string    `json:"respuestaAgente"`
	Timestamp       time.Time `json:"timestamp"`
}

// ChatMessage es un mensaje en formato de conversación para el modelo generativo
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Pasos del flujo de registro por WhatsApp
const (
	PasoEsperandoRUT      = "esperando_rut"
	PasoEsperandoNombre   = "esperando_nombre"
	PasoEsperandoPassword = "esperando_password"
	PasoEsperandoClaveSII = "esperando_clave_sii"
)

// RegistrationSession es el estado del registro conversacional de un prospecto
type RegistrationSession struct {
	Telefono string `json:"telefono"`
	Paso     string `json:"paso"`
	RUT      string `json:"rut,omitempty"`
	Nombre   string `json:"nombre,omitempty"`
	Password string `json:"password,omitempty"`
	ClaveSII string `json:"claveSii,omitempty"`
}

// ResumenRow es una fila de las tablas ventas_resumen / compras_resumen
// (un tipo de documento por período, montos agregados)
type ResumenRow struct {
	TipoDoc      string `json:"tipoDoc"`
	CodigoTipo   int    `json:"codigoTipo"`
	CantidadDocs int    `json:"cantidadDocs"`
	MontoNeto    int64  `json:"montoNeto"`
	MontoIVA     int64  `json:"montoIva"`
	MontoTotal   int64  `json:"montoTotal"`
}

// DetalleRow es una fila de las tablas ventas_detalle / compras_detalle
// (un documento tributario individual)
type DetalleRow struct {
	TipoDoc             int       `json:"tipoDoc"`
	Folio               int64     `json:"folio"`
	RazonSocial         string    `json:"razonSocial"`
	MontoNeto           int64     `json:"montoNeto"`
	MontoIVA            int64     `json:"montoIva"`
	MontoIVARecuperable int64     `json:"montoIvaRecuperable"`
	MontoTotal          int64     `json:"montoTotal"`
	FechaRecepcion      time.Time `json:"fechaRecepcion"`
}

// ContraparteTotal es el agregado por contraparte (cliente o proveedor)
type ContraparteTotal struct {
	RazonSocial string `json:"razonSocial"`
	Total       int64  `json:"total"`
	Documentos  int    `json:"documentos"`
}

// ScheduledMeeting es una reunión agendada con un prospecto
type ScheduledMeeting struct {
	ID              string    `json:"id"`
	Telefono        string    `json:"telefono,omitempty"`
	NombreProspecto string    `json:"nombreProspecto"`
	EmailProspecto  string    `json:"emailProspecto,omitempty"`
	Fecha           string    `json:"fecha"`
	Hora            string    `json:"hora"`
	GoogleEventID   string    `json:"googleEventId,omitempty"`
	GoogleMeetLink  string    `json:"googleMeetLink,omitempty"`
	Notas           string    `json:"notas,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ActivationCode es un código de activación para registro de empresas
type ActivationCode struct {
	Code          string     `json:"code"`
	EmpresaNombre string     `json:"empresaNombre"`
	Plan          string     `json:"plan"`
	Used          bool       `json:"used"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// MessageRequest es el payload del endpoint de mensajes entrantes.
// Si viene audio, Mensaje puede estar vacío y se transcribe primero.
type MessageRequest struct {
	Telefono            string `json:"telefono" binding:"required"`
	Mensaje             string `json:"mensaje"`
	Audio               []byte `json:"audio,omitempty"`
	AudioMimeType       string `json:"audioMimeType,omitempty"`
	TipoMensajeOriginal string `json:"tipoMensajeOriginal,omitempty"` // "texto" | "audio"
}

// MessageResponse es la respuesta unificada: texto plano o audio
type MessageResponse struct {
	Tipo      string `json:"tipo"` // "texto" | "audio"
	Respuesta string `json:"respuesta,omitempty"`
	Contenido []byte `json:"contenido,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

// RegisterRequest es el payload de registro vía web
type RegisterRequest struct {
	RUT      string `json:"rut" binding:"required"`
	Nombre   string `json:"nombre" binding:"required"`
	Password string `json:"password" binding:"required"`
	ClaveSII string `json:"clave_sii" binding:"required"`
	Telefono string `json:"telefono" binding:"required"`
}

// VerifyOTPRequest es el payload de verificación de teléfono
type VerifyOTPRequest struct {
	RUT    string `json:"rut" binding:"required"`
	Codigo string `json:"codigo" binding:"required"`
}

// LoginRequest es el payload de inicio de sesión
type LoginRequest struct {
	RUT      string `json:"rut" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HealthResponse es la respuesta del health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}
