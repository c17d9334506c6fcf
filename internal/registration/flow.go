package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
	"github.com/jpcastilloarce/renata-ai/internal/utils"
)

// PalabraActivacion inicia el flujo de registro conversacional
const PalabraActivacion = "registrar"

const otpTTL = 5 * time.Minute

const (
	msgInicio         = "¡Perfecto! Vamos a crear tu cuenta. Primero necesito el RUT de tu empresa (formato 12345678-9)."
	msgRUTInvalido    = "Ese RUT no parece válido. Envíamelo en formato 12345678-9, por ejemplo 76543210-K."
	msgRUTDuplicado   = "Ese RUT ya tiene una cuenta asociada. Si crees que es un error, contacta a soporte."
	msgPideNombre     = "Gracias. Ahora dime el nombre o razón social de tu empresa."
	msgNombreCorto    = "El nombre es muy corto. Envíame el nombre completo de tu empresa."
	msgPidePassword   = "Perfecto. Ahora crea una contraseña para tu cuenta (mínimo 6 caracteres)."
	msgPasswordCorta  = "La contraseña debe tener al menos 6 caracteres. Intenta con otra."
	msgPideClaveSII   = "Casi listo. Envíame tu clave del SII para poder sincronizar tus datos tributarios."
	msgClaveCorta     = "Esa clave parece muy corta. Revísala y envíamela de nuevo."
	msgSesionExpirada = "Tu sesión de registro expiró. Escribe \"registrar\" para comenzar de nuevo."
	msgErrorInterno   = "Tuve un problema guardando tus datos. Intenta de nuevo en unos minutos."
)

// Flow es la máquina de estados del registro por WhatsApp. El estado vive en
// Redis con TTL; cada mensaje del prospecto avanza a lo más un paso.
type Flow struct {
	sessions     services.SessionStore
	contributors services.ContributorStore
	log          *logger.Logger
}

func NewFlow(sessions services.SessionStore, contributors services.ContributorStore, log *logger.Logger) *Flow {
	return &Flow{sessions: sessions, contributors: contributors, log: log}
}

// Handle procesa un mensaje de prospecto dentro del flujo de registro.
// Retorna handled=false cuando el mensaje no pertenece al flujo (sin sesión
// activa y sin palabra de activación); el caller lo deriva al agente comercial.
func (f *Flow) Handle(ctx context.Context, telefono, mensaje string) (string, bool, error) {
	mensaje = strings.TrimSpace(mensaje)

	sesion, err := f.sessions.GetRegistration(ctx, telefono)
	if err != nil {
		var stateErr *models.SessionStateError
		if !errors.As(err, &stateErr) {
			return "", false, err
		}
		// Sesión corrupta ya descartada: reinicia como si no existiera
		sesion = nil
	}

	if sesion == nil {
		if strings.EqualFold(mensaje, PalabraActivacion) {
			nueva := models.RegistrationSession{Telefono: telefono, Paso: models.PasoEsperandoRUT}
			if err := f.sessions.PutRegistration(ctx, nueva); err != nil {
				return "", false, err
			}
			return msgInicio, true, nil
		}

		// Marca presente sin sesión: la sesión expiró a mitad del flujo
		marcada, err := f.sessions.HasRegistrationMarker(ctx, telefono)
		if err != nil {
			return "", false, err
		}
		if marcada {
			if err := f.sessions.DeleteRegistrationMarker(ctx, telefono); err != nil {
				f.log.Warn("No se pudo borrar la marca de registro", "telefono", telefono, "error", err)
			}
			return msgSesionExpirada, true, nil
		}
		return "", false, nil
	}

	switch sesion.Paso {
	case models.PasoEsperandoRUT:
		return f.handleRUT(ctx, sesion, mensaje)
	case models.PasoEsperandoNombre:
		return f.handleNombre(ctx, sesion, mensaje)
	case models.PasoEsperandoPassword:
		return f.handlePassword(ctx, sesion, mensaje)
	case models.PasoEsperandoClaveSII:
		return f.handleClaveSII(ctx, sesion, mensaje)
	default:
		// Paso desconocido: descarta y reinicia
		f.log.Warn("Sesión de registro en paso desconocido", "telefono", sesion.Telefono, "paso", sesion.Paso)
		if err := f.sessions.DeleteRegistration(ctx, sesion.Telefono); err != nil {
			return "", false, err
		}
		return msgSesionExpirada, true, nil
	}
}

func (f *Flow) handleRUT(ctx context.Context, sesion *models.RegistrationSession, mensaje string) (string, bool, error) {
	rut := strings.ToUpper(strings.TrimSpace(mensaje))
	if !utils.ValidateRUT(rut) {
		// El paso no avanza; el prospecto reintenta
		return msgRUTInvalido, true, nil
	}

	existente, err := f.contributors.ByRUT(ctx, rut)
	if err != nil {
		return msgErrorInterno, true, nil
	}
	if existente != nil {
		// RUT ya registrado: se abandona el flujo completo
		if err := f.abandon(ctx, sesion.Telefono); err != nil {
			f.log.Warn("No se pudo abandonar el registro", "telefono", sesion.Telefono, "error", err)
		}
		return msgRUTDuplicado, true, nil
	}

	sesion.RUT = rut
	sesion.Paso = models.PasoEsperandoNombre
	if err := f.sessions.PutRegistration(ctx, *sesion); err != nil {
		return "", false, err
	}
	return msgPideNombre, true, nil
}

func (f *Flow) handleNombre(ctx context.Context, sesion *models.RegistrationSession, mensaje string) (string, bool, error) {
	if len(strings.TrimSpace(mensaje)) < 3 {
		return msgNombreCorto, true, nil
	}
	sesion.Nombre = strings.TrimSpace(mensaje)
	sesion.Paso = models.PasoEsperandoPassword
	if err := f.sessions.PutRegistration(ctx, *sesion); err != nil {
		return "", false, err
	}
	return msgPidePassword, true, nil
}

func (f *Flow) handlePassword(ctx context.Context, sesion *models.RegistrationSession, mensaje string) (string, bool, error) {
	if len(mensaje) < 6 {
		return msgPasswordCorta, true, nil
	}
	sesion.Password = mensaje
	sesion.Paso = models.PasoEsperandoClaveSII
	if err := f.sessions.PutRegistration(ctx, *sesion); err != nil {
		return "", false, err
	}
	return msgPideClaveSII, true, nil
}

func (f *Flow) handleClaveSII(ctx context.Context, sesion *models.RegistrationSession, mensaje string) (string, bool, error) {
	if len(mensaje) < 4 {
		return msgClaveCorta, true, nil
	}
	sesion.ClaveSII = mensaje

	respuesta, err := f.commit(ctx, sesion)
	if err != nil {
		f.log.Error("Error al completar el registro", "telefono", sesion.Telefono, "error", err)
		return msgErrorInterno, true, nil
	}
	return respuesta, true, nil
}

// commit persiste el contribuyente sin verificar, genera el OTP y cierra la
// sesión. El contribuyente queda como prospecto hasta verificar el código.
func (f *Flow) commit(ctx context.Context, sesion *models.RegistrationSession) (string, error) {
	hash, err := utils.HashPassword(sesion.Password)
	if err != nil {
		return "", err
	}

	if err := f.contributors.Insert(ctx, models.Contributor{
		RUT:          sesion.RUT,
		Nombre:       sesion.Nombre,
		Telefono:     sesion.Telefono,
		PasswordHash: hash,
		ClaveSII:     sesion.ClaveSII,
		Verified:     false,
	}); err != nil {
		return "", err
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := f.contributors.InsertOTP(ctx, sesion.RUT, otp, otpTTL); err != nil {
		return "", err
	}

	if err := f.abandon(ctx, sesion.Telefono); err != nil {
		f.log.Warn("No se pudo limpiar la sesión de registro", "telefono", sesion.Telefono, "error", err)
	}

	if err := f.contributors.LogEvent(ctx, sesion.Telefono, "registro_completado", map[string]string{"rut": sesion.RUT}); err != nil {
		f.log.Warn("No se pudo registrar el evento", "error", err)
	}

	f.log.Info("Registro completado", "rut", sesion.RUT, "telefono", sesion.Telefono)
	return "¡Cuenta creada! 🎉 Tu código de verificación es " + otp +
		". Ingresa a la plataforma web con tu RUT y contraseña, y verifica tu teléfono con ese código para activar tu cuenta.", nil
}

func (f *Flow) abandon(ctx context.Context, telefono string) error {
	if err := f.sessions.DeleteRegistration(ctx, telefono); err != nil {
		return err
	}
	return f.sessions.DeleteRegistrationMarker(ctx, telefono)
}
