package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/agents"
	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/middleware"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/registration"
	"github.com/jpcastilloarce/renata-ai/internal/router"
	"github.com/jpcastilloarce/renata-ai/internal/services"
	"github.com/jpcastilloarce/renata-ai/internal/utils"
)

const (
	msgDisculpa   = "Disculpa, tuve un problema procesando tu mensaje. Intenta de nuevo en unos minutos."
	msgAudioFallo = "No pude entender tu mensaje de voz. ¿Puedes escribirlo o enviarlo de nuevo?"
	msgMuyRapido  = "Me están llegando muchos mensajes tuyos muy seguidos. Dame unos segundos y volvemos a conversar."
)

// MessageController atiende el endpoint de mensajes entrantes del conector
// de WhatsApp: el corazón conversacional del servicio.
type MessageController struct {
	userRouter    *router.UserRouter
	taxAgent      *agents.TaxAgent
	prospectAgent *agents.ProspectAgent
	regFlow       *registration.Flow
	conversation  services.ConversationStore
	sessions      services.SessionStore
	speech        services.SpeechService
	limiter       *middleware.PhoneLimiter
	log           *logger.Logger
}

func NewMessageController(
	userRouter *router.UserRouter,
	taxAgent *agents.TaxAgent,
	prospectAgent *agents.ProspectAgent,
	regFlow *registration.Flow,
	conversation services.ConversationStore,
	sessions services.SessionStore,
	speech services.SpeechService,
	limiter *middleware.PhoneLimiter,
	log *logger.Logger,
) *MessageController {
	return &MessageController{
		userRouter:    userRouter,
		taxAgent:      taxAgent,
		prospectAgent: prospectAgent,
		regFlow:       regFlow,
		conversation:  conversation,
		sessions:      sessions,
		speech:        speech,
		limiter:       limiter,
		log:           log,
	}
}

// HandleMessage procesa un mensaje entrante de texto o audio. El usuario
// siempre recibe una respuesta conversacional; el JSON de error crudo queda
// como último recurso si hasta el formateo de la disculpa falla.
func (mc *MessageController) HandleMessage(ctx *gin.Context) {
	var req models.MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	if err := utils.ValidateTelefono(req.Telefono); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !mc.limiter.Allow(req.Telefono) {
		mc.log.Warn("Teléfono sobre la cuota de mensajes", "telefono", req.Telefono)
		mc.respond(ctx, req.Telefono, msgMuyRapido)
		return
	}

	reqCtx := ctx.Request.Context()
	mensaje := req.Mensaje

	// Audio entrante: transcribir primero y recordar la preferencia de modo
	if len(req.Audio) > 0 {
		texto, err := mc.speech.Transcribe(reqCtx, req.Audio, req.AudioMimeType)
		if err != nil {
			mc.log.Error("Transcripción falló", "telefono", req.Telefono, "error", err)
			mc.respond(ctx, req.Telefono, msgAudioFallo)
			return
		}
		mensaje = texto
		mc.setModo(reqCtx, req.Telefono, "audio")
	} else if req.TipoMensajeOriginal == "texto" {
		mc.setModo(reqCtx, req.Telefono, "texto")
	}

	mensaje, err := utils.ValidateAndSanitizeMessage(mensaje)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	respuesta, err := mc.dispatch(reqCtx, req.Telefono, mensaje)
	if err != nil {
		mc.log.Error("Error procesando mensaje", "telefono", req.Telefono, "error", err)
		mc.respond(ctx, req.Telefono, msgDisculpa)
		return
	}

	// La persistencia del turno es mejor esfuerzo: perder un turno del
	// historial no debe costar la respuesta
	if err := mc.conversation.Append(reqCtx, models.ConversationTurn{
		Telefono:        req.Telefono,
		MensajeCliente:  mensaje,
		RespuestaAgente: respuesta,
	}); err != nil {
		mc.log.Warn("No se pudo guardar el turno", "telefono", req.Telefono, "error", err)
	}

	mc.respond(ctx, req.Telefono, respuesta)
}

func (mc *MessageController) dispatch(ctx context.Context, telefono, mensaje string) (string, error) {
	clase, contributor, err := mc.userRouter.Identify(ctx, telefono)
	if err != nil {
		return "", err
	}

	if clase == router.ClaseCliente {
		return mc.taxAgent.Responder(ctx, contributor, mensaje)
	}

	// Prospecto: primero la máquina de registro; si el mensaje no le
	// pertenece, responde el agente comercial
	respuesta, handled, err := mc.regFlow.Handle(ctx, telefono, mensaje)
	if err != nil {
		return "", err
	}
	if handled {
		return respuesta, nil
	}

	history, err := mc.conversation.History(ctx, telefono, agents.HistoriaVentana, agents.HistoriaMax)
	if err != nil {
		mc.log.Warn("No se pudo leer el historial del prospecto", "telefono", telefono, "error", err)
		history = nil
	}
	return mc.prospectAgent.Responder(ctx, telefono, mensaje, history)
}

// respond formatea la respuesta según la preferencia del usuario. Cualquier
// falla en el camino de audio degrada a texto plano.
func (mc *MessageController) respond(ctx *gin.Context, telefono, respuesta string) {
	defer func() {
		if r := recover(); r != nil {
			mc.log.Error("Pánico formateando respuesta", "telefono", telefono, "panic", r)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
		}
	}()

	reqCtx := ctx.Request.Context()
	modo, err := mc.sessions.GetModo(reqCtx, telefono)
	if err != nil {
		mc.log.Warn("No se pudo leer el modo de respuesta", "telefono", telefono, "error", err)
		modo = "texto"
	}

	if modo == "audio" {
		if audio, mime, ok := mc.synthesize(reqCtx, telefono, respuesta); ok {
			ctx.JSON(http.StatusOK, models.MessageResponse{
				Tipo:      "audio",
				Contenido: audio,
				MimeType:  mime,
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, models.MessageResponse{
		Tipo:      "texto",
		Respuesta: respuesta,
	})
}

func (mc *MessageController) synthesize(ctx context.Context, telefono, texto string) ([]byte, string, bool) {
	mp3, err := mc.speech.Synthesize(ctx, texto)
	if err != nil {
		mc.log.Warn("Síntesis de voz falló, degradando a texto", "telefono", telefono, "error", err)
		return nil, "", false
	}
	ogg, err := mc.speech.Transcode(ctx, mp3)
	if err != nil {
		mc.log.Warn("Conversión de audio falló, degradando a texto", "telefono", telefono, "error", err)
		return nil, "", false
	}
	return ogg, "audio/ogg; codecs=opus", true
}

func (mc *MessageController) setModo(ctx context.Context, telefono, modo string) {
	if err := mc.sessions.SetModo(ctx, telefono, modo); err != nil {
		mc.log.Warn("No se pudo guardar el modo de respuesta", "telefono", telefono, "error", err)
	}
}
