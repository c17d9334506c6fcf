package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

const mensajeBienvenida = "Hola, veo que aún no tienes una cuenta creada. 👋 Soy Renata, tu asistente tributaria por WhatsApp. " +
	"Puedo contarte cómo funciona el servicio, validar tu código de activación o agendar una reunión con nuestro equipo. " +
	"Si ya tienes un código, escribe \"registrar\" para crear tu cuenta."

const prospectSystemPrompt = `Eres Renata, asistente comercial por WhatsApp de una plataforma tributaria para pymes chilenas.
Hablas con un prospecto que aún no tiene cuenta.

OBJETIVO:
- Explicar el servicio: resumen de ventas y compras, cálculo de IVA, rentabilidad y recordatorios del SII, todo por WhatsApp.
- Validar códigos de activación cuando el prospecto entregue uno.
- Agendar reuniones con el equipo comercial cuando haya interés.

REGLAS:
1. Breve y cercano, máximo 3 líneas, tutea al usuario.
2. Si entrega un código de activación, usa la herramienta validar_codigo_activacion.
3. Si quiere una reunión o demo, pide nombre, fecha y hora, y usa agendar_reunion.
4. Para crear la cuenta indícale que escriba "registrar".
5. No inventes precios ni planes.`

// ProspectAgent atiende a números sin cuenta: responde con el modelo
// generativo y las herramientas de activación y agenda. El flujo de registro
// en sí no pasa por aquí; lo maneja la máquina de estados con la palabra clave.
type ProspectAgent struct {
	completion services.CompletionService
	meetings   services.MeetingStore
	calendar   services.CalendarService
	log        *logger.Logger
}

func NewProspectAgent(completion services.CompletionService, meetings services.MeetingStore, calendar services.CalendarService, log *logger.Logger) *ProspectAgent {
	return &ProspectAgent{
		completion: completion,
		meetings:   meetings,
		calendar:   calendar,
		log:        log,
	}
}

var prospectTools = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "validar_codigo_activacion",
				Description: "Valida un código de activación entregado por el prospecto. Retorna si es válido y el nombre de la empresa asociada.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"codigo": {
							Type:        genai.TypeString,
							Description: "El código de activación tal como lo escribió el prospecto",
						},
					},
					Required: []string{"codigo"},
				},
			},
			{
				Name:        "agendar_reunion",
				Description: "Agenda una reunión con el equipo comercial. Requiere nombre del prospecto, fecha (YYYY-MM-DD) y hora (HH:MM).",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"nombre": {Type: genai.TypeString, Description: "Nombre del prospecto"},
						"fecha":  {Type: genai.TypeString, Description: "Fecha de la reunión, formato YYYY-MM-DD"},
						"hora":   {Type: genai.TypeString, Description: "Hora de la reunión, formato HH:MM"},
						"email":  {Type: genai.TypeString, Description: "Email del prospecto, si lo entregó"},
						"notas":  {Type: genai.TypeString, Description: "Contexto adicional de la conversación"},
					},
					Required: []string{"nombre", "fecha", "hora"},
				},
			},
		},
	},
}

// Responder genera la respuesta comercial. Un prospecto sin historial recibe
// siempre el mensaje de bienvenida fijo, sin pasar por el modelo.
func (p *ProspectAgent) Responder(ctx context.Context, telefono, mensaje string, history []models.ConversationTurn) (string, error) {
	if len(history) == 0 {
		return mensajeBienvenida, nil
	}

	messages := make([]models.ChatMessage, 0, len(history)*2)
	for _, t := range history {
		messages = append(messages,
			models.ChatMessage{Role: "user", Content: t.MensajeCliente},
			models.ChatMessage{Role: "assistant", Content: t.RespuestaAgente})
	}

	handler := func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
		switch name {
		case "validar_codigo_activacion":
			return p.validarCodigo(ctx, args)
		case "agendar_reunion":
			return p.agendarReunion(ctx, telefono, args)
		default:
			return nil, fmt.Errorf("herramienta desconocida: %s", name)
		}
	}

	return p.completion.CompleteWithTools(ctx, prospectSystemPrompt, messages, mensaje, prospectTools, handler)
}

func (p *ProspectAgent) validarCodigo(ctx context.Context, args map[string]any) (map[string]any, error) {
	codigo := strings.TrimSpace(stringArg(args, "codigo"))
	if codigo == "" {
		return map[string]any{"valido": false, "motivo": "código vacío"}, nil
	}

	ac, err := p.meetings.ValidateActivationCode(ctx, codigo)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return map[string]any{"valido": false, "motivo": "código inexistente, usado o expirado"}, nil
	}
	return map[string]any{
		"valido":  true,
		"empresa": ac.EmpresaNombre,
		"plan":    ac.Plan,
	}, nil
}

func (p *ProspectAgent) agendarReunion(ctx context.Context, telefono string, args map[string]any) (map[string]any, error) {
	m := models.ScheduledMeeting{
		Telefono:        telefono,
		NombreProspecto: stringArg(args, "nombre"),
		EmailProspecto:  stringArg(args, "email"),
		Fecha:           stringArg(args, "fecha"),
		Hora:            stringArg(args, "hora"),
		Notas:           stringArg(args, "notas"),
		Status:          "pendiente",
	}
	if m.NombreProspecto == "" || m.Fecha == "" || m.Hora == "" {
		return map[string]any{"agendada": false, "motivo": "faltan nombre, fecha u hora"}, nil
	}
	if _, err := time.Parse("2006-01-02", m.Fecha); err != nil {
		return map[string]any{"agendada": false, "motivo": "fecha inválida, usar YYYY-MM-DD"}, nil
	}

	// El evento de calendario es mejor esfuerzo: si falla, la reunión queda
	// pendiente igual y el equipo la confirma a mano
	eventID, meetLink, err := p.calendar.CreateEvent(ctx, m)
	if err != nil {
		p.log.Warn("No se pudo crear el evento de calendario", "error", err)
	} else {
		m.GoogleEventID = eventID
		m.GoogleMeetLink = meetLink
		m.Status = "confirmada"
	}

	id, err := p.meetings.InsertMeeting(ctx, m)
	if err != nil {
		return nil, err
	}

	result := map[string]any{"agendada": true, "id": id}
	if meetLink != "" {
		result["meetLink"] = meetLink
	}
	return result, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
