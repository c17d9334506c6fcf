package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// InternalController expone operaciones para el equipo interno: validación
// de códigos de activación y revisión de reuniones agendadas. Protegido con
// la misma API key del conector.
type InternalController struct {
	meetings services.MeetingStore
	log      *logger.Logger
}

func NewInternalController(meetings services.MeetingStore, log *logger.Logger) *InternalController {
	return &InternalController{meetings: meetings, log: log}
}

func (ic *InternalController) ValidateActivationCode(ctx *gin.Context) {
	var req struct {
		Codigo string `json:"codigo" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	ac, err := ic.meetings.ValidateActivationCode(ctx.Request.Context(), req.Codigo)
	if err != nil {
		ic.log.Error("Error validando código", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if ac == nil {
		ctx.JSON(http.StatusOK, gin.H{"valido": false})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valido":  true,
		"empresa": ac.EmpresaNombre,
		"plan":    ac.Plan,
	})
}

// ConsumeActivationCode marca un código como usado cuando el equipo completa
// el onboarding de la empresa. Un código consumido deja de validar.
func (ic *InternalController) ConsumeActivationCode(ctx *gin.Context) {
	var req struct {
		Codigo string `json:"codigo" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	ac, err := ic.meetings.ValidateActivationCode(ctx.Request.Context(), req.Codigo)
	if err != nil {
		ic.log.Error("Error validando código", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if ac == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Código inexistente, usado o expirado"})
		return
	}

	if err := ic.meetings.MarkCodeUsed(ctx.Request.Context(), req.Codigo); err != nil {
		ic.log.Error("Error consumiendo código", "codigo", req.Codigo, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"consumido": true, "empresa": ac.EmpresaNombre})
}

// CreateMeeting agenda una reunión creada manualmente por el equipo
func (ic *InternalController) CreateMeeting(ctx *gin.Context) {
	var req struct {
		Telefono string `json:"telefono"`
		Nombre   string `json:"nombre" binding:"required"`
		Email    string `json:"email"`
		Fecha    string `json:"fecha" binding:"required"`
		Hora     string `json:"hora" binding:"required"`
		Notas    string `json:"notas"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	id, err := ic.meetings.InsertMeeting(ctx.Request.Context(), models.ScheduledMeeting{
		Telefono:        req.Telefono,
		NombreProspecto: req.Nombre,
		EmailProspecto:  req.Email,
		Fecha:           req.Fecha,
		Hora:            req.Hora,
		Notas:           req.Notas,
		Status:          "pendiente",
	})
	if err != nil {
		ic.log.Error("Error creando reunión", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"id": id})
}

func (ic *InternalController) ListPendingMeetings(ctx *gin.Context) {
	meetings, err := ic.meetings.PendingMeetings(ctx.Request.Context())
	if err != nil {
		ic.log.Error("Error listando reuniones", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": meetings})
}

func (ic *InternalController) MeetingsByTelefono(ctx *gin.Context) {
	telefono := ctx.Param("telefono")
	meetings, err := ic.meetings.MeetingsByTelefono(ctx.Request.Context(), telefono)
	if err != nil {
		ic.log.Error("Error listando reuniones", "telefono", telefono, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": meetings})
}
