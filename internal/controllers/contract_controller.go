package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// ContractController permite subir contratos y preguntarles desde la web
type ContractController struct {
	contracts    services.ContractService
	contributors services.ContributorStore
	log          *logger.Logger
}

func NewContractController(contracts services.ContractService, contributors services.ContributorStore, log *logger.Logger) *ContractController {
	return &ContractController{contracts: contracts, contributors: contributors, log: log}
}

// Ingest indexa el texto de un contrato para la empresa autenticada
func (cc *ContractController) Ingest(ctx *gin.Context) {
	var req struct {
		Nombre string `json:"nombre" binding:"required"`
		Texto  string `json:"texto" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	rut := ctx.GetString("rut")
	chunks, err := cc.contracts.Ingest(ctx.Request.Context(), rut, req.Nombre, req.Texto)
	if err != nil {
		cc.log.Error("Error indexando contrato", "rut", rut, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo indexar el contrato"})
		return
	}

	if err := cc.contributors.LogEvent(ctx.Request.Context(), "", "contrato_subido", map[string]any{"rut": rut, "nombre": req.Nombre, "chunks": chunks}); err != nil {
		cc.log.Warn("No se pudo registrar el evento", "error", err)
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Contrato indexado", "chunks": chunks})
}

// Ask responde una pregunta sobre los contratos de la empresa autenticada
func (cc *ContractController) Ask(ctx *gin.Context) {
	var req struct {
		Pregunta string `json:"pregunta" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Pregunta) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "La pregunta no puede estar vacía"})
		return
	}

	rut := ctx.GetString("rut")
	respuesta, err := cc.contracts.Answer(ctx.Request.Context(), rut, req.Pregunta)
	if err != nil {
		cc.log.Error("Error respondiendo sobre contratos", "rut", rut, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo responder la pregunta"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"respuesta": respuesta})
}
