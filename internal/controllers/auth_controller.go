package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
	"github.com/jpcastilloarce/renata-ai/internal/utils"
)

// AuthController maneja registro web, verificación de teléfono y login
type AuthController struct {
	contributors services.ContributorStore
	sessions     services.SessionStore
	log          *logger.Logger
}

func NewAuthController(contributors services.ContributorStore, sessions services.SessionStore, log *logger.Logger) *AuthController {
	return &AuthController{contributors: contributors, sessions: sessions, log: log}
}

// Register crea una cuenta desde el formulario web. Igual que el flujo por
// WhatsApp, la cuenta nace sin verificar y requiere el OTP.
func (ac *AuthController) Register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	rut := strings.ToUpper(strings.TrimSpace(req.RUT))
	if !utils.ValidateRUT(rut) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "RUT no válido (formato 12345678-9)"})
		return
	}
	if err := utils.ValidateTelefono(req.Telefono); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Password) < 6 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "La contraseña debe tener al menos 6 caracteres"})
		return
	}

	reqCtx := ctx.Request.Context()
	existente, err := ac.contributors.ByRUT(reqCtx, rut)
	if err != nil {
		ac.log.Error("Error consultando contribuyente", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if existente != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Ese RUT ya tiene una cuenta"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	if err := ac.contributors.Insert(reqCtx, models.Contributor{
		RUT:          rut,
		Nombre:       strings.TrimSpace(req.Nombre),
		Telefono:     req.Telefono,
		PasswordHash: hash,
		ClaveSII:     req.ClaveSII,
		Verified:     false,
	}); err != nil {
		ac.log.Error("Error insertando contribuyente", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if err := ac.contributors.InsertOTP(reqCtx, rut, otp, 5*time.Minute); err != nil {
		ac.log.Error("Error guardando OTP", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	ac.log.Info("Cuenta creada vía web", "rut", rut)
	if err := ac.contributors.LogEvent(reqCtx, req.Telefono, "registro_web", map[string]string{"rut": rut}); err != nil {
		ac.log.Warn("No se pudo registrar el evento", "error", err)
	}
	// El OTP viaja por WhatsApp al teléfono registrado; nunca en la respuesta
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Cuenta creada. Te enviamos un código de verificación por WhatsApp.",
	})
}

// VerifyOTP marca el teléfono como verificado si el código coincide
func (ac *AuthController) VerifyOTP(ctx *gin.Context) {
	var req models.VerifyOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	rut := strings.ToUpper(strings.TrimSpace(req.RUT))
	reqCtx := ctx.Request.Context()

	ok, err := ac.contributors.ValidOTP(reqCtx, rut, strings.TrimSpace(req.Codigo))
	if err != nil {
		ac.log.Error("Error validando OTP", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Código inválido o expirado"})
		return
	}

	if err := ac.contributors.MarkVerified(reqCtx, rut); err != nil {
		ac.log.Error("Error verificando contribuyente", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if err := ac.contributors.DeleteOTPs(reqCtx, rut); err != nil {
		ac.log.Warn("No se pudieron limpiar los OTP", "rut", rut, "error", err)
	}

	ac.log.Info("Teléfono verificado", "rut", rut)
	if err := ac.contributors.LogEvent(reqCtx, "", "telefono_verificado", map[string]string{"rut": rut}); err != nil {
		ac.log.Warn("No se pudo registrar el evento", "error", err)
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Teléfono verificado. Tu cuenta está activa."})
}

// Login valida credenciales y emite un token de sesión de 24 horas
func (ac *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}

	rut := strings.ToUpper(strings.TrimSpace(req.RUT))
	reqCtx := ctx.Request.Context()

	c, err := ac.contributors.ByRUT(reqCtx, rut)
	if err != nil {
		ac.log.Error("Error consultando contribuyente", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if c == nil || !utils.ComparePassword(req.Password, c.PasswordHash) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "RUT o contraseña incorrectos"})
		return
	}

	token, err := utils.GenerateToken()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}
	if err := ac.sessions.PutToken(reqCtx, token, rut); err != nil {
		ac.log.Error("Error guardando token", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	if err := ac.contributors.LogEvent(reqCtx, c.Telefono, "login", map[string]string{"rut": rut}); err != nil {
		ac.log.Warn("No se pudo registrar el evento", "error", err)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token":    token,
		"rut":      c.RUT,
		"nombre":   c.Nombre,
		"verified": c.Verified,
	})
}
