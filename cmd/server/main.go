package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/agents"
	"github.com/jpcastilloarce/renata-ai/internal/config"
	"github.com/jpcastilloarce/renata-ai/internal/controllers"
	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/middleware"
	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/registration"
	"github.com/jpcastilloarce/renata-ai/internal/router"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error de configuración: %v", err)
	}

	logg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Error creando logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()

	logg.Info("Inicializando servicios...")

	pool, err := services.NewPgPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Fatal("Error conectando a Postgres", "error", err)
	}
	defer pool.Close()

	redisClient, err := services.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logg.Fatal("Error conectando a Redis", "error", err)
	}
	defer redisClient.Close()

	gemini, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel, logg)
	if err != nil {
		logg.Fatal("Error creando servicio Gemini", "error", err)
	}
	defer gemini.Close()

	contracts, err := services.NewChromemContractService(gemini, logg)
	if err != nil {
		logg.Fatal("Error creando índice de contratos", "error", err)
	}

	// Stores
	taxStore := services.NewPgTaxStore(pool)
	conversation := services.NewPgConversationStore(pool)
	contributors := services.NewPgContributorStore(pool)
	meetings := services.NewPgMeetingStore(pool)
	sessions := services.NewRedisSessionStore(redisClient)

	// Colaboradores externos
	speech := services.NewElevenLabsService(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.TranscoderURL, logg)
	calendar := services.NewHTTPCalendarService(cfg.CalendarServiceURL, logg)

	// Agentes y flujos
	userRouter := router.New(contributors)
	taxAgent := agents.NewTaxAgent(taxStore, conversation, gemini, contracts, logg)
	prospectAgent := agents.NewProspectAgent(gemini, meetings, calendar, logg)
	regFlow := registration.NewFlow(sessions, contributors, logg)
	limiter := middleware.NewPhoneLimiter(20, 5)

	// Controllers
	messageController := controllers.NewMessageController(
		userRouter, taxAgent, prospectAgent, regFlow,
		conversation, sessions, speech, limiter, logg)
	authController := controllers.NewAuthController(contributors, sessions, logg)
	taxController := controllers.NewTaxController(taxStore, logg)
	internalController := controllers.NewInternalController(meetings, logg)
	contractController := controllers.NewContractController(contracts, contributors, logg)

	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Agent-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, models.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Service:   "Renata AI - Gateway Tributario",
		})
	})

	// Mensajería: consumido por el conector de WhatsApp
	agent := r.Group("/api/agent", middleware.AgentAuth(cfg.AgentAPIKey))
	{
		agent.POST("/message", messageController.HandleMessage)
	}

	// Autenticación web
	r.POST("/api/register", authController.Register)
	r.POST("/api/verify-otp", authController.VerifyOTP)
	r.POST("/api/login", authController.Login)

	// Datos tributarios y contratos: requieren sesión web
	api := r.Group("/api", middleware.TokenAuth(sessions))
	{
		api.GET("/ventas/resumen", taxController.VentasResumen)
		api.GET("/ventas/detalle", taxController.VentasDetalle)
		api.GET("/compras/resumen", taxController.ComprasResumen)
		api.GET("/compras/detalle", taxController.ComprasDetalle)
		api.POST("/contratos", contractController.Ingest)
		api.POST("/ask", contractController.Ask)
	}

	// Rutas internas del equipo
	internal := r.Group("/api/internal", middleware.AgentAuth(cfg.AgentAPIKey))
	{
		internal.POST("/activation-codes/validate", internalController.ValidateActivationCode)
		internal.POST("/activation-codes/consume", internalController.ConsumeActivationCode)
		internal.POST("/scheduled-meetings", internalController.CreateMeeting)
		internal.GET("/scheduled-meetings", internalController.ListPendingMeetings)
		internal.GET("/scheduled-meetings/:telefono", internalController.MeetingsByTelefono)
	}

	logg.Info("Servidor iniciado", "puerto", cfg.Port, "env", cfg.Env)
	if err := r.Run(":" + cfg.Port); err != nil {
		logg.Fatal("Error iniciando servidor", "error", err)
	}
}
