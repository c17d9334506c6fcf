package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        string
	CORSOrigins string

	DatabaseURL string
	RedisAddr   string

	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	TranscoderURL     string

	CalendarServiceURL string

	AgentAPIKey string
}

// Load carga la configuración desde .env o variables de entorno del sistema.
func Load() (*Config, error) {
	// Cargar .env si existe; en producción se usan variables del sistema
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnv("PORT", "3000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		TranscoderURL:     getEnv("TRANSCODER_URL", ""),

		CalendarServiceURL: getEnv("CALENDAR_SERVICE_URL", ""),

		AgentAPIKey: getEnv("AGENT_API_KEY", ""),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY es requerido")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL es requerido")
	}
	if cfg.AgentAPIKey == "" {
		return nil, fmt.Errorf("AGENT_API_KEY es requerido")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
