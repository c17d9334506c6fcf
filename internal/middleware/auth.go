package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// AgentAuth protege los endpoints consumidos por el conector de WhatsApp y
// las rutas internas. Acepta X-Agent-Key o Authorization: Bearer.
func AgentAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Agent-Key")
		if key == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = auth[7:]
			}
		}

		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Falta la API key",
				"hint":  "Usa el header X-Agent-Key o Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if key != apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key inválida"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TokenAuth protege las rutas web: resuelve el token de sesión en Redis y
// deja el RUT del contribuyente en el contexto bajo la clave "rut".
func TokenAuth(sessions services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Se requiere token de sesión"})
			c.Abort()
			return
		}

		rut, err := sessions.GetToken(c.Request.Context(), auth[7:])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo validar la sesión"})
			c.Abort()
			return
		}
		if rut == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sesión inválida o expirada"})
			c.Abort()
			return
		}

		c.Set("rut", rut)
		c.Next()
	}
}
