package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// fakeMeetingStore mantiene códigos y reuniones en memoria
type fakeMeetingStore struct {
	codigos   map[string]*models.ActivationCode
	reuniones []models.ScheduledMeeting
}

func (f *fakeMeetingStore) ValidateActivationCode(_ context.Context, code string) (*models.ActivationCode, error) {
	ac, ok := f.codigos[code]
	if !ok || ac.Used {
		return nil, nil
	}
	return ac, nil
}

func (f *fakeMeetingStore) MarkCodeUsed(_ context.Context, code string) error {
	if ac, ok := f.codigos[code]; ok {
		ac.Used = true
	}
	return nil
}

func (f *fakeMeetingStore) InsertMeeting(_ context.Context, m models.ScheduledMeeting) (string, error) {
	f.reuniones = append(f.reuniones, m)
	return "id-1", nil
}

func (f *fakeMeetingStore) MeetingsByTelefono(_ context.Context, telefono string) ([]models.ScheduledMeeting, error) {
	var result []models.ScheduledMeeting
	for _, m := range f.reuniones {
		if m.Telefono == telefono {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeMeetingStore) PendingMeetings(_ context.Context) ([]models.ScheduledMeeting, error) {
	var result []models.ScheduledMeeting
	for _, m := range f.reuniones {
		if m.Status == "pendiente" {
			result = append(result, m)
		}
	}
	return result, nil
}

func newInternalRouter(store *fakeMeetingStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ic := NewInternalController(store, logger.NewNop())
	r := gin.New()
	r.POST("/activation-codes/validate", ic.ValidateActivationCode)
	r.POST("/activation-codes/consume", ic.ConsumeActivationCode)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConsumeActivationCodeMarcaUsado(t *testing.T) {
	store := &fakeMeetingStore{
		codigos: map[string]*models.ActivationCode{
			"ABC-123": {Code: "ABC-123", EmpresaNombre: "Acme SpA", Plan: "pyme"},
		},
	}
	r := newInternalRouter(store)

	w := postJSON(t, r, "/activation-codes/consume", `{"codigo":"ABC-123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"consumido":true`)
	assert.True(t, store.codigos["ABC-123"].Used)
}

func TestConsumeActivationCodeYaUsado(t *testing.T) {
	store := &fakeMeetingStore{
		codigos: map[string]*models.ActivationCode{
			"ABC-123": {Code: "ABC-123", EmpresaNombre: "Acme SpA", Plan: "pyme"},
		},
	}
	r := newInternalRouter(store)

	primera := postJSON(t, r, "/activation-codes/consume", `{"codigo":"ABC-123"}`)
	segunda := postJSON(t, r, "/activation-codes/consume", `{"codigo":"ABC-123"}`)

	require.Equal(t, http.StatusOK, primera.Code)
	assert.Equal(t, http.StatusNotFound, segunda.Code)
}

func TestConsumeActivationCodeInexistente(t *testing.T) {
	r := newInternalRouter(&fakeMeetingStore{codigos: map[string]*models.ActivationCode{}})

	w := postJSON(t, r, "/activation-codes/consume", `{"codigo":"NO-EXISTE"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateActivationCodeNoConsume(t *testing.T) {
	store := &fakeMeetingStore{
		codigos: map[string]*models.ActivationCode{
			"ABC-123": {Code: "ABC-123", EmpresaNombre: "Acme SpA", Plan: "pyme"},
		},
	}
	r := newInternalRouter(store)

	w := postJSON(t, r, "/activation-codes/validate", `{"codigo":"ABC-123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valido":true`)
	// Validar no marca el código: sigue disponible para el onboarding
	assert.False(t, store.codigos["ABC-123"].Used)
}
