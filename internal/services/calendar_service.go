package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// CalendarService crea eventos de reunión en el servicio de calendario
type CalendarService interface {
	// CreateEvent agenda la reunión y retorna el id del evento y el link de Meet
	CreateEvent(ctx context.Context, m models.ScheduledMeeting) (eventID, meetLink string, err error)
}

type HTTPCalendarService struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewHTTPCalendarService(baseURL string, log *logger.Logger) *HTTPCalendarService {
	return &HTTPCalendarService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *HTTPCalendarService) CreateEvent(ctx context.Context, m models.ScheduledMeeting) (string, string, error) {
	payload := map[string]any{
		"titulo": fmt.Sprintf("Reunión con %s", m.NombreProspecto),
		"fecha":  m.Fecha,
		"hora":   m.Hora,
		"email":  m.EmailProspecto,
		"notas":  m.Notas,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", &models.UpstreamServiceError{Service: "calendario", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", "", &models.UpstreamServiceError{Service: "calendario", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", &models.UpstreamServiceError{Service: "calendario", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("Servicio de calendario devolvió error", "status", resp.StatusCode, "body", string(errBody))
		return "", "", &models.UpstreamServiceError{
			Service: "calendario",
			Err:     fmt.Errorf("calendario devolvió status %d", resp.StatusCode),
		}
	}

	var result struct {
		EventID  string `json:"eventId"`
		MeetLink string `json:"meetLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", &models.UpstreamServiceError{Service: "calendario", Err: err}
	}
	return result.EventID, result.MeetLink, nil
}
