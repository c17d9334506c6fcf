package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// SpeechService cubre el ciclo de voz: transcribir el audio entrante,
// sintetizar la respuesta y convertirla al formato de WhatsApp.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Synthesize(ctx context.Context, texto string) ([]byte, error)
	// Transcode convierte mp3 a ogg/opus vía el servicio transcodificador
	Transcode(ctx context.Context, mp3 []byte) ([]byte, error)
}

type ElevenLabsService struct {
	apiKey        string
	voiceID       string
	transcoderURL string
	httpClient    *http.Client
	log           *logger.Logger
}

func NewElevenLabsService(apiKey, voiceID, transcoderURL string, log *logger.Logger) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:        apiKey,
		voiceID:       voiceID,
		transcoderURL: transcoderURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

func (e *ElevenLabsService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	if err := writer.WriteField("model_id", "scribe_v1"); err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	if err := writer.WriteField("language_code", "es"); err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &models.TranscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsBaseURL+"/speech-to-text", &buf)
	if err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.log.Warn("ElevenLabs STT devolvió error", "status", resp.StatusCode, "body", string(body))
		return "", &models.TranscriptionError{Err: fmt.Errorf("elevenlabs devolvió status %d", resp.StatusCode)}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &models.TranscriptionError{Err: err}
	}
	return result.Text, nil
}

func (e *ElevenLabsService) Synthesize(ctx context.Context, texto string) ([]byte, error) {
	payload := map[string]any{
		"text":     texto,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &models.SynthesisError{Err: err}
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", elevenLabsBaseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &models.SynthesisError{Err: err}
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &models.SynthesisError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.log.Warn("ElevenLabs TTS devolvió error", "status", resp.StatusCode, "body", string(errBody))
		return nil, &models.SynthesisError{Err: fmt.Errorf("elevenlabs devolvió status %d", resp.StatusCode)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.SynthesisError{Err: err}
	}
	return audio, nil
}

func (e *ElevenLabsService) Transcode(ctx context.Context, mp3 []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.transcoderURL+"/convert", bytes.NewReader(mp3))
	if err != nil {
		return nil, &models.TranscodeError{Err: err}
	}
	req.Header.Set("Content-Type", "audio/mpeg")
	req.Header.Set("Accept", "audio/ogg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &models.TranscodeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TranscodeError{Err: fmt.Errorf("transcodificador devolvió status %d", resp.StatusCode)}
	}

	ogg, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TranscodeError{Err: err}
	}
	return ogg, nil
}
