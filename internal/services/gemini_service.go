package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

const (
	completionTimeout = 30 * time.Second
	// maxToolIterations corta ciclos de herramientas que no convergen
	maxToolIterations = 5

	respuestaDegradada = "Disculpa, no pude completar tu solicitud en este momento. ¿Puedes intentarlo de nuevo?"
)

// ToolHandler ejecuta una llamada a herramienta solicitada por el modelo y
// retorna el resultado que se le devuelve como FunctionResponse.
type ToolHandler func(ctx context.Context, name string, args map[string]any) (map[string]any, error)

// CompletionService abstrae el modelo generativo para los agentes
type CompletionService interface {
	// Complete genera una respuesta de texto con historial conversacional
	Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string) (string, error)
	// CompleteWithTools permite al modelo invocar herramientas; el loop se
	// corta tras maxToolIterations con una respuesta degradada fija
	CompleteWithTools(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string, tools []*genai.Tool, handler ToolHandler) (string, error)
	// Embed genera el vector de embedding de un texto
	Embed(ctx context.Context, text string) ([]float32, error)
}

type GeminiService struct {
	client    *genai.Client
	modelName string
	embedName string
	log       *logger.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName, embedName string, log *logger.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error al crear cliente Gemini: %w", err)
	}
	log.Info("Servicio Gemini inicializado", "modelo", modelName)
	return &GeminiService{
		client:    client,
		modelName: modelName,
		embedName: embedName,
		log:       log,
	}, nil
}

func (g *GeminiService) newModel(systemPrompt string) *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.9)
	model.SetTopK(40)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	return model
}

func chatHistory(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func (g *GeminiService) Complete(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	cs := g.newModel(systemPrompt).StartChat()
	cs.History = chatHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", &models.CompletionError{Err: err}
	}
	text := extractText(resp)
	if text == "" {
		return "", &models.CompletionError{Err: fmt.Errorf("no se recibió respuesta del modelo")}
	}
	return text, nil
}

func (g *GeminiService) CompleteWithTools(ctx context.Context, systemPrompt string, history []models.ChatMessage, userMessage string, tools []*genai.Tool, handler ToolHandler) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	model := g.newModel(systemPrompt)
	model.Tools = tools
	cs := model.StartChat()
	cs.History = chatHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", &models.CompletionError{Err: err}
	}

	for i := 0; i < maxToolIterations; i++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			text := extractText(resp)
			if text == "" {
				return "", &models.CompletionError{Err: fmt.Errorf("no se recibió respuesta del modelo")}
			}
			return text, nil
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			g.log.Info("Herramienta invocada por el modelo", "tool", call.Name)
			result, err := handler(ctx, call.Name, call.Args)
			if err != nil {
				result = map[string]any{"error": err.Error()}
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}

		resp, err = cs.SendMessage(ctx, parts...)
		if err != nil {
			return "", &models.CompletionError{Err: err}
		}
	}

	g.log.Warn("Ciclo de herramientas no convergió, respuesta degradada")
	return respuestaDegradada, nil
}

func (g *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	em := g.client.EmbeddingModel(g.embedName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &models.CompletionError{Err: err}
	}
	if res.Embedding == nil {
		return nil, &models.CompletionError{Err: fmt.Errorf("embedding vacío")}
	}
	return res.Embedding.Values, nil
}

func (g *GeminiService) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}
