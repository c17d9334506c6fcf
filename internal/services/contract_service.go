package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	chromem "github.com/philippgille/chromem-go"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

const (
	contractCollection = "contratos"
	// chunkSize aproximado en caracteres; los cortes respetan fin de oración
	chunkSize = 500
	topK      = 3

	sinContratos = "No encontré información relevante en los contratos para responder esta pregunta."
)

// ContractService indexa contratos por empresa y responde preguntas sobre
// ellos con recuperación semántica más el modelo generativo.
type ContractService interface {
	Ingest(ctx context.Context, rut, nombre, texto string) (chunks int, err error)
	Answer(ctx context.Context, rut, pregunta string) (string, error)
}

type ChromemContractService struct {
	db         *chromem.DB
	collection *chromem.Collection
	completion CompletionService
	log        *logger.Logger
	mu         sync.Mutex
	nextID     int
}

func NewChromemContractService(completion CompletionService, log *logger.Logger) (*ChromemContractService, error) {
	db := chromem.NewDB()
	ef := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return completion.Embed(ctx, text)
	})
	col, err := db.GetOrCreateCollection(contractCollection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("error al crear colección de contratos: %w", err)
	}
	return &ChromemContractService{
		db:         db,
		collection: col,
		completion: completion,
		log:        log,
	}, nil
}

func (c *ChromemContractService) Ingest(ctx context.Context, rut, nombre, texto string) (int, error) {
	chunks := splitChunks(texto, chunkSize)
	if len(chunks) == 0 {
		return 0, &models.ValidationError{Field: "texto", Message: "el contrato no tiene contenido"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		c.nextID++
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s-%d", rut, c.nextID),
			Content: chunk,
			Metadata: map[string]string{
				"rut":    rut,
				"nombre": nombre,
			},
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("error al indexar contrato: %w", err)
	}

	c.log.Info("Contrato indexado", "rut", rut, "nombre", nombre, "chunks", len(chunks))
	return len(chunks), nil
}

func (c *ChromemContractService) Answer(ctx context.Context, rut, pregunta string) (string, error) {
	limit := topK
	if count := c.collection.Count(); count == 0 {
		return sinContratos, nil
	} else if limit > count {
		limit = count
	}

	where := map[string]string{"rut": rut}
	results, err := c.collection.Query(ctx, pregunta, limit, where, nil)
	if err != nil {
		// Sin documentos de esta empresa la consulta falla; se trata igual
		// que una recuperación vacía
		c.log.Debug("Consulta de contratos sin resultados", "rut", rut, "error", err)
		return sinContratos, nil
	}
	if len(results) == 0 {
		return sinContratos, nil
	}

	var contexto strings.Builder
	for i, r := range results {
		contexto.WriteString(fmt.Sprintf("[Extracto %d]\n%s\n\n", i+1, r.Content))
	}

	systemPrompt := fmt.Sprintf(`Eres un asistente que responde preguntas sobre los contratos de una empresa.
Responde SOLO con base en los extractos entregados. Si los extractos no contienen
la respuesta, dilo claramente. Responde en español, breve y directo.

Extractos de contratos:
%s`, contexto.String())

	return c.completion.Complete(ctx, systemPrompt, nil, pregunta)
}

// splitChunks corta el texto en trozos de ~max caracteres, prefiriendo
// cerrar cada trozo en un fin de oración.
func splitChunks(texto string, max int) []string {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return nil
	}

	var chunks []string
	for len(texto) > max {
		corte := max
		if idx := strings.LastIndexAny(texto[:max], ".!?\n"); idx > max/2 {
			corte = idx + 1
		}
		// El corte no puede caer a mitad de una runa multibyte
		for corte > 0 && !utf8.RuneStart(texto[corte]) {
			corte--
		}
		if corte == 0 {
			corte = max
		}
		chunk := strings.TrimSpace(texto[:corte])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		texto = strings.TrimSpace(texto[corte:])
	}
	if texto != "" {
		chunks = append(chunks, texto)
	}
	return chunks
}
