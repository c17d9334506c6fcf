package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ConversationStore persiste el historial conversacional por teléfono
type ConversationStore interface {
	// History retorna hasta limit turnos de las últimas ventana horas,
	// ordenados del más antiguo al más reciente
	History(ctx context.Context, telefono string, ventana time.Duration, limit int) ([]models.ConversationTurn, error)
	// Append registra un intercambio completo (mensaje + respuesta)
	Append(ctx context.Context, turn models.ConversationTurn) error
}

type PgConversationStore struct {
	pool *pgxpool.Pool
}

func NewPgConversationStore(pool *pgxpool.Pool) *PgConversationStore {
	return &PgConversationStore{pool: pool}
}

func (s *PgConversationStore) History(ctx context.Context, telefono string, ventana time.Duration, limit int) ([]models.ConversationTurn, error) {
	// Se seleccionan los N más recientes dentro de la ventana y luego se
	// reordenan ascendente para entregarlos en orden cronológico
	desde := time.Now().Add(-ventana)
	rows, err := s.pool.Query(ctx, `
		SELECT telefono, mensaje_cliente, respuesta_agente, created_at
		FROM (
			SELECT telefono, mensaje_cliente, respuesta_agente, created_at
			FROM conversaciones
			WHERE telefono = $1 AND created_at > $2
			ORDER BY created_at DESC
			LIMIT $3
		) reciente
		ORDER BY created_at ASC`,
		telefono, desde, limit)
	if err != nil {
		return nil, &models.LookupFailure{Op: "historial", Err: err}
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.Telefono, &t.MensajeCliente, &t.RespuestaAgente, &t.Timestamp); err != nil {
			return nil, &models.LookupFailure{Op: "historial", Err: err}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *PgConversationStore) Append(ctx context.Context, turn models.ConversationTurn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversaciones (telefono, mensaje_cliente, respuesta_agente, created_at)
		VALUES ($1, $2, $3, now())`,
		turn.Telefono, turn.MensajeCliente, turn.RespuestaAgente)
	if err != nil {
		return &models.LookupFailure{Op: "guardar_turno", Err: err}
	}
	return nil
}
