package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// MeetingStore administra códigos de activación y reuniones agendadas
type MeetingStore interface {
	// ValidateActivationCode retorna el código si existe, no está usado y no expiró
	ValidateActivationCode(ctx context.Context, code string) (*models.ActivationCode, error)
	MarkCodeUsed(ctx context.Context, code string) error

	InsertMeeting(ctx context.Context, m models.ScheduledMeeting) (string, error)
	MeetingsByTelefono(ctx context.Context, telefono string) ([]models.ScheduledMeeting, error)
	PendingMeetings(ctx context.Context) ([]models.ScheduledMeeting, error)
}

type PgMeetingStore struct {
	pool *pgxpool.Pool
}

func NewPgMeetingStore(pool *pgxpool.Pool) *PgMeetingStore {
	return &PgMeetingStore{pool: pool}
}

func (s *PgMeetingStore) ValidateActivationCode(ctx context.Context, code string) (*models.ActivationCode, error) {
	var ac models.ActivationCode
	err := s.pool.QueryRow(ctx, `
		SELECT code, empresa_nombre, plan, used, expires_at
		FROM codigos_activacion
		WHERE code = $1 AND used = false AND (expires_at IS NULL OR expires_at > now())`,
		code).Scan(&ac.Code, &ac.EmpresaNombre, &ac.Plan, &ac.Used, &ac.ExpiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, &models.LookupFailure{Op: "validar_codigo", Err: err}
	}
	return &ac, nil
}

func (s *PgMeetingStore) MarkCodeUsed(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE codigos_activacion SET used = true WHERE code = $1`, code)
	if err != nil {
		return &models.LookupFailure{Op: "usar_codigo", Err: err}
	}
	return nil
}

func (s *PgMeetingStore) InsertMeeting(ctx context.Context, m models.ScheduledMeeting) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reuniones (id, telefono, nombre_prospecto, email_prospecto, fecha, hora,
			google_event_id, google_meet_link, notas, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`,
		id, m.Telefono, m.NombreProspecto, m.EmailProspecto, m.Fecha, m.Hora,
		m.GoogleEventID, m.GoogleMeetLink, m.Notas, m.Status)
	if err != nil {
		return "", &models.LookupFailure{Op: "insertar_reunion", Err: err}
	}
	return id, nil
}

func (s *PgMeetingStore) MeetingsByTelefono(ctx context.Context, telefono string) ([]models.ScheduledMeeting, error) {
	return s.queryMeetings(ctx, `
		SELECT id, telefono, nombre_prospecto, email_prospecto, fecha, hora,
			google_event_id, google_meet_link, notas, status, created_at
		FROM reuniones
		WHERE telefono = $1
		ORDER BY created_at DESC`, telefono)
}

func (s *PgMeetingStore) PendingMeetings(ctx context.Context) ([]models.ScheduledMeeting, error) {
	return s.queryMeetings(ctx, `
		SELECT id, telefono, nombre_prospecto, email_prospecto, fecha, hora,
			google_event_id, google_meet_link, notas, status, created_at
		FROM reuniones
		WHERE status = 'pendiente'
		ORDER BY fecha, hora`)
}

func (s *PgMeetingStore) queryMeetings(ctx context.Context, query string, args ...any) ([]models.ScheduledMeeting, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.LookupFailure{Op: "listar_reuniones", Err: err}
	}
	defer rows.Close()

	var result []models.ScheduledMeeting
	for rows.Next() {
		var m models.ScheduledMeeting
		if err := rows.Scan(&m.ID, &m.Telefono, &m.NombreProspecto, &m.EmailProspecto, &m.Fecha, &m.Hora,
			&m.GoogleEventID, &m.GoogleMeetLink, &m.Notas, &m.Status, &m.CreatedAt); err != nil {
			return nil, &models.LookupFailure{Op: "listar_reuniones", Err: err}
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
