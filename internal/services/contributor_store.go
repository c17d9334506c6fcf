package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// ContributorStore administra las empresas registradas, sus OTP y eventos
type ContributorStore interface {
	ByTelefono(ctx context.Context, telefono string) (*models.Contributor, error)
	ByRUT(ctx context.Context, rut string) (*models.Contributor, error)
	Insert(ctx context.Context, c models.Contributor) error
	MarkVerified(ctx context.Context, rut string) error

	InsertOTP(ctx context.Context, rut, codigo string, expiraEn time.Duration) error
	ValidOTP(ctx context.Context, rut, codigo string) (bool, error)
	DeleteOTPs(ctx context.Context, rut string) error

	LogEvent(ctx context.Context, telefono, tipo string, payload any) error
}

type PgContributorStore struct {
	pool *pgxpool.Pool
}

func NewPgContributorStore(pool *pgxpool.Pool) *PgContributorStore {
	return &PgContributorStore{pool: pool}
}

func (s *PgContributorStore) ByTelefono(ctx context.Context, telefono string) (*models.Contributor, error) {
	return s.scanOne(ctx, `
		SELECT rut, nombre, telefono, password_hash, clave_sii, verified, created_at
		FROM contribuyentes
		WHERE telefono = $1`, telefono)
}

func (s *PgContributorStore) ByRUT(ctx context.Context, rut string) (*models.Contributor, error) {
	return s.scanOne(ctx, `
		SELECT rut, nombre, telefono, password_hash, clave_sii, verified, created_at
		FROM contribuyentes
		WHERE rut = $1`, rut)
}

func (s *PgContributorStore) scanOne(ctx context.Context, query, arg string) (*models.Contributor, error) {
	var c models.Contributor
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&c.RUT, &c.Nombre, &c.Telefono, &c.PasswordHash, &c.ClaveSII, &c.Verified, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, &models.LookupFailure{Op: "buscar_contribuyente", Err: err}
	}
	return &c, nil
}

func (s *PgContributorStore) Insert(ctx context.Context, c models.Contributor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contribuyentes (rut, nombre, telefono, password_hash, clave_sii, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		c.RUT, c.Nombre, c.Telefono, c.PasswordHash, c.ClaveSII, c.Verified)
	if err != nil {
		return &models.LookupFailure{Op: "insertar_contribuyente", Err: err}
	}
	return nil
}

func (s *PgContributorStore) MarkVerified(ctx context.Context, rut string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contribuyentes SET verified = true WHERE rut = $1`, rut)
	if err != nil {
		return &models.LookupFailure{Op: "verificar_contribuyente", Err: err}
	}
	return nil
}

func (s *PgContributorStore) InsertOTP(ctx context.Context, rut, codigo string, expiraEn time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO otp_codes (rut, codigo, expires_at, created_at)
		VALUES ($1, $2, $3, now())`,
		rut, codigo, time.Now().Add(expiraEn))
	if err != nil {
		return &models.LookupFailure{Op: "insertar_otp", Err: err}
	}
	return nil
}

func (s *PgContributorStore) ValidOTP(ctx context.Context, rut, codigo string) (bool, error) {
	var existe bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM otp_codes
			WHERE rut = $1 AND codigo = $2 AND expires_at > now()
		)`, rut, codigo).Scan(&existe)
	if err != nil {
		return false, &models.LookupFailure{Op: "validar_otp", Err: err}
	}
	return existe, nil
}

func (s *PgContributorStore) DeleteOTPs(ctx context.Context, rut string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM otp_codes WHERE rut = $1`, rut)
	if err != nil {
		return &models.LookupFailure{Op: "eliminar_otp", Err: err}
	}
	return nil
}

// LogEvent registra un evento de negocio para auditoría. El payload se
// serializa a JSON; un payload no serializable se registra como nulo.
func (s *PgContributorStore) LogEvent(ctx context.Context, telefono, tipo string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO eventos (telefono, tipo, payload, created_at)
		VALUES ($1, $2, $3, now())`,
		telefono, tipo, data)
	if err != nil {
		return &models.LookupFailure{Op: "registrar_evento", Err: err}
	}
	return nil
}
