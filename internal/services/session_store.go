package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

const (
	// RegistrationTTL limita la vida de una sesión de registro abandonada
	RegistrationTTL = 15 * time.Minute
	// markerTTL sobrevive a la sesión para poder avisar que expiró
	markerTTL = 24 * time.Hour
	// modoTTL conserva la preferencia texto/audio del usuario
	modoTTL = 30 * 24 * time.Hour
	// tokenTTL es la vida de una sesión web
	tokenTTL = 24 * time.Hour
)

// SessionStore guarda estado volátil en Redis: sesiones de registro,
// preferencia de modo de respuesta y tokens de sesión web.
type SessionStore interface {
	GetRegistration(ctx context.Context, telefono string) (*models.RegistrationSession, error)
	PutRegistration(ctx context.Context, sesion models.RegistrationSession) error
	DeleteRegistration(ctx context.Context, telefono string) error

	// El marcador distingue "nunca inició registro" de "su sesión expiró"
	HasRegistrationMarker(ctx context.Context, telefono string) (bool, error)
	DeleteRegistrationMarker(ctx context.Context, telefono string) error

	GetModo(ctx context.Context, telefono string) (string, error)
	SetModo(ctx context.Context, telefono, modo string) error

	PutToken(ctx context.Context, token, rut string) error
	GetToken(ctx context.Context, token string) (string, error)
}

type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisClient crea y verifica el cliente Redis
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func keyRegistro(telefono string) string { return "registro:" + telefono }
func keyMarca(telefono string) string    { return "registro_marca:" + telefono }
func keyModo(telefono string) string     { return "modo:" + telefono }
func keySesion(token string) string      { return "sesion:" + token }

func (s *RedisSessionStore) GetRegistration(ctx context.Context, telefono string) (*models.RegistrationSession, error) {
	data, err := s.client.Get(ctx, keyRegistro(telefono)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sesion models.RegistrationSession
	if err := json.Unmarshal(data, &sesion); err != nil {
		// Sesión corrupta: se descarta para que el flujo reinicie limpio
		s.client.Del(ctx, keyRegistro(telefono))
		return nil, &models.SessionStateError{Telefono: telefono, Motivo: "payload corrupto"}
	}
	return &sesion, nil
}

func (s *RedisSessionStore) PutRegistration(ctx context.Context, sesion models.RegistrationSession) error {
	data, err := json.Marshal(sesion)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyRegistro(sesion.Telefono), data, RegistrationTTL)
	pipe.Set(ctx, keyMarca(sesion.Telefono), "1", markerTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) DeleteRegistration(ctx context.Context, telefono string) error {
	return s.client.Del(ctx, keyRegistro(telefono)).Err()
}

func (s *RedisSessionStore) HasRegistrationMarker(ctx context.Context, telefono string) (bool, error) {
	n, err := s.client.Exists(ctx, keyMarca(telefono)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisSessionStore) DeleteRegistrationMarker(ctx context.Context, telefono string) error {
	return s.client.Del(ctx, keyMarca(telefono)).Err()
}

func (s *RedisSessionStore) GetModo(ctx context.Context, telefono string) (string, error) {
	modo, err := s.client.Get(ctx, keyModo(telefono)).Result()
	if errors.Is(err, redis.Nil) {
		return "texto", nil
	}
	if err != nil {
		return "", err
	}
	return modo, nil
}

func (s *RedisSessionStore) SetModo(ctx context.Context, telefono, modo string) error {
	return s.client.Set(ctx, keyModo(telefono), modo, modoTTL).Err()
}

func (s *RedisSessionStore) PutToken(ctx context.Context, token, rut string) error {
	return s.client.Set(ctx, keySesion(token), rut, tokenTTL).Err()
}

// GetToken retorna el RUT asociado a un token, o "" si no existe
func (s *RedisSessionStore) GetToken(ctx context.Context, token string) (string, error) {
	rut, err := s.client.Get(ctx, keySesion(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rut, nil
}
