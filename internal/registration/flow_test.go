package registration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// fakeSessions simula Redis en memoria, sin expiración real
type fakeSessions struct {
	sesiones map[string]models.RegistrationSession
	marcas   map[string]bool
	modos    map[string]string
	tokens   map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sesiones: map[string]models.RegistrationSession{},
		marcas:   map[string]bool{},
		modos:    map[string]string{},
		tokens:   map[string]string{},
	}
}

func (f *fakeSessions) GetRegistration(_ context.Context, telefono string) (*models.RegistrationSession, error) {
	s, ok := f.sesiones[telefono]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessions) PutRegistration(_ context.Context, s models.RegistrationSession) error {
	f.sesiones[s.Telefono] = s
	f.marcas[s.Telefono] = true
	return nil
}

func (f *fakeSessions) DeleteRegistration(_ context.Context, telefono string) error {
	delete(f.sesiones, telefono)
	return nil
}

func (f *fakeSessions) HasRegistrationMarker(_ context.Context, telefono string) (bool, error) {
	return f.marcas[telefono], nil
}

func (f *fakeSessions) DeleteRegistrationMarker(_ context.Context, telefono string) error {
	delete(f.marcas, telefono)
	return nil
}

func (f *fakeSessions) GetModo(_ context.Context, telefono string) (string, error) {
	if m, ok := f.modos[telefono]; ok {
		return m, nil
	}
	return "texto", nil
}

func (f *fakeSessions) SetModo(_ context.Context, telefono, modo string) error {
	f.modos[telefono] = modo
	return nil
}

func (f *fakeSessions) PutToken(_ context.Context, token, rut string) error {
	f.tokens[token] = rut
	return nil
}

func (f *fakeSessions) GetToken(_ context.Context, token string) (string, error) {
	return f.tokens[token], nil
}

type fakeContributors struct {
	porRUT map[string]models.Contributor
	otps   map[string]string
}

func newFakeContributors() *fakeContributors {
	return &fakeContributors{
		porRUT: map[string]models.Contributor{},
		otps:   map[string]string{},
	}
}

func (f *fakeContributors) ByTelefono(_ context.Context, telefono string) (*models.Contributor, error) {
	for _, c := range f.porRUT {
		if c.Telefono == telefono {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeContributors) ByRUT(_ context.Context, rut string) (*models.Contributor, error) {
	c, ok := f.porRUT[rut]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeContributors) Insert(_ context.Context, c models.Contributor) error {
	f.porRUT[c.RUT] = c
	return nil
}

func (f *fakeContributors) MarkVerified(_ context.Context, rut string) error {
	c := f.porRUT[rut]
	c.Verified = true
	f.porRUT[rut] = c
	return nil
}

func (f *fakeContributors) InsertOTP(_ context.Context, rut, codigo string, _ time.Duration) error {
	f.otps[rut] = codigo
	return nil
}

func (f *fakeContributors) ValidOTP(_ context.Context, rut, codigo string) (bool, error) {
	return f.otps[rut] == codigo, nil
}

func (f *fakeContributors) DeleteOTPs(_ context.Context, rut string) error {
	delete(f.otps, rut)
	return nil
}

func (f *fakeContributors) LogEvent(_ context.Context, _, _ string, _ any) error {
	return nil
}

const telefono = "56993788826"

func newTestFlow() (*Flow, *fakeSessions, *fakeContributors) {
	sessions := newFakeSessions()
	contributors := newFakeContributors()
	return NewFlow(sessions, contributors, logger.NewNop()), sessions, contributors
}

func TestFlowMensajeSinSesionNiPalabraClave(t *testing.T) {
	flow, _, _ := newTestFlow()

	_, handled, err := flow.Handle(context.Background(), telefono, "hola")

	require.NoError(t, err)
	assert.False(t, handled, "sin sesión ni palabra clave el mensaje no es del flujo")
}

func TestFlowPalabraActivacionIniciaSesion(t *testing.T) {
	flow, sessions, _ := newTestFlow()

	respuesta, handled, err := flow.Handle(context.Background(), telefono, "  Registrar ")

	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, respuesta, "RUT")
	require.Contains(t, sessions.sesiones, telefono)
	assert.Equal(t, models.PasoEsperandoRUT, sessions.sesiones[telefono].Paso)
}

func TestFlowRUTInvalidoNoAvanza(t *testing.T) {
	flow, sessions, contributors := newTestFlow()
	ctx := context.Background()

	_, _, err := flow.Handle(ctx, telefono, "registrar")
	require.NoError(t, err)

	respuesta, handled, err := flow.Handle(ctx, telefono, "abc")

	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, respuesta, "RUT")
	assert.Equal(t, models.PasoEsperandoRUT, sessions.sesiones[telefono].Paso)
	assert.Empty(t, contributors.porRUT, "un RUT inválido no persiste contribuyentes")
}

func TestFlowRUTDuplicadoAbandona(t *testing.T) {
	flow, sessions, contributors := newTestFlow()
	ctx := context.Background()
	contributors.porRUT["12345678-9"] = models.Contributor{RUT: "12345678-9"}

	_, _, err := flow.Handle(ctx, telefono, "registrar")
	require.NoError(t, err)

	respuesta, handled, err := flow.Handle(ctx, telefono, "12345678-9")

	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, respuesta, "soporte")
	assert.NotContains(t, sessions.sesiones, telefono, "la sesión se elimina al detectar duplicado")
}

func TestFlowCaminoFeliz(t *testing.T) {
	flow, sessions, contributors := newTestFlow()
	ctx := context.Background()

	pasos := []string{"registrar", "12345678-9", "Acme SpA", "secret1", "sii-pass"}
	var ultima string
	for _, mensaje := range pasos {
		respuesta, handled, err := flow.Handle(ctx, telefono, mensaje)
		require.NoError(t, err)
		require.True(t, handled)
		ultima = respuesta
	}

	require.Contains(t, contributors.porRUT, "12345678-9")
	c := contributors.porRUT["12345678-9"]
	assert.Equal(t, "Acme SpA", c.Nombre)
	assert.Equal(t, telefono, c.Telefono)
	assert.False(t, c.Verified, "la cuenta nace sin verificar")
	assert.NotEqual(t, "secret1", c.PasswordHash, "la contraseña se guarda hasheada")

	require.Contains(t, contributors.otps, "12345678-9")
	assert.Len(t, contributors.otps["12345678-9"], 6)
	assert.Contains(t, ultima, contributors.otps["12345678-9"])

	assert.NotContains(t, sessions.sesiones, telefono, "la sesión se consume al completar")
}

func TestFlowValidacionesIntermedias(t *testing.T) {
	flow, sessions, _ := newTestFlow()
	ctx := context.Background()

	_, _, _ = flow.Handle(ctx, telefono, "registrar")
	_, _, _ = flow.Handle(ctx, telefono, "12345678-9")

	// Nombre muy corto: el paso no avanza
	respuesta, _, err := flow.Handle(ctx, telefono, "ab")
	require.NoError(t, err)
	assert.Contains(t, respuesta, "corto")
	assert.Equal(t, models.PasoEsperandoNombre, sessions.sesiones[telefono].Paso)

	_, _, _ = flow.Handle(ctx, telefono, "Acme SpA")

	// Contraseña muy corta
	respuesta, _, err = flow.Handle(ctx, telefono, "123")
	require.NoError(t, err)
	assert.Contains(t, respuesta, "6 caracteres")
	assert.Equal(t, models.PasoEsperandoPassword, sessions.sesiones[telefono].Paso)
}

func TestFlowSesionExpirada(t *testing.T) {
	flow, sessions, _ := newTestFlow()
	ctx := context.Background()

	_, _, err := flow.Handle(ctx, telefono, "registrar")
	require.NoError(t, err)

	// Simular expiración del TTL: la sesión desaparece pero la marca queda
	delete(sessions.sesiones, telefono)

	respuesta, handled, err := flow.Handle(ctx, telefono, "12345678-9")

	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, respuesta, "expiró")
	assert.False(t, sessions.marcas[telefono], "la marca se consume al avisar")
}
