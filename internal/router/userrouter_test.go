package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

type fakeContributors struct {
	porTelefono map[string]models.Contributor
}

func (f *fakeContributors) ByTelefono(_ context.Context, telefono string) (*models.Contributor, error) {
	c, ok := f.porTelefono[telefono]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeContributors) ByRUT(_ context.Context, _ string) (*models.Contributor, error) {
	return nil, nil
}

func (f *fakeContributors) Insert(_ context.Context, _ models.Contributor) error    { return nil }
func (f *fakeContributors) MarkVerified(_ context.Context, _ string) error          { return nil }
func (f *fakeContributors) InsertOTP(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}
func (f *fakeContributors) ValidOTP(_ context.Context, _, _ string) (bool, error) { return false, nil }
func (f *fakeContributors) DeleteOTPs(_ context.Context, _ string) error          { return nil }
func (f *fakeContributors) LogEvent(_ context.Context, _, _ string, _ any) error  { return nil }

func TestIdentifyClienteVerificado(t *testing.T) {
	r := New(&fakeContributors{porTelefono: map[string]models.Contributor{
		"56911111111": {RUT: "12345678-9", Telefono: "56911111111", Verified: true},
	}})

	clase, c, err := r.Identify(context.Background(), "56911111111")

	require.NoError(t, err)
	assert.Equal(t, ClaseCliente, clase)
	require.NotNil(t, c)
	assert.Equal(t, "12345678-9", c.RUT)
}

func TestIdentifyRegistradoSinVerificarEsProspecto(t *testing.T) {
	r := New(&fakeContributors{porTelefono: map[string]models.Contributor{
		"56922222222": {RUT: "11111111-1", Telefono: "56922222222", Verified: false},
	}})

	clase, c, err := r.Identify(context.Background(), "56922222222")

	require.NoError(t, err)
	assert.Equal(t, ClaseProspecto, clase)
	assert.NotNil(t, c, "el registro existe aunque siga siendo prospecto")
}

func TestIdentifyDesconocidoEsProspecto(t *testing.T) {
	r := New(&fakeContributors{porTelefono: map[string]models.Contributor{}})

	clase, c, err := r.Identify(context.Background(), "56900000000")

	require.NoError(t, err)
	assert.Equal(t, ClaseProspecto, clase)
	assert.Nil(t, c)
}
