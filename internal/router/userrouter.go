package router

import (
	"context"

	"github.com/jpcastilloarce/renata-ai/internal/models"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// Clase de usuario según su estado de registro
type Clase string

const (
	ClaseCliente   Clase = "cliente"
	ClaseProspecto Clase = "prospecto"
)

// UserRouter decide si un teléfono corresponde a un cliente o a un prospecto
type UserRouter struct {
	contributors services.ContributorStore
}

func New(contributors services.ContributorStore) *UserRouter {
	return &UserRouter{contributors: contributors}
}

// Identify clasifica el teléfono. Solo un contribuyente verificado cuenta
// como cliente; uno registrado pero sin verificar sigue siendo prospecto.
func (r *UserRouter) Identify(ctx context.Context, telefono string) (Clase, *models.Contributor, error) {
	c, err := r.contributors.ByTelefono(ctx, telefono)
	if err != nil {
		return "", nil, err
	}
	if c == nil || !c.Verified {
		return ClaseProspecto, c, nil
	}
	return ClaseCliente, c, nil
}
