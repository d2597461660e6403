package client

import (
	"context"

	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

// RepositoryAPI is the clientes store. Lookups return
// internal.ErrClientNotFound for missing rows.
type RepositoryAPI interface {
	List(ctx context.Context) ([]*clientDatamodel.Client, error)
	GetByID(ctx context.Context, id int64) (*clientDatamodel.Client, error)
	GetByEmail(ctx context.Context, email string) (*clientDatamodel.Client, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, c *clientDatamodel.Client) error
	Update(ctx context.Context, c *clientDatamodel.Client, updatePassword bool) error
}

type ServiceAPI interface {
	List(ctx context.Context) ([]*clientDatamodel.Client, error)
	Create(ctx context.Context, dto CreateClientDTO) (*clientDatamodel.Client, error)
	Update(ctx context.Context, id int64, dto UpdateClientDTO) (*clientDatamodel.Client, error)
}
