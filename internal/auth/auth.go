package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

var ErrAdminNotFound = errors.New("admin not found")

// FixedAdminID is the identity issued to the admin configured through
// ADMIN_EMAIL / ADMIN_PASSWORD.
const FixedAdminID int64 = 1

type ServiceAPI interface {
	RegisterAdmin(ctx context.Context, dto RegisterAdminDTO) (*admin.Admin, error)
	LoginAdmin(ctx context.Context, dto LoginDTO) (*AdminLoginResponse, error)
	LoginClient(ctx context.Context, dto LoginDTO) (*ClientLoginResponse, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type AdminRepositoryAPI interface {
	Create(ctx context.Context, a *admin.Admin) error
	GetByEmail(ctx context.Context, email string) (*admin.Admin, error)
}

// ClientLookupAPI is the read side of the client store used at login. It
// must return internal.ErrClientNotFound for unknown emails.
type ClientLookupAPI interface {
	GetByEmail(ctx context.Context, email string) (*client.Client, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(subject internal.Subject, plan *string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the JWT claims issued to admins and clients.
type Claims struct {
	Email string  `json:"email"`
	Name  string  `json:"nome"`
	Role  string  `json:"role"`
	Plan  *string `json:"plano,omitempty"`
	jwt.RegisteredClaims
}

// ToSubject converts the claims into the request principal.
func (c *Claims) ToSubject() (internal.Subject, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return internal.Subject{}, internal.ErrInvalidToken
	}
	return internal.Subject{
		ID:    id,
		Role:  c.Role,
		Email: c.Email,
		Name:  c.Name,
	}, nil
}

type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
}
