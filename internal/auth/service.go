package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

const DefaultTokenTTL = 8 * time.Hour

type Service struct {
	admins         AdminRepositoryAPI
	clients        ClientLookupAPI
	tokenGenerator TokenGeneratorAPI
	security       internal.SecurityConfig
	bcryptCost     int
}

func NewService(admins AdminRepositoryAPI, clients ClientLookupAPI, tokenGen TokenGeneratorAPI, security internal.SecurityConfig) *Service {
	cost := security.BCryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		admins:         admins,
		clients:        clients,
		tokenGenerator: tokenGen,
		security:       security,
		bcryptCost:     cost,
	}
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
	}
}

func (s *Service) RegisterAdmin(ctx context.Context, dto RegisterAdminDTO) (*admin.Admin, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	email := strings.TrimSpace(dto.Email)
	existing, err := s.admins.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrAdminNotFound) {
		return nil, internal.NewInternalError("Erro ao registrar admin", err)
	}
	if existing != nil {
		return nil, internal.ErrAdminEmailTaken
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("Erro ao registrar admin", err)
	}

	a := &admin.Admin{
		Name:         strings.TrimSpace(dto.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if errors.Is(err, internal.ErrAdminEmailTaken) {
			return nil, internal.ErrAdminEmailTaken
		}
		return nil, internal.NewInternalError("Erro ao registrar admin", err)
	}

	logger.From(ctx).Info("admin registered", "admin_id", a.ID)
	return a, nil
}

// LoginAdmin checks the fixed environment credentials when they are
// configured and the admins table otherwise.
func (s *Service) LoginAdmin(ctx context.Context, dto LoginDTO) (*AdminLoginResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	if s.security.HasFixedAdmin() {
		if !constantTimeEqual(dto.Email, s.security.AdminEmail) || !constantTimeEqual(dto.Password, s.security.AdminPassword) {
			return nil, internal.ErrInvalidCredentials
		}
		fixed := &admin.Admin{ID: FixedAdminID, Name: "Admin", Email: s.security.AdminEmail}
		return s.adminSession(fixed)
	}

	a, err := s.admins.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("Erro ao fazer login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	return s.adminSession(&admin.Admin{ID: a.ID, Name: a.Name, Email: a.Email})
}

func (s *Service) adminSession(a *admin.Admin) (*AdminLoginResponse, error) {
	token, err := s.tokenGenerator.GenerateAccessToken(internal.Subject{
		ID:    a.ID,
		Role:  internal.RoleAdmin,
		Email: a.Email,
		Name:  a.Name,
	}, nil)
	if err != nil {
		return nil, internal.NewInternalError("Erro ao fazer login", err)
	}
	return &AdminLoginResponse{Token: token, Admin: NewAdminView(a)}, nil
}

func (s *Service) LoginClient(ctx context.Context, dto LoginDTO) (*ClientLoginResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	c, err := s.clients.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrClientNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("Erro ao fazer login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	token, err := s.tokenGenerator.GenerateAccessToken(internal.Subject{
		ID:    c.ID,
		Role:  internal.RoleClient,
		Email: c.Email,
		Name:  c.Name,
	}, c.Plan)
	if err != nil {
		return nil, internal.NewInternalError("Erro ao fazer login", err)
	}

	return &ClientLoginResponse{Token: token, Client: NewClientView(c)}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (j *JWTTokenGenerator) GenerateAccessToken(subject internal.Subject, plan *string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: subject.Email,
		Name:  subject.Name,
		Role:  subject.Role,
		Plan:  plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, internal.ErrInvalidToken
}
