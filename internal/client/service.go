package client

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	errors "github.com/socialagro/social-agro-backend/internal"
	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

type Service struct {
	repo       RepositoryAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*clientDatamodel.Client, error) {
	clients, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list clients", "error", err)
		return nil, errors.NewInternalError("Erro ao listar clientes", err)
	}
	if clients == nil {
		clients = []*clientDatamodel.Client{}
	}
	return clients, nil
}

func (s *Service) Create(ctx context.Context, dto CreateClientDTO) (*clientDatamodel.Client, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	email := strings.TrimSpace(dto.Email)
	taken, err := s.repo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, errors.NewInternalError("Erro ao cadastrar cliente", err)
	}
	if taken {
		return nil, errors.ErrClientEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("Erro ao cadastrar cliente", err)
	}

	c := &clientDatamodel.Client{
		Name:              strings.TrimSpace(dto.Name),
		Email:             email,
		PasswordHash:      string(hash),
		Plan:              optional(dto.Plan),
		PaymentDate:       optional(dto.PaymentDate),
		CustomAmountCents: dto.CustomAmount.Cents(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if stderrors.Is(err, errors.ErrClientEmailTaken) {
			return nil, errors.ErrClientEmailTaken
		}
		s.logger.Error("failed to create client", "error", err)
		return nil, errors.NewInternalError("Erro ao cadastrar cliente", err)
	}

	s.logger.Info("client created", "cliente_id", c.ID)
	return c, nil
}

// Update replaces nome, email, plano, data_pagamento and
// valor_personalizado_centavos. Absent optional fields are cleared.
func (s *Service) Update(ctx context.Context, id int64, dto UpdateClientDTO) (*clientDatamodel.Client, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	email := strings.TrimSpace(dto.Email)
	taken, err := s.repo.EmailTaken(ctx, email, id)
	if err != nil {
		return nil, errors.NewInternalError("Erro ao atualizar cliente", err)
	}
	if taken {
		return nil, errors.ErrClientEmailTaken
	}

	c := &clientDatamodel.Client{
		ID:                id,
		Name:              strings.TrimSpace(dto.Name),
		Email:             email,
		Plan:              optional(dto.Plan),
		PaymentDate:       optional(dto.PaymentDate),
		CustomAmountCents: dto.CustomAmount.Cents(),
	}
	if dto.HasPassword() {
		hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
		if err != nil {
			return nil, errors.NewInternalError("Erro ao atualizar cliente", err)
		}
		c.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, c, dto.HasPassword()); err != nil {
		switch {
		case stderrors.Is(err, errors.ErrClientNotFound):
			return nil, errors.ErrClientNotFound
		case stderrors.Is(err, errors.ErrClientEmailTaken):
			return nil, errors.ErrClientEmailTaken
		}
		s.logger.Error("failed to update client", "cliente_id", id, "error", err)
		return nil, errors.NewInternalError("Erro ao atualizar cliente", err)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Erro ao atualizar cliente", err)
	}

	s.logger.Info("client updated", "cliente_id", id, "password_changed", dto.HasPassword())
	return updated, nil
}
