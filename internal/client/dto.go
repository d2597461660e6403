package client

import (
	"strings"

	errors "github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/common/money"
	"github.com/socialagro/social-agro-backend/internal/core/common/validation"
	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

type CreateClientDTO struct {
	Name         string       `json:"nome"`
	Email        string       `json:"email"`
	Password     string       `json:"senha"`
	Plan         string       `json:"plano"`
	PaymentDate  string       `json:"data_pagamento"`
	CustomAmount money.Amount `json:"valor_personalizado"`
}

func (d CreateClientDTO) Validate() *errors.AppError {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Email) == "" || d.Password == "" {
		return errors.NewValidationError("Nome, email e senha são obrigatórios", errors.ErrCodeValidationFailed)
	}
	return validateProfile(d.Name, d.Email)
}

// UpdateClientDTO replaces the client profile. An empty senha keeps the
// stored password.
type UpdateClientDTO struct {
	Name         string       `json:"nome"`
	Email        string       `json:"email"`
	Password     string       `json:"senha"`
	Plan         string       `json:"plano"`
	PaymentDate  string       `json:"data_pagamento"`
	CustomAmount money.Amount `json:"valor_personalizado"`
}

func (d UpdateClientDTO) Validate() *errors.AppError {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Email) == "" {
		return errors.NewValidationError("Nome e email são obrigatórios", errors.ErrCodeValidationFailed)
	}
	return validateProfile(d.Name, d.Email)
}

func (d UpdateClientDTO) HasPassword() bool {
	return strings.TrimSpace(d.Password) != ""
}

func validateProfile(name, email string) *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("nome", name).MaxLength(255)
	validator.Field("email", email).Email().MaxLength(255)
	return validator.Validate()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type ClientResponse struct {
	Client *clientDatamodel.Client `json:"cliente"`
}

type ClientsResponse struct {
	Clients []*clientDatamodel.Client `json:"clientes"`
}
