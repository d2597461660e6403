package auth

import (
	"strings"
	"time"

	errors "github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/common/validation"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

func (d LoginDTO) Validate() *errors.AppError {
	return validation.ValidateCredentials(d.Email, d.Password)
}

type RegisterAdminDTO struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

func (d RegisterAdminDTO) Validate() *errors.AppError {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Email) == "" || d.Password == "" {
		return errors.NewValidationError("Nome, email e senha são obrigatórios", errors.ErrCodeValidationFailed)
	}
	validator := validation.NewValidator()
	validator.Field("nome", d.Name).MaxLength(255)
	validator.Field("email", d.Email).Email().MaxLength(255)
	return validator.Validate()
}

type AdminView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"nome"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"criado_em,omitempty"`
}

func NewAdminView(a *admin.Admin) AdminView {
	view := AdminView{ID: a.ID, Name: a.Name, Email: a.Email}
	if !a.CreatedAt.IsZero() {
		createdAt := a.CreatedAt
		view.CreatedAt = &createdAt
	}
	return view
}

type ClientView struct {
	ID                int64   `json:"id"`
	Name              string  `json:"nome"`
	Email             string  `json:"email"`
	Plan              *string `json:"plano"`
	PaymentDate       *string `json:"data_pagamento"`
	CustomAmountCents *int64  `json:"valor_personalizado_centavos"`
}

func NewClientView(c *client.Client) ClientView {
	return ClientView{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		Plan:              c.Plan,
		PaymentDate:       c.PaymentDate,
		CustomAmountCents: c.CustomAmountCents,
	}
}

type RegisterAdminResponse struct {
	Admin AdminView `json:"admin"`
}

type AdminLoginResponse struct {
	Token string    `json:"token"`
	Admin AdminView `json:"admin"`
}

type ClientLoginResponse struct {
	Token  string     `json:"token"`
	Client ClientView `json:"cliente"`
}
