package client

import "time"

type Client struct {
	ID                int64     `json:"id" gorm:"column:id;primaryKey"`
	Name              string    `json:"nome" gorm:"column:nome;not null"`
	Email             string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	PasswordHash      string    `json:"-" gorm:"column:senha_hash;not null"`
	Plan              *string   `json:"plano" gorm:"column:plano"`
	PaymentDate       *string   `json:"data_pagamento" gorm:"column:data_pagamento"`
	CustomAmountCents *int64    `json:"valor_personalizado_centavos" gorm:"column:valor_personalizado_centavos"`
	CreatedAt         time.Time `json:"criado_em" gorm:"column:criado_em;autoCreateTime"`
}

func (Client) TableName() string {
	return "clientes"
}
