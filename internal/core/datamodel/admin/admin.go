package admin

import "time"

type Admin struct {
	ID           int64     `json:"id" gorm:"column:id;primaryKey"`
	Name         string    `json:"nome" gorm:"column:nome;not null"`
	Email        string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:senha_hash;not null"`
	CreatedAt    time.Time `json:"criado_em" gorm:"column:criado_em;autoCreateTime"`
}

func (Admin) TableName() string {
	return "admins"
}
