package schedule

import "time"

// Schedule is a content programme entry (programacao) planned for a client.
type Schedule struct {
	ID          int64     `db:"id" json:"id"`
	ClientID    int64     `db:"cliente_id" json:"-"`
	Period      *string   `db:"periodo" json:"periodo"`
	Description string    `db:"descricao" json:"descricao"`
	CreatedAt   time.Time `db:"criado_em" json:"criado_em"`
}
