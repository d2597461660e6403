package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	scheduleDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/schedule"
	schedulepkg "github.com/socialagro/social-agro-backend/internal/schedule"
)

type ScheduleRepository struct {
	db *sqlx.DB
}

var _ schedulepkg.RepositoryAPI = (*ScheduleRepository)(nil)

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) ListByClientID(ctx context.Context, clientID int64) ([]*scheduleDatamodel.Schedule, error) {
	query := r.db.Rebind(`SELECT id, cliente_id, periodo, descricao, criado_em
		FROM programacoes
		WHERE cliente_id = ?
		ORDER BY criado_em DESC, id DESC`)

	var schedules []*scheduleDatamodel.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, clientID); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepository) Create(ctx context.Context, s *scheduleDatamodel.Schedule) error {
	query := r.db.Rebind(`INSERT INTO programacoes (cliente_id, periodo, descricao, criado_em)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	return r.db.QueryRowxContext(ctx, query, s.ClientID, s.Period, s.Description, s.CreatedAt).Scan(&s.ID)
}

func (r *ScheduleRepository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	query := r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM clientes WHERE id = ?)`)
	if err := r.db.GetContext(ctx, &exists, query, clientID); err != nil {
		return false, err
	}
	return exists, nil
}
