package schedule

import (
	"context"
	"strings"

	errors "github.com/socialagro/social-agro-backend/internal"
	scheduleDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/schedule"
)

type RepositoryAPI interface {
	ListByClientID(ctx context.Context, clientID int64) ([]*scheduleDatamodel.Schedule, error)
	Create(ctx context.Context, s *scheduleDatamodel.Schedule) error
	ClientExists(ctx context.Context, clientID int64) (bool, error)
}

type ServiceAPI interface {
	ListForClient(ctx context.Context, clientID int64) ([]*scheduleDatamodel.Schedule, error)
	Create(ctx context.Context, clientID int64, dto CreateScheduleDTO) (*scheduleDatamodel.Schedule, error)
}

type CreateScheduleDTO struct {
	Period      string `json:"periodo"`
	Description string `json:"descricao"`
}

func (d CreateScheduleDTO) Validate() *errors.AppError {
	if strings.TrimSpace(d.Description) == "" {
		return errors.NewValidationError("Descrição da programação é obrigatória", errors.ErrCodeValidationFailed)
	}
	return nil
}

type SchedulesResponse struct {
	Schedules []*scheduleDatamodel.Schedule `json:"programacoes"`
}

type ScheduleResponse struct {
	Schedule *scheduleDatamodel.Schedule `json:"programacao"`
}
