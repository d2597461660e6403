package schedule

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/socialagro/social-agro-backend/internal"
	scheduleDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/schedule"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListForClient returns the client's schedules, newest first.
func (s *Service) ListForClient(ctx context.Context, clientID int64) ([]*scheduleDatamodel.Schedule, error) {
	schedules, err := s.repo.ListByClientID(ctx, clientID)
	if err != nil {
		s.logger.Error("failed to list schedules", "cliente_id", clientID, "error", err)
		return nil, errors.NewInternalError("Erro ao listar programações", err)
	}
	if schedules == nil {
		schedules = []*scheduleDatamodel.Schedule{}
	}
	return schedules, nil
}

func (s *Service) Create(ctx context.Context, clientID int64, dto CreateScheduleDTO) (*scheduleDatamodel.Schedule, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	exists, err := s.repo.ClientExists(ctx, clientID)
	if err != nil {
		return nil, errors.NewInternalError("Erro ao cadastrar programação", err)
	}
	if !exists {
		return nil, errors.ErrClientNotFound
	}

	entry := &scheduleDatamodel.Schedule{
		ClientID:    clientID,
		Description: strings.TrimSpace(dto.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if period := strings.TrimSpace(dto.Period); period != "" {
		entry.Period = &period
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to create schedule", "cliente_id", clientID, "error", err)
		return nil, errors.NewInternalError("Erro ao cadastrar programação", err)
	}

	s.logger.Info("schedule created", "cliente_id", clientID, "programacao_id", entry.ID)
	return entry, nil
}
