package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	"github.com/vlourenco/pdv-fiscal/internal/domain/schedule"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// ScheduleEngine mantém os agendamentos recorrentes de exportação e dispara
// os lotes vencidos. RunDue é chamado pelo ticker do processo principal;
// cada execução isola as falhas por agendamento e sempre avança NextRun,
// para um agendamento quebrado não travar os demais nem reexecutar em loop.
type ScheduleEngine struct {
	schedules repository.ExportScheduleRepository
	providers repository.ExportProviderRepository
	exports   *ExportEngine
	log       *logger.Logger
	now       func() time.Time
}

// NewScheduleEngine constrói o motor de agendamentos.
func NewScheduleEngine(
	schedules repository.ExportScheduleRepository,
	providers repository.ExportProviderRepository,
	exports *ExportEngine,
	log *logger.Logger,
) *ScheduleEngine {
	return &ScheduleEngine{
		schedules: schedules,
		providers: providers,
		exports:   exports,
		log:       log,
		now:       time.Now,
	}
}

// CreateSchedule valida e registra um agendamento, já com o primeiro
// NextRun calculado.
func (e *ScheduleEngine) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*entity.ExportSchedule, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: nome do agendamento é obrigatório", domain.ErrInvalidInput)
	}
	now := e.now()
	next, err := schedule.NextRun(now, req.Frequency, req.DayOfWeek, req.DayOfMonth, req.TimeOfDay)
	if err != nil {
		return nil, err
	}

	s := &entity.ExportSchedule{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Frequency:  req.Frequency,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		TimeOfDay:  req.TimeOfDay,
		Active:     true,
		NextRun:    next,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.schedules.Create(ctx, s); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("schedule_id", s.ID).
		Str("frequency", s.Frequency).
		Time("next_run", s.NextRun).
		Msg("agendamento de exportação criado")
	return s, nil
}

// Deactivate desliga um agendamento sem removê-lo.
func (e *ScheduleEngine) Deactivate(ctx context.Context, id string) (*entity.ExportSchedule, error) {
	s, err := e.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Active = false
	s.UpdatedAt = e.now()
	if err := e.schedules.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// List devolve os agendamentos cadastrados.
func (e *ScheduleEngine) List(ctx context.Context) ([]*entity.ExportSchedule, error) {
	return e.schedules.List(ctx)
}

// RunDue processa os agendamentos vencidos em relação a now e devolve
// quantos lotes foram disparados. Falha em um agendamento é logada e não
// interrompe os demais.
func (e *ScheduleEngine) RunDue(ctx context.Context, now time.Time) (int, error) {
	due, err := e.schedules.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, s := range due {
		if err := e.runOne(ctx, s, now); err != nil {
			e.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("execução de agendamento falhou")
		} else {
			ran++
		}

		// NextRun avança mesmo em falha; o lote FAILED fica registrado e
		// pode ser reprocessado manualmente.
		next, nerr := schedule.NextRun(now, s.Frequency, s.DayOfWeek, s.DayOfMonth, s.TimeOfDay)
		if nerr != nil {
			e.log.Error().Err(nerr).Str("schedule_id", s.ID).Msg("agendamento com configuração inválida; desativando")
			s.Active = false
		} else {
			s.NextRun = next
		}
		last := now
		s.LastRun = &last
		s.UpdatedAt = e.now()
		if uerr := e.schedules.Update(ctx, s); uerr != nil {
			e.log.Error().Err(uerr).Str("schedule_id", s.ID).Msg("não foi possível avançar o agendamento")
		}
	}
	return ran, nil
}

func (e *ScheduleEngine) runOne(ctx context.Context, s *entity.ExportSchedule, now time.Time) error {
	provider, err := e.providers.FindDefaultActive(ctx)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("%w: nenhum provedor ativo para o agendamento", domain.ErrNotFound)
	}

	batch, err := e.exports.CreateBatch(ctx, &dto.CreateBatchRequest{
		Period:     e.periodFor(s, now),
		ProviderID: provider.ID,
		Notes:      fmt.Sprintf("agendamento %s", s.Name),
	}, "scheduler")
	if err != nil {
		return err
	}
	_, err = e.exports.Process(ctx, batch.ID)
	return err
}

// periodFor decide o período de referência do lote disparado: agendamentos
// mensais fecham o mês anterior; diários e semanais exportam o movimento do
// mês corrente.
func (e *ScheduleEngine) periodFor(s *entity.ExportSchedule, now time.Time) string {
	if s.Frequency == entity.FrequencyMonthly {
		// primeiro dia do mês evita a normalização de AddDate em dia 29+
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0).Format(periodLayout)
	}
	return now.Format(periodLayout)
}
