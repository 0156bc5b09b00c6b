package accounting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

type fakeScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*entity.ExportSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[string]*entity.ExportSchedule)}
}

func (r *fakeScheduleRepo) Create(_ context.Context, s *entity.ExportSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.schedules[s.ID] = &c
	return nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, s *entity.ExportSchedule) error {
	return r.Create(context.Background(), s)
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id string) (*entity.ExportSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: agendamento %s", domain.ErrNotFound, id)
	}
	c := *s
	return &c, nil
}

func (r *fakeScheduleRepo) ListDue(_ context.Context, now time.Time) ([]*entity.ExportSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ExportSchedule
	for _, s := range r.schedules {
		if s.Active && !s.NextRun.After(now) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) List(_ context.Context) ([]*entity.ExportSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ExportSchedule
	for _, s := range r.schedules {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

type scheduleFixture struct {
	*exportFixture
	schedules *fakeScheduleRepo
	engine2   *ScheduleEngine
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	ef := newExportFixture(t, entity.FormatCSV)
	sr := newFakeScheduleRepo()
	return &scheduleFixture{
		exportFixture: ef,
		schedules:     sr,
		engine2:       NewScheduleEngine(sr, ef.providers, ef.engine, logger.Nop()),
	}
}

func TestCreateScheduleComputesNextRun(t *testing.T) {
	f := newScheduleFixture(t)

	s, err := f.engine2.CreateSchedule(context.Background(), &dto.CreateScheduleRequest{
		Name:      "fechamento diário",
		Frequency: entity.FrequencyDaily,
		TimeOfDay: "23:30",
	})
	require.NoError(t, err)
	assert.True(t, s.NextRun.After(time.Now()))
	assert.True(t, s.Active)
	assert.Nil(t, s.LastRun)
}

func TestCreateScheduleRejectsInvalidTime(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.engine2.CreateSchedule(context.Background(), &dto.CreateScheduleRequest{
		Name:      "quebrado",
		Frequency: entity.FrequencyDaily,
		TimeOfDay: "25:00",
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunDueProcessesAndAdvances(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	// agendamento mensal vencido; o lote fecha o mês anterior
	now := time.Date(2026, time.August, 1, 2, 5, 0, 0, time.UTC)
	day := 1
	sched := &entity.ExportSchedule{
		ID:         "sched-1",
		Name:       "fechamento mensal",
		Frequency:  entity.FrequencyMonthly,
		DayOfMonth: &day,
		TimeOfDay:  "02:00",
		Active:     true,
		NextRun:    time.Date(2026, time.August, 1, 2, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.schedules.Create(ctx, sched))

	f.nfce.docs = []*entity.FiscalDocument{
		accountingDoc("doc-1", entity.FamilyNFCe, 1, midPeriod("2026-07"), "20.00"),
	}

	ran, err := f.engine2.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	// lote do período anterior concluído
	batches, err := f.engine.ListBatches(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "2026-07", batches[0].Period)
	assert.Equal(t, entity.BatchCompleted, batches[0].Status)
	assert.Equal(t, 1, batches[0].DocumentCount)

	// agendamento avançado
	stored, err := f.schedules.GetByID(ctx, "sched-1")
	require.NoError(t, err)
	require.NotNil(t, stored.LastRun)
	assert.True(t, stored.LastRun.Equal(now))
	assert.True(t, stored.NextRun.After(now))
}

func TestRunDueIsolatesFailures(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	now := time.Date(2026, time.August, 10, 23, 35, 0, 0, time.UTC)

	due := time.Date(2026, time.August, 10, 23, 30, 0, 0, time.UTC)
	for i, name := range []string{"primeiro", "segundo"} {
		require.NoError(t, f.schedules.Create(ctx, &entity.ExportSchedule{
			ID:        fmt.Sprintf("sched-%d", i+1),
			Name:      name,
			Frequency: entity.FrequencyDaily,
			TimeOfDay: "23:30",
			Active:    true,
			NextRun:   due,
		}))
	}

	// sem provedor ativo toda execução falha, mas os agendamentos avançam
	f.provider.Active = false
	require.NoError(t, f.providers.Create(ctx, f.provider))

	ran, err := f.engine2.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, ran)

	for _, id := range []string{"sched-1", "sched-2"} {
		s, err := f.schedules.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, s.NextRun.After(now), "NextRun avança mesmo com falha")
		require.NotNil(t, s.LastRun)
	}

	// ninguém reexecuta no mesmo instante
	ran, err = f.engine2.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, ran)

	due2, err := f.schedules.ListDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due2)
}

func TestDeactivateSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	s, err := f.engine2.CreateSchedule(ctx, &dto.CreateScheduleRequest{
		Name:      "fechamento diário",
		Frequency: entity.FrequencyDaily,
		TimeOfDay: "23:30",
	})
	require.NoError(t, err)

	out, err := f.engine2.Deactivate(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, out.Active)

	due, err := f.schedules.ListDue(ctx, out.NextRun.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
