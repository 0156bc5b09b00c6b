package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/schedule"
)

func intPtr(i int) *int { return &i }

func TestNextRun_DiarioMesmoDia(t *testing.T) {
	// 08:00 ainda não passou às 06:30 -> hoje mesmo
	now := time.Date(2026, time.March, 10, 6, 30, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyDaily, nil, nil, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC), got)
}

func TestNextRun_DiarioHorarioJaPassou(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyDaily, nil, nil, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 11, 8, 0, 0, 0, time.UTC), got)
}

func TestNextRun_SemanalQuartaParaSegunda(t *testing.T) {
	// 4 de março de 2026 é uma quarta-feira; day_of_week 0 = segunda.
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Wednesday, now.Weekday())

	got, err := schedule.NextRun(now, entity.FrequencyWeekly, intPtr(0), nil, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestNextRun_SemanalMesmoDiaHorarioFuturo(t *testing.T) {
	// quarta 06:00 com horário 08:00 e day_of_week 2 (quarta) -> hoje às 08:00
	now := time.Date(2026, time.March, 4, 6, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyWeekly, intPtr(2), nil, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC), got)
}

func TestNextRun_MensalDia31EmJaneiro(t *testing.T) {
	now := time.Date(2026, time.January, 20, 10, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyMonthly, nil, intPtr(31), "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC), got)
}

func TestNextRun_MensalDia31RolaParaPrimeiroDeMarco(t *testing.T) {
	// Após 31/01, fevereiro não tem dia 31: deve cair em 01/03, sem erro e
	// sem escolher 28/02.
	now := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyMonthly, nil, intPtr(31), "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC), got)
}

func TestNextRun_MensalDiaJaPassouNoMes(t *testing.T) {
	// dia 15 já passou em março -> dia 1 de abril (aproximação documentada,
	// não o dia 15 de abril)
	now := time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyMonthly, nil, intPtr(15), "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC), got)
}

func TestNextRun_MensalViradaDeAno(t *testing.T) {
	now := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	got, err := schedule.NextRun(now, entity.FrequencyMonthly, nil, intPtr(31), "09:00")
	require.NoError(t, err)
	// candidato vira 01/01; janeiro tem dia 31
	assert.Equal(t, time.Date(2027, time.January, 31, 9, 0, 0, 0, time.UTC), got)
}

func TestNextRun_Validacoes(t *testing.T) {
	now := time.Now()

	_, err := schedule.NextRun(now, "hourly", nil, nil, "08:00")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = schedule.NextRun(now, entity.FrequencyWeekly, intPtr(7), nil, "08:00")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = schedule.NextRun(now, entity.FrequencyMonthly, nil, intPtr(0), "08:00")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = schedule.NextRun(now, entity.FrequencyDaily, nil, nil, "25:00")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = schedule.NextRun(now, entity.FrequencyDaily, nil, nil, "9:00")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := schedule.ParseTimeOfDay("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)

	_, _, err = schedule.ParseTimeOfDay("24:00")
	assert.Error(t, err)
}
