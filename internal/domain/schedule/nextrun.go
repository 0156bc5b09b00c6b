// Package schedule contém o cálculo puro da próxima execução de um
// agendamento de exportação contábil.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseTimeOfDay valida e decompõe um horário HH:MM em 24h.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: horário %q fora do formato HH:MM", domain.ErrInvalidInput, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// NextRun calcula a próxima execução estritamente após now.
//
// Constrói um candidato na data de hoje com o horário configurado; se o
// candidato não for posterior a now, avança um dia. Para daily o candidato
// é a resposta. Para weekly avança até o dia da semana configurado
// (0=segunda..6=domingo). Para monthly tenta o dia configurado no mês do
// candidato; se o dia não existir naquele mês (ex.: 31 em fevereiro) ou o
// candidato não for posterior a now, rola para o dia 1 do mês seguinte —
// aproximação conhecida, mantida de propósito em vez do último dia válido
// do mês alvo.
func NextRun(now time.Time, frequency string, dayOfWeek, dayOfMonth *int, timeOfDay string) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	switch frequency {
	case entity.FrequencyDaily:
		return candidate, nil

	case entity.FrequencyWeekly:
		if dayOfWeek == nil || *dayOfWeek < 0 || *dayOfWeek > 6 {
			return time.Time{}, fmt.Errorf("%w: agendamento semanal exige day_of_week entre 0 e 6", domain.ErrInvalidInput)
		}
		target := weekdayFromMondayIndex(*dayOfWeek)
		for candidate.Weekday() != target {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case entity.FrequencyMonthly:
		if dayOfMonth == nil || *dayOfMonth < 1 || *dayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("%w: agendamento mensal exige day_of_month entre 1 e 31", domain.ErrInvalidInput)
		}
		attempt := time.Date(candidate.Year(), candidate.Month(), *dayOfMonth, hour, minute, 0, 0, now.Location())
		// time.Date normaliza dias inexistentes (31/02 vira 02/03 ou 03/03);
		// o dia só é válido se sobreviver à normalização.
		valid := attempt.Day() == *dayOfMonth && attempt.Month() == candidate.Month()
		if valid && attempt.After(now) {
			return attempt, nil
		}
		firstOfNext := time.Date(candidate.Year(), candidate.Month(), 1, hour, minute, 0, 0, now.Location()).AddDate(0, 1, 0)
		return firstOfNext, nil

	default:
		return time.Time{}, fmt.Errorf("%w: frequência %q desconhecida", domain.ErrInvalidInput, frequency)
	}
}

// weekdayFromMondayIndex converte o índice 0=segunda..6=domingo para
// time.Weekday (0=domingo).
func weekdayFromMondayIndex(i int) time.Weekday {
	return time.Weekday((i + 1) % 7)
}
