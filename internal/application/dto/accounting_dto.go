package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// CreateBatchRequest body para POST /api/accounting/batches.
type CreateBatchRequest struct {
	Period     string `json:"period"` // YYYY-MM
	ProviderID string `json:"provider_id"`
	Notes      string `json:"notes,omitempty"`
}

// BatchResponse lote de exportação nas respostas.
type BatchResponse struct {
	ID            string          `json:"id"`
	Period        string          `json:"period"`
	Status        string          `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	DocumentCount int             `json:"document_count"`
	TotalValue    decimal.Decimal `json:"total_value"`
	ProviderID    string          `json:"provider_id"`
	CreatedBy     string          `json:"created_by"`
	Notes         string          `json:"notes,omitempty"`
	ErrorDetail   string          `json:"error_detail,omitempty"`
	FilePath      string          `json:"file_path,omitempty"`
}

// FromBatch converte a entidade para a resposta HTTP.
func FromBatch(b *entity.ExportBatch) *BatchResponse {
	return &BatchResponse{
		ID:            b.ID,
		Period:        b.Period,
		Status:        b.Status,
		StartedAt:     b.StartedAt,
		EndedAt:       b.EndedAt,
		DocumentCount: b.DocumentCount,
		TotalValue:    b.TotalValue,
		ProviderID:    b.ProviderID,
		CreatedBy:     b.CreatedBy,
		Notes:         b.Notes,
		ErrorDetail:   b.ErrorDetail,
		FilePath:      b.FilePath,
	}
}

// ItemResponse linha de documento dentro de um lote.
type ItemResponse struct {
	ID             string          `json:"id"`
	DocumentFamily string          `json:"document_family"`
	DocumentID     string          `json:"document_id"`
	DocumentNumber int64           `json:"document_number"`
	DocumentDate   time.Time       `json:"document_date"`
	DocumentValue  decimal.Decimal `json:"document_value"`
	Status         string          `json:"status"`
	ErrorDetail    string          `json:"error_detail,omitempty"`
}

// FromItem converte a entidade para a resposta HTTP.
func FromItem(i *entity.ExportItem) *ItemResponse {
	return &ItemResponse{
		ID:             i.ID,
		DocumentFamily: i.DocumentFamily,
		DocumentID:     i.DocumentID,
		DocumentNumber: i.DocumentNumber,
		DocumentDate:   i.DocumentDate,
		DocumentValue:  i.DocumentValue,
		Status:         i.Status,
		ErrorDetail:    i.ErrorDetail,
	}
}

// ProviderResponse provedor contábil nas respostas. Credenciais nunca saem.
type ProviderResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Format   string `json:"format"`
	Active   bool   `json:"active"`
}

// FromProvider converte a entidade para a resposta HTTP.
func FromProvider(p *entity.ExportProvider) *ProviderResponse {
	return &ProviderResponse{
		ID:       p.ID,
		Name:     p.Name,
		Kind:     p.Kind,
		Endpoint: p.Endpoint,
		Format:   p.Format,
		Active:   p.Active,
	}
}

// CreateProviderRequest body para POST /api/accounting/providers.
type CreateProviderRequest struct {
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Credentials string `json:"credentials,omitempty"`
	Format      string `json:"format"` // json | xml | csv
}

// CreateScheduleRequest body para POST /api/accounting/schedules.
type CreateScheduleRequest struct {
	Name       string `json:"name"`
	Frequency  string `json:"frequency"` // daily | weekly | monthly
	DayOfWeek  *int   `json:"day_of_week,omitempty"`
	DayOfMonth *int   `json:"day_of_month,omitempty"`
	TimeOfDay  string `json:"time_of_day"` // HH:MM
}

// ScheduleResponse agendamento nas respostas.
type ScheduleResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Frequency  string     `json:"frequency"`
	DayOfWeek  *int       `json:"day_of_week,omitempty"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	TimeOfDay  string     `json:"time_of_day"`
	Active     bool       `json:"active"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    time.Time  `json:"next_run"`
}

// FromSchedule converte a entidade para a resposta HTTP.
func FromSchedule(s *entity.ExportSchedule) *ScheduleResponse {
	return &ScheduleResponse{
		ID:         s.ID,
		Name:       s.Name,
		Frequency:  s.Frequency,
		DayOfWeek:  s.DayOfWeek,
		DayOfMonth: s.DayOfMonth,
		TimeOfDay:  s.TimeOfDay,
		Active:     s.Active,
		LastRun:    s.LastRun,
		NextRun:    s.NextRun,
	}
}
