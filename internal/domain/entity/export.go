package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados do lote de exportação contábil.
const (
	BatchPending    = "PENDING"
	BatchProcessing = "PROCESSING"
	BatchCompleted  = "COMPLETED"
	BatchFailed     = "FAILED"
)

// Estados do item de exportação. O lote só é COMPLETED quando todos os
// itens estão COMPLETED.
const (
	ItemPending   = "PENDING"
	ItemCompleted = "COMPLETED"
	ItemFailed    = "FAILED"
)

// Formatos de saída suportados pelos provedores contábeis.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatCSV  = "csv"
)

// Frequências de agendamento de exportação.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// ExportBatch é uma execução do pipeline de exportação contábil para um
// período de referência (YYYY-MM) e um provedor de destino.
type ExportBatch struct {
	ID            string
	Period        string // YYYY-MM
	Status        string
	StartedAt     time.Time
	EndedAt       *time.Time
	DocumentCount int
	TotalValue    decimal.Decimal
	ProviderID    string
	CreatedBy     string
	Notes         string
	ErrorDetail   string
	FilePath      string
	Version       int
}

// ExportItem é um documento dentro de um lote. Referência fraca: guarda o
// ID do documento de origem, mas o histórico de exportação sobrevive à
// remoção do documento.
type ExportItem struct {
	ID             string
	BatchID        string
	DocumentFamily string
	DocumentID     string
	DocumentNumber int64
	DocumentDate   time.Time
	DocumentValue  decimal.Decimal
	Status         string
	Payload        string // registro serializado (JSON) enviado ao provedor
	ErrorDetail    string
}

// ExportProvider é um destino contábil configurado (sistema externo que
// recebe o arquivo gerado).
type ExportProvider struct {
	ID          string
	Name        string
	Kind        string // ex.: "dominio", "contmatic", "generic"
	Endpoint    string
	Credentials string
	Format      string // json | xml | csv
	Active      bool
}

// ExportSchedule é um agendamento recorrente de exportação. DayOfWeek usa
// 0=segunda..6=domingo; DayOfMonth 1..31, conforme a frequência.
type ExportSchedule struct {
	ID         string
	Name       string
	Frequency  string
	DayOfWeek  *int
	DayOfMonth *int
	TimeOfDay  string // HH:MM, 24h
	Active     bool
	LastRun    *time.Time
	NextRun    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
