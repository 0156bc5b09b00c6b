package entity

import "time"

// Tipos e estados de eventos de documento. Hoje o único evento suportado é
// o cancelamento; a tabela é append-only.
const (
	EventCancellation = "CANCELLATION"

	EventStatusCompleted = "COMPLETED"
	EventStatusFailed    = "FAILED"
)

// DocumentEvent registra um evento lateral que muda (ou tentou mudar) o
// estado de um documento já autorizado. Uma linha por tentativa bem ou mal
// sucedida; nunca é atualizado depois de gravado.
type DocumentEvent struct {
	ID          string
	DocumentID  string
	Type        string
	OccurredAt  time.Time
	Reason      string
	Status      string
	Protocol    string
	RawResponse string
}

// EventResult é o resultado estruturado do transporte para um evento
// (protocolo de cancelamento, código de retorno da SEFAZ/SAT).
type EventResult struct {
	Protocol      string
	StatusCode    int
	StatusMessage string
	RawResponse   string
}
