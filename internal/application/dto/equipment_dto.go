package dto

import (
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// RegisterEquipmentRequest body para POST /api/equipment.
type RegisterEquipmentRequest struct {
	Serial       string `json:"serial"`
	Type         string `json:"type"` // PHYSICAL | VIRTUAL
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Firmware     string `json:"firmware,omitempty"`
	Jurisdiction string `json:"jurisdiction"`
	StoreID      string `json:"store_id"`
}

// ActivateEquipmentRequest body para POST /api/equipment/:id/activate.
type ActivateEquipmentRequest struct {
	Code string `json:"code"` // código de vinculação fornecido pela SEFAZ
}

// DeactivateEquipmentRequest body para POST /api/equipment/:id/deactivate.
type DeactivateEquipmentRequest struct {
	Reason string `json:"reason"`
}

// EquipmentResponse equipamento nas respostas.
type EquipmentResponse struct {
	ID                string     `json:"id"`
	Serial            string     `json:"serial"`
	Type              string     `json:"type"`
	Model             string     `json:"model,omitempty"`
	Manufacturer      string     `json:"manufacturer,omitempty"`
	Firmware          string     `json:"firmware,omitempty"`
	Status            string     `json:"status"`
	Jurisdiction      string     `json:"jurisdiction"`
	StoreID           string     `json:"store_id"`
	LastCommunication *time.Time `json:"last_communication,omitempty"`
	ActivatedAt       *time.Time `json:"activated_at,omitempty"`
}

// FromEquipment converte a entidade para a resposta HTTP.
func FromEquipment(e *entity.Equipment) *EquipmentResponse {
	return &EquipmentResponse{
		ID:                e.ID,
		Serial:            e.Serial,
		Type:              e.Type,
		Model:             e.Model,
		Manufacturer:      e.Manufacturer,
		Firmware:          e.Firmware,
		Status:            e.Status,
		Jurisdiction:      e.Jurisdiction,
		StoreID:           e.StoreID,
		LastCommunication: e.LastCommunication,
		ActivatedAt:       e.ActivatedAt,
	}
}

// OperationLogResponse linha da trilha de auditoria de um equipamento.
type OperationLogResponse struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Request   string    `json:"request,omitempty"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// FromOperationLog converte a entidade para a resposta HTTP.
func FromOperationLog(l *entity.OperationLog) *OperationLogResponse {
	return &OperationLogResponse{
		ID:        l.ID,
		Operation: l.Operation,
		Request:   l.Request,
		Response:  l.Response,
		Error:     l.Error,
		At:        l.At,
	}
}

// StatusCheckResponse snapshot de CheckStatus.
type StatusCheckResponse struct {
	ID        string    `json:"id"`
	Serial    string    `json:"serial"`
	Status    string    `json:"status"`
	Alive     bool      `json:"alive"`
	CheckedAt time.Time `json:"checked_at"`
}
