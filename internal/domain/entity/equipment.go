package entity

import "time"

// Tipos de equipamento fiscal que assinam cupons da família CF-e.
const (
	EquipmentPhysical = "PHYSICAL" // SAT físico conectado na loja
	EquipmentVirtual  = "VIRTUAL"  // SAT virtual disponibilizado pela jurisdição
)

// Estados operacionais do equipamento. Nasce INACTIVE e só vira ACTIVE pela
// operação explícita de ativação.
const (
	EquipmentActive      = "ACTIVE"
	EquipmentInactive    = "INACTIVE"
	EquipmentMaintenance = "MAINTENANCE"
	EquipmentError       = "ERROR"
	EquipmentBlocked     = "BLOCKED"
)

// Equipment é um dispositivo assinador, físico ou virtual, usado pela
// família CF-e. Serial é único no cadastro.
type Equipment struct {
	ID                string
	Serial            string
	Type              string
	Model             string
	Manufacturer      string
	Firmware          string
	Status            string
	Jurisdiction      string
	StoreID           string
	LastCommunication *time.Time
	ActivatedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Available indica se o equipamento pode ser vinculado a um novo documento.
func (e *Equipment) Available() bool {
	return e.Status == EquipmentActive
}

// OperationLog é a trilha de auditoria do registro de equipamentos: uma
// linha imutável por operação, inclusive as que falharam.
type OperationLog struct {
	ID          string
	EquipmentID string
	Operation   string
	Request     string
	Response    string
	Error       string
	At          time.Time
}
