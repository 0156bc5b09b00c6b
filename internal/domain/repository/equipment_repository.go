package repository

import (
	"context"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// EquipmentRepository define o porto de persistência do cadastro de
// equipamentos fiscais (SAT físico/virtual).
type EquipmentRepository interface {
	Create(ctx context.Context, eq *entity.Equipment) error
	Update(ctx context.Context, eq *entity.Equipment) error
	GetByID(ctx context.Context, id string) (*entity.Equipment, error)
	GetBySerial(ctx context.Context, serial string) (*entity.Equipment, error)
	// FindAvailable devolve equipamentos ACTIVE do tipo e UF informados.
	FindAvailable(ctx context.Context, uf, equipmentType string) ([]*entity.Equipment, error)
	List(ctx context.Context) ([]*entity.Equipment, error)
}

// OperationLogRepository define o porto da trilha de auditoria do registro
// de equipamentos. Append nunca deve ser pulado, mesmo em falha da operação.
type OperationLogRepository interface {
	Append(ctx context.Context, log *entity.OperationLog) error
	ListByEquipment(ctx context.Context, equipmentID string) ([]*entity.OperationLog, error)
}
