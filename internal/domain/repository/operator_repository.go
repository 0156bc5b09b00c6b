package repository

import (
	"context"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// OperatorRepository define o porto de persistência dos operadores do PDV.
type OperatorRepository interface {
	Create(ctx context.Context, op *entity.Operator) error
	GetByEmail(ctx context.Context, email string) (*entity.Operator, error)
	GetByID(ctx context.Context, id string) (*entity.Operator, error)
}
