package repository

import (
	"context"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// JurisdictionRuleRepository define o porto de persistência das regras por
// UF. Save faz upsert: corridas de primeira referência resolvem por
// last-writer-wins (o default é determinístico).
type JurisdictionRuleRepository interface {
	GetByUF(ctx context.Context, uf string) (*entity.JurisdictionRule, error)
	Save(ctx context.Context, rule *entity.JurisdictionRule) error
	List(ctx context.Context) ([]*entity.JurisdictionRule, error)
}
