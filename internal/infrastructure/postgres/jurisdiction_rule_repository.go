package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
)

var _ repository.JurisdictionRuleRepository = (*JurisdictionRuleRepo)(nil)

// JurisdictionRuleRepo regras fiscais por UF sobre PostgreSQL. Params é
// JSONB aberto.
type JurisdictionRuleRepo struct {
	q Querier
}

// NewJurisdictionRuleRepository constrói o adaptador.
func NewJurisdictionRuleRepository(q Querier) *JurisdictionRuleRepo {
	return &JurisdictionRuleRepo{q: q}
}

// GetByUF devolve a regra da UF, ou nil se não configurada.
func (r *JurisdictionRuleRepo) GetByUF(ctx context.Context, uf string) (*entity.JurisdictionRule, error) {
	query := `
		SELECT uf, name, endpoint, requires_equipment, params, active, created_at, updated_at
		FROM jurisdiction_rules WHERE uf = $1`
	var rule entity.JurisdictionRule
	var params []byte
	err := r.q.QueryRow(ctx, query, uf).Scan(
		&rule.UF, &rule.Name, &rule.Endpoint, &rule.RequiresEquipment,
		&params, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get regra de jurisdição: %w", err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rule.Params); err != nil {
			return nil, fmt.Errorf("desserializar params: %w", err)
		}
	}
	return &rule, nil
}

// Save faz upsert da regra. Corridas de primeira referência resolvem por
// last-writer-wins.
func (r *JurisdictionRuleRepo) Save(ctx context.Context, rule *entity.JurisdictionRule) error {
	params, err := json.Marshal(rule.Params)
	if err != nil {
		return fmt.Errorf("serializar params: %w", err)
	}
	query := `
		INSERT INTO jurisdiction_rules (uf, name, endpoint, requires_equipment, params, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uf) DO UPDATE SET
			name = EXCLUDED.name,
			endpoint = EXCLUDED.endpoint,
			requires_equipment = EXCLUDED.requires_equipment,
			params = EXCLUDED.params,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`
	_, err = r.q.Exec(ctx, query,
		rule.UF, rule.Name, rule.Endpoint, rule.RequiresEquipment,
		params, rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert regra de jurisdição: %w", err)
	}
	return nil
}

// List devolve todas as regras configuradas.
func (r *JurisdictionRuleRepo) List(ctx context.Context) ([]*entity.JurisdictionRule, error) {
	query := `
		SELECT uf, name, endpoint, requires_equipment, params, active, created_at, updated_at
		FROM jurisdiction_rules ORDER BY uf`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar regras: %w", err)
	}
	defer rows.Close()

	var out []*entity.JurisdictionRule
	for rows.Next() {
		var rule entity.JurisdictionRule
		var params []byte
		if err := rows.Scan(&rule.UF, &rule.Name, &rule.Endpoint, &rule.RequiresEquipment,
			&params, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &rule.Params); err != nil {
				return nil, fmt.Errorf("desserializar params: %w", err)
			}
		}
		out = append(out, &rule)
	}
	return out, rows.Err()
}
