package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
)

var _ repository.OperatorRepository = (*OperatorRepo)(nil)

// OperatorRepo operadores do PDV sobre PostgreSQL.
type OperatorRepo struct {
	q Querier
}

// NewOperatorRepository constrói o adaptador.
func NewOperatorRepository(q Querier) *OperatorRepo {
	return &OperatorRepo{q: q}
}

// Create persiste um operador. Email é único.
func (r *OperatorRepo) Create(ctx context.Context, op *entity.Operator) error {
	query := `
		INSERT INTO operators (id, name, email, password_hash, store_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		op.ID, op.Name, op.Email, op.PasswordHash, nullIfEmpty(op.StoreID), op.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s já cadastrado", domain.ErrDuplicate, op.Email)
		}
		return fmt.Errorf("insert operador: %w", err)
	}
	return nil
}

// GetByEmail devolve o operador pelo email, ou nil se não existir.
func (r *OperatorRepo) GetByEmail(ctx context.Context, email string) (*entity.Operator, error) {
	query := `
		SELECT id, name, email, password_hash, store_id, created_at
		FROM operators WHERE email = $1`
	op, err := scanOperator(r.q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operador por email: %w", err)
	}
	return op, nil
}

// GetByID devolve o operador pelo ID.
func (r *OperatorRepo) GetByID(ctx context.Context, id string) (*entity.Operator, error) {
	query := `
		SELECT id, name, email, password_hash, store_id, created_at
		FROM operators WHERE id = $1`
	op, err := scanOperator(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: operador %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get operador: %w", err)
	}
	return op, nil
}

func scanOperator(row pgx.Row) (*entity.Operator, error) {
	var op entity.Operator
	var storeID *string
	if err := row.Scan(&op.ID, &op.Name, &op.Email, &op.PasswordHash, &storeID, &op.CreatedAt); err != nil {
		return nil, err
	}
	op.StoreID = deref(storeID)
	return &op, nil
}
