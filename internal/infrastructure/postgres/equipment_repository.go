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

var _ repository.EquipmentRepository = (*EquipmentRepo)(nil)

// EquipmentRepo cadastro de equipamentos assinadores sobre PostgreSQL.
type EquipmentRepo struct {
	q Querier
}

// NewEquipmentRepository constrói o adaptador.
func NewEquipmentRepository(q Querier) *EquipmentRepo {
	return &EquipmentRepo{q: q}
}

const equipmentColumns = `
	id, serial, type, model, manufacturer, firmware, status,
	jurisdiction, store_id, last_communication, activated_at,
	created_at, updated_at`

// Create persiste um equipamento novo. Serial é único.
func (r *EquipmentRepo) Create(ctx context.Context, eq *entity.Equipment) error {
	query := `
		INSERT INTO equipments (` + equipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		eq.ID, eq.Serial, eq.Type, nullIfEmpty(eq.Model), nullIfEmpty(eq.Manufacturer),
		nullIfEmpty(eq.Firmware), eq.Status, eq.Jurisdiction, nullIfEmpty(eq.StoreID),
		eq.LastCommunication, eq.ActivatedAt, eq.CreatedAt, eq.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: serial %s já cadastrado", domain.ErrConflict, eq.Serial)
		}
		return fmt.Errorf("insert equipamento: %w", err)
	}
	return nil
}

// Update grava o estado do equipamento.
func (r *EquipmentRepo) Update(ctx context.Context, eq *entity.Equipment) error {
	query := `
		UPDATE equipments
		SET status = $2, model = $3, manufacturer = $4, firmware = $5,
		    store_id = $6, last_communication = $7, activated_at = $8, updated_at = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		eq.ID, eq.Status, nullIfEmpty(eq.Model), nullIfEmpty(eq.Manufacturer),
		nullIfEmpty(eq.Firmware), nullIfEmpty(eq.StoreID),
		eq.LastCommunication, eq.ActivatedAt, eq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update equipamento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: equipamento %s", domain.ErrNotFound, eq.ID)
	}
	return nil
}

// GetByID devolve o equipamento pelo ID.
func (r *EquipmentRepo) GetByID(ctx context.Context, id string) (*entity.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipments WHERE id = $1`
	eq, err := scanEquipment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: equipamento %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get equipamento: %w", err)
	}
	return eq, nil
}

// GetBySerial devolve o equipamento pelo serial, ou nil se não existir.
func (r *EquipmentRepo) GetBySerial(ctx context.Context, serial string) (*entity.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipments WHERE serial = $1`
	eq, err := scanEquipment(r.q.QueryRow(ctx, query, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get equipamento por serial: %w", err)
	}
	return eq, nil
}

// FindAvailable devolve os equipamentos ACTIVE do tipo e UF, mais antigos
// primeiro para distribuir o uso.
func (r *EquipmentRepo) FindAvailable(ctx context.Context, uf, equipmentType string) ([]*entity.Equipment, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipments
		WHERE jurisdiction = $1 AND type = $2 AND status = $3
		ORDER BY COALESCE(last_communication, activated_at)`
	rows, err := r.q.Query(ctx, query, uf, equipmentType, entity.EquipmentActive)
	if err != nil {
		return nil, fmt.Errorf("buscar equipamentos disponíveis: %w", err)
	}
	defer rows.Close()
	return scanEquipments(rows)
}

// List devolve todos os equipamentos cadastrados.
func (r *EquipmentRepo) List(ctx context.Context) ([]*entity.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipments ORDER BY created_at`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar equipamentos: %w", err)
	}
	defer rows.Close()
	return scanEquipments(rows)
}

func scanEquipment(row pgx.Row) (*entity.Equipment, error) {
	var eq entity.Equipment
	var model, manufacturer, firmware, storeID *string
	err := row.Scan(
		&eq.ID, &eq.Serial, &eq.Type, &model, &manufacturer, &firmware, &eq.Status,
		&eq.Jurisdiction, &storeID, &eq.LastCommunication, &eq.ActivatedAt,
		&eq.CreatedAt, &eq.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	eq.Model = deref(model)
	eq.Manufacturer = deref(manufacturer)
	eq.Firmware = deref(firmware)
	eq.StoreID = deref(storeID)
	return &eq, nil
}

func scanEquipments(rows pgx.Rows) ([]*entity.Equipment, error) {
	var out []*entity.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

var _ repository.OperationLogRepository = (*OperationLogRepo)(nil)

// OperationLogRepo trilha de auditoria do registro de equipamentos.
type OperationLogRepo struct {
	q Querier
}

// NewOperationLogRepository constrói o adaptador.
func NewOperationLogRepository(q Querier) *OperationLogRepo {
	return &OperationLogRepo{q: q}
}

// Append grava uma linha de auditoria.
func (r *OperationLogRepo) Append(ctx context.Context, log *entity.OperationLog) error {
	query := `
		INSERT INTO equipment_operation_logs (id, equipment_id, operation, request, response, error, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		log.ID, nullIfEmpty(log.EquipmentID), log.Operation,
		nullIfEmpty(log.Request), nullIfEmpty(log.Response), nullIfEmpty(log.Error), log.At,
	)
	if err != nil {
		return fmt.Errorf("insert auditoria: %w", err)
	}
	return nil
}

// ListByEquipment devolve o histórico de operações de um equipamento.
func (r *OperationLogRepo) ListByEquipment(ctx context.Context, equipmentID string) ([]*entity.OperationLog, error) {
	query := `
		SELECT id, equipment_id, operation, request, response, error, at
		FROM equipment_operation_logs
		WHERE equipment_id = $1
		ORDER BY at DESC`
	rows, err := r.q.Query(ctx, query, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("listar auditoria: %w", err)
	}
	defer rows.Close()

	var out []*entity.OperationLog
	for rows.Next() {
		var l entity.OperationLog
		var equipID, request, response, opErr *string
		if err := rows.Scan(&l.ID, &equipID, &l.Operation, &request, &response, &opErr, &l.At); err != nil {
			return nil, err
		}
		l.EquipmentID = deref(equipID)
		l.Request = deref(request)
		l.Response = deref(response)
		l.Error = deref(opErr)
		out = append(out, &l)
	}
	return out, rows.Err()
}
