package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
)

var _ repository.ExportBatchRepository = (*ExportBatchRepo)(nil)

// ExportBatchRepo lotes de exportação contábil sobre PostgreSQL.
type ExportBatchRepo struct {
	q Querier
}

// NewExportBatchRepository constrói o adaptador.
func NewExportBatchRepository(q Querier) *ExportBatchRepo {
	return &ExportBatchRepo{q: q}
}

const batchColumns = `
	id, period, status, started_at, ended_at, document_count, total_value,
	provider_id, created_by, notes, error_detail, file_path, version`

// Create persiste o lote em PENDING.
func (r *ExportBatchRepo) Create(ctx context.Context, b *entity.ExportBatch) error {
	query := `
		INSERT INTO export_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.Period, b.Status, b.StartedAt, b.EndedAt, b.DocumentCount, b.TotalValue,
		b.ProviderID, nullIfEmpty(b.CreatedBy), nullIfEmpty(b.Notes),
		nullIfEmpty(b.ErrorDetail), nullIfEmpty(b.FilePath), b.Version,
	)
	if err != nil {
		return fmt.Errorf("insert lote: %w", err)
	}
	return nil
}

// Update grava o lote com checagem otimista de versão.
func (r *ExportBatchRepo) Update(ctx context.Context, b *entity.ExportBatch) error {
	query := `
		UPDATE export_batches
		SET status = $3, ended_at = $4, document_count = $5, total_value = $6,
		    notes = $7, error_detail = $8, file_path = $9, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		b.ID, b.Version,
		b.Status, b.EndedAt, b.DocumentCount, b.TotalValue,
		nullIfEmpty(b.Notes), nullIfEmpty(b.ErrorDetail), nullIfEmpty(b.FilePath),
	)
	if err != nil {
		return fmt.Errorf("update lote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.GetByID(ctx, b.ID); gerr != nil {
			return gerr
		}
		return fmt.Errorf("%w: lote %s foi alterado por outra operação", domain.ErrConflict, b.ID)
	}
	b.Version++
	return nil
}

// GetByID devolve o lote.
func (r *ExportBatchRepo) GetByID(ctx context.Context, id string) (*entity.ExportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM export_batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get lote: %w", err)
	}
	return b, nil
}

// List devolve os lotes por início decrescente, paginados.
func (r *ExportBatchRepo) List(ctx context.Context, limit, offset int) ([]*entity.ExportBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT ` + batchColumns + `
		FROM export_batches
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*entity.ExportBatch, error) {
	var b entity.ExportBatch
	var createdBy, notes, errorDetail, filePath *string
	err := row.Scan(
		&b.ID, &b.Period, &b.Status, &b.StartedAt, &b.EndedAt, &b.DocumentCount, &b.TotalValue,
		&b.ProviderID, &createdBy, &notes, &errorDetail, &filePath, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedBy = deref(createdBy)
	b.Notes = deref(notes)
	b.ErrorDetail = deref(errorDetail)
	b.FilePath = deref(filePath)
	return &b, nil
}

var _ repository.ExportItemRepository = (*ExportItemRepo)(nil)

// ExportItemRepo itens de lote sobre PostgreSQL.
type ExportItemRepo struct {
	q Querier
}

// NewExportItemRepository constrói o adaptador.
func NewExportItemRepository(q Querier) *ExportItemRepo {
	return &ExportItemRepo{q: q}
}

// Create persiste um item de lote.
func (r *ExportItemRepo) Create(ctx context.Context, it *entity.ExportItem) error {
	query := `
		INSERT INTO export_items (id, batch_id, document_family, document_id, document_number,
		                          document_date, document_value, status, payload, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.BatchID, it.DocumentFamily, it.DocumentID, it.DocumentNumber,
		it.DocumentDate, it.DocumentValue, it.Status, nullIfEmpty(it.Payload), nullIfEmpty(it.ErrorDetail),
	)
	if err != nil {
		return fmt.Errorf("insert item de lote: %w", err)
	}
	return nil
}

// Update grava o estado final do item.
func (r *ExportItemRepo) Update(ctx context.Context, it *entity.ExportItem) error {
	query := `
		UPDATE export_items
		SET status = $2, payload = $3, error_detail = $4
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, it.ID, it.Status, nullIfEmpty(it.Payload), nullIfEmpty(it.ErrorDetail))
	if err != nil {
		return fmt.Errorf("update item de lote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, it.ID)
	}
	return nil
}

// ListByBatch devolve os itens do lote.
func (r *ExportItemRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.ExportItem, error) {
	query := `
		SELECT id, batch_id, document_family, document_id, document_number,
		       document_date, document_value, status, payload, error_detail
		FROM export_items
		WHERE batch_id = $1
		ORDER BY document_date`
	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("listar itens de lote: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExportItem
	for rows.Next() {
		var it entity.ExportItem
		var payload, errorDetail *string
		if err := rows.Scan(&it.ID, &it.BatchID, &it.DocumentFamily, &it.DocumentID, &it.DocumentNumber,
			&it.DocumentDate, &it.DocumentValue, &it.Status, &payload, &errorDetail); err != nil {
			return nil, err
		}
		it.Payload = deref(payload)
		it.ErrorDetail = deref(errorDetail)
		out = append(out, &it)
	}
	return out, rows.Err()
}

var _ repository.ExportProviderRepository = (*ExportProviderRepo)(nil)

// ExportProviderRepo provedores contábeis sobre PostgreSQL.
type ExportProviderRepo struct {
	q Querier
}

// NewExportProviderRepository constrói o adaptador.
func NewExportProviderRepository(q Querier) *ExportProviderRepo {
	return &ExportProviderRepo{q: q}
}

const providerColumns = `id, name, kind, endpoint, credentials, format, active`

// Create persiste o provedor.
func (r *ExportProviderRepo) Create(ctx context.Context, p *entity.ExportProvider) error {
	query := `
		INSERT INTO export_providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Name, nullIfEmpty(p.Kind), nullIfEmpty(p.Endpoint),
		nullIfEmpty(p.Credentials), p.Format, p.Active,
	)
	if err != nil {
		return fmt.Errorf("insert provedor: %w", err)
	}
	return nil
}

// GetByID devolve o provedor, ou nil se não existir.
func (r *ExportProviderRepo) GetByID(ctx context.Context, id string) (*entity.ExportProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM export_providers WHERE id = $1`
	p, err := scanProvider(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provedor: %w", err)
	}
	return p, nil
}

// FindDefaultActive devolve o provedor ativo mais antigo, usado pelos
// agendamentos quando nenhum provedor é indicado.
func (r *ExportProviderRepo) FindDefaultActive(ctx context.Context) (*entity.ExportProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM export_providers WHERE active ORDER BY name LIMIT 1`
	p, err := scanProvider(r.q.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("buscar provedor default: %w", err)
	}
	return p, nil
}

// List devolve os provedores cadastrados.
func (r *ExportProviderRepo) List(ctx context.Context) ([]*entity.ExportProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM export_providers ORDER BY name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar provedores: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExportProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProvider(row pgx.Row) (*entity.ExportProvider, error) {
	var p entity.ExportProvider
	var kind, endpoint, credentials *string
	if err := row.Scan(&p.ID, &p.Name, &kind, &endpoint, &credentials, &p.Format, &p.Active); err != nil {
		return nil, err
	}
	p.Kind = deref(kind)
	p.Endpoint = deref(endpoint)
	p.Credentials = deref(credentials)
	return &p, nil
}

var _ repository.ExportScheduleRepository = (*ExportScheduleRepo)(nil)

// ExportScheduleRepo agendamentos recorrentes sobre PostgreSQL.
type ExportScheduleRepo struct {
	q Querier
}

// NewExportScheduleRepository constrói o adaptador.
func NewExportScheduleRepository(q Querier) *ExportScheduleRepo {
	return &ExportScheduleRepo{q: q}
}

const scheduleColumns = `
	id, name, frequency, day_of_week, day_of_month, time_of_day,
	active, last_run, next_run, created_at, updated_at`

// Create persiste o agendamento.
func (r *ExportScheduleRepo) Create(ctx context.Context, s *entity.ExportSchedule) error {
	query := `
		INSERT INTO export_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.Name, s.Frequency, s.DayOfWeek, s.DayOfMonth, s.TimeOfDay,
		s.Active, s.LastRun, s.NextRun, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agendamento: %w", err)
	}
	return nil
}

// Update grava o agendamento (avanço de NextRun, desativação).
func (r *ExportScheduleRepo) Update(ctx context.Context, s *entity.ExportSchedule) error {
	query := `
		UPDATE export_schedules
		SET name = $2, frequency = $3, day_of_week = $4, day_of_month = $5,
		    time_of_day = $6, active = $7, last_run = $8, next_run = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		s.ID, s.Name, s.Frequency, s.DayOfWeek, s.DayOfMonth,
		s.TimeOfDay, s.Active, s.LastRun, s.NextRun, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agendamento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: agendamento %s", domain.ErrNotFound, s.ID)
	}
	return nil
}

// GetByID devolve o agendamento.
func (r *ExportScheduleRepo) GetByID(ctx context.Context, id string) (*entity.ExportSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM export_schedules WHERE id = $1`
	s, err := scanSchedule(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: agendamento %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get agendamento: %w", err)
	}
	return s, nil
}

// ListDue devolve os agendamentos ativos vencidos em relação a now.
func (r *ExportScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.ExportSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM export_schedules
		WHERE active AND next_run <= $1
		ORDER BY next_run`
	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("listar agendamentos vencidos: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// List devolve todos os agendamentos.
func (r *ExportScheduleRepo) List(ctx context.Context) ([]*entity.ExportSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM export_schedules ORDER BY created_at`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar agendamentos: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedule(row pgx.Row) (*entity.ExportSchedule, error) {
	var s entity.ExportSchedule
	err := row.Scan(
		&s.ID, &s.Name, &s.Frequency, &s.DayOfWeek, &s.DayOfMonth, &s.TimeOfDay,
		&s.Active, &s.LastRun, &s.NextRun, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSchedules(rows pgx.Rows) ([]*entity.ExportSchedule, error) {
	var out []*entity.ExportSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
