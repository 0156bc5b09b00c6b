package repository

import (
	"context"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// ExportBatchRepository define o porto de persistência dos lotes de
// exportação contábil.
type ExportBatchRepository interface {
	Create(ctx context.Context, batch *entity.ExportBatch) error
	// Update grava o lote com checagem otimista de versão (domain.ErrConflict
	// em escrita desatualizada).
	Update(ctx context.Context, batch *entity.ExportBatch) error
	GetByID(ctx context.Context, id string) (*entity.ExportBatch, error)
	List(ctx context.Context, limit, offset int) ([]*entity.ExportBatch, error)
}

// ExportItemRepository define o porto dos itens de lote (um por documento
// exportado).
type ExportItemRepository interface {
	Create(ctx context.Context, item *entity.ExportItem) error
	Update(ctx context.Context, item *entity.ExportItem) error
	ListByBatch(ctx context.Context, batchID string) ([]*entity.ExportItem, error)
}

// ExportProviderRepository define o porto dos provedores contábeis de
// destino.
type ExportProviderRepository interface {
	Create(ctx context.Context, p *entity.ExportProvider) error
	GetByID(ctx context.Context, id string) (*entity.ExportProvider, error)
	// FindDefaultActive devolve o provedor ativo usado pelos agendamentos.
	FindDefaultActive(ctx context.Context) (*entity.ExportProvider, error)
	List(ctx context.Context) ([]*entity.ExportProvider, error)
}

// ExportScheduleRepository define o porto dos agendamentos recorrentes.
type ExportScheduleRepository interface {
	Create(ctx context.Context, s *entity.ExportSchedule) error
	Update(ctx context.Context, s *entity.ExportSchedule) error
	GetByID(ctx context.Context, id string) (*entity.ExportSchedule, error)
	// ListDue devolve agendamentos ativos com next_run <= now.
	ListDue(ctx context.Context, now time.Time) ([]*entity.ExportSchedule, error)
	List(ctx context.Context) ([]*entity.ExportSchedule, error)
}
