package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	"github.com/vlourenco/pdv-fiscal/pkg/locker"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// periodLayout é o formato do período de referência de um lote.
const periodLayout = "2006-01"

// PeriodBounds devolve o primeiro e o último instante do período YYYY-MM.
func PeriodBounds(period string) (from, to time.Time, err error) {
	start, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: período %q fora do formato YYYY-MM", domain.ErrInvalidInput, period)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// ExportEngine executa o pipeline de lotes contábeis: coleta os documentos
// exportáveis do período nas duas famílias, serializa no formato do
// provedor, grava o arquivo e marca os documentos. A idempotência é por
// documento (flag exported), então reprocessar um lote falho não duplica
// nada.
type ExportEngine struct {
	batches   repository.ExportBatchRepository
	items     repository.ExportItemRepository
	providers repository.ExportProviderRepository
	sources   []DocumentSource
	store     FileStore
	locks     *locker.Keyed
	log       *logger.Logger
	now       func() time.Time
}

// NewExportEngine constrói o pipeline com as fontes de documento das
// famílias atendidas.
func NewExportEngine(
	batches repository.ExportBatchRepository,
	items repository.ExportItemRepository,
	providers repository.ExportProviderRepository,
	sources []DocumentSource,
	store FileStore,
	log *logger.Logger,
) *ExportEngine {
	return &ExportEngine{
		batches:   batches,
		items:     items,
		providers: providers,
		sources:   sources,
		store:     store,
		locks:     locker.New(),
		log:       log,
		now:       time.Now,
	}
}

// CreateBatch registra um lote PENDING para o período e provedor. O
// processamento é disparado à parte (Process), síncrono no handler ou pelo
// motor de agendamentos.
func (e *ExportEngine) CreateBatch(ctx context.Context, req *dto.CreateBatchRequest, createdBy string) (*entity.ExportBatch, error) {
	if _, _, err := PeriodBounds(req.Period); err != nil {
		return nil, err
	}
	provider, err := e.providers.GetByID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provedor %s", domain.ErrNotFound, req.ProviderID)
	}
	if !provider.Active {
		return nil, fmt.Errorf("%w: provedor %s está inativo", domain.ErrInvalidState, provider.ID)
	}

	batch := &entity.ExportBatch{
		ID:         uuid.NewString(),
		Period:     req.Period,
		Status:     entity.BatchPending,
		StartedAt:  e.now(),
		ProviderID: provider.ID,
		CreatedBy:  createdBy,
		Notes:      req.Notes,
		Version:    1,
	}
	if err := e.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("batch_id", batch.ID).
		Str("period", batch.Period).
		Str("provider_id", provider.ID).
		Msg("lote de exportação criado")
	return batch, nil
}

// Process executa um lote PENDING (ou reexecuta um FAILED). Qualquer falha
// no meio do caminho deixa o lote FAILED com o detalhe gravado; documentos
// já marcados como exportados não voltam atrás e serão pulados na próxima
// execução.
func (e *ExportEngine) Process(ctx context.Context, batchID string) (*entity.ExportBatch, error) {
	e.locks.Lock(batchID)
	defer e.locks.Unlock(batchID)

	batch, err := e.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != entity.BatchPending && batch.Status != entity.BatchFailed {
		return nil, fmt.Errorf("%w: lote %s em %s não pode ser processado", domain.ErrInvalidState, batchID, batch.Status)
	}

	batch.Status = entity.BatchProcessing
	batch.ErrorDetail = ""
	if err := e.batches.Update(ctx, batch); err != nil {
		return nil, err
	}

	if err := e.run(ctx, batch); err != nil {
		batch.Status = entity.BatchFailed
		batch.ErrorDetail = err.Error()
		ended := e.now()
		batch.EndedAt = &ended
		if uerr := e.batches.Update(ctx, batch); uerr != nil {
			e.log.Error().Err(uerr).Str("batch_id", batchID).Msg("não foi possível gravar o estado FAILED do lote")
		}
		e.log.Warn().Err(err).Str("batch_id", batchID).Msg("processamento do lote falhou")
		return batch, fmt.Errorf("%w: %v", domain.ErrPipeline, err)
	}

	ended := e.now()
	batch.Status = entity.BatchCompleted
	batch.EndedAt = &ended
	if err := e.batches.Update(ctx, batch); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("batch_id", batch.ID).
		Int("documents", batch.DocumentCount).
		Str("file", batch.FilePath).
		Msg("lote de exportação concluído")
	return batch, nil
}

func (e *ExportEngine) run(ctx context.Context, batch *entity.ExportBatch) error {
	provider, err := e.providers.GetByID(ctx, batch.ProviderID)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("%w: provedor %s", domain.ErrNotFound, batch.ProviderID)
	}

	from, to, err := PeriodBounds(batch.Period)
	if err != nil {
		return err
	}

	var docs []*entity.FiscalDocument
	for _, src := range e.sources {
		part, err := src.ListForAccounting(ctx, from, to)
		if err != nil {
			return fmt.Errorf("coleta de documentos %s: %w", src.Family(), err)
		}
		docs = append(docs, part...)
	}

	// período sem movimento fecha vazio, sem arquivo
	if len(docs) == 0 {
		batch.DocumentCount = 0
		batch.TotalValue = decimal.Zero
		note := "período sem documentos exportáveis"
		if batch.Notes != "" {
			note = batch.Notes + "; " + note
		}
		batch.Notes = note
		return nil
	}

	var total decimal.Decimal
	for _, d := range docs {
		total = total.Add(d.TotalValue)
	}
	batch.DocumentCount = len(docs)
	batch.TotalValue = total

	data, ext, err := Serialize(provider.Format, batch, docs)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("export_%s_%s.%s", batch.Period, batch.ID, ext)
	path, err := e.store.Write(ctx, name, data)
	if err != nil {
		return fmt.Errorf("gravação do arquivo: %w", err)
	}
	batch.FilePath = path

	sourceByFamily := make(map[string]DocumentSource, len(e.sources))
	for _, src := range e.sources {
		sourceByFamily[src.Family()] = src
	}

	for _, d := range docs {
		item := &entity.ExportItem{
			ID:             uuid.NewString(),
			BatchID:        batch.ID,
			DocumentFamily: d.Family,
			DocumentID:     d.ID,
			DocumentNumber: d.Number,
			DocumentDate:   d.IssuedAt,
			DocumentValue:  d.TotalValue,
			Status:         entity.ItemPending,
		}
		payload, err := RecordPayload(d)
		if err != nil {
			return fmt.Errorf("serialização do documento %s: %w", d.ID, err)
		}
		item.Payload = payload
		if err := e.items.Create(ctx, item); err != nil {
			return err
		}

		if err := sourceByFamily[d.Family].MarkExported(ctx, d.ID); err != nil {
			item.Status = entity.ItemFailed
			item.ErrorDetail = err.Error()
			if uerr := e.items.Update(ctx, item); uerr != nil {
				e.log.Error().Err(uerr).Str("item_id", item.ID).Msg("não foi possível gravar item falho")
			}
			return fmt.Errorf("marcação do documento %s: %w", d.ID, err)
		}
		item.Status = entity.ItemCompleted
		if err := e.items.Update(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// GetBatch devolve um lote pelo ID.
func (e *ExportEngine) GetBatch(ctx context.Context, id string) (*entity.ExportBatch, error) {
	return e.batches.GetByID(ctx, id)
}

// ListBatches devolve os lotes, paginados.
func (e *ExportEngine) ListBatches(ctx context.Context, limit, offset int) ([]*entity.ExportBatch, error) {
	return e.batches.List(ctx, limit, offset)
}

// ListItems devolve os itens de um lote.
func (e *ExportEngine) ListItems(ctx context.Context, batchID string) ([]*entity.ExportItem, error) {
	if _, err := e.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return e.items.ListByBatch(ctx, batchID)
}

// CreateProvider cadastra um provedor contábil de destino.
func (e *ExportEngine) CreateProvider(ctx context.Context, req *dto.CreateProviderRequest) (*entity.ExportProvider, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: nome do provedor é obrigatório", domain.ErrInvalidInput)
	}
	switch req.Format {
	case entity.FormatJSON, entity.FormatXML, entity.FormatCSV:
	default:
		return nil, fmt.Errorf("%w: formato %q", domain.ErrUnsupported, req.Format)
	}
	p := &entity.ExportProvider{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Kind:        req.Kind,
		Endpoint:    req.Endpoint,
		Credentials: req.Credentials,
		Format:      req.Format,
		Active:      true,
	}
	if err := e.providers.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProviders devolve os provedores cadastrados.
func (e *ExportEngine) ListProviders(ctx context.Context) ([]*entity.ExportProvider, error) {
	return e.providers.List(ctx)
}
