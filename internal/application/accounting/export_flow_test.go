package accounting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/infrastructure/simulator"
	"github.com/vlourenco/pdv-fiscal/pkg/locker"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// ─────────────────────────────────────────────────────────────────────────────
// repositórios fiscais em memória, para o fluxo de ponta a ponta: o motor
// de emissão real alimentando o motor de exportação real
// ─────────────────────────────────────────────────────────────────────────────

type memDocRepo struct {
	mu   sync.Mutex
	docs map[string]*entity.FiscalDocument
	seq  map[string]int64
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{
		docs: make(map[string]*entity.FiscalDocument),
		seq:  make(map[string]int64),
	}
}

func copyDoc(d *entity.FiscalDocument) *entity.FiscalDocument {
	c := *d
	c.Items = append([]entity.DocumentItem(nil), d.Items...)
	c.Payments = append([]entity.Payment(nil), d.Payments...)
	if d.Customer != nil {
		cc := *d.Customer
		c.Customer = &cc
	}
	if d.Authorization != nil {
		ca := *d.Authorization
		c.Authorization = &ca
	}
	return &c
}

func (r *memDocRepo) Create(_ context.Context, doc *entity.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *memDocRepo) Update(_ context.Context, doc *entity.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != doc.Version {
		return domain.ErrConflict
	}
	doc.Version++
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
	}
	return copyDoc(d), nil
}

func (r *memDocRepo) NextNumber(_ context.Context, family, series string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := family + "/" + series
	r.seq[key]++
	return r.seq[key], nil
}

func (r *memDocRepo) ListForAccounting(_ context.Context, family string, from, to time.Time) ([]*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range r.docs {
		exportable := d.Status == entity.StatusAuthorized || d.Status == entity.StatusCancelled
		if d.Family == family && exportable && !d.Exported &&
			!d.IssuedAt.Before(from) && !d.IssuedAt.After(to) {
			out = append(out, copyDoc(d))
		}
	}
	return out, nil
}

func (r *memDocRepo) List(_ context.Context, family string, _, _ int) ([]*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range r.docs {
		if d.Family == family {
			out = append(out, copyDoc(d))
		}
	}
	return out, nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*entity.DocumentEvent
}

func (r *memEventRepo) Append(_ context.Context, ev *entity.DocumentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *ev
	r.events = append(r.events, &c)
	return nil
}

func (r *memEventRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.DocumentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DocumentEvent
	for _, ev := range r.events {
		if ev.DocumentID == documentID {
			c := *ev
			out = append(out, &c)
		}
	}
	return out, nil
}

type memRuleRepo struct{}

func (memRuleRepo) GetByUF(context.Context, string) (*entity.JurisdictionRule, error) {
	return nil, nil
}
func (memRuleRepo) Save(context.Context, *entity.JurisdictionRule) error      { return nil }
func (memRuleRepo) List(context.Context) ([]*entity.JurisdictionRule, error) { return nil, nil }

func saleRequest(value string) *dto.CreateDocumentRequest {
	return &dto.CreateDocumentRequest{
		Jurisdiction: "SP",
		Issuer: dto.IssuerRequest{
			Name:      "Cantina Bella Napoli Ltda",
			TradeName: "Bella Napoli",
			CNPJ:      "11222333000181",
			TaxRegime: "1",
		},
		Items: []dto.DocumentItemRequest{
			{
				ProductCode: "PIZZA-01",
				Description: "Pizza margherita",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString(value),
				ICMS:        decimal.RequireFromString("0.72"),
				PIS:         decimal.RequireFromString("0.13"),
				COFINS:      decimal.RequireFromString("0.60"),
			},
		},
		Payments: []dto.PaymentRequest{
			{Method: "01", Value: decimal.RequireFromString(value)},
		},
	}
}

// TestFluxoEmissaoAteExportacao percorre o caminho inteiro com os motores
// reais: emite duas NFC-e pelo simulador, cancela uma, e fecha o lote
// contábil JSON do mês com o motor de emissão atuando como fonte de
// documentos do motor de exportação.
func TestFluxoEmissaoAteExportacao(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocRepo()
	resolver := jurisdiction.NewResolver(memRuleRepo{}, logger.Nop())
	eng := fiscal.NewEngine(fiscal.NewNFCePolicy(), docs, &memEventRepo{}, resolver,
		simulator.New(logger.Nop()), locker.New(), logger.Nop(), time.Second)

	// duas vendas autorizadas
	sale1, err := eng.Create(ctx, saleRequest("20.00"))
	require.NoError(t, err)
	sale1, err = eng.Submit(ctx, sale1.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusAuthorized, sale1.Status)

	sale2, err := eng.Create(ctx, saleRequest("35.00"))
	require.NoError(t, err)
	sale2, err = eng.Submit(ctx, sale2.ID)
	require.NoError(t, err)

	// protocolo determinístico do simulador e chave extraída do payload
	now := time.Now()
	assert.Equal(t, fmt.Sprintf("35%s%09d", now.Format("06"), sale1.Number), sale1.Authorization.Protocol)
	assert.Len(t, sale1.Authorization.AccessKey, 44)

	// a segunda venda é cancelada; continua exportável
	sale2, err = eng.Cancel(ctx, sale2.ID, "desistência do cliente")
	require.NoError(t, err)
	require.Equal(t, entity.StatusCancelled, sale2.Status)

	// motor de exportação real com o motor de emissão como fonte
	batches := newFakeBatchRepo()
	items := newFakeItemRepo()
	providers := newFakeProviderRepo()
	store := newMemStore()
	require.NoError(t, providers.Create(ctx, &entity.ExportProvider{
		ID:     "prov-1",
		Name:   "Escritório Contábil Silva",
		Kind:   "generic",
		Format: entity.FormatJSON,
		Active: true,
	}))
	exports := NewExportEngine(batches, items, providers, []DocumentSource{eng}, store, logger.Nop())

	period := now.Format("2006-01")
	batch, err := exports.CreateBatch(ctx, &dto.CreateBatchRequest{Period: period, ProviderID: "prov-1"}, "op-1")
	require.NoError(t, err)

	out, err := exports.Process(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BatchCompleted, out.Status)
	assert.Equal(t, 2, out.DocumentCount)
	assert.True(t, out.TotalValue.Equal(decimal.RequireFromString("55.00")))
	require.NotEmpty(t, out.FilePath)

	// arquivo gerado carrega a autorização das duas vendas
	require.Len(t, store.files, 1)
	for _, data := range store.files {
		assert.Contains(t, string(data), sale1.Authorization.Protocol)
		assert.Contains(t, string(data), sale1.Authorization.AccessKey)
	}

	// itens do lote fechados e documentos marcados como exportados
	batchItems, err := exports.ListItems(ctx, out.ID)
	require.NoError(t, err)
	require.Len(t, batchItems, 2)
	for _, it := range batchItems {
		assert.Equal(t, entity.ItemCompleted, it.Status)
	}
	for _, id := range []string{sale1.ID, sale2.ID} {
		got, err := eng.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Exported)
	}

	// reprocessar o mesmo período não encontra nada novo
	again, err := exports.CreateBatch(ctx, &dto.CreateBatchRequest{Period: period, ProviderID: "prov-1"}, "op-1")
	require.NoError(t, err)
	again, err = exports.Process(ctx, again.ID)
	require.NoError(t, err)
	assert.Zero(t, again.DocumentCount)
	assert.Contains(t, again.Notes, "período sem documentos exportáveis")
}
