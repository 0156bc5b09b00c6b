package repository

import (
	"context"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// FiscalDocumentRepository define o porto de persistência para documentos
// fiscais das duas famílias. Itens, pagamentos e autorização são gravados
// junto com a cabeçalho (composição).
type FiscalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// Update grava o documento inteiro com checagem otimista de versão:
	// retorna domain.ErrConflict se a versão persistida for outra.
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	// NextNumber devolve o próximo número sequencial da família/série.
	NextNumber(ctx context.Context, family, series string) (int64, error)
	// ListForAccounting devolve documentos AUTHORIZED ou CANCELLED, ainda
	// não exportados, emitidos em [from, to], ordenados por emissão.
	ListForAccounting(ctx context.Context, family string, from, to time.Time) ([]*entity.FiscalDocument, error)
	List(ctx context.Context, family string, limit, offset int) ([]*entity.FiscalDocument, error)
}

// DocumentEventRepository define o porto da trilha de eventos append-only.
type DocumentEventRepository interface {
	Append(ctx context.Context, ev *entity.DocumentEvent) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.DocumentEvent, error)
}
