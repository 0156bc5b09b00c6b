// Package accounting implementa o pipeline de exportação contábil: geração
// de lotes por período, serialização nos formatos dos provedores e o motor
// de agendamentos recorrentes.
package accounting

import (
	"context"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// DocumentSource é a visão que o pipeline tem de um motor de família:
// listar documentos exportáveis do período e marcá-los após a inclusão no
// lote. Os dois motores (NFC-e e CF-e) satisfazem a interface.
type DocumentSource interface {
	Family() string
	ListForAccounting(ctx context.Context, from, to time.Time) ([]*entity.FiscalDocument, error)
	MarkExported(ctx context.Context, id string) error
}

// FileStore é o porto de escrita do arquivo gerado pelo lote. A
// implementação local grava em disco; o caminho devolvido vai para
// ExportBatch.FilePath.
type FileStore interface {
	Write(ctx context.Context, name string, data []byte) (path string, err error)
}
