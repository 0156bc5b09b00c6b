package fiscal

import (
	"context"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// SubmitResult é o retorno estruturado do transporte para a submissão de um
// documento. Accepted decide entre AUTHORIZED e REJECTED; a autorização
// carrega protocolo, chave de acesso e resposta crua.
type SubmitResult struct {
	Accepted      bool
	Authorization entity.AuthorizationResult
}

// Transport define o porto de saída para a autoridade fiscal ou o
// equipamento assinador. Uma implementação por família: web service
// SEFAZ para a NFC-e, gateway SAT para o CF-e. Erros de rede/timeout
// voltam como error e levam o documento a ERROR (submissão) ou o evento a
// FAILED (cancelamento).
type Transport interface {
	Submit(ctx context.Context, doc *entity.FiscalDocument) (*SubmitResult, error)
	SendEvent(ctx context.Context, doc *entity.FiscalDocument, ev *entity.DocumentEvent) (*entity.EventResult, error)
}
