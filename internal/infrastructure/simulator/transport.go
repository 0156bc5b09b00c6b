// Package simulator é o transporte do ambiente de desenvolvimento: autoriza
// e cancela localmente, sem rede, com respostas determinísticas.
package simulator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	pkgfiscal "github.com/vlourenco/pdv-fiscal/pkg/fiscal"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

var _ fiscal.Transport = (*Transport)(nil)

// Transport autorizador simulado. O protocolo é derivado do número do
// documento, para os logs de desenvolvimento serem reproduzíveis.
type Transport struct {
	log *logger.Logger
	now func() time.Time
}

// New constrói o simulador.
func New(log *logger.Logger) *Transport {
	return &Transport{log: log, now: time.Now}
}

// Submit autoriza qualquer documento válido.
func (t *Transport) Submit(_ context.Context, doc *entity.FiscalDocument) (*fiscal.SubmitResult, error) {
	now := t.now()
	protocol := fmt.Sprintf("%s%s%09d", pkgfiscal.UFCode(doc.Jurisdiction), now.Format("06"), doc.Number)

	accessKey := extractAccessKey(doc.RawPayload)
	t.log.Debug().
		Str("document_id", doc.ID).
		Str("protocol", protocol).
		Msg("simulador: documento autorizado")

	return &fiscal.SubmitResult{
		Accepted: true,
		Authorization: entity.AuthorizationResult{
			AuthorizedAt:  now,
			Protocol:      protocol,
			StatusCode:    100,
			StatusMessage: "Autorizado o uso (simulado)",
			AccessKey:     accessKey,
			QRPayload:     fmt.Sprintf("https://fazenda.%s.gov.br/qr?p=%s", doc.Jurisdiction, protocol),
		},
	}, nil
}

// extractAccessKey pega a chave de acesso do payload montado (elemento
// chave da NFC-e); o CF-e simulado fica sem chave.
func extractAccessKey(payload string) string {
	const openTag, closeTag = "<chave>", "</chave>"
	i := strings.Index(payload, openTag)
	if i < 0 {
		return ""
	}
	rest := payload[i+len(openTag):]
	j := strings.Index(rest, closeTag)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// SendEvent registra qualquer evento.
func (t *Transport) SendEvent(_ context.Context, doc *entity.FiscalDocument, ev *entity.DocumentEvent) (*entity.EventResult, error) {
	protocol := fmt.Sprintf("EVT%s%09d", t.now().Format("06"), doc.Number)
	t.log.Debug().
		Str("document_id", doc.ID).
		Str("event_type", ev.Type).
		Msg("simulador: evento registrado")
	return &entity.EventResult{
		Protocol:      protocol,
		StatusCode:    135,
		StatusMessage: "Evento registrado (simulado)",
	}, nil
}
