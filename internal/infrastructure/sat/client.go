// Package sat implementa o transporte da família CF-e: o gateway HTTP do
// equipamento SAT/MFE (físico na loja ou virtual da jurisdição).
package sat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// Códigos de retorno do SAT relevantes para o motor.
const (
	codeEmitted   = "06000" // emitido com sucesso
	codeCancelled = "07000" // cancelamento registrado
)

var _ fiscal.Transport = (*Client)(nil)

// Client cliente do gateway SAT. O gateway recebe o CF-e montado e fala o
// protocolo do equipamento; este cliente só trata o request/response HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	log        *logger.Logger
}

// NewClient constrói o cliente com o endpoint do gateway.
func NewClient(endpoint string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
		log:        log,
	}
}

type submitRequest struct {
	EquipmentID string `json:"equipment_id,omitempty"`
	Payload     string `json:"payload"`
}

type submitResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	AccessKey string `json:"access_key,omitempty"`
	Protocol  string `json:"protocol,omitempty"`
	QRPayload string `json:"qr_payload,omitempty"`
	Serial    string `json:"serial,omitempty"`
}

// Submit entrega o cupom ao gateway. Código 06000 autoriza; qualquer outro
// código de negócio rejeita. Erros de rede voltam como error.
func (c *Client) Submit(ctx context.Context, doc *entity.FiscalDocument) (*fiscal.SubmitResult, error) {
	raw, err := c.post(ctx, "/emit", &submitRequest{
		EquipmentID: doc.EquipmentID,
		Payload:     doc.RawPayload,
	})
	if err != nil {
		return nil, err
	}

	var res submitResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("sat: resposta ilegível: %w", err)
	}

	statusCode := 0
	fmt.Sscanf(res.Code, "%d", &statusCode)
	return &fiscal.SubmitResult{
		Accepted: res.Code == codeEmitted,
		Authorization: entity.AuthorizationResult{
			AuthorizedAt:  time.Now(),
			Protocol:      res.Protocol,
			StatusCode:    statusCode,
			StatusMessage: res.Message,
			AccessKey:     res.AccessKey,
			RawResponse:   string(raw),
			QRPayload:     res.QRPayload,
			DeviceSerial:  res.Serial,
		},
	}, nil
}

type eventRequest struct {
	EquipmentID string `json:"equipment_id,omitempty"`
	AccessKey   string `json:"access_key"`
	Reason      string `json:"reason"`
}

// SendEvent registra o cancelamento do cupom no gateway. Código 07000
// conclui; qualquer outro volta como error.
func (c *Client) SendEvent(ctx context.Context, doc *entity.FiscalDocument, ev *entity.DocumentEvent) (*entity.EventResult, error) {
	if doc.Authorization == nil || doc.Authorization.AccessKey == "" {
		return nil, fmt.Errorf("sat: documento %s sem chave para o cancelamento", doc.ID)
	}
	raw, err := c.post(ctx, "/cancel", &eventRequest{
		EquipmentID: doc.EquipmentID,
		AccessKey:   doc.Authorization.AccessKey,
		Reason:      ev.Reason,
	})
	if err != nil {
		return nil, err
	}

	var res submitResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("sat: resposta ilegível: %w", err)
	}
	if res.Code != codeCancelled {
		return nil, fmt.Errorf("sat: cancelamento não registrado (%s: %s)", res.Code, res.Message)
	}

	statusCode := 0
	fmt.Sscanf(res.Code, "%d", &statusCode)
	return &entity.EventResult{
		Protocol:      res.Protocol,
		StatusCode:    statusCode,
		StatusMessage: res.Message,
		RawResponse:   string(raw),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("sat: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sat: criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sat: timeout ou cancelamento: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sat: chamada HTTP falhou: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sat: ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sat: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
