// Package sefaz implementa o transporte da família NFC-e: o web service de
// autorização da SEFAZ da UF do emitente, via SOAP.
package sefaz

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/application/fiscal"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

const (
	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	autorizacaoNS  = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"
	eventoNS       = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"
	soapActionAut  = autorizacaoNS + "/nfeAutorizacaoLote"
	soapActionEvt  = eventoNS + "/nfeRecepcaoEvento"
	statusAccepted = 100 // "Autorizado o uso da NF-e"
	statusEventOK  = 135 // "Evento registrado e vinculado a NF-e"
)

var _ fiscal.Transport = (*Client)(nil)

// Client cliente SOAP dos web services da SEFAZ. O endpoint vem da regra
// da jurisdição do documento; o timeout de rede fica folgado porque o
// timeout de negócio é do contexto do motor.
type Client struct {
	httpClient *http.Client
	rules      *jurisdiction.Resolver
	log        *logger.Logger
}

// NewClient constrói o cliente.
func NewClient(rules *jurisdiction.Resolver, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		rules:      rules,
		log:        log,
	}
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	XmlnsS  string   `xml:"xmlns:s,attr"`
	Body    soapBody `xml:"s:Body"`
}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// dadosMsg embute o XML do documento como conteúdo bruto do elemento.
type dadosMsg struct {
	XMLName xml.Name `xml:"nfeDadosMsg"`
	Xmlns   string   `xml:"xmlns,attr"`
	Payload string   `xml:",innerxml"`
}

type responseEnvelope struct {
	Body responseBody `xml:"Body"`
}

type responseBody struct {
	Result authorizationResult `xml:"nfeResultMsg>retorno"`
	Fault  *soapFault          `xml:"Fault"`
}

type authorizationResult struct {
	CStat  int    `xml:"cStat"`
	Motivo string `xml:"xMotivo"`
	Prot   struct {
		InfProt struct {
			ChNFe    string `xml:"chNFe"`
			NProt    string `xml:"nProt"`
			CStat    int    `xml:"cStat"`
			XMotivo  string `xml:"xMotivo"`
			DhRecbto string `xml:"dhRecbto"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// Submit envia o lote de autorização com o documento e interpreta o
// retorno: cStat 100 autoriza, qualquer outro rejeita. Erros de rede e
// faults SOAP voltam como error.
func (c *Client) Submit(ctx context.Context, doc *entity.FiscalDocument) (*fiscal.SubmitResult, error) {
	rule := c.rules.Resolve(ctx, doc.Jurisdiction)

	raw, err := c.call(ctx, rule.Endpoint, soapActionAut, &dadosMsg{
		Xmlns:   autorizacaoNS,
		Payload: doc.RawPayload,
	})
	if err != nil {
		return nil, err
	}

	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("sefaz: resposta ilegível: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, fmt.Errorf("sefaz: fault %s: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString)
	}

	res := env.Body.Result
	prot := res.Prot.InfProt
	cStat := prot.CStat
	motivo := prot.XMotivo
	if cStat == 0 {
		// rejeição de lote: o retorno vem sem protocolo
		cStat = res.CStat
		motivo = res.Motivo
	}

	authorizedAt := time.Now()
	if t, perr := time.Parse(time.RFC3339, prot.DhRecbto); perr == nil {
		authorizedAt = t
	}

	return &fiscal.SubmitResult{
		Accepted: cStat == statusAccepted,
		Authorization: entity.AuthorizationResult{
			AuthorizedAt:  authorizedAt,
			Protocol:      prot.NProt,
			StatusCode:    cStat,
			StatusMessage: motivo,
			AccessKey:     prot.ChNFe,
			RawResponse:   string(raw),
		},
	}, nil
}

type eventoMsg struct {
	XMLName xml.Name `xml:"nfeDadosMsg"`
	Xmlns   string   `xml:"xmlns,attr"`
	Payload string   `xml:",innerxml"`
}

type eventResponseEnvelope struct {
	Body struct {
		Result struct {
			CStat   int    `xml:"cStat"`
			XMotivo string `xml:"xMotivo"`
			NProt   string `xml:"retEvento>infEvento>nProt"`
		} `xml:"nfeResultMsg>retEnvEvento"`
		Fault *soapFault `xml:"Fault"`
	} `xml:"Body"`
}

// SendEvent registra o evento de cancelamento na SEFAZ. cStat 135 conclui;
// qualquer outro código volta como error e o motor grava a tentativa como
// FAILED.
func (c *Client) SendEvent(ctx context.Context, doc *entity.FiscalDocument, ev *entity.DocumentEvent) (*entity.EventResult, error) {
	rule := c.rules.Resolve(ctx, doc.Jurisdiction)

	payload, err := buildEventPayload(doc, ev)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, rule.Endpoint, soapActionEvt, &eventoMsg{
		Xmlns:   eventoNS,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	var env eventResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("sefaz: resposta de evento ilegível: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, fmt.Errorf("sefaz: fault %s: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString)
	}
	res := env.Body.Result
	if res.CStat != statusEventOK {
		return nil, fmt.Errorf("sefaz: evento não registrado (cStat %d: %s)", res.CStat, res.XMotivo)
	}
	return &entity.EventResult{
		Protocol:      res.NProt,
		StatusCode:    res.CStat,
		StatusMessage: res.XMotivo,
		RawResponse:   string(raw),
	}, nil
}

func buildEventPayload(doc *entity.FiscalDocument, ev *entity.DocumentEvent) (string, error) {
	if doc.Authorization == nil || doc.Authorization.AccessKey == "" {
		return "", fmt.Errorf("sefaz: documento %s sem chave de acesso para o evento", doc.ID)
	}
	type infEvento struct {
		ChNFe    string `xml:"chNFe"`
		TpEvento string `xml:"tpEvento"`
		NProt    string `xml:"nProt"`
		XJust    string `xml:"xJust"`
	}
	type evento struct {
		XMLName   xml.Name  `xml:"evento"`
		InfEvento infEvento `xml:"infEvento"`
	}
	out, err := xml.Marshal(&evento{InfEvento: infEvento{
		ChNFe:    doc.Authorization.AccessKey,
		TpEvento: "110111", // cancelamento
		NProt:    doc.Authorization.Protocol,
		XJust:    ev.Reason,
	}})
	if err != nil {
		return "", fmt.Errorf("sefaz: montar evento: %w", err)
	}
	return string(out), nil
}

func (c *Client) call(ctx context.Context, endpoint, action string, body any) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body:   soapBody{Content: body},
	}
	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sefaz: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sefaz: criar request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sefaz: timeout ou cancelamento: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sefaz: chamada HTTP falhou: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("sefaz: ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sefaz: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
