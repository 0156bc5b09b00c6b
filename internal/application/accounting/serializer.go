package accounting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
)

// csvHeader é o cabeçalho fixo do formato CSV, na ordem esperada pelos
// provedores.
var csvHeader = []string{
	"Tipo", "Número", "Data", "CNPJ Emissor", "Nome Emissor",
	"Valor Total", "Impostos", "Chave de Acesso", "Protocolo",
}

// Serialize gera o arquivo do lote no formato pedido e devolve o conteúdo
// e a extensão do arquivo.
func Serialize(format string, batch *entity.ExportBatch, docs []*entity.FiscalDocument) ([]byte, string, error) {
	switch format {
	case entity.FormatJSON:
		data, err := serializeJSON(batch, docs)
		return data, "json", err
	case entity.FormatXML:
		data, err := serializeXML(batch, docs)
		return data, "xml", err
	case entity.FormatCSV:
		data, err := serializeCSV(batch, docs)
		return data, "csv", err
	default:
		return nil, "", fmt.Errorf("%w: formato de exportação %q", domain.ErrUnsupported, format)
	}
}

// buildRecord monta o registro serializável de um documento. Mapas são
// usados de propósito: o JSON sai com chaves ordenadas e o XML percorre o
// mapa recursivamente.
func buildRecord(d *entity.FiscalDocument) map[string]any {
	rec := map[string]any{
		"id":           d.ID,
		"family":       d.Family,
		"number":       d.Number,
		"issued_at":    d.IssuedAt.Format(time.RFC3339),
		"status":       d.Status,
		"jurisdiction": d.Jurisdiction,
		"total_value":  d.TotalValue.StringFixed(2),
		"total_taxes":  d.TotalTaxes.StringFixed(2),
		"issuer": map[string]any{
			"name": d.Issuer.Name,
			"cnpj": d.Issuer.CNPJ,
		},
	}
	if d.Series != "" {
		rec["series"] = d.Series
	}
	if d.Authorization != nil {
		rec["access_key"] = d.Authorization.AccessKey
		rec["protocol"] = d.Authorization.Protocol
	}

	items := make([]any, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, map[string]any{
			"product_code": it.ProductCode,
			"description":  it.Description,
			"quantity":     it.Quantity.String(),
			"unit_price":   it.UnitPrice.StringFixed(2),
			"total":        it.Total.StringFixed(2),
		})
	}
	rec["items"] = items

	payments := make([]any, 0, len(d.Payments))
	for _, p := range d.Payments {
		payments = append(payments, map[string]any{
			"method": p.Method,
			"value":  p.Value.StringFixed(2),
		})
	}
	rec["payments"] = payments
	return rec
}

// RecordPayload serializa o registro de um documento como JSON compacto,
// gravado em ExportItem.Payload.
func RecordPayload(d *entity.FiscalDocument) (string, error) {
	data, err := json.Marshal(buildRecord(d))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func batchMeta(batch *entity.ExportBatch, docs []*entity.FiscalDocument) map[string]any {
	var total decimal.Decimal
	for _, d := range docs {
		total = total.Add(d.TotalValue)
	}
	return map[string]any{
		"id":             batch.ID,
		"period":         batch.Period,
		"generated_at":   batch.StartedAt.Format(time.RFC3339),
		"document_count": len(docs),
		"total_value":    total.StringFixed(2),
		"provider_id":    batch.ProviderID,
	}
}

func serializeJSON(batch *entity.ExportBatch, docs []*entity.FiscalDocument) ([]byte, error) {
	records := make([]any, 0, len(docs))
	for _, d := range docs {
		records = append(records, buildRecord(d))
	}
	out := map[string]any{
		"batch":     batchMeta(batch, docs),
		"documents": records,
	}
	return json.MarshalIndent(out, "", "  ")
}

func serializeXML(batch *entity.ExportBatch, docs []*entity.FiscalDocument) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("AccountingExport")

	appendValue(root.CreateElement("Batch"), batchMeta(batch, docs))

	list := root.CreateElement("Documents")
	for _, d := range docs {
		appendValue(list.CreateElement("Document"), buildRecord(d))
	}

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendValue preenche o elemento com o valor: mapas viram subelementos em
// ordem de chave, listas viram elementos Item, escalares viram texto.
func appendValue(el *etree.Element, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendValue(el.CreateElement(k), val[k])
		}
	case []any:
		for _, item := range val {
			appendValue(el.CreateElement("Item"), item)
		}
	default:
		el.SetText(fmt.Sprintf("%v", val))
	}
}

func serializeCSV(batch *entity.ExportBatch, docs []*entity.FiscalDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	var total, taxes decimal.Decimal
	for _, d := range docs {
		var accessKey, protocol string
		if d.Authorization != nil {
			accessKey = d.Authorization.AccessKey
			protocol = d.Authorization.Protocol
		}
		row := []string{
			d.Family,
			fmt.Sprintf("%d", d.Number),
			d.IssuedAt.Format("02/01/2006"),
			d.Issuer.CNPJ,
			d.Issuer.Name,
			d.TotalValue.StringFixed(2),
			d.TotalTaxes.StringFixed(2),
			accessKey,
			protocol,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
		total = total.Add(d.TotalValue)
		taxes = taxes.Add(d.TotalTaxes)
	}

	// bloco de resumo no rodapé: totais, período de referência e momento
	// da exportação
	summary := [][]string{
		{"TOTAL", fmt.Sprintf("%d", len(docs)), "", "", "", total.StringFixed(2), taxes.StringFixed(2), "", ""},
		{"PERÍODO", batch.Period, "", "", "", "", "", "", ""},
		{"EXPORTADO EM", batch.StartedAt.Format(time.RFC3339), "", "", "", "", "", "", ""},
	}
	for _, row := range summary {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
