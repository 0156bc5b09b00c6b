package fiscal

import (
	"fmt"
	"hash/fnv"

	"github.com/beevik/etree"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	pkgfiscal "github.com/vlourenco/pdv-fiscal/pkg/fiscal"
)

// BuildPayload monta a representação de saída do documento (XML) enviada
// ao transporte e guardada em RawPayload. A NFC-e inclui a chave de acesso
// calculada; o CF-e inclui o vínculo de equipamento quando existir.
func BuildPayload(doc *entity.FiscalDocument, policy FamilyPolicy) (string, error) {
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := d.CreateElement(policy.PayloadRoot())
	root.CreateAttr("versao", "1.00")

	ide := root.CreateElement("ide")
	ide.CreateElement("cUF").SetText(pkgfiscal.UFCode(doc.Jurisdiction))
	ide.CreateElement("nNF").SetText(fmt.Sprintf("%d", doc.Number))
	if doc.Series != "" {
		ide.CreateElement("serie").SetText(doc.Series)
	}
	ide.CreateElement("dhEmi").SetText(doc.IssuedAt.Format("2006-01-02T15:04:05-07:00"))
	ide.CreateElement("tpEmis").SetText(orDefault(doc.EmissionType, pkgfiscal.EmissionNormal))
	ide.CreateElement("indPres").SetText(orDefault(doc.PresenceIndicator, pkgfiscal.PresenceInPerson))
	ide.CreateElement("natOp").SetText(orDefault(doc.OperationType, pkgfiscal.OperationSale))

	if doc.Family == entity.FamilyNFCe {
		key, err := pkgfiscal.BuildAccessKey(pkgfiscal.AccessKeyParams{
			UF:       doc.Jurisdiction,
			IssuedAt: doc.IssuedAt,
			CNPJ:     doc.Issuer.CNPJ,
			Series:   doc.Series,
			Number:   doc.Number,
			Emission: orDefault(doc.EmissionType, pkgfiscal.EmissionNormal),
			Code:     numericCode(doc.ID),
		})
		if err != nil {
			return "", err
		}
		ide.CreateElement("chave").SetText(key)
	}
	if doc.Family == entity.FamilyCFe && doc.EquipmentID != "" {
		ide.CreateElement("equipamento").SetText(doc.EquipmentID)
	}

	emit := root.CreateElement("emit")
	emit.CreateElement("CNPJ").SetText(doc.Issuer.CNPJ)
	emit.CreateElement("xNome").SetText(doc.Issuer.Name)
	if doc.Issuer.TradeName != "" {
		emit.CreateElement("xFant").SetText(doc.Issuer.TradeName)
	}
	if doc.Issuer.StateReg != "" {
		emit.CreateElement("IE").SetText(doc.Issuer.StateReg)
	}
	if doc.Issuer.TaxRegime != "" {
		emit.CreateElement("CRT").SetText(doc.Issuer.TaxRegime)
	}

	if doc.Customer != nil {
		dest := root.CreateElement("dest")
		dest.CreateElement("documento").SetText(doc.Customer.TaxID)
		dest.CreateElement("xNome").SetText(doc.Customer.Name)
	}

	for i, it := range doc.Items {
		det := root.CreateElement("det")
		det.CreateAttr("nItem", fmt.Sprintf("%d", i+1))
		prod := det.CreateElement("prod")
		prod.CreateElement("cProd").SetText(it.ProductCode)
		prod.CreateElement("xProd").SetText(it.Description)
		prod.CreateElement("qCom").SetText(it.Quantity.String())
		prod.CreateElement("vUnCom").SetText(it.UnitPrice.StringFixed(2))
		prod.CreateElement("vProd").SetText(it.Total.StringFixed(2))
		prod.CreateElement("uCom").SetText(orDefault(it.Unit, pkgfiscal.UnitUnit))
		if it.NCM != "" {
			prod.CreateElement("NCM").SetText(it.NCM)
		}
		if it.CFOP != "" {
			prod.CreateElement("CFOP").SetText(it.CFOP)
		}
		if it.Discount.IsPositive() {
			prod.CreateElement("vDesc").SetText(it.Discount.StringFixed(2))
		}
		imposto := det.CreateElement("imposto")
		imposto.CreateElement("vICMS").SetText(it.ICMS.StringFixed(2))
		imposto.CreateElement("vPIS").SetText(it.PIS.StringFixed(2))
		imposto.CreateElement("vCOFINS").SetText(it.COFINS.StringFixed(2))
	}

	pag := root.CreateElement("pgto")
	for _, p := range doc.Payments {
		mp := pag.CreateElement("MP")
		mp.CreateElement("cMP").SetText(p.Method)
		mp.CreateElement("vMP").SetText(p.Value.StringFixed(2))
		if p.CardBrand != "" {
			mp.CreateElement("cardBrand").SetText(p.CardBrand)
		}
		if p.Installments > 1 {
			mp.CreateElement("parcelas").SetText(fmt.Sprintf("%d", p.Installments))
		}
	}

	total := root.CreateElement("total")
	total.CreateElement("vNF").SetText(doc.TotalValue.StringFixed(2))
	total.CreateElement("vDesc").SetText(doc.TotalDiscount.StringFixed(2))
	total.CreateElement("vFrete").SetText(doc.TotalShipping.StringFixed(2))
	total.CreateElement("vTrib").SetText(doc.TotalTaxes.StringFixed(2))

	d.Indent(2)
	return d.WriteToString()
}

// numericCode deriva o código numérico de 8 dígitos (cNF) do ID do
// documento, determinístico para o mesmo documento.
func numericCode(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 100_000_000)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
