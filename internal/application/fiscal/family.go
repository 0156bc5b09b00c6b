package fiscal

import (
	"context"
	"fmt"

	"github.com/vlourenco/pdv-fiscal/internal/application/equipment"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	pkgfiscal "github.com/vlourenco/pdv-fiscal/pkg/fiscal"
)

// FamilyPolicy concentra o que difere entre as duas famílias de documento:
// validações extras, preparação (série/numeração, vínculo de equipamento) e
// a forma da representação de saída. O Engine é genérico; as políticas são
// pequenas.
type FamilyPolicy interface {
	Family() string
	// Validate aplica as regras extras da família sobre o documento já
	// validado pelas invariantes comuns.
	Validate(doc *entity.FiscalDocument, rule *entity.JurisdictionRule) error
	// Prepare completa o documento antes da persistência inicial: série
	// default e, no CF-e, resolução do equipamento exigido pela jurisdição.
	Prepare(ctx context.Context, doc *entity.FiscalDocument, rule *entity.JurisdictionRule) error
	// PayloadRoot devolve o nome do elemento raiz da representação de saída.
	PayloadRoot() string
}

// ──────────────────────────────────────────────────────────────────────────────
// NFC-e: recibo com série e numeração, sem equipamento
// ──────────────────────────────────────────────────────────────────────────────

// NFCePolicy política da família NFC-e.
type NFCePolicy struct{}

// NewNFCePolicy constrói a política.
func NewNFCePolicy() *NFCePolicy { return &NFCePolicy{} }

func (p *NFCePolicy) Family() string { return entity.FamilyNFCe }

func (p *NFCePolicy) Validate(doc *entity.FiscalDocument, _ *entity.JurisdictionRule) error {
	// a chave de acesso exige CNPJ válido do emitente
	if err := pkgfiscal.ValidateCNPJ(doc.Issuer.CNPJ); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if pkgfiscal.UFCode(doc.Jurisdiction) == "" {
		return fmt.Errorf("%w: UF %q desconhecida", domain.ErrInvalidInput, doc.Jurisdiction)
	}
	return nil
}

func (p *NFCePolicy) Prepare(_ context.Context, doc *entity.FiscalDocument, _ *entity.JurisdictionRule) error {
	if doc.Series == "" {
		doc.Series = "1"
	}
	return nil
}

func (p *NFCePolicy) PayloadRoot() string { return "NFCe" }

// ──────────────────────────────────────────────────────────────────────────────
// CF-e: cupom compacto, vinculado a equipamento quando a UF exige
// ──────────────────────────────────────────────────────────────────────────────

// CFePolicy política da família CF-e. Usa o registro de equipamentos para
// resolver o assinador na criação do documento.
type CFePolicy struct {
	equipment *equipment.Registry
}

// NewCFePolicy constrói a política com o registro de equipamentos.
func NewCFePolicy(reg *equipment.Registry) *CFePolicy {
	return &CFePolicy{equipment: reg}
}

func (p *CFePolicy) Family() string { return entity.FamilyCFe }

func (p *CFePolicy) Validate(doc *entity.FiscalDocument, _ *entity.JurisdictionRule) error {
	if doc.Series != "" {
		return fmt.Errorf("%w: CF-e não usa série", domain.ErrInvalidInput)
	}
	return nil
}

// Prepare resolve o equipamento: quando a jurisdição exige, é obrigatório
// um assinador virtual ACTIVE (ErrNoEquipment se nenhum estiver livre); sem
// exigência, um físico livre é vinculado se existir, senão o cupom segue
// sem vínculo.
func (p *CFePolicy) Prepare(ctx context.Context, doc *entity.FiscalDocument, rule *entity.JurisdictionRule) error {
	if rule != nil && rule.RequiresEquipment {
		eq, err := p.equipment.FindAvailable(ctx, doc.Jurisdiction, entity.EquipmentVirtual)
		if err != nil {
			return err
		}
		if eq == nil {
			return fmt.Errorf("%w: jurisdição %s exige assinador virtual", domain.ErrNoEquipment, doc.Jurisdiction)
		}
		doc.EquipmentID = eq.ID
		return nil
	}
	eq, err := p.equipment.FindAvailable(ctx, doc.Jurisdiction, entity.EquipmentPhysical)
	if err != nil {
		return err
	}
	if eq != nil {
		doc.EquipmentID = eq.ID
	}
	return nil
}

func (p *CFePolicy) PayloadRoot() string { return "CFe" }
