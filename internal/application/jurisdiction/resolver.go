// Package jurisdiction resolve a configuração fiscal por UF com cache em
// memória e criação preguiçosa de defaults.
package jurisdiction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	pkgfiscal "github.com/vlourenco/pdv-fiscal/pkg/fiscal"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// Resolver é o cache read-through das regras por jurisdição. A ausência de
// configuração não é erro: degrada para um default determinístico que é
// persistido em best-effort para as próximas consultas serem O(1).
type Resolver struct {
	repo repository.JurisdictionRuleRepository
	log  *logger.Logger

	mu    sync.Mutex
	cache map[string]*entity.JurisdictionRule
}

// NewResolver constrói o resolver.
func NewResolver(repo repository.JurisdictionRuleRepository, log *logger.Logger) *Resolver {
	return &Resolver{
		repo:  repo,
		log:   log,
		cache: make(map[string]*entity.JurisdictionRule),
	}
}

// Resolve devolve a regra da UF: cache → repositório → default sintetizado.
// Nunca falha. Corridas de primeiro acesso resolvem por last-writer-wins
// (o default é determinístico, então o resultado é o mesmo).
func (r *Resolver) Resolve(ctx context.Context, uf string) *entity.JurisdictionRule {
	uf = strings.ToUpper(strings.TrimSpace(uf))

	r.mu.Lock()
	if rule, ok := r.cache[uf]; ok {
		r.mu.Unlock()
		return rule
	}
	r.mu.Unlock()

	rule, err := r.repo.GetByUF(ctx, uf)
	if err != nil {
		r.log.Warn().Err(err).Str("uf", uf).Msg("consulta de regra de jurisdição falhou; usando default")
	}
	if rule == nil {
		rule = DefaultRule(uf)
		if err := r.repo.Save(ctx, rule); err != nil {
			// best-effort: sem persistência o default continua válido
			r.log.Warn().Err(err).Str("uf", uf).Msg("não foi possível persistir regra default de jurisdição")
		}
	}

	r.mu.Lock()
	r.cache[uf] = rule
	r.mu.Unlock()
	return rule
}

// Invalidate remove a UF do cache (usado quando a regra é editada).
func (r *Resolver) Invalidate(uf string) {
	r.mu.Lock()
	delete(r.cache, strings.ToUpper(strings.TrimSpace(uf)))
	r.mu.Unlock()
}

// DefaultRule sintetiza a regra padrão de uma UF: endpoint derivado,
// exigência de equipamento pela lista fixa de UFs com SAT e limite de
// itens nacional.
func DefaultRule(uf string) *entity.JurisdictionRule {
	now := time.Now()
	return &entity.JurisdictionRule{
		UF:                uf,
		Name:              fmt.Sprintf("Jurisdição %s", uf),
		Endpoint:          fmt.Sprintf("https://nfce.fazenda.%s.gov.br/ws", strings.ToLower(uf)),
		RequiresEquipment: pkgfiscal.RequiresEquipment(uf),
		Params:            map[string]any{entity.ParamMaxItems: entity.DefaultMaxItems},
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
