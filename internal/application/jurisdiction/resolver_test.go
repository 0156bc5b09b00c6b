package jurisdiction_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// fakeRuleRepo implementação em memória do porto de regras.
type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*entity.JurisdictionRule
	saves int
	fail  bool
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[string]*entity.JurisdictionRule)}
}

func (f *fakeRuleRepo) GetByUF(_ context.Context, uf string) (*entity.JurisdictionRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("db fora do ar")
	}
	return f.rules[uf], nil
}

func (f *fakeRuleRepo) Save(_ context.Context, rule *entity.JurisdictionRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db fora do ar")
	}
	f.saves++
	f.rules[rule.UF] = rule
	return nil
}

func (f *fakeRuleRepo) List(_ context.Context) ([]*entity.JurisdictionRule, error) {
	return nil, nil
}

func TestResolve_CriaDefaultNaPrimeiraReferencia(t *testing.T) {
	repo := newFakeRuleRepo()
	r := jurisdiction.NewResolver(repo, logger.Nop())

	rule := r.Resolve(context.Background(), "rs")
	require.NotNil(t, rule)
	assert.Equal(t, "RS", rule.UF)
	assert.Equal(t, "https://nfce.fazenda.rs.gov.br/ws", rule.Endpoint)
	assert.False(t, rule.RequiresEquipment)
	assert.True(t, rule.Active)
	assert.Equal(t, entity.DefaultMaxItems, rule.MaxItems())
	assert.Equal(t, 1, repo.saves, "default deve ser persistido na primeira referência")
}

func TestResolve_SegundaConsultaUsaCache(t *testing.T) {
	repo := newFakeRuleRepo()
	r := jurisdiction.NewResolver(repo, logger.Nop())

	first := r.Resolve(context.Background(), "SP")
	repo.fail = true // se o cache não funcionar, a consulta quebraria o default salvo
	second := r.Resolve(context.Background(), "SP")
	assert.Same(t, first, second)
	assert.True(t, second.RequiresEquipment, "SP está na lista de UFs com SAT")
}

func TestResolve_RegraExistenteNoRepositorio(t *testing.T) {
	repo := newFakeRuleRepo()
	repo.rules["MG"] = &entity.JurisdictionRule{
		UF: "MG", Endpoint: "https://custom.example/ws", Active: true,
		Params: map[string]any{entity.ParamMaxItems: float64(50)},
	}
	r := jurisdiction.NewResolver(repo, logger.Nop())

	rule := r.Resolve(context.Background(), "MG")
	assert.Equal(t, "https://custom.example/ws", rule.Endpoint)
	assert.Equal(t, 50, rule.MaxItems())
	assert.Zero(t, repo.saves, "regra existente não deve ser sobrescrita")
}

func TestResolve_RepositorioForaDoArDegradaParaDefault(t *testing.T) {
	repo := newFakeRuleRepo()
	repo.fail = true
	r := jurisdiction.NewResolver(repo, logger.Nop())

	rule := r.Resolve(context.Background(), "BA")
	require.NotNil(t, rule, "resolver nunca falha")
	assert.Equal(t, "BA", rule.UF)
}

func TestResolve_AcessosConcorrentes(t *testing.T) {
	repo := newFakeRuleRepo()
	r := jurisdiction.NewResolver(repo, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rule := r.Resolve(context.Background(), "PR")
			assert.Equal(t, "PR", rule.UF)
		}()
	}
	wg.Wait()
}

func TestInvalidate(t *testing.T) {
	repo := newFakeRuleRepo()
	r := jurisdiction.NewResolver(repo, logger.Nop())

	r.Resolve(context.Background(), "SC")
	repo.rules["SC"] = &entity.JurisdictionRule{UF: "SC", Endpoint: "https://novo.example/ws", Active: true}
	r.Invalidate("SC")

	second := r.Resolve(context.Background(), "SC")
	assert.Equal(t, "https://novo.example/ws", second.Endpoint)
}
