package equipment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/equipment"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes em memória
// ──────────────────────────────────────────────────────────────────────────────

type fakeEquipmentRepo struct {
	mu       sync.Mutex
	byID     map[string]*entity.Equipment
	getCalls int
	// getErrOn injeta getErr na N-ésima chamada de GetByID (1-based);
	// zero desativa a injeção
	getErrOn int
	getErr   error
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{byID: make(map[string]*entity.Equipment)}
}

func (f *fakeEquipmentRepo) Create(_ context.Context, eq *entity.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *eq
	f.byID[eq.ID] = &cp
	return nil
}

func (f *fakeEquipmentRepo) Update(_ context.Context, eq *entity.Equipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *eq
	f.byID[eq.ID] = &cp
	return nil
}

func (f *fakeEquipmentRepo) GetByID(_ context.Context, id string) (*entity.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErrOn != 0 && f.getCalls == f.getErrOn {
		return nil, f.getErr
	}
	if eq, ok := f.byID[id]; ok {
		cp := *eq
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeEquipmentRepo) GetBySerial(_ context.Context, serial string) (*entity.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, eq := range f.byID {
		if eq.Serial == serial {
			cp := *eq
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeEquipmentRepo) FindAvailable(_ context.Context, uf, eqType string) ([]*entity.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Equipment
	for _, eq := range f.byID {
		if eq.Jurisdiction == uf && eq.Type == eqType && eq.Status == entity.EquipmentActive {
			cp := *eq
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEquipmentRepo) List(_ context.Context) ([]*entity.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Equipment
	for _, eq := range f.byID {
		cp := *eq
		out = append(out, &cp)
	}
	return out, nil
}

type fakeOpLogRepo struct {
	mu   sync.Mutex
	rows []*entity.OperationLog
}

func (f *fakeOpLogRepo) Append(_ context.Context, l *entity.OperationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, l)
	return nil
}

func (f *fakeOpLogRepo) ListByEquipment(_ context.Context, id string) ([]*entity.OperationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.OperationLog
	for _, l := range f.rows {
		if l.EquipmentID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules map[string]*entity.JurisdictionRule
}

func (f *fakeRuleRepo) GetByUF(_ context.Context, uf string) (*entity.JurisdictionRule, error) {
	return f.rules[uf], nil
}
func (f *fakeRuleRepo) Save(_ context.Context, r *entity.JurisdictionRule) error {
	f.rules[r.UF] = r
	return nil
}
func (f *fakeRuleRepo) List(_ context.Context) ([]*entity.JurisdictionRule, error) { return nil, nil }

func newRegistry(t *testing.T) (*equipment.Registry, *fakeEquipmentRepo, *fakeOpLogRepo) {
	t.Helper()
	repo := newFakeEquipmentRepo()
	logs := &fakeOpLogRepo{}
	rules := jurisdiction.NewResolver(&fakeRuleRepo{rules: map[string]*entity.JurisdictionRule{}}, logger.Nop())
	return equipment.NewRegistry(repo, logs, rules, logger.Nop()), repo, logs
}

func register(t *testing.T, reg *equipment.Registry, serial string) *entity.Equipment {
	t.Helper()
	eq, err := reg.Register(context.Background(), dto.RegisterEquipmentRequest{
		Serial:       serial,
		Type:         entity.EquipmentPhysical,
		Jurisdiction: "SP",
		StoreID:      "loja-1",
	})
	require.NoError(t, err)
	return eq
}

// ──────────────────────────────────────────────────────────────────────────────
// Testes
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister_NasceInativo(t *testing.T) {
	reg, _, logs := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	assert.Equal(t, entity.EquipmentInactive, eq.Status)
	assert.Equal(t, "SP", eq.Jurisdiction)
	require.Len(t, logs.rows, 1)
	assert.Equal(t, "REGISTER", logs.rows[0].Operation)
	assert.Empty(t, logs.rows[0].Error)
}

func TestRegister_SerialDuplicado(t *testing.T) {
	reg, _, logs := newRegistry(t)
	register(t, reg, "SAT-900001")

	_, err := reg.Register(context.Background(), dto.RegisterEquipmentRequest{
		Serial: "SAT-900001", Type: entity.EquipmentPhysical, Jurisdiction: "SP", StoreID: "loja-2",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	// auditoria também para a falha
	require.Len(t, logs.rows, 2)
	assert.NotEmpty(t, logs.rows[1].Error)
}

func TestRegister_JurisdicaoInativa(t *testing.T) {
	repo := newFakeEquipmentRepo()
	logs := &fakeOpLogRepo{}
	ruleRepo := &fakeRuleRepo{rules: map[string]*entity.JurisdictionRule{
		"AC": {UF: "AC", Active: false},
	}}
	reg := equipment.NewRegistry(repo, logs, jurisdiction.NewResolver(ruleRepo, logger.Nop()), logger.Nop())

	_, err := reg.Register(context.Background(), dto.RegisterEquipmentRequest{
		Serial: "SAT-1", Type: entity.EquipmentPhysical, Jurisdiction: "AC", StoreID: "loja-1",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestActivate_CodigoCurto(t *testing.T) {
	reg, _, logs := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	_, err := reg.Activate(context.Background(), eq.ID, "12345")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	// 1 registro + 1 tentativa de ativação falhada
	assert.Len(t, logs.rows, 2)
}

func TestActivate_FluxoCompleto(t *testing.T) {
	reg, _, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	activated, err := reg.Activate(context.Background(), eq.ID, "COD12345678")
	require.NoError(t, err)
	assert.Equal(t, entity.EquipmentActive, activated.Status)
	require.NotNil(t, activated.ActivatedAt)

	// segunda ativação do mesmo equipamento é rejeitada
	_, err = reg.Activate(context.Background(), eq.ID, "COD12345678")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestActivate_NaoEncontrado(t *testing.T) {
	reg, _, _ := newRegistry(t)
	_, err := reg.Activate(context.Background(), "inexistente", "COD12345678")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActivate_FalhaDeRepositorioNaReleitura(t *testing.T) {
	reg, repo, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	// primeira leitura passa; a releitura sob o lock falha e o erro do
	// repositório deve chegar ao chamador, não ErrNotFound
	repoErr := errors.New("conexão perdida")
	repo.getErrOn, repo.getErr = 2, repoErr

	_, err := reg.Activate(context.Background(), eq.ID, "COD12345678")
	require.ErrorIs(t, err, repoErr)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestActivate_Concorrente(t *testing.T) {
	reg, _, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Activate(context.Background(), eq.ID, "COD12345678")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			assert.ErrorIs(t, err, domain.ErrConflict)
			conflict++
		}
	}
	assert.Equal(t, 1, ok, "exatamente uma ativação deve vencer")
	assert.Equal(t, 7, conflict)
}

func TestDeactivate(t *testing.T) {
	reg, _, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")
	_, err := reg.Activate(context.Background(), eq.ID, "COD12345678")
	require.NoError(t, err)

	down, err := reg.Deactivate(context.Background(), eq.ID, "manutenção preventiva")
	require.NoError(t, err)
	assert.Equal(t, entity.EquipmentInactive, down.Status)

	_, err = reg.Deactivate(context.Background(), eq.ID, "de novo")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCheckStatus_AtualizaUltimaComunicacao(t *testing.T) {
	reg, repo, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	snap, err := reg.CheckStatus(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.False(t, snap.Alive, "INACTIVE não está vivo")

	stored, _ := repo.GetByID(context.Background(), eq.ID)
	require.NotNil(t, stored.LastCommunication)

	_, err = reg.Activate(context.Background(), eq.ID, "COD12345678")
	require.NoError(t, err)
	snap, err = reg.CheckStatus(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.True(t, snap.Alive)
}

func TestFindAvailable(t *testing.T) {
	reg, _, _ := newRegistry(t)
	eq := register(t, reg, "SAT-900001")

	found, err := reg.FindAvailable(context.Background(), "SP", entity.EquipmentPhysical)
	require.NoError(t, err)
	assert.Nil(t, found, "INACTIVE não é elegível")

	_, err = reg.Activate(context.Background(), eq.ID, "COD12345678")
	require.NoError(t, err)

	found, err = reg.FindAvailable(context.Background(), "SP", entity.EquipmentPhysical)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, eq.ID, found.ID)
}
