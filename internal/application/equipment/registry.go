// Package equipment mantém o cadastro dos equipamentos assinadores da
// família CF-e (SAT físico e virtual), com trilha de auditoria por
// operação.
package equipment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/application/jurisdiction"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/entity"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	"github.com/vlourenco/pdv-fiscal/pkg/locker"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// MinActivationCode é o tamanho mínimo do código de vinculação aceito na
// ativação.
const MinActivationCode = 8

// Registry é o registro de equipamentos. Toda operação grava uma linha de
// OperationLog, inclusive as que falham.
type Registry struct {
	repo    repository.EquipmentRepository
	logRepo repository.OperationLogRepository
	rules   *jurisdiction.Resolver
	locks   *locker.Keyed
	log     *logger.Logger
	now     func() time.Time
}

// NewRegistry constrói o registro.
func NewRegistry(
	repo repository.EquipmentRepository,
	logRepo repository.OperationLogRepository,
	rules *jurisdiction.Resolver,
	log *logger.Logger,
) *Registry {
	return &Registry{
		repo:    repo,
		logRepo: logRepo,
		rules:   rules,
		locks:   locker.New(),
		log:     log,
		now:     time.Now,
	}
}

// appendLog grava a linha de auditoria. Falha de auditoria não derruba a
// operação principal, mas é logada.
func (r *Registry) appendLog(ctx context.Context, equipmentID, op string, req any, resp any, opErr error) {
	reqJSON, _ := json.Marshal(req)
	line := &entity.OperationLog{
		ID:          uuid.New().String(),
		EquipmentID: equipmentID,
		Operation:   op,
		Request:     string(reqJSON),
		At:          r.now(),
	}
	if opErr != nil {
		line.Error = opErr.Error()
	} else if resp != nil {
		respJSON, _ := json.Marshal(resp)
		line.Response = string(respJSON)
	}
	if err := r.logRepo.Append(ctx, line); err != nil {
		r.log.Error().Err(err).Str("equipment_id", equipmentID).Str("op", op).Msg("falha ao gravar trilha de auditoria")
	}
}

// Register cadastra um equipamento novo, sempre INACTIVE. Falha com
// ErrConflict se o serial já existe e com ErrUnsupported se a jurisdição
// está configurada como inativa.
func (r *Registry) Register(ctx context.Context, in dto.RegisterEquipmentRequest) (eq *entity.Equipment, err error) {
	defer func() {
		id := ""
		if eq != nil {
			id = eq.ID
		}
		r.appendLog(ctx, id, "REGISTER", in, eq, err)
	}()

	serial := strings.TrimSpace(in.Serial)
	if serial == "" || in.StoreID == "" {
		return nil, fmt.Errorf("%w: serial e loja são obrigatórios", domain.ErrInvalidInput)
	}
	eqType := in.Type
	if eqType == "" {
		eqType = entity.EquipmentPhysical
	}
	if eqType != entity.EquipmentPhysical && eqType != entity.EquipmentVirtual {
		return nil, fmt.Errorf("%w: tipo de equipamento %q desconhecido", domain.ErrInvalidInput, in.Type)
	}

	rule := r.rules.Resolve(ctx, in.Jurisdiction)
	if !rule.Active {
		return nil, fmt.Errorf("%w: jurisdição %s inativa", domain.ErrUnsupported, rule.UF)
	}

	if existing, lookupErr := r.repo.GetBySerial(ctx, serial); lookupErr == nil && existing != nil {
		return nil, fmt.Errorf("%w: serial %s já cadastrado", domain.ErrConflict, serial)
	}

	now := r.now()
	eq = &entity.Equipment{
		ID:           uuid.New().String(),
		Serial:       serial,
		Type:         eqType,
		Model:        in.Model,
		Manufacturer: in.Manufacturer,
		Firmware:     in.Firmware,
		Status:       entity.EquipmentInactive,
		Jurisdiction: rule.UF,
		StoreID:      in.StoreID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = r.repo.Create(ctx, eq); err != nil {
		eq = nil
		return nil, err
	}
	r.log.Info().Str("serial", serial).Str("uf", rule.UF).Msg("equipamento cadastrado")
	return eq, nil
}

// Activate vincula o equipamento usando o código da SEFAZ e o coloca em
// ACTIVE. Exclusivo por serial; reativação de equipamento ACTIVE é
// rejeitada com ErrConflict (não repetida).
func (r *Registry) Activate(ctx context.Context, id, code string) (eq *entity.Equipment, err error) {
	defer func() { r.appendLog(ctx, id, "ACTIVATE", map[string]string{"code": mask(code)}, eq, err) }()

	if len(code) < MinActivationCode {
		return nil, fmt.Errorf("%w: código de vinculação deve ter ao menos %d caracteres", domain.ErrInvalidInput, MinActivationCode)
	}

	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	r.locks.Lock(current.Serial)
	defer r.locks.Unlock(current.Serial)

	// releitura sob o lock: outra ativação pode ter vencido a corrida
	current, err = r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if current.Status == entity.EquipmentActive {
		return nil, fmt.Errorf("%w: equipamento %s já está ativo", domain.ErrConflict, current.Serial)
	}

	now := r.now()
	current.Status = entity.EquipmentActive
	current.ActivatedAt = &now
	current.LastCommunication = &now
	current.UpdatedAt = now
	if err = r.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	r.log.Info().Str("serial", current.Serial).Msg("equipamento ativado")
	eq = current
	return eq, nil
}

// Deactivate tira o equipamento de operação.
func (r *Registry) Deactivate(ctx context.Context, id, reason string) (eq *entity.Equipment, err error) {
	defer func() { r.appendLog(ctx, id, "DEACTIVATE", map[string]string{"reason": reason}, eq, err) }()

	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if current.Status == entity.EquipmentInactive {
		return nil, fmt.Errorf("%w: equipamento %s já está inativo", domain.ErrConflict, current.Serial)
	}

	current.Status = entity.EquipmentInactive
	current.UpdatedAt = r.now()
	if err = r.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	eq = current
	return eq, nil
}

// CheckStatus devolve um snapshot de vivacidade e atualiza a última
// comunicação do equipamento.
func (r *Registry) CheckStatus(ctx context.Context, id string) (resp *dto.StatusCheckResponse, err error) {
	defer func() { r.appendLog(ctx, id, "CHECK_STATUS", nil, resp, err) }()

	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	now := r.now()
	current.LastCommunication = &now
	current.UpdatedAt = now
	if err = r.repo.Update(ctx, current); err != nil {
		return nil, err
	}

	resp = &dto.StatusCheckResponse{
		ID:        current.ID,
		Serial:    current.Serial,
		Status:    current.Status,
		Alive:     current.Available(),
		CheckedAt: now,
	}
	return resp, nil
}

// FindAvailable devolve o primeiro equipamento ACTIVE do tipo/UF, ou nil se
// não houver.
func (r *Registry) FindAvailable(ctx context.Context, uf, equipmentType string) (*entity.Equipment, error) {
	list, err := r.repo.FindAvailable(ctx, uf, equipmentType)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// List devolve o cadastro completo.
func (r *Registry) List(ctx context.Context) ([]*entity.Equipment, error) {
	return r.repo.List(ctx)
}

// GetByID devolve um equipamento pelo ID.
func (r *Registry) GetByID(ctx context.Context, id string) (*entity.Equipment, error) {
	return r.repo.GetByID(ctx, id)
}

// Logs devolve a trilha de auditoria de um equipamento.
func (r *Registry) Logs(ctx context.Context, id string) ([]*entity.OperationLog, error) {
	if _, err := r.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return r.logRepo.ListByEquipment(ctx, id)
}

// mask oculta o código de vinculação na trilha de auditoria.
func mask(code string) string {
	if len(code) <= 2 {
		return "**"
	}
	return code[:2] + strings.Repeat("*", len(code)-2)
}
