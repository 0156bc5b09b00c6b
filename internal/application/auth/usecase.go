// Package auth autentica operadores do PDV e emite os tokens usados pelo
// middleware HTTP.
package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vlourenco/pdv-fiscal/internal/application/dto"
	"github.com/vlourenco/pdv-fiscal/internal/domain"
	"github.com/vlourenco/pdv-fiscal/internal/domain/repository"
	"github.com/vlourenco/pdv-fiscal/pkg/jwt"
	"github.com/vlourenco/pdv-fiscal/pkg/logger"
)

// UseCase autenticação por email e senha com hash bcrypt.
type UseCase struct {
	operators  repository.OperatorRepository
	log        *logger.Logger
	secret     string
	issuer     string
	expMinutes int
}

// NewUseCase constrói o caso de uso de autenticação.
func NewUseCase(operators repository.OperatorRepository, log *logger.Logger, secret, issuer string, expMinutes int) *UseCase {
	if expMinutes <= 0 {
		expMinutes = 60
	}
	return &UseCase{
		operators:  operators,
		log:        log,
		secret:     secret,
		issuer:     issuer,
		expMinutes: expMinutes,
	}
}

// Login valida as credenciais e devolve um token JWT. Email desconhecido e
// senha incorreta devolvem o mesmo erro, sem distinguir os casos.
func (u *UseCase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email e senha são obrigatórios", domain.ErrInvalidInput)
	}

	op, err := u.operators.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("%w: credenciais inválidas", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		u.log.Warn().Str("email", email).Msg("tentativa de login com senha incorreta")
		return nil, fmt.Errorf("%w: credenciais inválidas", domain.ErrUnauthorized)
	}

	token, err := jwt.Generate(u.secret, op.ID, op.StoreID, u.issuer, u.expMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:      token,
		OperatorID: op.ID,
		StoreID:    op.StoreID,
		Name:       op.Name,
	}, nil
}
