package entity

import "time"

// Operator é um usuário do PDV com acesso à API fiscal (login por senha,
// hash bcrypt).
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	StoreID      string
	CreatedAt    time.Time
}
