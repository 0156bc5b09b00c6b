package dto

// LoginRequest body para POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse token emitido após autenticação.
type LoginResponse struct {
	Token      string `json:"token"`
	OperatorID string `json:"operator_id"`
	StoreID    string `json:"store_id"`
	Name       string `json:"name"`
}
