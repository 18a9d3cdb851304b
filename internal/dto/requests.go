package dto

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Department string `json:"department"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token to exchange for a new access
// token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UserView is the sanitized account representation returned to clients. The
// secret hash and the raw refresh token never appear here.
type UserView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	LastLogin  *string `json:"lastLogin"`
	IsActive   bool    `json:"isActive"`
	Status     string  `json:"status"`
}

// LoginResponse is returned on successful login or registration.
type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         UserView `json:"user"`
}

// RefreshResponse carries the newly issued access token.
type RefreshResponse struct {
	Token string `json:"token"`
}

// SuccessResponse represents a generic acknowledgement.
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Message stays generic per
// error category; internal reasons live in the audit trail only.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
