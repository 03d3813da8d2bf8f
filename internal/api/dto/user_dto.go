package dto

import "github.com/spec-kit/employee-service/internal/domain"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

// LoginRequest accepts the OAuth2 password form or an equivalent JSON body.
// username carries the email.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse is returned by login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	FullName *string     `json:"full_name"`
	Role     domain.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}
