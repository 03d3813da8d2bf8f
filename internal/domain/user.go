package domain

import "time"

// User is an account that can log in and act on employee records.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
