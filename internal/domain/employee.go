package domain

import "time"

// Employee is a managed personnel record. Deletion is soft: IsActive flips to false.
type Employee struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       *string
	Department  *string
	Position    *string
	IsActive    bool
	HiredAt     *time.Time
	CreatedByID *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
