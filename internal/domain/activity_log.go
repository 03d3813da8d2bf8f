package domain

import "time"

// ActivityLog is an immutable audit trail entry. UserID is nil for system
// actions or once the acting user has been removed.
type ActivityLog struct {
	ID           int64
	UserID       *int64
	Action       string
	ResourceType *string
	ResourceID   *string
	Details      *string
	CreatedAt    time.Time
}
