// Package audit stages activity log rows inside the caller's transaction so an
// audit entry exists exactly when the mutation it describes is committed.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/repository"
)

// Action codes.
const (
	ActionCreateEmployee = "create_employee"
	ActionUpdateEmployee = "update_employee"
	ActionDeleteEmployee = "delete_employee"
	ActionRegisterUser   = "register_user"
	ActionSeedUser       = "seed_user"
)

// Resource types.
const (
	ResourceEmployee = "employee"
	ResourceUser     = "user"
)

// ErrEmptyAction is returned when an entry has no action code.
var ErrEmptyAction = errors.New("audit action is required")

// Entry describes one auditable action.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	Details      string
}

// Recorder writes activity log rows. It never commits; the caller owns the transaction.
type Recorder struct{}

// NewRecorder constructs a recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stages entry in tx. A nil actor is stored as a system action.
func (r *Recorder) Record(ctx context.Context, tx repository.Store, actor *domain.User, entry Entry) (*domain.ActivityLog, error) {
	if entry.Action == "" {
		return nil, ErrEmptyAction
	}

	row := &domain.ActivityLog{
		Action:       entry.Action,
		ResourceType: optional(entry.ResourceType),
		ResourceID:   optional(entry.ResourceID),
		Details:      optional(entry.Details),
	}
	if actor != nil {
		id := actor.ID
		row.UserID = &id
	}

	if err := tx.ActivityLogs().Append(ctx, row); err != nil {
		return nil, fmt.Errorf("record %s: %w", entry.Action, err)
	}
	return row, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
