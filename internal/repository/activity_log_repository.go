package repository

import (
	"context"

	"github.com/spec-kit/employee-service/internal/domain"
)

// ActivityLogRepository is append-only: there is no update or delete.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *domain.ActivityLog) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.ActivityLog, error)
}

type activityLogRepository struct {
	db DBTX
}

// NewActivityLogRepository creates a repository.
func NewActivityLogRepository(db DBTX) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	const query = `
        INSERT INTO activity_logs (user_id, action, resource_type, resource_id, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	return translateError(err)
}

func (r *activityLogRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.ActivityLog, error) {
	const query = `
        SELECT id, user_id, action, resource_type, resource_id, details, created_at
        FROM activity_logs
        WHERE resource_type=$1 AND resource_id=$2
        ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var entries []domain.ActivityLog
	for rows.Next() {
		var e domain.ActivityLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
