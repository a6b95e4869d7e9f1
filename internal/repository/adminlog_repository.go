package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/storyline-app/storyline-api/internal/models"
)

// AdminLogRepository appends audit records for administrative actions.
// Write-only: the records exist for after-the-fact review of the store.
type AdminLogRepository struct {
	db *sqlx.DB
}

// NewAdminLogRepository constructs the repository.
func NewAdminLogRepository(db *sqlx.DB) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// Insert appends one audit row. An empty admin id is recorded as "unknown".
func (r *AdminLogRepository) Insert(ctx context.Context, entry models.AdminLog) error {
	if entry.AdminID == "" {
		entry.AdminID = "unknown"
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_logs (action, target, admin_id, created_at) VALUES (?, ?, ?, ?)`,
		entry.Action, entry.Target, entry.AdminID, entry.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}
