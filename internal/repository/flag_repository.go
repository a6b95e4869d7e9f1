package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/storyline-app/storyline-api/internal/models"
)

// FlagRepository persists moderation flags.
type FlagRepository struct {
	db *sqlx.DB
}

// NewFlagRepository constructs the repository.
func NewFlagRepository(db *sqlx.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Insert files a flag. The target line is not checked for existence.
func (r *FlagRepository) Insert(ctx context.Context, lineID int64, reason, flaggedBy string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO line_flags (line_id, reason, flagged_by, flagged_at) VALUES (?, ?, ?, ?)`,
		lineID, reason, flaggedBy, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert flag for line %d: %w", lineID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read new flag id: %w", err)
	}
	return id, nil
}

// ListWithLines returns flags joined to their line snapshots, newest first.
// Flags whose line was deleted come back with nil line fields.
func (r *FlagRepository) ListWithLines(ctx context.Context) ([]models.FlagWithLine, error) {
	const query = `SELECT f.id, f.line_id, f.reason, f.flagged_by, f.flagged_at, f.resolved,
       l.text, l.username, l.color
FROM line_flags f
LEFT JOIN lines l ON f.line_id = l.id
ORDER BY f.flagged_at DESC, f.id DESC`
	flags := []models.FlagWithLine{}
	if err := r.db.SelectContext(ctx, &flags, query); err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	return flags, nil
}

// Resolve marks a flag resolved. Resolving an already-resolved flag succeeds.
func (r *FlagRepository) Resolve(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE line_flags SET resolved = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("resolve flag %d: %w", id, err)
	}
	return nil
}

// All returns the raw flag rows, newest first.
func (r *FlagRepository) All(ctx context.Context) ([]models.LineFlag, error) {
	const query = `SELECT id, line_id, reason, flagged_by, flagged_at, resolved FROM line_flags
ORDER BY flagged_at DESC, id DESC`
	flags := []models.LineFlag{}
	if err := r.db.SelectContext(ctx, &flags, query); err != nil {
		return nil, fmt.Errorf("list raw flags: %w", err)
	}
	return flags, nil
}
