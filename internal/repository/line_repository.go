package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/storyline-app/storyline-api/internal/models"
)

// SubmitResult reports the outcome of a transactional line submission.
type SubmitResult struct {
	// Allowed is false when the submitter is still inside the cooldown window.
	Allowed bool
	// ID is the new line id when Allowed.
	ID int64
	// LastCreatedAt is the timestamp of the submitter's previous line when
	// the submission was denied.
	LastCreatedAt time.Time
}

// LineRepository persists contributed lines.
type LineRepository struct {
	db *sqlx.DB
}

// NewLineRepository constructs the repository.
func NewLineRepository(db *sqlx.DB) *LineRepository {
	return &LineRepository{db: db}
}

// ByStory returns a story's lines in display order, oldest first.
func (r *LineRepository) ByStory(ctx context.Context, storyID int64) ([]models.Line, error) {
	const query = `SELECT id, story_id, text, username, color, ip, created_at FROM lines
WHERE story_id = ? ORDER BY created_at ASC, id ASC`
	lines := []models.Line{}
	if err := r.db.SelectContext(ctx, &lines, query, storyID); err != nil {
		return nil, fmt.Errorf("list lines for story %d: %w", storyID, err)
	}
	return lines, nil
}

// All returns every line across stories, newest first, for moderation.
func (r *LineRepository) All(ctx context.Context) ([]models.Line, error) {
	const query = `SELECT id, story_id, text, username, color, ip, created_at FROM lines
ORDER BY created_at DESC, id DESC`
	lines := []models.Line{}
	if err := r.db.SelectContext(ctx, &lines, query); err != nil {
		return nil, fmt.Errorf("list all lines: %w", err)
	}
	return lines, nil
}

// LastByIP returns the submitter's most recent line across all stories, so a
// contributor's cooldown window survives a story reset.
func (r *LineRepository) LastByIP(ctx context.Context, ip string) (*models.Line, error) {
	const query = `SELECT id, story_id, text, username, color, ip, created_at FROM lines
WHERE ip = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	var line models.Line
	if err := r.db.GetContext(ctx, &line, query, ip); err != nil {
		return nil, err
	}
	return &line, nil
}

// Submit performs the cooldown check and the insert inside one transaction,
// closing the window in which two concurrent submissions from the same
// identity could both pass the check.
func (r *LineRepository) Submit(ctx context.Context, storyID int64, text, username, color, ip string, cooldown time.Duration, now time.Time) (*SubmitResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}

	var lastCreated time.Time
	err = tx.GetContext(ctx, &lastCreated,
		`SELECT created_at FROM lines WHERE ip = ? ORDER BY created_at DESC, id DESC LIMIT 1`, ip)
	switch {
	case err == nil:
		if now.Sub(lastCreated) < cooldown {
			_ = tx.Rollback()
			return &SubmitResult{Allowed: false, LastCreatedAt: lastCreated}, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// first contribution from this identity
	default:
		_ = tx.Rollback()
		return nil, fmt.Errorf("check cooldown for %s: %w", ip, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO lines (story_id, text, username, color, ip, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		storyID, text, username, color, ip, now.UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert line: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("read new line id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	return &SubmitResult{Allowed: true, ID: id}, nil
}

// Delete hard-deletes a line. Returns sql.ErrNoRows when no row matched.
func (r *LineRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete line %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete line %d: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats returns contribution totals for the moderation console.
func (r *LineRepository) Stats(ctx context.Context) (*models.Stats, error) {
	const query = `SELECT COUNT(*) AS total_lines, COUNT(DISTINCT username) AS distinct_contributors FROM lines`
	var stats models.Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("collect line stats: %w", err)
	}
	return &stats, nil
}
