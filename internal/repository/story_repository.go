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

// StoryRepository persists stories and their rename audit trail.
type StoryRepository struct {
	db *sqlx.DB
}

// NewStoryRepository constructs the repository.
func NewStoryRepository(db *sqlx.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// Active returns the current story: the newest row that has not been archived.
// Callers translate sql.ErrNoRows into a NotFound.
func (r *StoryRepository) Active(ctx context.Context) (*models.Story, error) {
	const query = `SELECT id, name, created_at, archived_at FROM stories
WHERE archived_at IS NULL ORDER BY created_at DESC, id DESC LIMIT 1`
	var story models.Story
	if err := r.db.GetContext(ctx, &story, query); err != nil {
		return nil, err
	}
	return &story, nil
}

// LastRename returns the most recent rename audit row for a story.
func (r *StoryRepository) LastRename(ctx context.Context, storyID int64) (*models.StoryRename, error) {
	const query = `SELECT id, story_id, username, renamed_at FROM story_renames
WHERE story_id = ? ORDER BY renamed_at DESC, id DESC LIMIT 1`
	var rename models.StoryRename
	if err := r.db.GetContext(ctx, &rename, query, storyID); err != nil {
		return nil, err
	}
	return &rename, nil
}

// RenameResult reports the outcome of a transactional rename attempt.
type RenameResult struct {
	// Allowed is false while the story-wide rename cooldown is active.
	Allowed bool
	// LastRenamer and LastRenamedAt describe the blocking rename when denied.
	LastRenamer   string
	LastRenamedAt time.Time
}

// Rename checks the story-wide cooldown, updates the name and inserts the
// audit row, all in one transaction: the check-then-write sequence cannot
// interleave with a concurrent rename, and a name change is always paired
// with exactly one rename record.
func (r *StoryRepository) Rename(ctx context.Context, storyID int64, name, username string, cooldown time.Duration, now time.Time) (*RenameResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rename tx: %w", err)
	}

	var last models.StoryRename
	err = tx.GetContext(ctx, &last,
		`SELECT id, story_id, username, renamed_at FROM story_renames
WHERE story_id = ? ORDER BY renamed_at DESC, id DESC LIMIT 1`, storyID)
	switch {
	case err == nil:
		if now.Sub(last.RenamedAt) < cooldown {
			_ = tx.Rollback()
			return &RenameResult{Allowed: false, LastRenamer: last.Username, LastRenamedAt: last.RenamedAt}, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// never renamed
	default:
		_ = tx.Rollback()
		return nil, fmt.Errorf("check rename cooldown: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE stories SET name = ? WHERE id = ?`, name, storyID); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("update story name: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO story_renames (story_id, username, renamed_at) VALUES (?, ?, ?)`,
		storyID, username, now.UTC(),
	); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert rename audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rename tx: %w", err)
	}
	return &RenameResult{Allowed: true}, nil
}

// ArchiveAndCreate marks every unarchived story as archived and creates a
// fresh untitled one within a single transaction. Returns the new story id.
func (r *StoryRepository) ArchiveAndCreate(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reset tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE stories SET archived_at = ? WHERE archived_at IS NULL`, now.UTC(),
	); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("archive active story: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO stories (name, created_at) VALUES (?, ?)`, "Untitled", now.UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("create fresh story: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read new story id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reset tx: %w", err)
	}
	return id, nil
}
