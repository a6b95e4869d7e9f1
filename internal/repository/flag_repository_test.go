package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFlagRepository(db)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO line_flags").
		WithArgs(int64(3), "spam", "10.0.0.9", now.UTC()).
		WillReturnResult(sqlmock.NewResult(5, 1))

	id, err := repo.Insert(context.Background(), 3, "spam", "10.0.0.9", now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestFlagRepositoryListWithDeletedLine(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFlagRepository(db)
	flagged := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "line_id", "reason", "flagged_by", "flagged_at", "resolved", "text", "username", "color"}).
		AddRow(2, 99, "offensive", "10.0.0.9", flagged, false, nil, nil, nil).
		AddRow(1, 3, "spam", "anonymous", flagged.Add(-time.Hour), true, "Once upon a time.", "alice", "#112233")
	mock.ExpectQuery("SELECT f.id, f.line_id").WillReturnRows(rows)

	flags, err := repo.ListWithLines(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)

	// flag on a deleted line keeps null line fields rather than erroring
	assert.Nil(t, flags[0].Text)
	assert.Nil(t, flags[0].Username)
	assert.False(t, flags[0].Resolved)

	require.NotNil(t, flags[1].Text)
	assert.Equal(t, "Once upon a time.", *flags[1].Text)
	assert.True(t, flags[1].Resolved)
}

func TestFlagRepositoryResolveIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFlagRepository(db)
	mock.ExpectExec("UPDATE line_flags SET resolved").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE line_flags SET resolved").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Resolve(context.Background(), 2))
	require.NoError(t, repo.Resolve(context.Background(), 2))
}
