package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/storyline-app/storyline-api/internal/models"
)

func TestAdminLogRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdminLogRepository(db)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO admin_logs").
		WithArgs("delete_line", "42", "admin", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), models.AdminLog{
		Action:    "delete_line",
		Target:    "42",
		AdminID:   "admin",
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminLogRepositoryInsertUnknownAdmin(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAdminLogRepository(db)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO admin_logs").
		WithArgs("resolve_flag", "", "unknown", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), models.AdminLog{
		Action:    "resolve_flag",
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
