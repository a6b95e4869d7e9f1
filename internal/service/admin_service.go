package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/storyline-app/storyline-api/internal/models"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

type moderationLineRepository interface {
	All(ctx context.Context) ([]models.Line, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.Stats, error)
}

type adminLogWriter interface {
	Insert(ctx context.Context, entry models.AdminLog) error
}

// AdminLogRequest is the audit-log payload.
type AdminLogRequest struct {
	Action  string `json:"action" validate:"required"`
	Target  string `json:"target"`
	AdminID string `json:"admin_id"`
}

// AdminService backs the moderation console: line listing and deletion,
// contribution stats and the append-only action log.
type AdminService struct {
	lines     moderationLineRepository
	logs      adminLogWriter
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(lines moderationLineRepository, logs adminLogWriter, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{lines: lines, logs: logs, validator: validator.New(), logger: logger, clock: time.Now}
}

// Lines returns every line, newest first.
func (s *AdminService) Lines(ctx context.Context) ([]models.Line, error) {
	lines, err := s.lines.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lines")
	}
	return lines, nil
}

// DeleteLine hard-deletes a line. Flags referencing it are left in place;
// the moderation listing tolerates the dangling reference.
func (s *AdminService) DeleteLine(ctx context.Context, id int64) error {
	if err := s.lines.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Line not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete line")
	}
	s.logger.Info("line deleted", zap.Int64("line_id", id))
	return nil
}

// Stats summarizes contribution totals.
func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.lines.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect stats")
	}
	return stats, nil
}

// Log appends one administrative action record.
func (s *AdminService) Log(ctx context.Context, req AdminLogRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid log payload")
	}
	entry := models.AdminLog{
		Action:    req.Action,
		Target:    req.Target,
		AdminID:   req.AdminID,
		CreatedAt: s.clock(),
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record admin log")
	}
	return nil
}
