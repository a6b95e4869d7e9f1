package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/pkg/config"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

type flagRepository interface {
	Insert(ctx context.Context, lineID int64, reason, flaggedBy string, now time.Time) (int64, error)
	ListWithLines(ctx context.Context) ([]models.FlagWithLine, error)
	Resolve(ctx context.Context, id int64) error
	All(ctx context.Context) ([]models.LineFlag, error)
}

// FileFlagRequest is the flag submission payload.
type FileFlagRequest struct {
	Reason string `json:"reason"`
}

// FlagService handles moderation flag intake and review. Flag submission is
// deliberately not rate limited, and the target line is not required to
// exist: flags may reference lines deleted before or after filing.
type FlagService struct {
	flags  flagRepository
	logger *zap.Logger
	cfg    config.StoryConfig
	clock  func() time.Time
}

// NewFlagService constructs a FlagService.
func NewFlagService(flags flagRepository, logger *zap.Logger, cfg config.StoryConfig) *FlagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlagService{flags: flags, logger: logger, cfg: cfg, clock: time.Now}
}

// File records a flag against a line.
func (s *FlagService) File(ctx context.Context, lineID int64, req FileFlagRequest, reporter string) error {
	if lineID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid line ID.")
	}

	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) < s.cfg.MinFlagReason {
		return appErrors.Clone(appErrors.ErrValidation, "Reason too short.")
	}

	if reporter == "" {
		reporter = "anonymous"
	}

	if _, err := s.flags.Insert(ctx, lineID, reason, reporter, s.clock()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag line")
	}

	s.logger.Info("flag filed", zap.Int64("line_id", lineID))
	return nil
}

// List returns every flag joined to its line snapshot, newest first. Flags
// whose line was deleted come back with null line fields.
func (s *FlagService) List(ctx context.Context) ([]models.FlagWithLine, error) {
	flags, err := s.flags.ListWithLines(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list flags")
	}
	return flags, nil
}

// Resolve marks a flag resolved. Idempotent.
func (s *FlagService) Resolve(ctx context.Context, id int64) error {
	if err := s.flags.Resolve(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve flag")
	}
	return nil
}

// DebugAll returns the raw flag rows for the admin console.
func (s *FlagService) DebugAll(ctx context.Context) ([]models.LineFlag, error) {
	flags, err := s.flags.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list raw flags")
	}
	return flags, nil
}
