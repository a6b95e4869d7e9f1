package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/internal/repository"
	"github.com/storyline-app/storyline-api/pkg/config"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

type lineRepository interface {
	Submit(ctx context.Context, storyID int64, text, username, color, ip string, cooldown time.Duration, now time.Time) (*repository.SubmitResult, error)
	LastByIP(ctx context.Context, ip string) (*models.Line, error)
}

type activeStoryReader interface {
	Active(ctx context.Context) (*models.Story, error)
}

// SubmitLineRequest is the contribution payload.
type SubmitLineRequest struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

// SubmitLineResponse confirms an accepted contribution.
type SubmitLineResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// CooldownStatus reports the contributor's remaining wait in seconds, zero
// with a nil NextAllowed when a submission is currently permitted.
type CooldownStatus struct {
	Cooldown    int64   `json:"cooldown"`
	NextAllowed *string `json:"nextAllowed"`
}

// LineService accepts contributions under the per-contributor cooldown.
type LineService struct {
	lines    lineRepository
	stories  activeStoryReader
	cache    storyCache
	logger   *zap.Logger
	cfg      config.StoryConfig
	cacheCfg config.CacheConfig
	clock    func() time.Time
}

// NewLineService constructs a LineService. cache may be nil.
func NewLineService(lines lineRepository, stories activeStoryReader, cache storyCache, logger *zap.Logger, cfg config.StoryConfig, cacheCfg config.CacheConfig) *LineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineService{
		lines:    lines,
		stories:  stories,
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		cacheCfg: cacheCfg,
		clock:    time.Now,
	}
}

// Submit validates and appends a line to the active story. The cooldown check
// and the insert run in one transaction in the repository.
func (s *LineService) Submit(ctx context.Context, req SubmitLineRequest, ip string) (*SubmitLineResponse, error) {
	// bounds are in characters, not bytes, so multibyte text measures the
	// same as what the contributor typed
	text := strings.TrimSpace(req.Text)
	if n := utf8.RuneCountInString(text); n < 1 || n > s.cfg.MaxLineLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid line text.")
	}

	story, err := s.stories.Active(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active story")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load story")
	}

	now := s.clock()
	result, err := s.lines.Submit(ctx, story.ID, text, strings.TrimSpace(req.Username), req.Color, ip, s.cfg.LineCooldown, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add line")
	}
	if !result.Allowed {
		next := result.LastCreatedAt.Add(s.cfg.LineCooldown)
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrRateLimited, "Only one line per cooldown window."),
			map[string]interface{}{"nextAllowed": next.UTC().Format(time.RFC3339)},
		)
	}

	if s.cache != nil && s.cacheCfg.Enabled {
		s.cache.Delete(ctx, storyCacheKey)
	}

	s.logger.Info("line accepted", zap.Int64("story_id", story.ID), zap.Int64("line_id", result.ID))
	return &SubmitLineResponse{Success: true, ID: result.ID}, nil
}

// Cooldown reports the submitter's remaining wait. It derives the identity
// the same way Submit does, so the two paths never disagree.
func (s *LineService) Cooldown(ctx context.Context, ip string) (*CooldownStatus, error) {
	last, err := s.lines.LastByIP(ctx, ip)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &CooldownStatus{Cooldown: 0, NextAllowed: nil}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cooldown")
	}

	remaining := s.cfg.LineCooldown - s.clock().Sub(last.CreatedAt)
	if remaining <= 0 {
		return &CooldownStatus{Cooldown: 0, NextAllowed: nil}, nil
	}

	next := last.CreatedAt.Add(s.cfg.LineCooldown).UTC().Format(time.RFC3339)
	return &CooldownStatus{
		Cooldown:    int64(math.Ceil(remaining.Seconds())),
		NextAllowed: &next,
	}, nil
}
