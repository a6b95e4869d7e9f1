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

const storyCacheKey = "story:current"

type storyRepository interface {
	Active(ctx context.Context) (*models.Story, error)
	LastRename(ctx context.Context, storyID int64) (*models.StoryRename, error)
	Rename(ctx context.Context, storyID int64, name, username string, cooldown time.Duration, now time.Time) (*repository.RenameResult, error)
}

type storyLineReader interface {
	ByStory(ctx context.Context, storyID int64) ([]models.Line, error)
}

type storyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string)
}

// CurrentStory is the public story payload.
type CurrentStory struct {
	Story *models.Story `json:"story"`
	Lines []models.Line `json:"lines"`
}

// RenameRequest is the title-change payload.
type RenameRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// RenameResponse confirms a successful rename.
type RenameResponse struct {
	Success bool   `json:"success"`
	NewName string `json:"newName"`
}

// RenameStatus reports the global rename cooldown. Cooldown is the remaining
// window in seconds, zero when a rename is currently allowed.
type RenameStatus struct {
	Cooldown    int64   `json:"cooldown"`
	NextAllowed *string `json:"nextAllowed"`
	LastRenamer *string `json:"lastRenamer"`
}

// StoryService serves the active story and enforces the rename cooldown.
type StoryService struct {
	stories storyRepository
	lines   storyLineReader
	cache   storyCache
	logger  *zap.Logger
	cfg     config.StoryConfig
	cacheCfg config.CacheConfig
	clock   func() time.Time
}

// NewStoryService constructs a StoryService. cache may be nil.
func NewStoryService(stories storyRepository, lines storyLineReader, cache storyCache, logger *zap.Logger, cfg config.StoryConfig, cacheCfg config.CacheConfig) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryService{
		stories:  stories,
		lines:    lines,
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		cacheCfg: cacheCfg,
		clock:    time.Now,
	}
}

// Current returns the active story and its lines in display order.
func (s *StoryService) Current(ctx context.Context) (*CurrentStory, error) {
	if s.cacheEnabled() {
		var cached CurrentStory
		if err := s.cache.Get(ctx, storyCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("story cache read failed", zap.Error(err))
		}
	}

	story, err := s.stories.Active(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no story found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load story")
	}

	lines, err := s.lines.ByStory(ctx, story.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lines")
	}

	current := &CurrentStory{Story: story, Lines: lines}
	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, storyCacheKey, current, s.cacheCfg.StoryTTL); err != nil {
			s.logger.Warn("story cache write failed", zap.Error(err))
		}
	}
	return current, nil
}

// Rename changes the active story's title, subject to the story-wide cooldown.
func (s *StoryService) Rename(ctx context.Context, req RenameRequest) (*RenameResponse, error) {
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < s.cfg.MinNameLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid story name")
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = "anonymous"
	}

	story, err := s.stories.Active(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no story to rename")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load story")
	}

	now := s.clock()
	result, err := s.stories.Rename(ctx, story.ID, name, username, s.cfg.RenameCooldown, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename story")
	}
	if !result.Allowed {
		next := result.LastRenamedAt.Add(s.cfg.RenameCooldown)
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrRateLimited, "Rename cooldown active."),
			map[string]interface{}{
				"nextAllowed": next.UTC().Format(time.RFC3339),
				"lastRenamer": result.LastRenamer,
			},
		)
	}

	if s.cacheEnabled() {
		s.cache.Delete(ctx, storyCacheKey)
	}

	return &RenameResponse{Success: true, NewName: name}, nil
}

// Status reports the rename cooldown without mutating anything. With no
// rename history it returns zero values, never an error.
func (s *StoryService) Status(ctx context.Context) (*RenameStatus, error) {
	story, err := s.stories.Active(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no story found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load story")
	}

	last, err := s.stories.LastRename(ctx, story.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &RenameStatus{Cooldown: 0, NextAllowed: nil, LastRenamer: nil}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rename history")
	}

	status := &RenameStatus{LastRenamer: &last.Username}
	remaining := s.cfg.RenameCooldown - s.clock().Sub(last.RenamedAt)
	if remaining > 0 {
		status.Cooldown = int64(math.Ceil(remaining.Seconds()))
		next := last.RenamedAt.Add(s.cfg.RenameCooldown).UTC().Format(time.RFC3339)
		status.NextAllowed = &next
	}
	return status, nil
}

func (s *StoryService) cacheEnabled() bool {
	return s.cache != nil && s.cacheCfg.Enabled
}
