package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/internal/repository"
	"github.com/storyline-app/storyline-api/pkg/config"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

var testStoryCfg = config.StoryConfig{
	LineCooldown:   24 * time.Hour,
	RenameCooldown: 7 * 24 * time.Hour,
	MaxLineLength:  512,
	MinNameLength:  2,
	MinFlagReason:  2,
}

type lineRepoFake struct {
	submitResult *repository.SubmitResult
	submitErr    error
	lastLine     *models.Line
	lastErr      error
	gotText      string
	gotNow       time.Time
}

func (f *lineRepoFake) Submit(ctx context.Context, storyID int64, text, username, color, ip string, cooldown time.Duration, now time.Time) (*repository.SubmitResult, error) {
	f.gotText = text
	f.gotNow = now
	return f.submitResult, f.submitErr
}

func (f *lineRepoFake) LastByIP(ctx context.Context, ip string) (*models.Line, error) {
	return f.lastLine, f.lastErr
}

type storyReaderFake struct {
	story *models.Story
	err   error
}

func (f *storyReaderFake) Active(ctx context.Context) (*models.Story, error) {
	return f.story, f.err
}

func newLineService(lines *lineRepoFake, stories *storyReaderFake) *LineService {
	svc := NewLineService(lines, stories, nil, nil, testStoryCfg, config.CacheConfig{})
	svc.clock = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

type storyCacheFake struct {
	deleted []string
}

func (f *storyCacheFake) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (f *storyCacheFake) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *storyCacheFake) Delete(ctx context.Context, key string) {
	f.deleted = append(f.deleted, key)
}

func TestLineServiceSubmitAccepted(t *testing.T) {
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: true, ID: 7}}
	svc := newLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}})

	resp, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "  Once upon a time.  ", Username: "alice", Color: "#112233"}, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "Once upon a time.", lines.gotText)
}

func TestLineServiceSubmitLengthBounds(t *testing.T) {
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: true, ID: 1}}
	svc := newLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}})

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: strings.Repeat("a", 512)}, "10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), SubmitLineRequest{Text: strings.Repeat("a", 513)}, "10.0.0.1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Submit(context.Background(), SubmitLineRequest{Text: "   "}, "10.0.0.1")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLineServiceSubmitLengthCountsCharacters(t *testing.T) {
	// 512 two-byte characters must pass the character bound
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: true, ID: 1}}
	svc := newLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}})

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: strings.Repeat("é", 512)}, "10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), SubmitLineRequest{Text: strings.Repeat("é", 513)}, "10.0.0.1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLineServiceSubmitRateLimited(t *testing.T) {
	last := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: false, LastCreatedAt: last}}
	svc := newLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}})

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "Too soon."}, "10.0.0.1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
	assert.Equal(t, last.Add(24*time.Hour).UTC().Format(time.RFC3339), appErr.Details["nextAllowed"])
}

func TestLineServiceSubmitNoActiveStory(t *testing.T) {
	svc := newLineService(&lineRepoFake{}, &storyReaderFake{err: sql.ErrNoRows})

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "Hello."}, "10.0.0.1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLineServiceCooldownNoHistory(t *testing.T) {
	svc := newLineService(&lineRepoFake{lastErr: sql.ErrNoRows}, &storyReaderFake{})

	status, err := svc.Cooldown(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, status.Cooldown)
	assert.Nil(t, status.NextAllowed)
}

func TestLineServiceCooldownRemaining(t *testing.T) {
	last := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)
	svc := newLineService(&lineRepoFake{lastLine: &models.Line{CreatedAt: last}}, &storyReaderFake{})

	status, err := svc.Cooldown(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(23*60*60), status.Cooldown)
	require.NotNil(t, status.NextAllowed)
	assert.Equal(t, last.Add(24*time.Hour).UTC().Format(time.RFC3339), *status.NextAllowed)
}

func TestLineServiceCooldownElapsed(t *testing.T) {
	last := time.Date(2024, 6, 14, 11, 0, 0, 0, time.UTC)
	svc := newLineService(&lineRepoFake{lastLine: &models.Line{CreatedAt: last}}, &storyReaderFake{})

	status, err := svc.Cooldown(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, status.Cooldown)
	assert.Nil(t, status.NextAllowed)
}

func TestLineServiceSubmitInvalidatesStoryCache(t *testing.T) {
	// a fresh line must be visible on the next current-story read
	cache := &storyCacheFake{}
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: true, ID: 5}}
	svc := NewLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}}, cache, nil, testStoryCfg, config.CacheConfig{Enabled: true})
	svc.clock = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "A new line."}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{storyCacheKey}, cache.deleted)
}

func TestLineServiceSubmitThrottledKeepsCache(t *testing.T) {
	cache := &storyCacheFake{}
	lines := &lineRepoFake{submitResult: &repository.SubmitResult{Allowed: false, LastCreatedAt: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)}}
	svc := NewLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}}, cache, nil, testStoryCfg, config.CacheConfig{Enabled: true})
	svc.clock = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "Too soon."}, "10.0.0.1")
	require.Error(t, err)
	assert.Empty(t, cache.deleted)
}

func TestLineServiceSubmitStoreErrorIsInternal(t *testing.T) {
	lines := &lineRepoFake{submitErr: errors.New("disk io")}
	svc := newLineService(lines, &storyReaderFake{story: &models.Story{ID: 1}})

	_, err := svc.Submit(context.Background(), SubmitLineRequest{Text: "Hello."}, "10.0.0.1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
