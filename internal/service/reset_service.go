package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/pkg/config"
	"github.com/storyline-app/storyline-api/pkg/jobs"
)

// resetMonths are the quarter boundaries at which the active story is
// archived and replaced.
var resetMonths = [...]time.Month{time.March, time.June, time.September, time.December}

// NextReset returns the first local midnight of the next reset month strictly
// after now, rolling into the next calendar year from Q4.
func NextReset(now time.Time) time.Time {
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for _, month := range resetMonths {
			boundary := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
			if boundary.After(now) {
				return boundary
			}
		}
	}
	// unreachable: December of year+1 is always after now
	return time.Date(now.Year()+1, time.December, 1, 0, 0, 0, 0, now.Location())
}

// LastReset returns the most recent boundary at or before now.
func LastReset(now time.Time) time.Time {
	last := time.Date(now.Year()-1, time.December, 1, 0, 0, 0, 0, now.Location())
	for _, year := range []int{now.Year() - 1, now.Year()} {
		for _, month := range resetMonths {
			boundary := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
			if !boundary.After(now) && boundary.After(last) {
				last = boundary
			}
		}
	}
	return last
}

type resetStoryRepository interface {
	Active(ctx context.Context) (*models.Story, error)
	ArchiveAndCreate(ctx context.Context, now time.Time) (int64, error)
}

// ResetService archives the active story and creates a fresh one at each
// quarterly boundary. The work runs on a retrying job queue; the reset itself
// is idempotent, so running it more than once near a boundary is safe, and a
// catch-up job on startup recovers from downtime across a boundary.
type ResetService struct {
	stories resetStoryRepository
	queue   *jobs.Queue
	logger  *zap.Logger
	clock   func() time.Time
	cancel  context.CancelFunc
}

// NewResetService constructs a ResetService.
func NewResetService(stories resetStoryRepository, logger *zap.Logger, cfg config.ResetConfig) *ResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ResetService{stories: stories, logger: logger, clock: time.Now}
	s.queue = jobs.NewQueue("story-reset", s.runReset, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the catch-up job and the boundary timer loop.
func (s *ResetService) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	// Crash recovery: if the active story predates the last boundary, the
	// reset the countdown promised never ran.
	if err := s.queue.Enqueue(jobs.Job{ID: "reset-catchup", Type: "story.reset"}); err != nil {
		return fmt.Errorf("enqueue catch-up reset: %w", err)
	}

	go s.loop(loopCtx)
	return nil
}

// Stop halts the timer loop and drains the queue workers.
func (s *ResetService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

func (s *ResetService) loop(ctx context.Context) {
	for {
		next := NextReset(s.clock())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			job := jobs.Job{ID: fmt.Sprintf("reset-%s", next.Format("2006-01-02")), Type: "story.reset"}
			if err := s.queue.Enqueue(job); err != nil {
				s.logger.Error("failed to enqueue reset", zap.Error(err))
			}
		}
	}
}

// runReset performs one idempotent reset pass: archive and recreate only when
// the active story predates the most recent boundary.
func (s *ResetService) runReset(ctx context.Context, _ jobs.Job) error {
	now := s.clock()
	boundary := LastReset(now)

	story, err := s.stories.Active(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load active story: %w", err)
	}
	if story != nil && !story.CreatedAt.Before(boundary) {
		return nil
	}

	id, err := s.stories.ArchiveAndCreate(ctx, now)
	if err != nil {
		return fmt.Errorf("archive and create: %w", err)
	}

	s.logger.Info("story reset complete", zap.Int64("new_story_id", id), zap.Time("boundary", boundary))
	return nil
}
