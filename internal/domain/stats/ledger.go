package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/cache"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSelfAction = fmt.Errorf("cannot block or report yourself")

// Ledger owns points, streaks, milestones, rating counters and the
// moderation state derived from blocks and reports.
type Ledger interface {
	RecordEventCreated(ctx context.Context, userID uuid.UUID) error
	RecordMatch(ctx context.Context, creatorID, participantID uuid.UUID) error
	RecordCompletion(ctx context.Context, userID uuid.UUID, at time.Time) error
	RecordCancellation(ctx context.Context, userID uuid.UUID) error
	RecordRating(ctx context.Context, userID uuid.UUID, rating Rating) error

	GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	ListMilestones(ctx context.Context, userID uuid.UUID) ([]UserMilestone, error)
	IsSuspended(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)

	Block(ctx context.Context, blockerID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Report(ctx context.Context, input ReportInput) error

	// LiftSuspensions clears every suspension that has run out and returns
	// how many were lifted.
	LiftSuspensions(ctx context.Context) (int, error)
}

// StatsCache drops cached responses built from a user's stats.
type StatsCache interface {
	Delete(ctx context.Context, keys ...string) error
}

// CacheKey is the response cache key of a user's public stats.
func CacheKey(userID uuid.UUID) string {
	return cache.GenerateCacheKey("user_stats", userID, "public")
}

type ledger struct {
	repo     Repository
	notifier notification.Notifier
	cache    StatsCache
	clock    clock.Clock
	logger   *zap.Logger
}

// NewLedger builds the ledger. statsCache may be nil when responses are not
// cached.
func NewLedger(repo Repository, notifier notification.Notifier, statsCache StatsCache, clk clock.Clock, logger *zap.Logger) Ledger {
	return &ledger{
		repo:     repo,
		notifier: notifier,
		cache:    statsCache,
		clock:    clk,
		logger:   logger,
	}
}

func (l *ledger) invalidate(ctx context.Context, userID uuid.UUID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, CacheKey(userID)); err != nil {
		l.logger.Warn("Failed to invalidate cached stats",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// update applies fn to the user's row, then persists and announces every
// milestone crossed by the change.
func (l *ledger) update(ctx context.Context, userID uuid.UUID, fn func(s *UserStats) error) error {
	before, after, err := l.repo.Update(ctx, userID, fn)
	if err != nil {
		return err
	}
	l.invalidate(ctx, userID)

	for _, hit := range milestonesBetween(before, after) {
		created, err := l.repo.RecordMilestone(ctx, &UserMilestone{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      hit.Kind,
			Threshold: hit.Threshold,
			ReachedAt: l.clock.Now(),
		})
		if err != nil {
			l.logger.Error("Failed to record milestone",
				zap.String("user_id", userID.String()),
				zap.String("kind", string(hit.Kind)),
				zap.Int("threshold", hit.Threshold),
				zap.Error(err))
			continue
		}
		if !created {
			continue
		}
		l.notifier.Notify(ctx, userID, notification.MilestoneReached, notification.Payload{
			Reference:   notification.ReferenceStats,
			ReferenceID: userID,
			Title:       "Milestone reached",
			Summary:     milestoneSummary(hit),
			Data: map[string]interface{}{
				"kind":      string(hit.Kind),
				"threshold": hit.Threshold,
			},
		})
	}
	return nil
}

func milestoneSummary(hit milestoneHit) string {
	switch hit.Kind {
	case MilestoneStreak:
		return fmt.Sprintf("%d-day meetup streak!", hit.Threshold)
	case MilestoneEventsCompleted:
		if hit.Threshold == 1 {
			return "You completed your first meetup!"
		}
		return fmt.Sprintf("You completed %d meetups!", hit.Threshold)
	default:
		return fmt.Sprintf("You reached %d points!", hit.Threshold)
	}
}

func (l *ledger) RecordEventCreated(ctx context.Context, userID uuid.UUID) error {
	return l.update(ctx, userID, func(s *UserStats) error {
		s.EventsCreated++
		s.TotalPoints += PointsEventCreated
		return nil
	})
}

func (l *ledger) RecordMatch(ctx context.Context, creatorID, participantID uuid.UUID) error {
	for _, id := range []uuid.UUID{creatorID, participantID} {
		if err := l.update(ctx, id, func(s *UserStats) error {
			s.TotalPoints += PointsMatched
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (l *ledger) RecordCompletion(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return l.update(ctx, userID, func(s *UserStats) error {
		applyCompletion(s, at)
		return nil
	})
}

func (l *ledger) RecordCancellation(ctx context.Context, userID uuid.UUID) error {
	return l.update(ctx, userID, func(s *UserStats) error {
		s.EventsCancelled++
		return nil
	})
}

func (l *ledger) RecordRating(ctx context.Context, userID uuid.UUID, rating Rating) error {
	return l.update(ctx, userID, func(s *UserStats) error {
		switch rating {
		case RatingPositive:
			s.PositiveRatings++
		case RatingNeutral:
			s.NeutralRatings++
		case RatingNegative:
			s.NegativeRatings++
		default:
			return fmt.Errorf("unknown rating %q", rating)
		}
		return nil
	})
}

func (l *ledger) GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	return l.repo.Get(ctx, userID)
}

func (l *ledger) ListMilestones(ctx context.Context, userID uuid.UUID) ([]UserMilestone, error) {
	return l.repo.ListMilestones(ctx, userID)
}

func (l *ledger) IsSuspended(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	s, err := l.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.IsSuspended(at), nil
}

func (l *ledger) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfAction
	}
	return l.repo.CreateBlock(ctx, &UserBlock{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: l.clock.Now(),
	})
}

func (l *ledger) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return l.repo.DeleteBlock(ctx, blockerID, blockedID)
}

func (l *ledger) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return l.repo.IsBlocked(ctx, a, b)
}

func (l *ledger) BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return l.repo.BlockedUserIDs(ctx, userID)
}

// Report files a report. Only the first report per (reporter, reported,
// event) counts, and enough distinct reporters inside ReportWindow suspend
// the reported user.
func (l *ledger) Report(ctx context.Context, input ReportInput) error {
	if input.ReporterID == input.ReportedID {
		return ErrSelfAction
	}

	exists, err := l.repo.HasReport(ctx, input.ReporterID, input.ReportedID, input.EventID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyReported
	}

	now := l.clock.Now()
	if err := l.repo.CreateReport(ctx, &UserReport{
		ID:         uuid.New(),
		ReporterID: input.ReporterID,
		ReportedID: input.ReportedID,
		EventID:    input.EventID,
		Reason:     input.Reason,
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	reporters, err := l.repo.CountReporters(ctx, input.ReportedID, now.Add(-ReportWindow))
	if err != nil {
		return err
	}

	suspended := false
	err = l.update(ctx, input.ReportedID, func(s *UserStats) error {
		s.ReportsReceived++
		if reporters >= ReportThreshold && !s.IsSuspended(now) {
			until := now.Add(SuspensionDuration)
			s.SuspendedUntil = &until
			suspended = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if suspended {
		l.logger.Info("User suspended after reports",
			zap.String("user_id", input.ReportedID.String()),
			zap.Int64("reporters", reporters))
		l.notifier.Notify(ctx, input.ReportedID, notification.AccountSuspended, notification.Payload{
			Reference:   notification.ReferenceStats,
			ReferenceID: input.ReportedID,
			Title:       "Account suspended",
			Summary:     "Your account has been suspended for 7 days after several reports.",
			Methods:     []notification.DeliveryMethod{notification.Email},
		})
	}
	return nil
}

func (l *ledger) LiftSuspensions(ctx context.Context) (int, error) {
	now := l.clock.Now()
	ids, err := l.repo.ListSuspendedUntil(ctx, now, 500)
	if err != nil {
		return 0, err
	}

	lifted := 0
	for _, id := range ids {
		changed := false
		err := l.update(ctx, id, func(s *UserStats) error {
			if s.SuspendedUntil == nil || s.SuspendedUntil.After(now) {
				return nil
			}
			s.SuspendedUntil = nil
			changed = true
			return nil
		})
		if err != nil {
			l.logger.Error("Failed to lift suspension",
				zap.String("user_id", id.String()),
				zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		lifted++
		l.notifier.Notify(ctx, id, notification.SuspensionLifted, notification.Payload{
			Reference:   notification.ReferenceStats,
			ReferenceID: id,
			Title:       "Suspension lifted",
			Summary:     "Your account is active again.",
		})
	}
	return lifted, nil
}
