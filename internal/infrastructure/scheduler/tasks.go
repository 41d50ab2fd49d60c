package scheduler

import (
	"context"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
)

// Sweep intervals of the event lifecycle.
const (
	ExpireInterval              = time.Minute
	RevalidationInterval        = time.Minute
	RevalidationTimeoutInterval = time.Minute
	FeedbackReminderInterval    = 5 * time.Minute
	NoShowInterval              = 5 * time.Minute
	AutoCompleteInterval        = time.Hour
	StaleRequestInterval        = 30 * time.Minute
	SuspensionInterval          = time.Hour
	PurgeInterval               = 24 * time.Hour
	NotificationCleanupInterval = 24 * time.Hour
	NotificationRetention       = 30 * 24 * time.Hour
)

// SuspensionLifter clears suspensions that have run out.
type SuspensionLifter interface {
	LiftSuspensions(ctx context.Context) (int, error)
}

// NotificationCleaner removes old read notifications.
type NotificationCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

func fromSweep(fn func(ctx context.Context) (meetup.SweepResult, error)) func(ctx context.Context) (Result, error) {
	return func(ctx context.Context) (Result, error) {
		r, err := fn(ctx)
		return Result{Candidates: r.Candidates, Applied: r.Applied, Skipped: r.Skipped, Failed: r.Failed}, err
	}
}

// LifecycleTasks returns every periodic job of the service. cleaner may be
// nil when notifications are not persisted.
func LifecycleTasks(sweeper meetup.Sweeper, lifter SuspensionLifter, cleaner NotificationCleaner) []Task {
	tasks := []Task{
		{Name: "expire_unmatched", Interval: ExpireInterval, Run: fromSweep(sweeper.ExpireUnmatched)},
		{Name: "dispatch_revalidations", Interval: RevalidationInterval, Run: fromSweep(sweeper.DispatchRevalidations)},
		{Name: "timeout_revalidations", Interval: RevalidationTimeoutInterval, Run: fromSweep(sweeper.TimeoutRevalidations)},
		{Name: "feedback_reminders", Interval: FeedbackReminderInterval, Run: fromSweep(sweeper.SendFeedbackReminders)},
		{Name: "close_no_shows", Interval: NoShowInterval, Run: fromSweep(sweeper.CloseNoShows)},
		{Name: "auto_complete", Interval: AutoCompleteInterval, Run: fromSweep(sweeper.AutoComplete)},
		{Name: "decline_stale_requests", Interval: StaleRequestInterval, Run: fromSweep(sweeper.DeclineStaleRequests)},
		{Name: "purge_closed_events", Interval: PurgeInterval, Run: fromSweep(sweeper.PurgeClosed)},
		{
			Name:     "lift_suspensions",
			Interval: SuspensionInterval,
			Run: func(ctx context.Context) (Result, error) {
				n, err := lifter.LiftSuspensions(ctx)
				return Result{Candidates: n, Applied: n}, err
			},
		},
	}

	if cleaner != nil {
		tasks = append(tasks, Task{
			Name:     "notification_cleanup",
			Interval: NotificationCleanupInterval,
			Run: func(ctx context.Context) (Result, error) {
				n, err := cleaner.Cleanup(ctx, NotificationRetention)
				return Result{Candidates: int(n), Applied: int(n)}, err
			},
		})
	}
	return tasks
}
