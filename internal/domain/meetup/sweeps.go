package meetup

import (
	"context"
	"errors"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sweepBatchSize caps the candidates handled by one pass.
const sweepBatchSize = 500

// sweepStep applies one transition under the event lock. The returned
// callback runs after commit.
type sweepStep func(ctx context.Context, tx Store, e *Event) (func(*Event), error)

type sweepItem struct {
	eventID uuid.UUID
	step    sweepStep
}

// sweep runs every item in its own transaction. Items whose guard no longer
// holds are skipped, other failures are logged and do not stop the pass.
func (s *service) sweep(ctx context.Context, name string, items []sweepItem) SweepResult {
	result := SweepResult{Candidates: len(items)}
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		var after func(*Event)
		event, err := s.repo.Transition(ctx, item.eventID, func(ctx context.Context, tx Store, e *Event) error {
			var err error
			after, err = item.step(ctx, tx, e)
			return err
		})
		switch {
		case err == nil:
			result.Applied++
			if after != nil {
				after(event)
			}
		case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
			result.Skipped++
		default:
			result.Failed++
			s.logger.Error("Sweep item failed",
				zap.String("sweep", name),
				zap.String("event_id", item.eventID.String()),
				zap.Error(err))
		}
	}

	if result.Applied > 0 || result.Failed > 0 {
		s.logger.Info("Sweep finished",
			zap.String("sweep", name),
			zap.Int("candidates", result.Candidates),
			zap.Int("applied", result.Applied),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result
}

func (s *service) eventSweep(ctx context.Context, name string, filter EventFilter, step sweepStep) (SweepResult, error) {
	filter.Limit = sweepBatchSize
	events, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return SweepResult{}, err
	}
	items := make([]sweepItem, 0, len(events))
	for _, e := range events {
		items = append(items, sweepItem{eventID: e.ID, step: step})
	}
	return s.sweep(ctx, name, items), nil
}

// ExpireUnmatched expires scheduled events nobody was matched to before
// their expiry, and declines the requests still pending on them.
func (s *service) ExpireUnmatched(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	return s.eventSweep(ctx, "expire_unmatched", EventFilter{
		Statuses:      []Status{StatusScheduled},
		ExpiresBefore: &now,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		if err := e.expire(now); err != nil {
			return nil, err
		}
		pending, err := tx.ListRequests(ctx, e.ID, RequestPending)
		if err != nil {
			return nil, err
		}
		for i := range pending {
			pending[i].Status = RequestDeclined
			pending[i].RespondedAt = &now
			if err := tx.SaveRequest(ctx, &pending[i]); err != nil {
				return nil, err
			}
		}
		return func(event *Event) {
			s.notify(ctx, event.CreatorID, notification.EventExpired, event,
				"Event expired", "Nobody joined your event in time.", nil)
			for _, r := range pending {
				s.notify(ctx, r.RequesterID, notification.JoinRequestDeclined, event,
					"Join request declined", "The event expired.", nil)
			}
		}, nil
	})
}

// DispatchRevalidations asks creators of matched events starting within
// RevalidationLead to confirm they are still coming.
func (s *service) DispatchRevalidations(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	horizon := now.Add(RevalidationLead)
	return s.eventSweep(ctx, "dispatch_revalidations", EventFilter{
		Statuses:     []Status{StatusMatched},
		StartsAfter:  &now,
		StartsBefore: &horizon,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		if err := e.requestRevalidation(now); err != nil {
			return nil, err
		}
		return func(event *Event) {
			s.notify(ctx, event.CreatorID, notification.RevalidationRequired, event,
				"Are you still coming?", "Confirm your meetup and share your location.",
				nil, notification.Push)
		}, nil
	})
}

// TimeoutRevalidations cancels events whose creator left the revalidation
// unanswered for RevalidationTimeout.
func (s *service) TimeoutRevalidations(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	cutoff := now.Add(-RevalidationTimeout)
	return s.eventSweep(ctx, "timeout_revalidations", EventFilter{
		Statuses:               []Status{StatusRevalidationPending},
		RevalidationSentBefore: &cutoff,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		if err := e.timeoutRevalidation(now); err != nil {
			return nil, err
		}
		return func(event *Event) {
			s.record("cancellation", s.ledger.RecordCancellation(ctx, event.CreatorID))
			if event.ParticipantID != nil {
				s.notify(ctx, *event.ParticipantID, notification.CancelledNoRevalidation, event,
					"Meetup cancelled", "Your partner did not confirm the meetup.", nil, notification.Email)
			}
		}, nil
	})
}

// SendFeedbackReminders reminds both parties of ended meetups to leave
// feedback. The reminder is sent once per event.
func (s *service) SendFeedbackReminders(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	return s.eventSweep(ctx, "feedback_reminders", EventFilter{
		Statuses:      []Status{StatusOnSiteConfirmed},
		StartsBefore:  &now,
		ReminderUnset: true,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		if err := e.markFeedbackReminder(now); err != nil {
			return nil, err
		}
		return func(event *Event) {
			for _, id := range event.Parties() {
				s.notify(ctx, id, notification.FeedbackReminder, event,
					"How was your meetup?", "Leave feedback within 24 hours.", nil, notification.Email)
			}
		}, nil
	})
}

// CloseNoShows cancels active and half checked-in meetups once their
// scheduled end has passed, marking whoever never arrived as a no-show.
func (s *service) CloseNoShows(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	return s.eventSweep(ctx, "close_no_shows", EventFilter{
		Statuses:     []Status{StatusActive, StatusOnSitePartial},
		StartsBefore: &now,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		missing, err := e.closeNoShows(now)
		if err != nil {
			return nil, err
		}
		return func(event *Event) {
			absent := make(map[uuid.UUID]bool, len(missing))
			for _, role := range missing {
				if id := event.userOf(role); id != nil {
					absent[*id] = true
				}
			}
			for _, id := range event.Parties() {
				summary := "Your partner did not check in, the meetup was closed."
				if absent[id] {
					summary = "You did not check in at the hub, the meetup was closed."
				}
				s.notify(ctx, id, notification.NoShowRecorded, event, "Meetup closed", summary,
					map[string]interface{}{"no_show": absent[id]})
			}
		}, nil
	})
}

// AutoComplete completes confirmed meetups once FeedbackGrace has passed
// since the reminder.
func (s *service) AutoComplete(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	cutoff := now.Add(-FeedbackGrace)
	return s.eventSweep(ctx, "auto_complete", EventFilter{
		Statuses:           []Status{StatusOnSiteConfirmed},
		ReminderSentBefore: &cutoff,
	}, func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
		if err := e.autoComplete(now); err != nil {
			return nil, err
		}
		return func(event *Event) {
			s.completeParties(ctx, event, now)
		}, nil
	})
}

// DeclineStaleRequests declines requests left pending for StaleRequestAge.
func (s *service) DeclineStaleRequests(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	cutoff := now.Add(-StaleRequestAge)
	stale, err := s.repo.ListStalePendingRequests(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	items := make([]sweepItem, 0, len(stale))
	for _, r := range stale {
		requestID := r.ID
		items = append(items, sweepItem{
			eventID: r.EventID,
			step: func(ctx context.Context, tx Store, e *Event) (func(*Event), error) {
				req, err := tx.FindRequest(ctx, requestID)
				if err != nil {
					return nil, err
				}
				if req.Status != RequestPending {
					return nil, ErrRequestHandled
				}
				if req.CreatedAt.After(cutoff) {
					return nil, ErrConflict
				}
				req.Status = RequestDeclined
				req.RespondedAt = &now
				if err := tx.SaveRequest(ctx, req); err != nil {
					return nil, err
				}
				return func(event *Event) {
					s.notify(ctx, req.RequesterID, notification.JoinRequestDeclined, event,
						"Join request declined", "The creator did not answer in time.", nil)
				}, nil
			},
		})
	}
	return s.sweep(ctx, "decline_stale_requests", items), nil
}

// PurgeClosed deletes events that have been terminal for PurgeAfter along
// with their requests, chat and feedback.
func (s *service) PurgeClosed(ctx context.Context) (SweepResult, error) {
	cutoff := s.clock.Now().Add(-PurgeAfter)
	n, err := s.repo.PurgeClosedBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}
	if n > 0 {
		s.logger.Info("Purged closed events", zap.Int64("count", n))
	}
	return SweepResult{Candidates: int(n), Applied: int(n)}, nil
}
