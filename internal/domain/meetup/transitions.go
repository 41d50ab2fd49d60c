package meetup

import (
	"fmt"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
)

// Lifecycle timing and distance rules.
const (
	MinLeadTime = 2 * time.Hour
	MaxLeadTime = 7 * 24 * time.Hour

	MinDurationMinutes = 30
	MaxDurationMinutes = 480

	// An unmatched event expires this long before its start.
	ExpiryLead = time.Hour
	// Creators are asked to revalidate this long before the start.
	RevalidationLead    = 30 * time.Minute
	RevalidationTimeout = 10 * time.Minute
	FeedbackGrace       = 24 * time.Hour
	StaleRequestAge     = 15 * time.Minute
	PurgeAfter          = 7 * 24 * time.Hour

	RevalidationRadiusMeters = 10000.0
	CheckInRadiusMeters      = 100.0
)

// Cancellable states for the creator.
var cancellableStatuses = []Status{StatusScheduled, StatusMatched, StatusRevalidationPending, StatusActive}

// Feedback is accepted from these states.
var feedbackStatuses = []Status{StatusMatched, StatusActive, StatusOnSitePartial, StatusOnSiteConfirmed}

func (e *Event) close(status Status, now time.Time) {
	e.Status = status
	e.ClosedAt = &now
}

// expire moves an unmatched event past its expiry to expired.
func (e *Event) expire(now time.Time) error {
	if e.Status != StatusScheduled {
		return stateError("expire", e.Status)
	}
	if e.ExpiresAt.After(now) {
		return fmt.Errorf("%w: event expires at %s", ErrConflict, e.ExpiresAt.Format(time.RFC3339))
	}
	e.close(StatusExpired, now)
	return nil
}

// match binds the participant to a scheduled event.
func (e *Event) match(req *EventRequest, now time.Time) error {
	if e.Status != StatusScheduled {
		return ErrEventTaken
	}
	participant := req.RequesterID
	e.ParticipantID = &participant
	e.Status = StatusMatched
	e.MatchedAt = &now
	return nil
}

// requestRevalidation opens the revalidation window once the start is at
// most RevalidationLead away.
func (e *Event) requestRevalidation(now time.Time) error {
	if e.Status != StatusMatched {
		return stateError("request revalidation for", e.Status)
	}
	if e.ScheduledStartTime.Before(now) || e.ScheduledStartTime.After(now.Add(RevalidationLead)) {
		return fmt.Errorf("%w: revalidation not due", ErrConflict)
	}
	e.Status = StatusRevalidationPending
	e.RevalidationSentAt = &now
	return nil
}

// timeoutRevalidation cancels an event whose creator never answered.
func (e *Event) timeoutRevalidation(now time.Time) error {
	if e.Status != StatusRevalidationPending {
		return stateError("time out revalidation for", e.Status)
	}
	if e.RevalidationSentAt == nil || e.RevalidationSentAt.After(now.Add(-RevalidationTimeout)) {
		return fmt.Errorf("%w: revalidation still open", ErrConflict)
	}
	e.close(StatusCancelledNoRevalidation, now)
	return nil
}

// revalidate records the creator's answer. Declining and being too far away
// are outcomes, not errors.
func (e *Event) revalidate(confirmed bool, at *geo.Point, now time.Time) (RevalidationOutcome, *float64, error) {
	if e.Status != StatusRevalidationPending {
		return "", nil, stateError("revalidate", e.Status)
	}
	if confirmed && at == nil {
		return "", nil, validationError("location is required to confirm")
	}

	e.RevalidationRespondedAt = &now
	if at != nil {
		lat, lng := at.Lat, at.Lng
		e.RevalidationLat = &lat
		e.RevalidationLng = &lng
	}

	if !confirmed {
		e.close(StatusCancelledNoRevalidation, now)
		return OutcomeCancelledNoRevalidation, nil, nil
	}

	distance := geo.DistanceMeters(*at, e.Hub.Point())
	if distance > RevalidationRadiusMeters {
		e.close(StatusCancelledGeoMismatch, now)
		return OutcomeCancelledGeoMismatch, &distance, nil
	}

	e.RevalidationConfirmed = true
	e.Status = StatusActive
	return OutcomeConfirmed, &distance, nil
}

// checkIn marks role as arrived when at lies within CheckInRadiusMeters of
// the hub. It reports the distance and whether both parties are now on site.
func (e *Event) checkIn(role Role, at geo.Point, now time.Time) (float64, bool, error) {
	if !e.Status.In(StatusActive, StatusOnSitePartial) {
		return 0, false, stateError("check in to", e.Status)
	}

	ci := e.checkInOf(role)
	if ci.Status == CheckInCheckedIn {
		return 0, false, ErrAlreadyCheckedIn
	}

	distance := geo.DistanceMeters(at, e.Hub.Point())
	if distance > CheckInRadiusMeters {
		return distance, false, fmt.Errorf("%w: %.0f m away, must be within %.0f m", ErrTooFarFromHub, distance, CheckInRadiusMeters)
	}

	lat, lng := at.Lat, at.Lng
	ci.Status = CheckInCheckedIn
	ci.At = &now
	ci.Lat = &lat
	ci.Lng = &lng

	both := e.CreatorCheckIn.Status == CheckInCheckedIn && e.ParticipantCheckIn.Status == CheckInCheckedIn
	if both {
		e.Status = StatusOnSiteConfirmed
	} else {
		e.Status = StatusOnSitePartial
	}
	return distance, both, nil
}

// cancel is the creator's cancellation.
func (e *Event) cancel(now time.Time) error {
	if !e.Status.In(cancellableStatuses...) {
		return stateError("cancel", e.Status)
	}
	e.close(StatusCancelled, now)
	return nil
}

// closeNoShows ends a meetup whose scheduled end passed without both
// parties on site. Roles that never checked in are marked no_show and
// returned.
func (e *Event) closeNoShows(now time.Time) ([]Role, error) {
	if !e.Status.In(StatusActive, StatusOnSitePartial) {
		return nil, stateError("close no-shows for", e.Status)
	}
	if now.Before(e.EndTime()) {
		return nil, fmt.Errorf("%w: meetup has not ended", ErrConflict)
	}

	var missing []Role
	for _, role := range []Role{RoleCreator, RoleParticipant} {
		ci := e.checkInOf(role)
		if ci.Status != CheckInCheckedIn {
			ci.Status = CheckInNoShow
			missing = append(missing, role)
		}
	}
	e.close(StatusCancelled, now)
	return missing, nil
}

// markFeedbackReminder records the reminder once the meetup has ended.
func (e *Event) markFeedbackReminder(now time.Time) error {
	if e.Status != StatusOnSiteConfirmed {
		return stateError("remind feedback for", e.Status)
	}
	if e.FeedbackReminderSentAt != nil {
		return fmt.Errorf("%w: reminder already sent", ErrConflict)
	}
	if now.Before(e.EndTime()) {
		return fmt.Errorf("%w: meetup has not ended", ErrConflict)
	}
	e.FeedbackReminderSentAt = &now
	return nil
}

// complete closes the event as completed.
func (e *Event) complete(now time.Time) error {
	if !e.Status.In(feedbackStatuses...) {
		return stateError("complete", e.Status)
	}
	e.CompletedAt = &now
	e.close(StatusCompleted, now)
	return nil
}

// autoComplete completes a confirmed meetup whose feedback grace elapsed.
func (e *Event) autoComplete(now time.Time) error {
	if e.Status != StatusOnSiteConfirmed {
		return stateError("auto-complete", e.Status)
	}
	if e.FeedbackReminderSentAt == nil || e.FeedbackReminderSentAt.After(now.Add(-FeedbackGrace)) {
		return fmt.Errorf("%w: feedback grace not elapsed", ErrConflict)
	}
	return e.complete(now)
}

// validateSchedule checks the creation window and duration.
func validateSchedule(start time.Time, durationMinutes int, now time.Time) error {
	if start.Before(now.Add(MinLeadTime)) {
		return validationError("start time must be at least %s from now", MinLeadTime)
	}
	if start.After(now.Add(MaxLeadTime)) {
		return validationError("start time must be within %s from now", MaxLeadTime)
	}
	if durationMinutes < MinDurationMinutes || durationMinutes > MaxDurationMinutes {
		return validationError("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}
	return nil
}
