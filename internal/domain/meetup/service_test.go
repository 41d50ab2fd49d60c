package meetup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubAt(p geo.Point, placeID string) Hub {
	return Hub{PlaceID: placeID, Name: placeID, Type: "cafe", Lat: p.Lat, Lng: p.Lng}
}

// pendingRevalidation returns a matched event whose revalidation was just
// dispatched.
func (f *fixture) pendingRevalidation(t *testing.T) *Event {
	t.Helper()
	event := f.matchEvent(t, 3*time.Hour)
	f.clock.Set(event.ScheduledStartTime.Add(-20 * time.Minute))
	res, err := f.svc.DispatchRevalidations(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)
	e := f.repo.event(t, event.ID)
	require.Equal(t, StatusRevalidationPending, e.Status)
	return &e
}

func TestCreateEventSchedulingWindow(t *testing.T) {
	tests := []struct {
		name     string
		lead     time.Duration
		duration int
		wantErr  error
	}{
		{"just under two hours", 2*time.Hour - time.Minute, 60, ErrValidation},
		{"exactly two hours", 2 * time.Hour, 60, nil},
		{"exactly seven days", 7 * 24 * time.Hour, 60, nil},
		{"over seven days", 7*24*time.Hour + time.Minute, 60, ErrValidation},
		{"duration too short", 3 * time.Hour, 29, ErrValidation},
		{"minimum duration", 3 * time.Hour, 30, nil},
		{"maximum duration", 3 * time.Hour, 480, nil},
		{"duration too long", 3 * time.Hour, 481, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			event, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
				CreatorID:          f.creator,
				Hub:                parisHub,
				ActivityType:       ActivityCowork,
				ScheduledStartTime: f.clock.Now().Add(tt.lead),
				DurationMinutes:    tt.duration,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.repo.state.events)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusScheduled, event.Status)
			assert.Equal(t, event.ScheduledStartTime.Add(-time.Hour), event.ExpiresAt)
			assert.Nil(t, event.ParticipantID)
			assert.Equal(t, 1, f.ledger.count("created", f.creator))
		})
	}
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Now().Add(3 * time.Hour)

	badHub := parisHub
	badHub.Lat = 91

	inputs := map[string]CreateEventInput{
		"unknown activity": {CreatorID: f.creator, Hub: parisHub, ActivityType: "karaoke", ScheduledStartTime: start, DurationMinutes: 60},
		"bad coordinates":  {CreatorID: f.creator, Hub: badHub, ActivityType: ActivityMeal, ScheduledStartTime: start, DurationMinutes: 60},
		"missing place":    {CreatorID: f.creator, Hub: Hub{Name: "x"}, ActivityType: ActivityMeal, ScheduledStartTime: start, DurationMinutes: 60},
		"missing creator":  {Hub: parisHub, ActivityType: ActivityMeal, ScheduledStartTime: start, DurationMinutes: 60},
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateEvent(ctx, input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateEventAllowsOneActiveEventPerCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createEvent(t, 3*time.Hour)

	_, err := f.svc.CreateEvent(ctx, CreateEventInput{
		CreatorID:          f.creator,
		Hub:                parisHub,
		ActivityType:       ActivityWalk,
		ScheduledStartTime: f.clock.Now().Add(5 * time.Hour),
		DurationMinutes:    45,
	})
	assert.ErrorIs(t, err, ErrActiveEventLimit)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.CancelEvent(ctx, f.creator, first.ID)
	require.NoError(t, err)

	second := f.createEvent(t, 5*time.Hour)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateEventRejectsSuspendedCreator(t *testing.T) {
	f := newFixture(t)
	f.ledger.suspended[f.creator] = true

	_, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		CreatorID:          f.creator,
		Hub:                parisHub,
		ActivityType:       ActivityCoffee,
		ScheduledStartTime: f.clock.Now().Add(3 * time.Hour),
		DurationMinutes:    60,
	})
	assert.ErrorIs(t, err, ErrUserSuspended)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateEventSurvivesStatsFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.fail = errors.New("stats store down")

	event := f.createEvent(t, 3*time.Hour)
	assert.Equal(t, StatusScheduled, f.repo.event(t, event.ID).Status)
}

func TestRequestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)

	req, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "  coffee? ")
	require.NoError(t, err)
	assert.Equal(t, RequestPending, req.Status)
	assert.Equal(t, "coffee?", req.Message)
	assert.Equal(t, 1, f.notifier.to(f.creator, notification.JoinRequestReceived))

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
		assert.ErrorIs(t, err, ErrAlreadyRequested)
	})

	t.Run("own event", func(t *testing.T) {
		_, err := f.svc.RequestJoin(ctx, f.creator, event.ID, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.svc.RequestJoin(ctx, f.participant, uuid.New(), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blocked", func(t *testing.T) {
		other := uuid.New()
		f.ledger.blocks = append(f.ledger.blocks, [2]uuid.UUID{f.creator, other})
		_, err := f.svc.RequestJoin(ctx, other, event.ID, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("suspended", func(t *testing.T) {
		other := uuid.New()
		f.ledger.suspended[other] = true
		_, err := f.svc.RequestJoin(ctx, other, event.ID, "")
		assert.ErrorIs(t, err, ErrUserSuspended)
	})

	t.Run("message too long", func(t *testing.T) {
		long := make([]byte, MaxRequestMessageLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := f.svc.RequestJoin(ctx, uuid.New(), event.ID, string(long))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAcceptMatchesAndDeclinesSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)

	winner, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
	require.NoError(t, err)
	var others []*EventRequest
	for i := 0; i < 3; i++ {
		r, err := f.svc.RequestJoin(ctx, uuid.New(), event.ID, "")
		require.NoError(t, err)
		others = append(others, r)
	}

	accepted, err := f.svc.RespondToRequest(ctx, f.creator, winner.ID, true)
	require.NoError(t, err)
	assert.Equal(t, RequestAccepted, accepted.Status)

	matched := f.repo.event(t, event.ID)
	assert.Equal(t, StatusMatched, matched.Status)
	require.NotNil(t, matched.ParticipantID)
	assert.Equal(t, f.participant, *matched.ParticipantID)
	assert.NotNil(t, matched.MatchedAt)

	for _, r := range others {
		stored := f.repo.request(t, r.ID)
		assert.Equal(t, RequestDeclined, stored.Status)
		assert.Equal(t, 1, f.notifier.to(r.RequesterID, notification.JoinRequestDeclined))
	}

	chat, err := f.repo.FindChat(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, chat.IsLocked)
	assert.Equal(t, event.ScheduledStartTime.Add(ChatGracePeriod), chat.ExpiresAt)

	assert.Equal(t, 1, f.ledger.count("match", f.creator))
	assert.Equal(t, 1, f.ledger.count("match", f.participant))
	assert.Equal(t, 1, f.notifier.to(f.participant, notification.JoinRequestAccepted))

	t.Run("respond again", func(t *testing.T) {
		_, err := f.svc.RespondToRequest(ctx, f.creator, winner.ID, false)
		assert.ErrorIs(t, err, ErrRequestHandled)
	})
}

func TestAcceptOnMatchedEventConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)

	late := &EventRequest{
		ID:          uuid.New(),
		EventID:     event.ID,
		RequesterID: uuid.New(),
		Status:      RequestPending,
		CreatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.repo.CreateRequest(ctx, late))

	_, err := f.svc.RespondToRequest(ctx, f.creator, late.ID, true)
	assert.ErrorIs(t, err, ErrEventTaken)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, RequestPending, f.repo.request(t, late.ID).Status)
	assert.Equal(t, f.participant, *f.repo.event(t, event.ID).ParticipantID)
}

func TestConcurrentAcceptsMatchExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)

	const n = 8
	reqs := make([]*EventRequest, n)
	for i := range reqs {
		r, err := f.svc.RequestJoin(ctx, uuid.New(), event.ID, "")
		require.NoError(t, err)
		reqs[i] = r
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []uuid.UUID
		conflicts int
	)
	for _, r := range reqs {
		wg.Add(1)
		go func(r *EventRequest) {
			defer wg.Done()
			_, err := f.svc.RespondToRequest(ctx, f.creator, r.ID, true)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, r.RequesterID)
			} else if errors.Is(err, ErrConflict) {
				conflicts++
			}
		}(r)
	}
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, n-1, conflicts)

	matched := f.repo.event(t, event.ID)
	assert.Equal(t, successes[0], *matched.ParticipantID)

	all, err := f.repo.ListRequests(ctx, event.ID)
	require.NoError(t, err)
	accepted := 0
	for _, r := range all {
		switch r.Status {
		case RequestAccepted:
			accepted++
		case RequestDeclined:
		default:
			t.Errorf("request %s left in status %s", r.ID, r.Status)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestRespondRequiresCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)
	req, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
	require.NoError(t, err)

	_, err = f.svc.RespondToRequest(ctx, f.participant, req.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RespondToRequest(ctx, f.creator, uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclineKeepsEventOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)
	req, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
	require.NoError(t, err)

	declined, err := f.svc.RespondToRequest(ctx, f.creator, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, RequestDeclined, declined.Status)
	assert.NotNil(t, declined.RespondedAt)

	stored := f.repo.event(t, event.ID)
	assert.Equal(t, StatusScheduled, stored.Status)
	assert.Nil(t, stored.ParticipantID)
	assert.Equal(t, 1, f.notifier.to(f.participant, notification.JoinRequestDeclined))
	assert.Equal(t, 0, f.ledger.count("match", f.creator))
}

func TestCancelEvent(t *testing.T) {
	t.Run("scheduled with pending requests", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		event := f.createEvent(t, 3*time.Hour)
		req, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
		require.NoError(t, err)

		cancelled, err := f.svc.CancelEvent(ctx, f.creator, event.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.ClosedAt)
		assert.Equal(t, RequestCancelled, f.repo.request(t, req.ID).Status)
		assert.Equal(t, 1, f.ledger.count("cancellation", f.creator))
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.EventCancelled))
	})

	t.Run("matched notifies participant", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)
		_, err := f.svc.CancelEvent(context.Background(), f.creator, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.EventCancelled))
	})

	t.Run("active", func(t *testing.T) {
		f := newFixture(t)
		event := f.activeEvent(t)
		_, err := f.svc.CancelEvent(context.Background(), f.creator, event.ID)
		require.NoError(t, err)
	})

	t.Run("on site is not cancellable", func(t *testing.T) {
		f := newFixture(t)
		event := f.onSiteEvent(t)
		_, err := f.svc.CancelEvent(context.Background(), f.creator, event.ID)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, StatusOnSiteConfirmed, f.repo.event(t, event.ID).Status)
	})

	t.Run("participant cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)
		_, err := f.svc.CancelEvent(context.Background(), f.participant, event.ID)
		assert.ErrorIs(t, err, ErrNotEventCreator)
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t)
		event := f.createEvent(t, 3*time.Hour)
		_, err := f.svc.CancelEvent(context.Background(), f.creator, event.ID)
		require.NoError(t, err)
		_, err = f.svc.CancelEvent(context.Background(), f.creator, event.ID)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestRevalidateOutcomes(t *testing.T) {
	hub := parisHub.Point()

	t.Run("confirmed just inside radius", func(t *testing.T) {
		f := newFixture(t)
		event := f.pendingRevalidation(t)
		at := north(hub, 9999.99)

		res, err := f.svc.Revalidate(context.Background(), f.creator, event.ID, true, &at)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.Equal(t, StatusActive, res.Event.Status)
		assert.True(t, res.Event.RevalidationConfirmed)
		require.NotNil(t, res.DistanceMeters)
		assert.InDelta(t, 9999.99, *res.DistanceMeters, 0.001)
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.RevalidationConfirmed))
	})

	t.Run("geo mismatch just outside radius", func(t *testing.T) {
		f := newFixture(t)
		event := f.pendingRevalidation(t)
		at := north(hub, 10000.01)

		res, err := f.svc.Revalidate(context.Background(), f.creator, event.ID, true, &at)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCancelledGeoMismatch, res.Outcome)
		assert.Equal(t, StatusCancelledGeoMismatch, res.Event.Status)
		assert.NotNil(t, res.Event.ClosedAt)
		assert.Equal(t, 1, f.ledger.count("cancellation", f.creator))
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.CancelledGeoMismatch))
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		event := f.pendingRevalidation(t)

		res, err := f.svc.Revalidate(context.Background(), f.creator, event.ID, false, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCancelledNoRevalidation, res.Outcome)
		assert.Equal(t, StatusCancelledNoRevalidation, res.Event.Status)
		assert.Nil(t, res.DistanceMeters)
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.CancelledNoRevalidation))
	})

	t.Run("confirm without location", func(t *testing.T) {
		f := newFixture(t)
		event := f.pendingRevalidation(t)

		_, err := f.svc.Revalidate(context.Background(), f.creator, event.ID, true, nil)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, StatusRevalidationPending, f.repo.event(t, event.ID).Status)
	})

	t.Run("not pending", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)

		_, err := f.svc.Revalidate(context.Background(), f.creator, event.ID, true, &hub)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("participant cannot revalidate", func(t *testing.T) {
		f := newFixture(t)
		event := f.pendingRevalidation(t)

		_, err := f.svc.Revalidate(context.Background(), f.participant, event.ID, true, &hub)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCheckIn(t *testing.T) {
	hub := parisHub.Point()

	t.Run("within radius moves to partial then confirmed", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		event := f.activeEvent(t)

		res, err := f.svc.CheckIn(ctx, f.creator, event.ID, north(hub, 99.99))
		require.NoError(t, err)
		assert.Equal(t, RoleCreator, res.Role)
		assert.False(t, res.BothOnSite)
		assert.Equal(t, StatusOnSitePartial, res.Event.Status)
		assert.Equal(t, CheckInCheckedIn, res.Event.CreatorCheckIn.Status)
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.PartnerCheckedIn))

		res, err = f.svc.CheckIn(ctx, f.participant, event.ID, hub)
		require.NoError(t, err)
		assert.True(t, res.BothOnSite)
		assert.Equal(t, StatusOnSiteConfirmed, res.Event.Status)
		assert.Equal(t, 1, f.notifier.to(f.creator, notification.BothOnSite))
		assert.Equal(t, 1, f.notifier.to(f.participant, notification.BothOnSite))
	})

	t.Run("outside radius leaves state unchanged", func(t *testing.T) {
		f := newFixture(t)
		event := f.activeEvent(t)

		_, err := f.svc.CheckIn(context.Background(), f.creator, event.ID, north(hub, 100.01))
		assert.ErrorIs(t, err, ErrGeoMismatch)

		stored := f.repo.event(t, event.ID)
		assert.Equal(t, StatusActive, stored.Status)
		assert.Equal(t, CheckInPending, stored.CreatorCheckIn.Status)
		assert.Nil(t, stored.CreatorCheckIn.At)
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		event := f.activeEvent(t)

		_, err := f.svc.CheckIn(ctx, f.participant, event.ID, hub)
		require.NoError(t, err)
		_, err = f.svc.CheckIn(ctx, f.participant, event.ID, hub)
		assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	})

	t.Run("before revalidation", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)

		_, err := f.svc.CheckIn(context.Background(), f.creator, event.ID, hub)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture(t)
		event := f.activeEvent(t)

		_, err := f.svc.CheckIn(context.Background(), uuid.New(), event.ID, hub)
		assert.ErrorIs(t, err, ErrNotEventParty)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		f := newFixture(t)
		event := f.activeEvent(t)

		_, err := f.svc.CheckIn(context.Background(), f.creator, event.ID, geo.Point{Lat: 12, Lng: 181})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestChatLocksAfterBothQuotasUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)

	for i := 0; i < MessageQuota; i++ {
		_, err := f.svc.SendMessage(ctx, f.creator, event.ID, fmt.Sprintf("creator %d", i))
		require.NoError(t, err)
		_, err = f.svc.SendMessage(ctx, f.participant, event.ID, fmt.Sprintf("participant %d", i))
		require.NoError(t, err)
	}

	chat, err := f.repo.FindChat(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, chat.IsLocked)
	assert.NotNil(t, chat.LockedAt)
	assert.Equal(t, MessageQuota, chat.CreatorMessageCount)
	assert.Equal(t, MessageQuota, chat.ParticipantMessageCount)

	for _, sender := range []uuid.UUID{f.creator, f.participant} {
		_, err := f.svc.SendMessage(ctx, sender, event.ID, "one more")
		assert.ErrorIs(t, err, ErrChatLocked)
		assert.ErrorIs(t, err, ErrConflict)
	}

	msgs, err := f.repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2*MessageQuota)
	assert.Equal(t, MessageQuota, f.notifier.to(f.creator, notification.ChatMessageReceived))
}

func TestChatQuotaPerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)

	for i := 0; i < MessageQuota; i++ {
		_, err := f.svc.SendMessage(ctx, f.creator, event.ID, "hello")
		require.NoError(t, err)
	}

	_, err := f.svc.SendMessage(ctx, f.creator, event.ID, "hello again")
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	chat, err := f.repo.FindChat(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, chat.IsLocked)

	_, err = f.svc.SendMessage(ctx, f.participant, event.ID, "hi")
	assert.NoError(t, err)
}

func TestSendMessageRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)

	_, err := f.svc.SendMessage(ctx, f.creator, event.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SendMessage(ctx, uuid.New(), event.ID, "hey")
	assert.ErrorIs(t, err, ErrNotEventParty)

	f.clock.Set(event.ScheduledStartTime.Add(ChatGracePeriod))
	_, err = f.svc.SendMessage(ctx, f.creator, event.ID, "late")
	assert.ErrorIs(t, err, ErrChatExpired)

	unmatched := f.createEventBy(t, uuid.New(), parisHub, 4*time.Hour)
	_, err = f.svc.SendMessage(ctx, unmatched.CreatorID, unmatched.ID, "anyone?")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSubmitFeedbackCompletesWhenBothSubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.onSiteEvent(t)

	fb, err := f.svc.SubmitFeedback(ctx, SubmitFeedbackInput{
		UserID: f.creator, EventID: event.ID, Rating: RatingPositive, Comment: "great chat",
	})
	require.NoError(t, err)
	assert.Equal(t, f.participant, fb.ToUserID)
	assert.Equal(t, StatusOnSiteConfirmed, f.repo.event(t, event.ID).Status)
	assert.Equal(t, 1, f.notifier.to(f.participant, notification.FeedbackRequested))
	assert.Equal(t, []stats.Rating{stats.RatingPositive}, f.ledger.ratings[f.participant])

	_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackInput{UserID: f.creator, EventID: event.ID, Rating: RatingNeutral})
	assert.ErrorIs(t, err, ErrFeedbackGiven)

	_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackInput{UserID: f.participant, EventID: event.ID, Rating: RatingNeutral})
	require.NoError(t, err)

	completed := f.repo.event(t, event.ID)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.NotNil(t, completed.ClosedAt)
	assert.Equal(t, 1, f.ledger.count("completion", f.creator))
	assert.Equal(t, 1, f.ledger.count("completion", f.participant))
	assert.Equal(t, 1, f.notifier.to(f.creator, notification.EventCompleted))

	_, err = f.svc.SubmitFeedback(ctx, SubmitFeedbackInput{UserID: f.participant, EventID: event.ID, Rating: RatingPositive})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, f.ledger.count("completion", f.participant))
}

func TestSubmitFeedbackStates(t *testing.T) {
	t.Run("allowed once matched", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)
		_, err := f.svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
			UserID: f.participant, EventID: event.ID, Rating: RatingNegative,
		})
		assert.NoError(t, err)
	})

	t.Run("rejected while scheduled", func(t *testing.T) {
		f := newFixture(t)
		event := f.createEvent(t, 3*time.Hour)
		_, err := f.svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
			UserID: f.creator, EventID: event.ID, Rating: RatingPositive,
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown rating", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)
		_, err := f.svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
			UserID: f.creator, EventID: event.ID, Rating: "stellar",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture(t)
		event := f.matchEvent(t, 3*time.Hour)
		_, err := f.svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
			UserID: uuid.New(), EventID: event.ID, Rating: RatingPositive,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestGetEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)
	_, err := f.svc.SendMessage(ctx, f.participant, event.ID, "see you there")
	require.NoError(t, err)

	details, err := f.svc.GetEvent(ctx, f.creator, event.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Role)
	assert.Equal(t, RoleCreator, *details.Role)
	require.NotNil(t, details.Chat)
	assert.Len(t, details.Messages, 1)

	_, err = f.svc.GetEvent(ctx, uuid.New(), event.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	open := f.createEventBy(t, uuid.New(), parisHub, 4*time.Hour)
	details, err = f.svc.GetEvent(ctx, uuid.New(), open.ID)
	require.NoError(t, err)
	assert.Nil(t, details.Role)
	assert.Nil(t, details.Chat)
}

func TestListRequestsRequiresCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, 3*time.Hour)
	_, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "")
	require.NoError(t, err)

	reqs, err := f.svc.ListRequests(ctx, f.creator, event.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	_, err = f.svc.ListRequests(ctx, f.participant, event.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListNearby(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	center := parisHub.Point()

	near := f.createEventBy(t, uuid.New(), hubAt(north(center, 1000), "near"), 3*time.Hour)
	mid := f.createEventBy(t, uuid.New(), hubAt(north(center, 3000), "mid"), 4*time.Hour)
	f.createEventBy(t, uuid.New(), hubAt(north(center, 8000), "far"), 3*time.Hour)
	f.createEvent(t, 3*time.Hour)

	blockedCreator := uuid.New()
	f.createEventBy(t, blockedCreator, hubAt(north(center, 500), "blocked"), 3*time.Hour)
	f.ledger.blocks = append(f.ledger.blocks, [2]uuid.UUID{blockedCreator, f.creator})

	results, err := f.svc.ListNearby(ctx, NearbyQuery{UserID: f.creator, Position: center})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, near.ID, results[0].Event.ID)
	assert.Equal(t, mid.ID, results[1].Event.ID)
	assert.InDelta(t, 1000, results[0].DistanceMeters, 1)

	t.Run("activity filter", func(t *testing.T) {
		walk := ActivityWalk
		results, err := f.svc.ListNearby(ctx, NearbyQuery{UserID: f.creator, Position: center, ActivityType: &walk})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("radius too large", func(t *testing.T) {
		_, err := f.svc.ListNearby(ctx, NearbyQuery{UserID: f.creator, Position: center, RadiusMeters: 60000})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := f.svc.ListNearby(ctx, NearbyQuery{UserID: f.creator, Position: center, RadiusMeters: 10000, Limit: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, near.ID, results[0].Event.ID)
	})
}

func TestListNearbyAcrossAntimeridian(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fiji := f.createEventBy(t, uuid.New(), hubAt(geo.Point{Lat: -16.8, Lng: -179.99}, "taveuni"), 3*time.Hour)

	results, err := f.svc.ListNearby(ctx, NearbyQuery{UserID: f.creator, Position: geo.Point{Lat: -16.8, Lng: 179.99}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fiji.ID, results[0].Event.ID)
	assert.Less(t, results[0].DistanceMeters, 5000.0)
}

func TestListAtHubHidesBlockedCreators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	visible := f.createEventBy(t, uuid.New(), parisHub, 3*time.Hour)
	blocked := f.createEventBy(t, uuid.New(), parisHub, 4*time.Hour)
	f.ledger.blocks = append(f.ledger.blocks, [2]uuid.UUID{f.participant, blocked.CreatorID})

	events, err := f.svc.ListAtHub(ctx, f.participant, parisHub.PlaceID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, visible.ID, events[0].ID)

	_, err = f.svc.ListAtHub(ctx, f.participant, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	event := f.matchEvent(t, 3*time.Hour)

	for _, user := range []uuid.UUID{f.creator, f.participant} {
		events, err := f.svc.ListMine(context.Background(), user)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
	}
}
