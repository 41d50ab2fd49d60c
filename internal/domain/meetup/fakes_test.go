package meetup

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/clock"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memState is the in-memory data behind mockRepository.
type memState struct {
	events   map[uuid.UUID]Event
	requests map[uuid.UUID]EventRequest
	chats    map[uuid.UUID]EventChat
	messages []ChatMessage
	feedback []EventFeedback
}

func newMemState() *memState {
	return &memState{
		events:   make(map[uuid.UUID]Event),
		requests: make(map[uuid.UUID]EventRequest),
		chats:    make(map[uuid.UUID]EventChat),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.chats {
		c.chats[k] = v
	}
	c.messages = append([]ChatMessage(nil), s.messages...)
	c.feedback = append([]EventFeedback(nil), s.feedback...)
	return c
}

// memStore is the transaction scoped view. The caller holds the lock.
type memStore struct {
	s *memState
}

func (m memStore) CreateEvent(ctx context.Context, event *Event) error {
	if _, ok := m.s.events[event.ID]; ok {
		return ErrConflict
	}
	m.s.events[event.ID] = *event
	return nil
}

func (m memStore) FindEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, ok := m.s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (m memStore) FindActiveEventByCreator(ctx context.Context, creatorID uuid.UUID) (*Event, error) {
	for _, e := range m.s.events {
		if e.CreatorID == creatorID && !e.Status.IsTerminal() {
			return &e, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m memStore) LockUser(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (m memStore) CreateRequest(ctx context.Context, req *EventRequest) error {
	for _, r := range m.s.requests {
		if r.EventID == req.EventID && r.RequesterID == req.RequesterID && r.Status != RequestCancelled {
			return ErrAlreadyRequested
		}
	}
	m.s.requests[req.ID] = *req
	return nil
}

func (m memStore) FindRequest(ctx context.Context, id uuid.UUID) (*EventRequest, error) {
	r, ok := m.s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &r, nil
}

func (m memStore) FindOpenRequest(ctx context.Context, eventID, requesterID uuid.UUID) (*EventRequest, error) {
	for _, r := range m.s.requests {
		if r.EventID == eventID && r.RequesterID == requesterID && r.Status != RequestCancelled {
			return &r, nil
		}
	}
	return nil, ErrRequestNotFound
}

func (m memStore) ListRequests(ctx context.Context, eventID uuid.UUID, statuses ...RequestStatus) ([]EventRequest, error) {
	var out []EventRequest
	for _, r := range m.s.requests {
		if r.EventID != eventID {
			continue
		}
		if len(statuses) > 0 && !requestStatusIn(r.Status, statuses) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func requestStatusIn(s RequestStatus, statuses []RequestStatus) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (m memStore) SaveRequest(ctx context.Context, req *EventRequest) error {
	m.s.requests[req.ID] = *req
	return nil
}

func (m memStore) CreateChat(ctx context.Context, chat *EventChat) error {
	if _, ok := m.s.chats[chat.EventID]; ok {
		return ErrConflict
	}
	m.s.chats[chat.EventID] = *chat
	return nil
}

func (m memStore) FindChat(ctx context.Context, eventID uuid.UUID) (*EventChat, error) {
	c, ok := m.s.chats[eventID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return &c, nil
}

func (m memStore) SaveChat(ctx context.Context, chat *EventChat) error {
	m.s.chats[chat.EventID] = *chat
	return nil
}

func (m memStore) CreateMessage(ctx context.Context, msg *ChatMessage) error {
	m.s.messages = append(m.s.messages, *msg)
	return nil
}

func (m memStore) ListMessages(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error) {
	var out []ChatMessage
	for _, msg := range m.s.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m memStore) CreateFeedback(ctx context.Context, fb *EventFeedback) error {
	for _, f := range m.s.feedback {
		if f.EventID == fb.EventID && f.FromUserID == fb.FromUserID {
			return ErrFeedbackGiven
		}
	}
	m.s.feedback = append(m.s.feedback, *fb)
	return nil
}

func (m memStore) ListFeedback(ctx context.Context, eventID uuid.UUID) ([]EventFeedback, error) {
	var out []EventFeedback
	for _, f := range m.s.feedback {
		if f.EventID == eventID {
			out = append(out, f)
		}
	}
	return out, nil
}

// mockRepository serialises every call behind one mutex, which gives
// Transition the same isolation as a row lock.
type mockRepository struct {
	mu     sync.Mutex
	state  *memState
	failOn map[uuid.UUID]error
}

func newMockRepository() *mockRepository {
	return &mockRepository{state: newMemState(), failOn: make(map[uuid.UUID]error)}
}

func (r *mockRepository) locked(fn func(st memStore)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(memStore{s: r.state})
}

func (r *mockRepository) CreateEvent(ctx context.Context, event *Event) (err error) {
	r.locked(func(st memStore) { err = st.CreateEvent(ctx, event) })
	return
}

func (r *mockRepository) FindEvent(ctx context.Context, id uuid.UUID) (e *Event, err error) {
	r.locked(func(st memStore) { e, err = st.FindEvent(ctx, id) })
	return
}

func (r *mockRepository) FindActiveEventByCreator(ctx context.Context, creatorID uuid.UUID) (e *Event, err error) {
	r.locked(func(st memStore) { e, err = st.FindActiveEventByCreator(ctx, creatorID) })
	return
}

func (r *mockRepository) LockUser(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (r *mockRepository) CreateRequest(ctx context.Context, req *EventRequest) (err error) {
	r.locked(func(st memStore) { err = st.CreateRequest(ctx, req) })
	return
}

func (r *mockRepository) FindRequest(ctx context.Context, id uuid.UUID) (req *EventRequest, err error) {
	r.locked(func(st memStore) { req, err = st.FindRequest(ctx, id) })
	return
}

func (r *mockRepository) FindOpenRequest(ctx context.Context, eventID, requesterID uuid.UUID) (req *EventRequest, err error) {
	r.locked(func(st memStore) { req, err = st.FindOpenRequest(ctx, eventID, requesterID) })
	return
}

func (r *mockRepository) ListRequests(ctx context.Context, eventID uuid.UUID, statuses ...RequestStatus) (reqs []EventRequest, err error) {
	r.locked(func(st memStore) { reqs, err = st.ListRequests(ctx, eventID, statuses...) })
	return
}

func (r *mockRepository) SaveRequest(ctx context.Context, req *EventRequest) (err error) {
	r.locked(func(st memStore) { err = st.SaveRequest(ctx, req) })
	return
}

func (r *mockRepository) CreateChat(ctx context.Context, chat *EventChat) (err error) {
	r.locked(func(st memStore) { err = st.CreateChat(ctx, chat) })
	return
}

func (r *mockRepository) FindChat(ctx context.Context, eventID uuid.UUID) (c *EventChat, err error) {
	r.locked(func(st memStore) { c, err = st.FindChat(ctx, eventID) })
	return
}

func (r *mockRepository) SaveChat(ctx context.Context, chat *EventChat) (err error) {
	r.locked(func(st memStore) { err = st.SaveChat(ctx, chat) })
	return
}

func (r *mockRepository) CreateMessage(ctx context.Context, msg *ChatMessage) (err error) {
	r.locked(func(st memStore) { err = st.CreateMessage(ctx, msg) })
	return
}

func (r *mockRepository) ListMessages(ctx context.Context, chatID uuid.UUID) (msgs []ChatMessage, err error) {
	r.locked(func(st memStore) { msgs, err = st.ListMessages(ctx, chatID) })
	return
}

func (r *mockRepository) CreateFeedback(ctx context.Context, fb *EventFeedback) (err error) {
	r.locked(func(st memStore) { err = st.CreateFeedback(ctx, fb) })
	return
}

func (r *mockRepository) ListFeedback(ctx context.Context, eventID uuid.UUID) (fbs []EventFeedback, err error) {
	r.locked(func(st memStore) { fbs, err = st.ListFeedback(ctx, eventID) })
	return
}

func (r *mockRepository) Transition(ctx context.Context, eventID uuid.UUID, fn TransitionFunc) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failOn[eventID]; err != nil {
		return nil, err
	}
	current, ok := r.state.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}

	snapshot := r.state.clone()
	event := current
	if err := fn(ctx, memStore{s: r.state}, &event); err != nil {
		r.state = snapshot
		return nil, err
	}
	r.state.events[eventID] = event
	return &event, nil
}

func (r *mockRepository) Transact(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(ctx, memStore{s: r.state}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

func (r *mockRepository) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.state.events {
		if matchesFilter(e, f) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStartTime.Before(out[j].ScheduledStartTime) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(e Event, f EventFilter) bool {
	if len(f.Statuses) > 0 && !e.Status.In(f.Statuses...) {
		return false
	}
	if f.CreatorID != nil && e.CreatorID != *f.CreatorID {
		return false
	}
	if f.PlaceID != nil && e.Hub.PlaceID != *f.PlaceID {
		return false
	}
	if f.ActivityType != nil && e.ActivityType != *f.ActivityType {
		return false
	}
	if f.Box != nil && !f.Box.Contains(e.Hub.Point()) {
		return false
	}
	if f.StartsAfter != nil && e.ScheduledStartTime.Before(*f.StartsAfter) {
		return false
	}
	if f.StartsBefore != nil && e.ScheduledStartTime.After(*f.StartsBefore) {
		return false
	}
	if f.ExpiresBefore != nil && e.ExpiresAt.After(*f.ExpiresBefore) {
		return false
	}
	if f.RevalidationSentBefore != nil && (e.RevalidationSentAt == nil || e.RevalidationSentAt.After(*f.RevalidationSentBefore)) {
		return false
	}
	if f.ReminderSentBefore != nil && (e.FeedbackReminderSentAt == nil || e.FeedbackReminderSentAt.After(*f.ReminderSentBefore)) {
		return false
	}
	if f.ReminderUnset && e.FeedbackReminderSentAt != nil {
		return false
	}
	return true
}

func (r *mockRepository) ListEventsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.state.events {
		if _, ok := e.RoleOf(userID); ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStartTime.After(out[j].ScheduledStartTime) })
	return out, nil
}

func (r *mockRepository) ListStalePendingRequests(ctx context.Context, createdBefore time.Time, limit int) ([]EventRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []EventRequest
	for _, req := range r.state.requests {
		if req.Status == RequestPending && !req.CreatedAt.After(createdBefore) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *mockRepository) PurgeClosedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, e := range r.state.events {
		if !e.Status.IsTerminal() || e.ClosedAt == nil || e.ClosedAt.After(cutoff) {
			continue
		}
		delete(r.state.events, id)
		delete(r.state.chats, id)
		for rid, req := range r.state.requests {
			if req.EventID == id {
				delete(r.state.requests, rid)
			}
		}
		purged++
	}
	return purged, nil
}

func (r *mockRepository) event(t *testing.T, id uuid.UUID) Event {
	t.Helper()
	e, err := r.FindEvent(context.Background(), id)
	require.NoError(t, err)
	return *e
}

func (r *mockRepository) request(t *testing.T, id uuid.UUID) EventRequest {
	t.Helper()
	req, err := r.FindRequest(context.Background(), id)
	require.NoError(t, err)
	return *req
}

type ledgerCall struct {
	op     string
	userID uuid.UUID
}

type mockLedger struct {
	mu        sync.Mutex
	calls     []ledgerCall
	ratings   map[uuid.UUID][]stats.Rating
	suspended map[uuid.UUID]bool
	blocks    [][2]uuid.UUID
	fail      error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		ratings:   make(map[uuid.UUID][]stats.Rating),
		suspended: make(map[uuid.UUID]bool),
	}
}

func (l *mockLedger) add(op string, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, ledgerCall{op, userID})
	return l.fail
}

func (l *mockLedger) count(op string, userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c.op == op && c.userID == userID {
			n++
		}
	}
	return n
}

func (l *mockLedger) RecordEventCreated(ctx context.Context, userID uuid.UUID) error {
	return l.add("created", userID)
}

func (l *mockLedger) RecordMatch(ctx context.Context, creatorID, participantID uuid.UUID) error {
	if err := l.add("match", creatorID); err != nil {
		return err
	}
	return l.add("match", participantID)
}

func (l *mockLedger) RecordCompletion(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return l.add("completion", userID)
}

func (l *mockLedger) RecordCancellation(ctx context.Context, userID uuid.UUID) error {
	return l.add("cancellation", userID)
}

func (l *mockLedger) RecordRating(ctx context.Context, userID uuid.UUID, rating stats.Rating) error {
	l.mu.Lock()
	l.ratings[userID] = append(l.ratings[userID], rating)
	l.mu.Unlock()
	return l.add("rating", userID)
}

func (l *mockLedger) IsSuspended(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended[userID], nil
}

func (l *mockLedger) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pair := range l.blocks {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true, nil
		}
	}
	return false, nil
}

func (l *mockLedger) BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []uuid.UUID
	for _, pair := range l.blocks {
		if pair[0] == userID {
			ids = append(ids, pair[1])
		} else if pair[1] == userID {
			ids = append(ids, pair[0])
		}
	}
	return ids, nil
}

type sentNotification struct {
	userID  uuid.UUID
	kind    notification.Type
	payload notification.Payload
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, t notification.Type, p notification.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID, t, p})
}

func (n *mockNotifier) to(userID uuid.UUID, t notification.Type) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sent {
		if s.userID == userID && s.kind == t {
			count++
		}
	}
	return count
}

var (
	parisHub = Hub{
		PlaceID: "place-paris-1",
		Name:    "Café de Flore",
		Type:    "cafe",
		Lat:     48.8540,
		Lng:     2.3325,
		Address: "172 Bd Saint-Germain, Paris",
	}
	baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

// north returns the point meters due north of p.
func north(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/geo.EarthRadiusMeters*180/math.Pi, Lng: p.Lng}
}

type fixture struct {
	repo     *mockRepository
	ledger   *mockLedger
	notifier *mockNotifier
	clock    *clock.Fixed
	svc      Engine

	creator     uuid.UUID
	participant uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:        newMockRepository(),
		ledger:      newMockLedger(),
		notifier:    &mockNotifier{},
		clock:       clock.NewFixed(baseTime),
		creator:     uuid.New(),
		participant: uuid.New(),
	}
	f.svc = NewService(ServiceConfig{
		Repository: f.repo,
		Ledger:     f.ledger,
		Notifier:   f.notifier,
		Clock:      f.clock,
		Logger:     zap.NewNop(),
	})
	return f
}

// createEvent creates an event for the fixture creator starting after lead.
func (f *fixture) createEvent(t *testing.T, lead time.Duration) *Event {
	t.Helper()
	return f.createEventBy(t, f.creator, parisHub, lead)
}

func (f *fixture) createEventBy(t *testing.T, creator uuid.UUID, hub Hub, lead time.Duration) *Event {
	t.Helper()
	event, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		CreatorID:          creator,
		Hub:                hub,
		ActivityType:       ActivityCoffee,
		ScheduledStartTime: f.clock.Now().Add(lead),
		DurationMinutes:    60,
	})
	require.NoError(t, err)
	return event
}

// matchEvent creates an event and matches the fixture participant to it.
func (f *fixture) matchEvent(t *testing.T, lead time.Duration) *Event {
	t.Helper()
	ctx := context.Background()
	event := f.createEvent(t, lead)
	req, err := f.svc.RequestJoin(ctx, f.participant, event.ID, "hi!")
	require.NoError(t, err)
	_, err = f.svc.RespondToRequest(ctx, f.creator, req.ID, true)
	require.NoError(t, err)
	e := f.repo.event(t, event.ID)
	return &e
}

// activeEvent drives an event to active through the revalidation sweep.
func (f *fixture) activeEvent(t *testing.T) *Event {
	t.Helper()
	ctx := context.Background()
	event := f.matchEvent(t, 3*time.Hour)
	f.clock.Set(event.ScheduledStartTime.Add(-20 * time.Minute))

	res, err := f.svc.DispatchRevalidations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)

	hub := parisHub.Point()
	result, err := f.svc.Revalidate(ctx, f.creator, event.ID, true, &hub)
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, result.Outcome)
	return &result.Event
}

// onSiteEvent checks both parties in at the hub.
func (f *fixture) onSiteEvent(t *testing.T) *Event {
	t.Helper()
	ctx := context.Background()
	event := f.activeEvent(t)
	f.clock.Set(event.ScheduledStartTime)

	_, err := f.svc.CheckIn(ctx, f.creator, event.ID, parisHub.Point())
	require.NoError(t, err)
	res, err := f.svc.CheckIn(ctx, f.participant, event.ID, parisHub.Point())
	require.NoError(t, err)
	require.True(t, res.BothOnSite)
	return &res.Event
}
