package meetup

import (
	"context"
	"errors"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventFilter narrows event listings. Nil fields are ignored, time bounds
// are inclusive.
type EventFilter struct {
	Statuses               []Status
	CreatorID              *uuid.UUID
	PlaceID                *string
	ActivityType           *ActivityType
	Box                    *geo.BoundingBox
	StartsAfter            *time.Time
	StartsBefore           *time.Time
	ExpiresBefore          *time.Time
	RevalidationSentBefore *time.Time
	ReminderSentBefore     *time.Time
	ReminderUnset          bool
	Limit                  int
}

// TransitionFunc mutates a locked event. Returning an error rolls the whole
// transaction back.
type TransitionFunc func(ctx context.Context, tx Store, event *Event) error

// Store holds the operations usable both on the pool and inside a
// transaction opened by Transition or Transact.
type Store interface {
	CreateEvent(ctx context.Context, event *Event) error
	FindEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	FindActiveEventByCreator(ctx context.Context, creatorID uuid.UUID) (*Event, error)
	// LockUser serialises work on one user until the transaction ends.
	LockUser(ctx context.Context, userID uuid.UUID) error

	CreateRequest(ctx context.Context, req *EventRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*EventRequest, error)
	FindOpenRequest(ctx context.Context, eventID, requesterID uuid.UUID) (*EventRequest, error)
	ListRequests(ctx context.Context, eventID uuid.UUID, statuses ...RequestStatus) ([]EventRequest, error)
	SaveRequest(ctx context.Context, req *EventRequest) error

	CreateChat(ctx context.Context, chat *EventChat) error
	FindChat(ctx context.Context, eventID uuid.UUID) (*EventChat, error)
	SaveChat(ctx context.Context, chat *EventChat) error
	CreateMessage(ctx context.Context, msg *ChatMessage) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error)

	CreateFeedback(ctx context.Context, fb *EventFeedback) error
	ListFeedback(ctx context.Context, eventID uuid.UUID) ([]EventFeedback, error)
}

// Repository is the event store.
type Repository interface {
	Store
	// Transition locks the event row, runs fn and saves the event, all in
	// one transaction. It is the only way an event changes state.
	Transition(ctx context.Context, eventID uuid.UUID, fn TransitionFunc) (*Event, error)
	Transact(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListEventsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error)
	ListStalePendingRequests(ctx context.Context, createdBefore time.Time, limit int) ([]EventRequest, error)
	PurgeClosedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type store struct {
	db *gorm.DB
}

type repository struct {
	store
	conn *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{store: store{db: db.DB}, conn: db}
}

func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if connection.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repository) Transition(ctx context.Context, eventID uuid.UUID, fn TransitionFunc) (*Event, error) {
	var event Event
	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, "id = ?", eventID).Error
		if err != nil {
			return translate(err, ErrEventNotFound)
		}
		if err := fn(ctx, &store{db: tx}, &event); err != nil {
			return err
		}
		return tx.Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) Transact(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &store{db: tx})
	})
}

func (s *store) CreateEvent(ctx context.Context, event *Event) error {
	return translate(s.db.WithContext(ctx).Create(event).Error, ErrEventNotFound)
}

func (s *store) FindEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrEventNotFound)
	}
	return &event, nil
}

func (s *store) FindActiveEventByCreator(ctx context.Context, creatorID uuid.UUID) (*Event, error) {
	var event Event
	err := s.db.WithContext(ctx).
		Where("creator_id = ? AND status NOT IN ?", creatorID, TerminalStatuses).
		Order("created_at DESC").
		First(&event).Error
	if err != nil {
		return nil, translate(err, ErrEventNotFound)
	}
	return &event, nil
}

func (s *store) LockUser(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID.String()).Error
}

func (s *store) CreateRequest(ctx context.Context, req *EventRequest) error {
	err := s.db.WithContext(ctx).Create(req).Error
	if connection.IsUniqueViolation(err) {
		return ErrAlreadyRequested
	}
	return err
}

func (s *store) FindRequest(ctx context.Context, id uuid.UUID) (*EventRequest, error) {
	var req EventRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrRequestNotFound)
	}
	return &req, nil
}

func (s *store) FindOpenRequest(ctx context.Context, eventID, requesterID uuid.UUID) (*EventRequest, error) {
	var req EventRequest
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND requester_id = ? AND status <> ?", eventID, requesterID, RequestCancelled).
		First(&req).Error
	if err != nil {
		return nil, translate(err, ErrRequestNotFound)
	}
	return &req, nil
}

func (s *store) ListRequests(ctx context.Context, eventID uuid.UUID, statuses ...RequestStatus) ([]EventRequest, error) {
	var reqs []EventRequest
	query := s.db.WithContext(ctx).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("created_at ASC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *store) SaveRequest(ctx context.Context, req *EventRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

func (s *store) CreateChat(ctx context.Context, chat *EventChat) error {
	return translate(s.db.WithContext(ctx).Create(chat).Error, ErrChatNotFound)
}

func (s *store) FindChat(ctx context.Context, eventID uuid.UUID) (*EventChat, error) {
	var chat EventChat
	if err := s.db.WithContext(ctx).First(&chat, "event_id = ?", eventID).Error; err != nil {
		return nil, translate(err, ErrChatNotFound)
	}
	return &chat, nil
}

func (s *store) SaveChat(ctx context.Context, chat *EventChat) error {
	return s.db.WithContext(ctx).Save(chat).Error
}

func (s *store) CreateMessage(ctx context.Context, msg *ChatMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *store) ListMessages(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error) {
	var msgs []ChatMessage
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

func (s *store) CreateFeedback(ctx context.Context, fb *EventFeedback) error {
	err := s.db.WithContext(ctx).Create(fb).Error
	if connection.IsUniqueViolation(err) {
		return ErrFeedbackGiven
	}
	return err
}

func (s *store) ListFeedback(ctx context.Context, eventID uuid.UUID) ([]EventFeedback, error) {
	var fbs []EventFeedback
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&fbs).Error
	return fbs, err
}

func (r *repository) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	var events []Event
	query := r.conn.WithContext(ctx).Model(&Event{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatorID != nil {
		query = query.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.PlaceID != nil {
		query = query.Where("hub_place_id = ?", *filter.PlaceID)
	}
	if filter.ActivityType != nil {
		query = query.Where("activity_type = ?", *filter.ActivityType)
	}
	if filter.Box != nil {
		query = query.Where("hub_lat BETWEEN ? AND ?", filter.Box.MinLat, filter.Box.MaxLat)
		if filter.Box.CrossesAntimeridian() {
			query = query.Where("(hub_lng >= ? OR hub_lng <= ?)", filter.Box.MinLng, filter.Box.MaxLng)
		} else {
			query = query.Where("hub_lng BETWEEN ? AND ?", filter.Box.MinLng, filter.Box.MaxLng)
		}
	}
	if filter.StartsAfter != nil {
		query = query.Where("scheduled_start_time >= ?", *filter.StartsAfter)
	}
	if filter.StartsBefore != nil {
		query = query.Where("scheduled_start_time <= ?", *filter.StartsBefore)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	if filter.RevalidationSentBefore != nil {
		query = query.Where("revalidation_sent_at <= ?", *filter.RevalidationSentBefore)
	}
	if filter.ReminderSentBefore != nil {
		query = query.Where("feedback_reminder_sent_at <= ?", *filter.ReminderSentBefore)
	}
	if filter.ReminderUnset {
		query = query.Where("feedback_reminder_sent_at IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("scheduled_start_time ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListEventsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	var events []Event
	query := r.conn.WithContext(ctx).
		Where("creator_id = ? OR participant_id = ?", userID, userID).
		Order("scheduled_start_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListStalePendingRequests(ctx context.Context, createdBefore time.Time, limit int) ([]EventRequest, error) {
	var reqs []EventRequest
	query := r.conn.WithContext(ctx).
		Where("status = ? AND created_at <= ?", RequestPending, createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// PurgeClosedBefore deletes up to limit terminal events closed at or before
// cutoff together with their requests, chat and feedback.
func (r *repository) PurgeClosedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var purged int64
	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		query := tx.Model(&Event{}).
			Where("status IN ? AND closed_at IS NOT NULL AND closed_at <= ?", TerminalStatuses, cutoff)
		if limit > 0 {
			query = query.Limit(limit)
		}
		if err := query.Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		children := []interface{}{&ChatMessage{}, &EventChat{}, &EventFeedback{}, &EventRequest{}}
		for _, model := range children {
			if err := tx.Where("event_id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id IN ?", ids).Delete(&Event{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	return purged, err
}
