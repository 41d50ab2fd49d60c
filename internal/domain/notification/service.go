package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service defines the notification service interface
type Service interface {
	// Deliver stores the notification (once) and sends it through methods.
	// In-app delivery always happens.
	Deliver(ctx context.Context, notification *Notification, methods []DeliveryMethod) error

	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Subscribe(userID uuid.UUID) (<-chan *Notification, func(), error)

	// Cleanup drops read notifications older than retention.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type ServiceConfig struct {
	Repository Repository
	Logger     *logrus.Logger
	SignalRepo SignalRepository
	Delivery   DeliveryService
}

type serviceImpl struct {
	repo       Repository
	logger     *logrus.Logger
	signalRepo SignalRepository
	delivery   DeliveryService
}

func NewService(config ServiceConfig) Service {
	return &serviceImpl{
		repo:       config.Repository,
		logger:     config.Logger,
		signalRepo: config.SignalRepo,
		delivery:   config.Delivery,
	}
}

func (s *serviceImpl) Deliver(ctx context.Context, notification *Notification, methods []DeliveryMethod) error {
	if notification == nil {
		return ErrNilNotification
	}
	notification.applyDefaults(time.Now().UTC())

	// Redelivered broker messages must not duplicate the inbox row.
	exists, err := s.repo.Exists(ctx, notification.ID)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.WithError(err).Error("Failed to create notification record")
			return err
		}
	}

	for _, method := range withInApp(methods) {
		if err := s.delivery.Deliver(ctx, notification, method); err != nil {
			s.logger.WithError(err).WithField("method", method).
				Error("Failed to deliver notification through channel")
		}
	}

	return nil
}

func withInApp(methods []DeliveryMethod) []DeliveryMethod {
	out := []DeliveryMethod{InApp}
	for _, m := range methods {
		if m != InApp {
			out = append(out, m)
		}
	}
	return out
}

func (s *serviceImpl) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *serviceImpl) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if n.Status == Read {
		return nil
	}
	return s.repo.MarkAsRead(ctx, id, time.Now().UTC())
}

func (s *serviceImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID, time.Now().UTC())
}

func (s *serviceImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *serviceImpl) Subscribe(userID uuid.UUID) (<-chan *Notification, func(), error) {
	return s.signalRepo.Subscribe(userID.String())
}

func (s *serviceImpl) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
}
