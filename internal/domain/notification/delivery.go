package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DeliveryMethod defines how notifications are delivered
type DeliveryMethod string

const (
	InApp DeliveryMethod = "in_app"
	Email DeliveryMethod = "email"
	Push  DeliveryMethod = "push"
)

// DeliveryService sends a stored notification through one channel.
type DeliveryService interface {
	Deliver(ctx context.Context, notification *Notification, method DeliveryMethod) error
}

// channelRouter dispatches to the service registered for each method.
// Unregistered methods are skipped with a log line rather than failing the
// whole notification.
type channelRouter struct {
	channels map[DeliveryMethod]DeliveryService
	logger   *logrus.Logger
}

func NewChannelRouter(logger *logrus.Logger, channels map[DeliveryMethod]DeliveryService) DeliveryService {
	return &channelRouter{channels: channels, logger: logger}
}

func (r *channelRouter) Deliver(ctx context.Context, notification *Notification, method DeliveryMethod) error {
	svc, ok := r.channels[method]
	if !ok || svc == nil {
		r.logger.WithField("method", method).Info("Delivery channel not configured, skipping")
		return nil
	}
	return svc.Deliver(ctx, notification, method)
}

// inAppDeliveryService pushes notifications to live subscribers.
type inAppDeliveryService struct {
	signalRepo SignalRepository
}

func NewInAppDeliveryService(signalRepo SignalRepository) DeliveryService {
	return &inAppDeliveryService{signalRepo: signalRepo}
}

func (s *inAppDeliveryService) Deliver(ctx context.Context, notification *Notification, method DeliveryMethod) error {
	return s.signalRepo.Publish(notification.UserID.String(), notification)
}

// emailDeliveryService hands mail to the outbound mail relay. Until the relay
// is connected the message is only logged.
type emailDeliveryService struct {
	logger *logrus.Logger
	from   string
}

func NewEmailDeliveryService(logger *logrus.Logger, from string) DeliveryService {
	return &emailDeliveryService{logger: logger, from: from}
}

func (s *emailDeliveryService) Deliver(ctx context.Context, notification *Notification, method DeliveryMethod) error {
	if method != Email {
		return fmt.Errorf("email service cannot deliver %s", method)
	}
	s.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
		"type":            notification.Type,
		"from":            s.from,
		"subject":         notification.Title,
	}).Info("Email notification queued")
	return nil
}

// pushDeliveryService hands notifications to the mobile push gateway. Like
// email it only logs until the gateway credentials are provisioned.
type pushDeliveryService struct {
	logger *logrus.Logger
}

func NewPushDeliveryService(logger *logrus.Logger) DeliveryService {
	return &pushDeliveryService{logger: logger}
}

func (s *pushDeliveryService) Deliver(ctx context.Context, notification *Notification, method DeliveryMethod) error {
	if method != Push {
		return fmt.Errorf("push service cannot deliver %s", method)
	}
	s.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
		"type":            notification.Type,
		"title":           notification.Title,
	}).Info("Push notification queued")
	return nil
}
