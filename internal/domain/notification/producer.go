package notification

import (
	"context"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/broker"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Topic is the broker topic carrying notifications.
const Topic = "notifications"

// Producer enqueues notifications for asynchronous delivery.
type Producer interface {
	Produce(ctx context.Context, notification *Notification, methods []DeliveryMethod) error
}

type brokerProducer struct {
	messageBroker broker.MessageBroker
	logger        *logrus.Logger
}

func NewBrokerProducer(ctx context.Context, messageBroker broker.MessageBroker, logger *logrus.Logger) (Producer, error) {
	if err := messageBroker.CreateTopic(ctx, Topic); err != nil {
		return nil, err
	}
	return &brokerProducer{messageBroker: messageBroker, logger: logger}, nil
}

func (p *brokerProducer) Produce(ctx context.Context, notification *Notification, methods []DeliveryMethod) error {
	if notification == nil {
		return ErrNilNotification
	}

	payload, err := toMessage(notification, methods).Encode()
	if err != nil {
		return err
	}

	attributes := map[string]string{
		"type": string(notification.Type),
		"user": notification.UserID.String(),
	}
	if err := p.messageBroker.Publish(ctx, Topic, payload, attributes); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
		"type":            notification.Type,
	}).Debug("Notification message published")

	return nil
}

func toMessage(n *Notification, methods []DeliveryMethod) broker.NotificationMessage {
	msg := broker.NotificationMessage{
		NotificationID: n.ID.String(),
		UserID:         n.UserID.String(),
		Type:           string(n.Type),
		Title:          n.Title,
		Content:        n.Content,
		Data:           n.Data,
		Reference:      n.Reference,
	}
	if n.ReferenceID != uuid.Nil {
		msg.ReferenceID = n.ReferenceID.String()
	}
	for _, m := range methods {
		msg.DeliveryMethods = append(msg.DeliveryMethods, string(m))
	}
	return msg
}

func fromMessage(msg broker.NotificationMessage) (*Notification, []DeliveryMethod, error) {
	id, err := uuid.Parse(msg.NotificationID)
	if err != nil {
		return nil, nil, err
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, nil, err
	}

	n := &Notification{
		ID:        id,
		UserID:    userID,
		Type:      Type(msg.Type),
		Title:     msg.Title,
		Content:   msg.Content,
		Data:      msg.Data,
		Reference: msg.Reference,
		Status:    Unread,
	}
	if msg.ReferenceID != "" {
		if refID, err := uuid.Parse(msg.ReferenceID); err == nil {
			n.ReferenceID = refID
		}
	}

	methods := make([]DeliveryMethod, 0, len(msg.DeliveryMethods))
	for _, m := range msg.DeliveryMethods {
		methods = append(methods, DeliveryMethod(m))
	}
	return n, methods, nil
}
