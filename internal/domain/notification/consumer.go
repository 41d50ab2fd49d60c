package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/broker"
	"github.com/sirupsen/logrus"
)

// Consumer drains the notifications topic into the notification service.
type Consumer interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

type brokerConsumer struct {
	mu            sync.Mutex
	messageBroker broker.MessageBroker
	service       Service
	logger        *logrus.Logger
	subscription  broker.Subscription
}

func NewBrokerConsumer(messageBroker broker.MessageBroker, service Service, logger *logrus.Logger) Consumer {
	return &brokerConsumer{
		messageBroker: messageBroker,
		service:       service,
		logger:        logger,
	}
}

func (c *brokerConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription != nil {
		return errors.New("consumer already running")
	}

	if err := c.messageBroker.CreateTopic(ctx, Topic); err != nil {
		return err
	}

	sub, err := c.messageBroker.Subscribe(ctx, Topic, c.handleMessage)
	if err != nil {
		return err
	}
	c.subscription = sub

	c.logger.WithFields(logrus.Fields{
		"topic":        Topic,
		"subscription": sub.ID(),
	}).Info("Notification consumer started")

	return nil
}

func (c *brokerConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription == nil {
		return nil
	}
	if err := c.subscription.Unsubscribe(); err != nil {
		return err
	}
	c.subscription = nil

	c.logger.Info("Notification consumer stopped")
	return nil
}

func (c *brokerConsumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscription != nil
}

func (c *brokerConsumer) handleMessage(ctx context.Context, message *broker.Message) error {
	var msg broker.NotificationMessage
	if err := json.Unmarshal(message.Payload, &msg); err != nil {
		return err
	}

	n, methods, err := fromMessage(msg)
	if err != nil {
		return err
	}

	return c.service.Deliver(ctx, n, methods)
}
