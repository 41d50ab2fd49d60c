package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier is the port domains use to tell a user something happened.
// Delivery is fire-and-forget: it never blocks nor fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notificationType Type, payload Payload)
}

// Dispatcher is the Notifier used in production. It hands notifications to
// the broker producer on a goroutine and falls back to direct delivery when
// the broker rejects them.
type Dispatcher struct {
	service  Service
	producer Producer
	logger   *logrus.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(service Service, producer Producer, logger *logrus.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		service:  service,
		producer: producer,
		logger:   logger,
		timeout:  timeout,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, notificationType Type, payload Payload) {
	n := &Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        notificationType,
		Title:       payload.Title,
		Content:     payload.Summary,
		Data:        payload.Data,
		Reference:   payload.Reference,
		ReferenceID: payload.ReferenceID,
		Status:      Unread,
	}
	methods := payload.Methods

	// The request that triggered the notification may finish first.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithField("panic", r).Error("Notification dispatch panicked")
			}
		}()

		if err := d.send(sendCtx, n, methods); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"type":    notificationType,
				"ref_id":  payload.ReferenceID,
			}).Error("Failed to dispatch notification")
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, n *Notification, methods []DeliveryMethod) error {
	if d.producer != nil {
		err := d.producer.Produce(ctx, n, methods)
		if err == nil {
			return nil
		}
		d.logger.WithError(err).Warn("Broker rejected notification, delivering directly")
	}
	return d.service.Deliver(ctx, n, methods)
}

// Wait blocks until in-flight dispatches finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
