package main

import (
	"context"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/broker"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/config"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const emailSender = "Hub Meetups <no-reply@hubmeetups.app>"

// NotificationSystem holds all notification-related components
type NotificationSystem struct {
	Service       notification.Service
	Dispatcher    *notification.Dispatcher
	Consumer      notification.Consumer
	MessageBroker broker.MessageBroker
	Logger        *logrus.Logger
	CancelFunc    context.CancelFunc
}

// SetupNotificationSystem initializes and configures all notification components
func SetupNotificationSystem(
	db *connection.Database,
	cfg *config.Config,
	appLogger *zap.Logger,
) (*NotificationSystem, error) {
	notifLogger := logrus.New()
	notifLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		notifLogger.SetLevel(logrus.InfoLevel)
	} else {
		notifLogger.SetLevel(logrus.DebugLevel)
	}

	repo := notification.NewRepository(db, notifLogger)
	signalRepo := notification.NewSignalRepository(cfg.Notification.BufferSize, notifLogger)

	msgBroker := broker.NewInMemoryBroker(
		notifLogger,
		cfg.Notification.Workers,
		cfg.Notification.BufferSize,
		cfg.Notification.DeliveryTimeout,
	)

	delivery := notification.NewChannelRouter(notifLogger, map[notification.DeliveryMethod]notification.DeliveryService{
		notification.InApp: notification.NewInAppDeliveryService(signalRepo),
		notification.Email: notification.NewEmailDeliveryService(notifLogger, emailSender),
		notification.Push:  notification.NewPushDeliveryService(notifLogger),
	})

	service := notification.NewService(notification.ServiceConfig{
		Repository: repo,
		Logger:     notifLogger,
		SignalRepo: signalRepo,
		Delivery:   delivery,
	})

	consumerCtx, cancelFunc := context.WithCancel(context.Background())

	producer, err := notification.NewBrokerProducer(consumerCtx, msgBroker, notifLogger)
	if err != nil {
		cancelFunc()
		return nil, err
	}

	consumer := notification.NewBrokerConsumer(msgBroker, service, notifLogger)
	if err := consumer.Start(consumerCtx); err != nil {
		cancelFunc()
		appLogger.Error("Failed to start notification consumer", zap.Error(err))
		return nil, err
	}

	dispatcher := notification.NewDispatcher(service, producer, notifLogger, cfg.Notification.DeliveryTimeout)

	appLogger.Info("Notification system started successfully",
		zap.Int("workers", cfg.Notification.Workers),
		zap.Int("buffer_size", cfg.Notification.BufferSize))

	return &NotificationSystem{
		Service:       service,
		Dispatcher:    dispatcher,
		Consumer:      consumer,
		MessageBroker: msgBroker,
		Logger:        notifLogger,
		CancelFunc:    cancelFunc,
	}, nil
}

// Shutdown waits for in-flight notifications, then stops the consumer and
// the broker.
func (ns *NotificationSystem) Shutdown() error {
	ns.Dispatcher.Wait()

	if ns.Consumer != nil && ns.Consumer.IsRunning() {
		if err := ns.Consumer.Stop(); err != nil {
			ns.Logger.WithError(err).Error("Error shutting down notification consumer")
			return err
		}
	}

	if ns.CancelFunc != nil {
		ns.CancelFunc()
	}

	if ns.MessageBroker != nil {
		if err := ns.MessageBroker.Close(); err != nil {
			ns.Logger.WithError(err).Error("Error closing message broker")
			return err
		}
	}

	ns.Logger.Info("Notification system shut down successfully")
	return nil
}
