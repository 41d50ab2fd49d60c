package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SignalRepository fans live notifications out to connected clients.
type SignalRepository interface {
	// Subscribe returns a channel of notifications for topic and a cancel
	// function that must be called when the client goes away.
	Subscribe(topic string) (<-chan *Notification, func(), error)
	Publish(topic string, notification *Notification) error
}

type signalRepository struct {
	mutex       sync.Mutex
	topics      map[string]map[string]chan *Notification
	bufferSize  int
	sendTimeout time.Duration
	logger      *logrus.Logger
}

func NewSignalRepository(bufferSize int, logger *logrus.Logger) SignalRepository {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &signalRepository{
		topics:      make(map[string]map[string]chan *Notification),
		bufferSize:  bufferSize,
		sendTimeout: 100 * time.Millisecond,
		logger:      logger,
	}
}

func (r *signalRepository) Subscribe(topic string) (<-chan *Notification, func(), error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.topics[topic]; !exists {
		r.topics[topic] = make(map[string]chan *Notification)
	}

	ch := make(chan *Notification, r.bufferSize)
	subscriberID := uuid.New().String()
	r.topics[topic][subscriberID] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()

			if subs, exists := r.topics[topic]; exists {
				delete(subs, subscriberID)
				if len(subs) == 0 {
					delete(r.topics, topic)
				}
			}
			close(ch)
		})
	}

	return ch, cancel, nil
}

// Publish sends to every subscriber while holding the lock, so a concurrent
// cancel cannot close a channel mid-send. Slow subscribers are skipped after
// sendTimeout.
func (r *signalRepository) Publish(topic string, notification *Notification) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subs, exists := r.topics[topic]
	if !exists {
		return nil
	}

	for _, ch := range subs {
		select {
		case ch <- notification:
		case <-time.After(r.sendTimeout):
			r.logger.WithFields(logrus.Fields{
				"notification_id": notification.ID,
				"topic":           topic,
			}).Warn("Subscriber channel full, notification dropped")
		}
	}

	return nil
}
