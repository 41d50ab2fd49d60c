package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrQueueFull     = errors.New("queue is full")
	ErrBrokerClosed  = errors.New("broker is closed")
)

// Message is a unit of work published on a topic.
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Payload     []byte            `json:"payload"`
	PublishedAt time.Time         `json:"published_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// MessageHandler processes one message. Errors are logged, the message is
// not redelivered.
type MessageHandler func(context.Context, *Message) error

// MessageBroker is the publish/subscribe contract used for asynchronous
// notification delivery.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)
	CreateTopic(ctx context.Context, topic string) error
	Close() error
}

type Subscription interface {
	ID() string
	Topic() string
	Unsubscribe() error
}

type delivery struct {
	handler MessageHandler
	msg     *Message
}

// InMemoryBroker fans messages out to subscribers through a bounded queue
// drained by a fixed worker pool.
type InMemoryBroker struct {
	mu             sync.RWMutex
	subscriptions  map[string]map[string]MessageHandler
	queue          chan delivery
	logger         *logrus.Logger
	handlerTimeout time.Duration
	closed         bool
	wg             sync.WaitGroup
}

type subscription struct {
	id     string
	topic  string
	broker *InMemoryBroker
	once   sync.Once
}

// NewInMemoryBroker starts workers goroutines reading from a queue of
// queueSize pending deliveries.
func NewInMemoryBroker(logger *logrus.Logger, workers, queueSize int, handlerTimeout time.Duration) *InMemoryBroker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Second
	}

	b := &InMemoryBroker{
		subscriptions:  make(map[string]map[string]MessageHandler),
		queue:          make(chan delivery, queueSize),
		logger:         logger,
		handlerTimeout: handlerTimeout,
	}

	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.work()
	}

	return b
}

func (b *InMemoryBroker) work() {
	defer b.wg.Done()
	for d := range b.queue {
		b.process(d)
	}
}

func (b *InMemoryBroker) process(d delivery) {
	// Handlers outlive the publishing request.
	ctx, cancel := context.WithTimeout(context.Background(), b.handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"message_id": d.msg.ID,
				"topic":      d.msg.Topic,
				"panic":      r,
			}).Error("Message handler panicked")
		}
	}()

	if err := d.handler(ctx, d.msg); err != nil {
		b.logger.WithError(err).WithField("message_id", d.msg.ID).Error("Error processing message")
	}
}

func (b *InMemoryBroker) CreateTopic(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	if _, exists := b.subscriptions[topic]; !exists {
		b.subscriptions[topic] = make(map[string]MessageHandler)
	}
	return nil
}

// Publish enqueues the message for every subscriber of topic. It never
// blocks: a full queue drops the delivery and returns ErrQueueFull.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	subs, ok := b.subscriptions[topic]
	if !ok {
		return ErrTopicNotFound
	}

	msg := &Message{
		ID:          uuid.New().String(),
		Topic:       topic,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
		Attributes:  attributes,
	}

	for _, handler := range subs {
		select {
		case b.queue <- delivery{handler: handler, msg: msg}:
		default:
			return ErrQueueFull
		}
	}
	return nil
}

func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	if _, exists := b.subscriptions[topic]; !exists {
		b.subscriptions[topic] = make(map[string]MessageHandler)
	}

	id := uuid.New().String()
	b.subscriptions[topic][id] = handler

	return &subscription{id: id, topic: topic, broker: b}, nil
}

// Close stops accepting messages and waits for queued deliveries to finish.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if subs, ok := s.broker.subscriptions[s.topic]; ok {
			delete(subs, s.id)
		}
	})
	return nil
}

// NotificationMessage is the payload carried on the notifications topic.
type NotificationMessage struct {
	NotificationID  string                 `json:"notification_id"`
	UserID          string                 `json:"user_id"`
	Type            string                 `json:"type"`
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	Data            map[string]interface{} `json:"data,omitempty"`
	DeliveryMethods []string               `json:"delivery_methods,omitempty"`
	Reference       string                 `json:"reference,omitempty"`
	ReferenceID     string                 `json:"reference_id,omitempty"`
}

// Encode marshals the message for Publish.
func (m NotificationMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
