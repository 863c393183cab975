package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unclebandit/bulkmail/internal/model"
)

// TopicCampaignEvents carries every CampaignEvent emitted by a running campaign.
const TopicCampaignEvents = "campaign_events"

var ErrNoSubscribers = errors.New("no subscribers for topic")

// Handler receives the JSON encoding of a published payload.
type Handler func(payload []byte) error

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue delivers to subscribers of the same process, retrying failed
// handlers with a linear backoff. Delivery order is not preserved.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler

	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *slog.Logger) *InMemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		Logger:     logger,
	}
}

// job wraps a message payload with retry info
type job struct {
	topic      string
	payload    []byte
	retryCount int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w %s", ErrNoSubscribers, topic)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	for _, handler := range handlers {
		go q.process(handler, job{topic: topic, payload: body})
	}
	return nil
}

func (q *InMemoryQueue) process(handler Handler, j job) {
	for {
		err := handler(j.payload)
		if err == nil {
			return
		}

		j.retryCount++
		if j.retryCount > q.MaxRetries {
			q.Logger.Error("job permanently failed",
				slog.String("topic", j.topic),
				slog.Int("attempts", j.retryCount),
				slog.Any("error", err))
			return
		}
		q.Logger.Warn("job failed, retrying",
			slog.String("topic", j.topic),
			slog.Int("attempt", j.retryCount),
			slog.Any("error", err))

		time.Sleep(time.Duration(j.retryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartCampaignEventSubscriber decodes campaign events from q into out.
// Undecodable payloads are dropped.
func StartCampaignEventSubscriber(q Queue, out chan<- model.CampaignEvent, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	err := q.Subscribe(TopicCampaignEvents, func(payload []byte) error {
		var ev model.CampaignEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Warn("dropping invalid campaign event", slog.Any("error", err))
			return nil
		}
		out <- ev
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicCampaignEvents, err)
	}
	return nil
}

var (
	_ Queue = (*InMemoryQueue)(nil)
	_ Queue = (*AMQPQueue)(nil)
)
