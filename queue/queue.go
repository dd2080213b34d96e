// Package queue publishes report lifecycle events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event types
const (
	ReportCreated       = "report.created"
	ReportStatusChanged = "report.status_changed"
	ReportMessageAdded  = "report.message_added"
	ReportDeleted       = "report.deleted"
)

// Event is the JSON payload published for every change to a report
type Event struct {
	Type            string    `json:"type"`
	ReportID        string    `json:"reportId"`
	ReferenceNumber string    `json:"referenceNumber"`
	Status          string    `json:"status,omitempty"`
	Sender          string    `json:"sender,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher sends events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// RabbitMQ publishes persistent messages to a durable queue
type RabbitMQ struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

// ConnectRabbitMQ dials uri and declares queueName
func ConnectRabbitMQ(uri, queueName string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch, queueName: queueName}, nil
}

// Publish implements Publisher. amqp channels are not safe for concurrent
// publishing, so calls are serialized.
func (q *RabbitMQ) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.ch.PublishWithContext(ctx,
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Body:         body,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the channel and the connection
func (q *RabbitMQ) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Close(); err != nil {
		zap.S().Debugw("closing amqp channel", "error", err)
	}
	return q.conn.Close()
}

// New connects to RabbitMQ when uri is set and otherwise returns a publisher
// that drops every event
func New(uri, queueName string) (Publisher, error) {
	if uri == "" {
		zap.S().Infow("AMQP_URI not set, report events will not be published")
		return Nop{}, nil
	}
	return ConnectRabbitMQ(uri, queueName)
}

// Nop discards events
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (Nop) Close() error { return nil }
