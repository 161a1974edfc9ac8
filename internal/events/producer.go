// Package events publishes donation lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// IntentEvent is published after a committed intent status change.
type IntentEvent struct {
	IntentID      int64               `json:"intent_id"`
	UserID        string              `json:"user_id"`
	Status        domain.IntentStatus `json:"status"`
	Amount        string              `json:"amount"`
	Currency      domain.Currency     `json:"currency"`
	TargetKind    domain.TargetKind   `json:"target_kind"`
	TargetID      int64               `json:"target_id"`
	TransactionID string              `json:"transaction_id,omitempty"`
	GoalReached   bool                `json:"goal_reached,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// RoutingKey is donation.<status>.
func (e IntentEvent) RoutingKey() string {
	return "donation." + string(e.Status)
}

// Publisher is implemented by the RabbitMQ producer and its fallback.
type Publisher interface {
	PublishIntentEvent(ctx context.Context, event IntentEvent) error
	Close()
}

var ErrProducerClosed = errors.New("event producer is closed")

// Producer holds the RabbitMQ connection and channel for publishing messages.
type Producer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   logger.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewProducer dials RabbitMQ and declares the topic exchange.
func NewProducer(amqpURL, exchange string, log logger.Logger) (*Producer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: ch, exchange: exchange, logger: log}, nil
}

// Connect returns a Producer, or a Fallback when the URL is empty or the
// broker cannot be reached.
func Connect(amqpURL, exchange string, log logger.Logger) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		log.Warn("RabbitMQ not configured, events will not be published", nil)
		return &Fallback{logger: log}
	}
	p, err := NewProducer(amqpURL, exchange, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, using fallback publisher", map[string]interface{}{
			"error": err.Error(),
		})
		return &Fallback{logger: log}
	}
	log.Info("RabbitMQ connected", map[string]interface{}{"exchange": exchange})
	return p
}

func (p *Producer) PublishIntentEvent(ctx context.Context, event IntentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.conn == nil {
		return ErrProducerClosed
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err == nil {
		return nil
	}

	// one retry on a fresh channel
	p.logger.Warn("Publish failed, reopening channel", map[string]interface{}{
		"routing_key": event.RoutingKey(),
		"error":       err.Error(),
	})
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
}

// Close gracefully closes the channel and connection to RabbitMQ. Publishing
// afterwards returns ErrProducerClosed.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Fallback is a no-op publisher used when RabbitMQ is unavailable.
type Fallback struct {
	logger logger.Logger
}

func NewFallback(log logger.Logger) *Fallback {
	return &Fallback{logger: log}
}

func (f *Fallback) PublishIntentEvent(ctx context.Context, event IntentEvent) error {
	f.logger.Debug("Event publish skipped", map[string]interface{}{
		"routing_key": event.RoutingKey(),
		"intent_id":   event.IntentID,
	})
	return nil
}

func (f *Fallback) Close() {}
