package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"careercoach/internal/errors"

	"github.com/streadway/amqp"
)

// DefaultExchange is the topic exchange session updates go to
const DefaultExchange = "session_updates"

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes updates to a topic exchange with routing key
// session.<id>
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   *errors.Logger
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares the exchange
func NewAMQPPublisher(url, exchange string, logger *errors.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = errors.Discard()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeBrokerUnavailable, "error connecting to RabbitMQ", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeBrokerUnavailable, "failed to open AMQP channel", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeBrokerUnavailable, "failed to declare exchange", err).
			WithContext("exchange", exchange)
	}

	logger.Info("Session events enabled", "exchange", exchange)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// RoutingKey returns the routing key of a session
func RoutingKey(sessionID string) string {
	return "session." + sessionID
}

// Publish sends u as JSON. amqp channels are not safe for concurrent use, so
// publishes are serialized.
func (p *AMQPPublisher) Publish(ctx context.Context, u SessionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session update: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, RoutingKey(u.SessionID), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   u.Timestamp,
		Body:        body,
	})
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeBrokerUnavailable, "failed to publish session update", err).
			WithContext("session_id", u.SessionID)
	}
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
