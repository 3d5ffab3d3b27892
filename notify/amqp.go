package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stevemurr/poi-editor-server/config"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes changes to a topic exchange.
type AMQPSink struct {
	conn       *amqp.Connection
	ch         publisher
	exchange   string
	routingKey string
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(cfg config.AMQP) (*AMQPSink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	s := newAMQPSink(ch, cfg)
	s.conn = conn
	return s, nil
}

func newAMQPSink(ch publisher, cfg config.AMQP) *AMQPSink {
	key := cfg.RoutingKey
	if key == "" {
		key = EventType
	}
	return &AMQPSink{ch: ch, exchange: cfg.Exchange, routingKey: key}
}

func (s *AMQPSink) Name() string { return "amqp:" + s.exchange }

func (s *AMQPSink) Send(ctx context.Context, change Change) error {
	body, err := change.body()
	if err != nil {
		return err
	}
	return s.ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    change.ID,
		Timestamp:    change.Time,
		Type:         EventType,
		Body:         body,
	})
}

func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
