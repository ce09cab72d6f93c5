package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"dinewire/internal/config"
)

// AMQPSender publishes channel acknowledgements to a topic exchange, one
// routing key per channel address. Publisher confirms are on: Send waits
// for the broker ack so a lost acknowledgement at least gets logged.
type AMQPSender struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // confirms serialize publishes
}

func DialAMQP(cfg config.RabbitMQConfig) (*AMQPSender, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &AMQPSender{conn: conn, ch: ch, exchange: cfg.Exchange, acks: acks}, nil
}

func (s *AMQPSender) Send(ctx context.Context, channelAddr, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ch.PublishWithContext(ctx, s.exchange, channelAddr, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "text/plain",
		Timestamp:    time.Now().UTC(),
		Body:         []byte(text),
	})
	if err != nil {
		return err
	}

	select {
	case conf := <-s.acks:
		if !conf.Ack {
			return errors.New("publish NACK from broker")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AMQPSender) Close() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Ping is a light connection health check.
func (s *AMQPSender) Ping() error {
	if s.conn == nil || s.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}
