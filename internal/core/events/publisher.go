package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// EventTypeIngested is carried in the AMQP Type property.
const EventTypeIngested = "document.ingested"

// AMQPPublisher sends ingestion events to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn      *amqp.Connection
	queueName string
}

// Dial connects and checks the broker is reachable within three seconds.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		ch, err := conn.Channel()
		if err == nil {
			_ = ch.Close()
		}
		done <- err
	}()

	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq health check timeout: %w", checkCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		return conn, nil
	}
}

func NewAMQPPublisher(conn *amqp.Connection, queueName string) *AMQPPublisher {
	return &AMQPPublisher{conn: conn, queueName: queueName}
}

func (p *AMQPPublisher) PublishIngested(ctx context.Context, ev core.IngestEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish message failed: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

func newPublishing(ev core.IngestEvent) (amqp.Publishing, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event payload failed: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         EventTypeIngested,
		MessageId:    ev.DocumentID + "@" + ev.IngestedAt.Format(time.RFC3339Nano),
		Timestamp:    ev.IngestedAt,
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	}, nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishIngested(context.Context, core.IngestEvent) error { return nil }
func (NoopPublisher) Close() error                                            { return nil }

// NewPublisher returns an AMQP publisher when AMQP_URL is set and the broker
// answers, otherwise a NoopPublisher.
func NewPublisher(ctx context.Context, cfg *config.Config) core.EventPublisher {
	if cfg.AMQPURL == "" {
		return NoopPublisher{}
	}
	conn, err := Dial(ctx, cfg.AMQPURL)
	if err != nil {
		log.Printf("WARN: ingestion events disabled: %v", err)
		return NoopPublisher{}
	}
	log.Printf("Publishing ingestion events to queue %s", cfg.AMQPQueue)
	return NewAMQPPublisher(conn, cfg.AMQPQueue)
}

var (
	_ core.EventPublisher = (*AMQPPublisher)(nil)
	_ core.EventPublisher = NoopPublisher{}
)
