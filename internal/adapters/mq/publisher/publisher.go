// Package publisher announces finished segmentation runs on an AMQP queue.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
	"github.com/okian/custseg/pkg/metrics"
)

// DefaultQueue is the queue results are published to.
const DefaultQueue = "segmentation_results"

const contentTypeJSON = "application/json"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends segmentation results as persistent JSON messages.
type Publisher struct {
	conn   *amqp.Connection
	queue  string
	logger logger.Logger

	mu     sync.Mutex
	ch     channel
	closed bool
}

// Dial connects to url, opens a channel and declares the durable result queue.
func Dial(url string, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		ch:     ch,
		queue:  DefaultQueue,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	return p, nil
}

// Publish sends res to the result queue.
func (p *Publisher) Publish(ctx context.Context, res *model.Result) error {
	msg, err := newPublishing(res, time.Now())
	if err != nil {
		metrics.RecordPublishError()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.ch.Publish("", p.queue, false, false, msg); err != nil {
		metrics.RecordPublishError()
		return fmt.Errorf("publish run %s: %w", res.RunID, err)
	}
	p.logger.Debug(ctx, "result published", logger.String("run_id", res.RunID), logger.String("queue", p.queue))
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func newPublishing(res *model.Result, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode run %s: %w", res.RunID, err)
	}
	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    res.RunID,
		Timestamp:    now,
		Type:         "segmentation.completed",
		Body:         body,
	}, nil
}
