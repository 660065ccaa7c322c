package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"worksense/backend/logging"
	"worksense/backend/metrics"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
}

// NewConsumer creates a consumer bound to a single routing key on the
// events exchange.
func NewConsumer(url, queueName, routingKey string) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logging.Logger.Infof("Event ID: MQ_CONSUMER_READY, Description: Consumer bound, queue=%s routing_key=%s", q.Name, routingKey)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks reading deliveries; run it in a goroutine. Every
// delivery is either acked or nacked, including on handler panic.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(c.queue.Name, "worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for msg := range deliveries {
		func() {
			ctx := context.Background()
			start := time.Now()

			defer func() {
				if r := recover(); r != nil {
					logging.Logger.Errorf("Event ID: MQ_HANDLER_PANIC, Description: Handler panic recovered on %s: %v", c.routingKey, r)
					if err := msg.Nack(false, true); err != nil {
						logging.Logger.Errorf("Event ID: MQ_NACK_FAILED, Description: Failed to nack message after panic: %v", err)
					}
				}
			}()

			if err := c.handler(ctx, msg.Body); err != nil {
				logging.Logger.Errorf("Event ID: MQ_HANDLER_ERROR, Description: Handler error on %s: %v", c.routingKey, err)
				if err := msg.Nack(false, true); err != nil {
					logging.Logger.Errorf("Event ID: MQ_NACK_FAILED, Description: Failed to nack message: %v", err)
				}
				return
			}

			metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))

			if err := msg.Ack(false); err != nil {
				logging.Logger.Errorf("Event ID: MQ_ACK_FAILED, Description: Failed to ack message: %v", err)
			}
		}()
	}

	return nil
}
