package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const ExchangeName = "worksense.events"

// Routing keys for the domain events the service publishes.
const (
	KeyBacklogConfirmed   = "backlog.confirmed"
	KeySprintItemDone     = "sprint.item.completed"
	KeySprintItemAssigned = "sprint.item.assigned"
)

func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
