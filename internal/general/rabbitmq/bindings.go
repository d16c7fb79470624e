package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareTopology ensures the durable topic exchange all broadcasts share.
func declareTopology(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// declareSubscriberQueue creates a server-named, exclusive, auto-delete queue
// bound to routingKey. Each subscriber gets its own queue, so every
// subscriber sees every publish and nothing outlives the subscriber.
func declareSubscriberQueue(ch *amqp.Channel, exchange, routingKey string) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return "", fmt.Errorf("declare subscriber queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s to %s (%s): %w", q.Name, exchange, routingKey, err)
	}

	return q.Name, nil
}
